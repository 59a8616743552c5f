package repository

import (
	"github.com/hijabpoint/accounts-api/internal/domain/entity"
)

// RefreshTokenRepository persists refresh token sessions (hash-only).
type RefreshTokenRepository interface {
	// CreateToken stores a new refresh token record and returns its ID.
	CreateToken(refreshToken *entity.RefreshToken) (uint, error)

	// GetTokenByHash finds a token record by its SHA-256 hash. Returns
	// apperrors.ErrExpiredToken for records past their expiry or revoked.
	GetTokenByHash(tokenHash string) (*entity.RefreshToken, error)

	// MarkTokenAsExpired marks a token record as expired by its hash.
	MarkTokenAsExpired(tokenHash string) error

	// MarkAllAsExpiredForUser marks every token of a user as expired.
	MarkAllAsExpiredForUser(userID uint) error

	// CleanupExpiredTokens physically removes expired and revoked records.
	CleanupExpiredTokens() (int64, error)
}
