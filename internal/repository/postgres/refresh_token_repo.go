package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	apperrors "github.com/hijabpoint/accounts-api/internal/pkg/errors"
)

// RefreshTokenRepo implements repository.RefreshTokenRepository on PostgreSQL via GORM.
type RefreshTokenRepo struct {
	db *gorm.DB
}

// NewRefreshTokenRepo creates a new refresh token repository.
func NewRefreshTokenRepo(db *gorm.DB) (*RefreshTokenRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("GORM DB instance is required for RefreshTokenRepo")
	}
	return &RefreshTokenRepo{db: db}, nil
}

// CreateToken stores a new refresh token record and returns its ID.
func (r *RefreshTokenRepo) CreateToken(token *entity.RefreshToken) (uint, error) {
	if err := r.db.Create(token).Error; err != nil {
		return 0, fmt.Errorf("failed to create refresh token: %w", err)
	}
	return token.ID, nil
}

// GetTokenByHash finds a refresh token record by its SHA-256 hash.
func (r *RefreshTokenRepo) GetTokenByHash(tokenHash string) (*entity.RefreshToken, error) {
	var token entity.RefreshToken
	err := r.db.Where("token_hash = ?", tokenHash).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token by hash: %w", err)
	}

	if token.IsExpired || token.RevokedAt != nil || token.ExpiresAt.Before(time.Now()) {
		return nil, apperrors.ErrExpiredToken
	}

	return &token, nil
}

// MarkTokenAsExpired marks a token record as expired by its hash.
func (r *RefreshTokenRepo) MarkTokenAsExpired(tokenHash string) error {
	result := r.db.Model(&entity.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("is_expired", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark refresh token as expired: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkAllAsExpiredForUser marks every token of a user as expired.
func (r *RefreshTokenRepo) MarkAllAsExpiredForUser(userID uint) error {
	return r.db.Model(&entity.RefreshToken{}).
		Where("user_id = ? AND is_expired = ?", userID, false).
		Update("is_expired", true).Error
}

// CleanupExpiredTokens physically removes expired and revoked records.
func (r *RefreshTokenRepo) CleanupExpiredTokens() (int64, error) {
	result := r.db.
		Where("is_expired = ? OR expires_at < ?", true, time.Now()).
		Delete(&entity.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup expired refresh tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
