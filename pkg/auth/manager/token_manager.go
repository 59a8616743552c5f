package manager

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	"github.com/hijabpoint/accounts-api/internal/domain/repository"
	apperrors "github.com/hijabpoint/accounts-api/internal/pkg/errors"
	"github.com/hijabpoint/accounts-api/pkg/auth"
)

// Token lifetime defaults, overridable via the setters below.
const (
	AccessTokenLifetime  = 15 * time.Minute
	RefreshTokenLifetime = 30 * 24 * time.Hour
)

// TokenErrorType identifies a token error class.
type TokenErrorType string

const (
	TokenGenerationFailed TokenErrorType = "TOKEN_GENERATION_FAILED"
	InvalidRefreshToken   TokenErrorType = "INVALID_REFRESH_TOKEN"
	ExpiredRefreshToken   TokenErrorType = "EXPIRED_REFRESH_TOKEN"
	InvalidAccessToken    TokenErrorType = "INVALID_ACCESS_TOKEN"
	UserNotFound          TokenErrorType = "USER_NOT_FOUND"
	InactiveUser          TokenErrorType = "INACTIVE_USER"
	DatabaseError         TokenErrorType = "DATABASE_ERROR"
)

// TokenError is a typed error for token operations, used by handlers for
// stable error_type mapping.
type TokenError struct {
	Type    TokenErrorType
	Message string
	Err     error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// NewTokenError creates a new token error.
func NewTokenError(tokenType TokenErrorType, message string, err error) *TokenError {
	return &TokenError{Type: tokenType, Message: message, Err: err}
}

// TokenResponse is the token pair handed to clients. AccessTokenValidTill is
// the remaining access token lifetime in milliseconds so clients can schedule
// a refresh without parsing the JWT.
type TokenResponse struct {
	AccessToken          string `json:"access_token"`
	RefreshToken         string `json:"refresh_token"`
	TokenType            string `json:"token_type"`
	UserID               uint   `json:"user_id"`
	AccessTokenValidTill int64  `json:"access_token_valid_till"`
}

// TokenManager issues and rotates access/refresh token pairs. Refresh tokens
// are random 256-bit values stored only as SHA-256 hashes.
type TokenManager struct {
	jwtService         *auth.JWTService
	refreshTokenRepo   repository.RefreshTokenRepository
	userRepo           repository.UserRepository
	refreshTokenExpiry time.Duration
}

// NewTokenManager creates a new token manager.
func NewTokenManager(
	jwtService *auth.JWTService,
	refreshTokenRepo repository.RefreshTokenRepository,
	userRepo repository.UserRepository,
) (*TokenManager, error) {
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for TokenManager")
	}
	if refreshTokenRepo == nil {
		return nil, fmt.Errorf("RefreshTokenRepository is required for TokenManager")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for TokenManager")
	}

	return &TokenManager{
		jwtService:         jwtService,
		refreshTokenRepo:   refreshTokenRepo,
		userRepo:           userRepo,
		refreshTokenExpiry: RefreshTokenLifetime,
	}, nil
}

// SetRefreshTokenExpiry overrides the refresh token lifetime.
func (m *TokenManager) SetRefreshTokenExpiry(duration time.Duration) {
	if duration > 0 {
		m.refreshTokenExpiry = duration
	} else {
		log.Printf("[TokenManager] ignoring invalid refresh token expiry: %v", duration)
	}
}

// GenerateTokenPair creates a new access/refresh pair for the user.
func (m *TokenManager) GenerateTokenPair(userID uint) (*TokenResponse, error) {
	user, err := m.userRepo.GetByID(userID)
	if err != nil {
		return nil, NewTokenError(UserNotFound, "user not found", err)
	}
	if !user.IsActive {
		return nil, NewTokenError(InactiveUser, "account is inactive", nil)
	}

	accessToken, expiresAt, err := m.jwtService.GenerateToken(user)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "failed to generate access token", err)
	}

	refreshToken, err := m.issueRefreshToken(user.ID)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "failed to generate refresh token", err)
	}

	return &TokenResponse{
		AccessToken:          accessToken,
		RefreshToken:         refreshToken,
		TokenType:            "Bearer",
		UserID:               user.ID,
		AccessTokenValidTill: time.Until(expiresAt).Milliseconds(),
	}, nil
}

// RefreshTokens rotates the pair: the presented refresh token is retired and
// a fresh pair is issued.
func (m *TokenManager) RefreshTokens(refreshToken string) (*TokenResponse, error) {
	tokenHash := HashRefreshToken(refreshToken)

	tokenEntity, err := m.refreshTokenRepo.GetTokenByHash(tokenHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrExpiredToken) {
			return nil, NewTokenError(ExpiredRefreshToken, "refresh token expired", err)
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, NewTokenError(InvalidRefreshToken, "invalid refresh token", err)
		}
		return nil, NewTokenError(DatabaseError, "failed to look up refresh token", err)
	}

	if err := m.refreshTokenRepo.MarkTokenAsExpired(tokenHash); err != nil {
		// Not fatal: the old token still expires on its own schedule.
		log.Printf("[TokenManager] failed to retire refresh token ID=%d: %v", tokenEntity.ID, err)
	}

	return m.GenerateTokenPair(tokenEntity.UserID)
}

// RevokeRefreshToken retires a single refresh token.
func (m *TokenManager) RevokeRefreshToken(refreshToken string) error {
	tokenHash := HashRefreshToken(refreshToken)
	if err := m.refreshTokenRepo.MarkTokenAsExpired(tokenHash); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return NewTokenError(InvalidRefreshToken, "refresh token not found", err)
		}
		return NewTokenError(DatabaseError, "failed to revoke refresh token", err)
	}
	return nil
}

// RevokeAllUserTokens retires every refresh token of a user. Called after a
// password reset so stolen sessions die with the old credential.
func (m *TokenManager) RevokeAllUserTokens(userID uint) error {
	if err := m.refreshTokenRepo.MarkAllAsExpiredForUser(userID); err != nil {
		return NewTokenError(DatabaseError, "failed to revoke user tokens", err)
	}
	return nil
}

// CleanupExpiredTokens removes expired refresh token records.
func (m *TokenManager) CleanupExpiredTokens() error {
	count, err := m.refreshTokenRepo.CleanupExpiredTokens()
	if err != nil {
		return NewTokenError(DatabaseError, "failed to cleanup expired tokens", err)
	}
	if count > 0 {
		log.Printf("[TokenManager] cleaned up %d expired refresh tokens", count)
	}
	return nil
}

// issueRefreshToken generates a random refresh token, persists its hash and
// returns the plaintext value.
func (m *TokenManager) issueRefreshToken(userID uint) (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	tokenString := hex.EncodeToString(randomBytes)

	token := entity.NewRefreshToken(userID, HashRefreshToken(tokenString), time.Now().Add(m.refreshTokenExpiry))
	if _, err := m.refreshTokenRepo.CreateToken(token); err != nil {
		return "", err
	}

	return tokenString, nil
}

// HashRefreshToken computes the SHA-256 hex digest used for storage lookups.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
