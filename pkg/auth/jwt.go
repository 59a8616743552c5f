package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
)

// JWTCustomClaims carries the account identity inside an access token.
type JWTCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService signs and validates HS256 access tokens.
type JWTService struct {
	secret            []byte
	accessTokenExpiry time.Duration
}

// NewJWTService creates a new JWT service.
func NewJWTService(secret string, accessTokenExpiry time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if accessTokenExpiry <= 0 {
		accessTokenExpiry = 15 * time.Minute
	}
	return &JWTService{
		secret:            []byte(secret),
		accessTokenExpiry: accessTokenExpiry,
	}, nil
}

// GenerateToken mints an access token for the user and returns the token
// string together with its expiry time.
func (s *JWTService) GenerateToken(user *entity.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTokenExpiry)

	claims := JWTCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates an access token and returns its claims.
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	claims, ok := token.Claims.(*JWTCustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid access token claims")
	}
	return claims, nil
}
