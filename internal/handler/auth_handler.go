package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	"github.com/hijabpoint/accounts-api/internal/service"
	"github.com/hijabpoint/accounts-api/pkg/auth/manager"
)

// AuthHandler serves registration, login and token refresh.
type AuthHandler struct {
	authService  *service.AuthService
	otpService   *service.OTPService
	tokenManager *manager.TokenManager
}

// NewAuthHandler creates the authentication handler.
func NewAuthHandler(authService *service.AuthService, otpService *service.OTPService, tokenManager *manager.TokenManager) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		otpService:   otpService,
		tokenManager: tokenManager,
	}
}

// RegisterRequest is the registration payload. Validation messages come from
// the service layer so the envelope is uniform with the other endpoints.
type RegisterRequest struct {
	Email       string `json:"email_address"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email_address" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest is the token rotation payload.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register creates a dormant account and emails the signup OTP.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	user, err := h.authService.Register(service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.otpService.Issue(c.Request.Context(), user.Email, entity.PurposeSignup); err != nil {
		// The account exists either way; on a delivery failure the client
		// requests a fresh code via /otp/create_otp.
		log.Printf("[AuthHandler] Failed to issue signup OTP for %s: %v", user.Email, err)
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Check your email for the OTP code.",
		"user":    user,
	})
}

// Login authenticates and returns the token pair plus profile.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	tokenResp, user, profile, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":                    user,
		"profile":                 profile,
		"access_token":            tokenResp.AccessToken,
		"refresh_token":           tokenResp.RefreshToken,
		"token_type":              tokenResp.TokenType,
		"access_token_valid_till": tokenResp.AccessTokenValidTill,
	})
}

// Logout retires the presented refresh token. The access token stays valid
// until its own expiry, which is why the lifetime is kept short.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	if err := h.tokenManager.RevokeRefreshToken(req.RefreshToken); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out",
	})
}

// ListUsers returns a page of accounts. Admin only.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		offset = 0
	}

	users, err := h.authService.ListUsers(limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
	})
}

// RefreshToken rotates the refresh token and issues a fresh pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	tokenResp, err := h.tokenManager.RefreshTokens(req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":            tokenResp.AccessToken,
		"refresh_token":           tokenResp.RefreshToken,
		"token_type":              tokenResp.TokenType,
		"access_token_valid_till": tokenResp.AccessTokenValidTill,
	})
}
