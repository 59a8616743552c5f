package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	"github.com/hijabpoint/accounts-api/internal/service"
	"github.com/hijabpoint/accounts-api/pkg/auth/manager"
)

// OTPHandler serves the generic OTP endpoints used by the signup flow.
type OTPHandler struct {
	otpService   *service.OTPService
	authService  *service.AuthService
	tokenManager *manager.TokenManager
}

// NewOTPHandler creates the OTP handler.
func NewOTPHandler(otpService *service.OTPService, authService *service.AuthService, tokenManager *manager.TokenManager) *OTPHandler {
	return &OTPHandler{
		otpService:   otpService,
		authService:  authService,
		tokenManager: tokenManager,
	}
}

// CreateOTPRequest asks for a fresh code. Purpose defaults to signup.
type CreateOTPRequest struct {
	Email   string `json:"email_address" binding:"required"`
	Purpose string `json:"purpose"`
}

// VerifyOTPRequest submits a code for the signup flow.
type VerifyOTPRequest struct {
	Email string `json:"email_address" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// CreateOTP issues a new code, superseding any outstanding one for the same
// (email, purpose) pair.
func (h *OTPHandler) CreateOTP(c *gin.Context) {
	var req CreateOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = entity.PurposeSignup
	}

	if err := h.otpService.Issue(c.Request.Context(), req.Email, purpose); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully."})
}

// VerifyOTP checks a signup code, activates the account and logs it in.
func (h *OTPHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	if _, err := h.otpService.Verify(c.Request.Context(), req.Email, entity.PurposeSignup, req.OTP); err != nil {
		respondServiceError(c, err)
		return
	}

	user, err := h.authService.CompleteSignupVerification(req.Email)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	tokenResp, err := h.tokenManager.GenerateTokenPair(user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":                 "Email verified successfully.",
		"user":                    user,
		"access_token":            tokenResp.AccessToken,
		"refresh_token":           tokenResp.RefreshToken,
		"token_type":              tokenResp.TokenType,
		"access_token_valid_till": tokenResp.AccessTokenValidTill,
	})
}
