package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	"github.com/hijabpoint/accounts-api/internal/service"
)

// PasswordHandler serves the password reset and change flows.
type PasswordHandler struct {
	otpService  *service.OTPService
	authService *service.AuthService
}

// NewPasswordHandler creates the password handler.
func NewPasswordHandler(otpService *service.OTPService, authService *service.AuthService) *PasswordHandler {
	return &PasswordHandler{
		otpService:  otpService,
		authService: authService,
	}
}

// ResetRequestRequest asks for a password-reset OTP.
type ResetRequestRequest struct {
	Email string `json:"email_address" binding:"required"`
}

// ResetVerifyRequest submits the reset code.
type ResetVerifyRequest struct {
	Email string `json:"email_address" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// ResetRequest is the final reset payload carrying the secret key.
type ResetRequest struct {
	Email       string `json:"email_address" binding:"required"`
	SecretKey   string `json:"secret_key" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePasswordRequest rewrites the credential for the authenticated user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// RequestReset issues a password-reset OTP. Only verified accounts can start
// the flow; a dormant signup has nothing to reset.
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req ResetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	user, err := h.authService.GetUserByEmail(req.Email)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !user.IsVerified {
		respondError(c, http.StatusBadRequest, "Account is not verified", nil)
		return
	}

	if err := h.otpService.Issue(c.Request.Context(), req.Email, entity.PurposePasswordReset); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully."})
}

// VerifyReset checks the reset code and hands back the single-use secret key
// that authorizes the actual reset.
func (h *PasswordHandler) VerifyReset(c *gin.Context) {
	var req ResetVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	record, err := h.otpService.Verify(c.Request.Context(), req.Email, entity.PurposePasswordReset, req.OTP)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	secretKey, err := h.otpService.GrantResetKey(c.Request.Context(), record)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "OTP verified successfully.",
		"secret_key": secretKey,
	})
}

// Reset redeems the secret key and sets the new password. All refresh tokens
// the account holds are revoked.
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	if err := h.otpService.ConsumeResetKey(c.Request.Context(), req.Email, req.SecretKey, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}

	if user, err := h.authService.GetUserByEmail(req.Email); err == nil {
		if err := h.authService.RevokeAllSessions(user.ID); err != nil {
			log.Printf("[PasswordHandler] Failed to revoke sessions for user ID=%d after reset: %v", user.ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully."})
}

// Change rewrites the credential for the authenticated user.
func (h *PasswordHandler) Change(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	if err := h.authService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully."})
}
