package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/hijabpoint/accounts-api/internal/pkg/errors"
	"github.com/hijabpoint/accounts-api/internal/service"
	"github.com/hijabpoint/accounts-api/pkg/auth/manager"
)

// ErrorResponse is the uniform error envelope returned by every endpoint:
// {"code": <http status>, "message": <summary>, "details": {field: [messages]}}.
type ErrorResponse struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, message string, details map[string][]string) {
	c.JSON(status, ErrorResponse{Code: status, Message: message, Details: details})
}

// respondServiceError maps service and repository errors onto the envelope.
// Every handler funnels its non-binding errors through here so the mapping
// lives in one place.
func respondServiceError(c *gin.Context, err error) {
	var fieldErrs apperrors.FieldErrors
	var policyErr *service.PasswordPolicyError
	var tokenErr *manager.TokenError

	switch {
	case errors.As(err, &fieldErrs):
		respondError(c, http.StatusBadRequest, "Validation error", fieldErrs)
	case errors.As(err, &policyErr):
		respondError(c, http.StatusBadRequest, "Validation error", map[string][]string{
			"new_password": policyErr.Messages,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusBadRequest, "Invalid credentials", nil)
	case errors.Is(err, service.ErrInvalidCode):
		respondError(c, http.StatusBadRequest, "Invalid OTP", nil)
	case errors.Is(err, service.ErrOTPExpired):
		respondError(c, http.StatusBadRequest, "OTP has expired", nil)
	case errors.Is(err, service.ErrOTPAttemptsExceeded):
		respondError(c, http.StatusBadRequest, "Maximum verification attempts exceeded", nil)
	case errors.Is(err, service.ErrInvalidCapability):
		respondError(c, http.StatusBadRequest, "Invalid secret key", nil)
	case errors.As(err, &tokenErr):
		respondTokenError(c, tokenErr)
	case errors.Is(err, apperrors.ErrValidation):
		respondError(c, http.StatusBadRequest, "Validation error", nil)
	case errors.Is(err, apperrors.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
	case errors.Is(err, apperrors.ErrForbidden):
		respondError(c, http.StatusForbidden, "Access denied", nil)
	case errors.Is(err, apperrors.ErrNotFound):
		respondError(c, http.StatusBadRequest, "No matching record found", nil)
	case errors.Is(err, apperrors.ErrConflict):
		respondError(c, http.StatusConflict, "Account with this email already exists", nil)
	case errors.Is(err, apperrors.ErrExpiredToken):
		respondError(c, http.StatusUnauthorized, "Token expired", nil)
	case errors.Is(err, apperrors.ErrDeliveryFailure):
		respondError(c, http.StatusInternalServerError, "Failed to send OTP email", nil)
	default:
		log.Printf("[Handler] unexpected error: %v", err)
		respondError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func respondTokenError(c *gin.Context, tokenErr *manager.TokenError) {
	switch tokenErr.Type {
	case manager.ExpiredRefreshToken:
		respondError(c, http.StatusUnauthorized, "Session expired", nil)
	case manager.InvalidRefreshToken, manager.InvalidAccessToken:
		respondError(c, http.StatusUnauthorized, "Invalid token", nil)
	case manager.UserNotFound, manager.InactiveUser:
		respondError(c, http.StatusUnauthorized, "Invalid credentials", nil)
	default:
		respondError(c, http.StatusInternalServerError, "Authentication error", nil)
	}
}

// bindingError converts gin binding failures into the envelope with a generic
// message; per-field detail comes from the service-level validation.
func bindingError(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "Malformed request body", map[string][]string{
		"non_field_errors": {err.Error()},
	})
}
