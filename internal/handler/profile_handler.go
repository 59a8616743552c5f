package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hijabpoint/accounts-api/internal/service"
)

// ProfileHandler serves the authenticated user's profile.
type ProfileHandler struct {
	authService *service.AuthService
}

// NewProfileHandler creates the profile handler.
func NewProfileHandler(authService *service.AuthService) *ProfileHandler {
	return &ProfileHandler{authService: authService}
}

// UpdateProfileRequest carries the editable fields. Absent fields are left
// untouched.
type UpdateProfileRequest struct {
	Name           *string `json:"name"`
	PhoneNumber    *string `json:"phone_number"`
	ProfilePicture *string `json:"profile_picture"`
}

// GetProfile returns the profile, creating it on first access.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	user, profile, err := h.authService.GetProfile(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "profile": profile})
}

// UpdateProfile applies a partial update to the profile.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	profile, err := h.authService.UpdateProfile(userID, service.UpdateProfileInput{
		Name:           req.Name,
		PhoneNumber:    req.PhoneNumber,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
