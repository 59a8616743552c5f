package service

import (
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	"github.com/hijabpoint/accounts-api/internal/domain/repository"
	apperrors "github.com/hijabpoint/accounts-api/internal/pkg/errors"
	"github.com/hijabpoint/accounts-api/pkg/auth/manager"
)

// AuthService handles account registration, credential checks, token issuance
// and the user profile attached to every account.
type AuthService struct {
	userRepo     repository.UserRepository
	profileRepo  repository.UserProfileRepository
	tokenManager *manager.TokenManager
	policy       PasswordValidator
}

// RegisterInput carries everything a registration request may supply.
type RegisterInput struct {
	Email       string
	Password    string
	Role        string
	Name        string
	PhoneNumber string
}

// NewAuthService creates the authentication service and returns an error if a
// required dependency is missing.
func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.UserProfileRepository,
	tokenManager *manager.TokenManager,
	policy PasswordValidator,
) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("UserProfileRepository is required for AuthService")
	}
	if tokenManager == nil {
		return nil, fmt.Errorf("TokenManager is required for AuthService")
	}
	if policy == nil {
		return nil, fmt.Errorf("PasswordValidator is required for AuthService")
	}

	return &AuthService{
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		tokenManager: tokenManager,
		policy:       policy,
	}, nil
}

// Register creates an inactive, unverified account and its profile. An email
// that already belongs to a verified account is a conflict; an unverified
// leftover is overwritten in place so the new applicant can claim the address.
// The admin role can never be requested over the wire.
func (s *AuthService) Register(input RegisterInput) (*entity.User, error) {
	input.Email = entity.NormalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	if input.Role == "" {
		input.Role = entity.RoleUser
	}

	fieldErrs := apperrors.FieldErrors{}
	if input.Email == "" {
		fieldErrs.Add("email_address", "This field is required.")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		fieldErrs.Add("email_address", "Enter a valid email address.")
	}
	if input.Password == "" {
		fieldErrs.Add("password", "This field is required.")
	} else {
		for _, msg := range s.policy.Validate(input.Password) {
			fieldErrs.Add("password", msg)
		}
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	if input.Role == entity.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be self-registered", apperrors.ErrForbidden)
	}
	if input.Role != entity.RoleUser {
		return nil, fmt.Errorf("%w: invalid role %q", apperrors.ErrValidation, input.Role)
	}

	existing, err := s.userRepo.GetByEmail(input.Email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}

	if existing != nil {
		if existing.IsVerified {
			return nil, fmt.Errorf("%w: user with this email already exists", apperrors.ErrConflict)
		}

		// Unverified leftover from an abandoned signup: the new applicant
		// takes over the row rather than being blocked by it.
		existing.Password = input.Password
		existing.Role = input.Role
		existing.IsActive = false
		existing.IsVerified = false
		if err := s.userRepo.Update(existing); err != nil {
			return nil, fmt.Errorf("failed to overwrite unverified user: %w", err)
		}
		s.ensureProfile(existing, input)
		log.Printf("[AuthService] Re-registered unverified user ID=%d (%s)", existing.ID, existing.Email)
		return existing, nil
	}

	user := entity.NewUser(input.Email, input.Password, input.Role)
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.ensureProfile(user, input)

	log.Printf("[AuthService] Registered user ID=%d (%s)", user.ID, user.Email)
	return user, nil
}

// ensureProfile creates or refreshes the profile row for a registration. A
// profile failure never fails the registration; the profile endpoints create
// it lazily anyway.
func (s *AuthService) ensureProfile(user *entity.User, input RegisterInput) {
	name := input.Name
	if name == "" {
		name = user.DefaultProfileName()
	}

	profile, err := s.profileRepo.GetOrCreate(user.ID, name)
	if err != nil {
		log.Printf("[AuthService] Failed to create profile for user ID=%d: %v", user.ID, err)
		return
	}

	if input.Name != "" || input.PhoneNumber != "" {
		if input.Name != "" {
			profile.Name = input.Name
		}
		if input.PhoneNumber != "" {
			profile.PhoneNumber = input.PhoneNumber
		}
		if err := s.profileRepo.Update(profile); err != nil {
			log.Printf("[AuthService] Failed to update profile for user ID=%d: %v", user.ID, err)
		}
	}
}

// Authenticate checks credentials without issuing tokens. Missing account,
// wrong password and not-yet-verified account all collapse into the same
// error so login probing learns nothing.
func (s *AuthService) Authenticate(email, password string) (*entity.User, error) {
	email = entity.NormalizeEmail(email)

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		log.Printf("[AuthService] Login failed for %s: user not found", email)
		return nil, ErrInvalidCredentials
	}

	if !user.CheckPassword(password) {
		log.Printf("[AuthService] Login failed for %s: wrong password", email)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive || !user.IsVerified {
		log.Printf("[AuthService] Login failed for %s: account not verified", email)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates and returns a token pair plus the account's profile,
// creating the profile on first touch.
func (s *AuthService) Login(email, password string) (*manager.TokenResponse, *entity.User, *entity.UserProfile, error) {
	user, err := s.Authenticate(email, password)
	if err != nil {
		return nil, nil, nil, err
	}

	tokenResp, err := s.tokenManager.GenerateTokenPair(user.ID)
	if err != nil {
		log.Printf("[AuthService] Token generation failed for user ID=%d: %v", user.ID, err)
		return nil, nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	profile, err := s.profileRepo.GetOrCreate(user.ID, user.DefaultProfileName())
	if err != nil {
		log.Printf("[AuthService] Failed to load profile for user ID=%d: %v", user.ID, err)
		return nil, nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}

	log.Printf("[AuthService] User ID=%d (%s) logged in", user.ID, user.Email)
	return tokenResp, user, profile, nil
}

// CompleteSignupVerification activates the account after a successful signup
// OTP check and returns the now-verified user.
func (s *AuthService) CompleteSignupVerification(email string) (*entity.User, error) {
	email = entity.NormalizeEmail(email)

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}

	if !user.IsVerified {
		if err := s.userRepo.MarkVerified(user.ID); err != nil {
			return nil, fmt.Errorf("failed to mark user verified: %w", err)
		}
		user.IsVerified = true
		user.IsActive = true
		log.Printf("[AuthService] User ID=%d (%s) verified", user.ID, user.Email)
	}

	return user, nil
}

// ChangePassword rewrites the credential for an authenticated user after
// confirming the current one, then revokes every refresh token so stolen
// sessions die with the old password.
func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}

	if !user.CheckPassword(currentPassword) {
		fieldErrs := apperrors.FieldErrors{}
		fieldErrs.Add("current_password", "Incorrect password")
		return fieldErrs
	}

	if messages := s.policy.Validate(newPassword); len(messages) > 0 {
		return &PasswordPolicyError{Messages: messages}
	}

	if err := s.userRepo.UpdatePassword(userID, newPassword); err != nil {
		return err
	}

	if err := s.tokenManager.RevokeAllUserTokens(userID); err != nil {
		log.Printf("[AuthService] Failed to revoke tokens for user ID=%d after password change: %v", userID, err)
	}

	log.Printf("[AuthService] Password changed for user ID=%d", userID)
	return nil
}

// RevokeAllSessions revokes every refresh token the user holds.
func (s *AuthService) RevokeAllSessions(userID uint) error {
	return s.tokenManager.RevokeAllUserTokens(userID)
}

// GetUserByEmail looks up an account by its normalized address.
func (s *AuthService) GetUserByEmail(email string) (*entity.User, error) {
	return s.userRepo.GetByEmail(entity.NormalizeEmail(email))
}

// ListUsers returns a page of accounts for the admin surface.
func (s *AuthService) ListUsers(limit, offset int) ([]entity.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.userRepo.List(limit, offset)
}

// GetProfile returns the profile for a user, creating it on first access.
func (s *AuthService) GetProfile(userID uint) (*entity.User, *entity.UserProfile, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.profileRepo.GetOrCreate(userID, user.DefaultProfileName())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return user, profile, nil
}

// UpdateProfileInput carries the editable profile fields. Nil pointers mean
// "leave as is" so a partial update does not blank the other fields.
type UpdateProfileInput struct {
	Name           *string
	PhoneNumber    *string
	ProfilePicture *string
}

// UpdateProfile applies a partial profile update.
func (s *AuthService) UpdateProfile(userID uint, input UpdateProfileInput) (*entity.UserProfile, error) {
	fieldErrs := apperrors.FieldErrors{}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		fieldErrs.Add("name", "Name cannot be empty.")
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.GetOrCreate(userID, user.DefaultProfileName())
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if input.Name != nil {
		profile.Name = strings.TrimSpace(*input.Name)
	}
	if input.PhoneNumber != nil {
		profile.PhoneNumber = strings.TrimSpace(*input.PhoneNumber)
	}
	if input.ProfilePicture != nil {
		profile.ProfilePicture = *input.ProfilePicture
	}

	if err := s.profileRepo.Update(profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}
