package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	apperrors "github.com/hijabpoint/accounts-api/internal/pkg/errors"
)

// UserProfileRepo implements repository.UserProfileRepository on PostgreSQL via GORM.
type UserProfileRepo struct {
	db *gorm.DB
}

// NewUserProfileRepo creates a new profile repository.
func NewUserProfileRepo(db *gorm.DB) *UserProfileRepo {
	return &UserProfileRepo{db: db}
}

// Create inserts a new profile.
func (r *UserProfileRepo) Create(profile *entity.UserProfile) error {
	return r.db.Create(profile).Error
}

// GetByUserID returns the profile for a user.
func (r *UserProfileRepo) GetByUserID(userID uint) (*entity.UserProfile, error) {
	var profile entity.UserProfile
	err := r.db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// GetOrCreate returns the profile for userID, creating a default one when
// absent. A concurrent insert losing the race falls back to reading the row
// the winner created.
func (r *UserProfileRepo) GetOrCreate(userID uint, defaultName string) (*entity.UserProfile, error) {
	profile, err := r.GetByUserID(userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	profile = &entity.UserProfile{
		UserID: userID,
		Name:   defaultName,
	}
	if createErr := r.db.Create(profile).Error; createErr != nil {
		if existing, getErr := r.GetByUserID(userID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create default profile: %w", createErr)
	}
	return profile, nil
}

// Update saves the profile record.
func (r *UserProfileRepo) Update(profile *entity.UserProfile) error {
	return r.db.Save(profile).Error
}
