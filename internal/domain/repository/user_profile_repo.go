package repository

import "github.com/hijabpoint/accounts-api/internal/domain/entity"

// UserProfileRepository persists the one-to-one user profiles.
type UserProfileRepository interface {
	Create(profile *entity.UserProfile) error
	GetByUserID(userID uint) (*entity.UserProfile, error)
	// GetOrCreate returns the profile for userID, creating it with the given
	// default name when absent. This path never fails on "not found".
	GetOrCreate(userID uint, defaultName string) (*entity.UserProfile, error)
	Update(profile *entity.UserProfile) error
}
