package repository

import (
	"github.com/hijabpoint/accounts-api/internal/domain/entity"
)

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	Update(user *entity.User) error
	// UpdatePassword rewrites the credential for a user, hashing it before storage.
	UpdatePassword(userID uint, newPassword string) error
	// MarkVerified sets is_verified and is_active for a user.
	MarkVerified(userID uint) error
	List(limit, offset int) ([]entity.User, error)
}
