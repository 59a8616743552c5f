package postgres

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	apperrors "github.com/hijabpoint/accounts-api/internal/pkg/errors"
)

// UserRepo implements repository.UserRepository on PostgreSQL via GORM.
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a new user repository.
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new account.
func (r *UserRepo) Create(user *entity.User) error {
	return r.db.Create(user).Error
}

// GetByID returns an account by primary key.
func (r *UserRepo) GetByID(id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns an account by normalized email.
func (r *UserRepo) GetByEmail(email string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("email = ?", entity.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update saves the full account record. The BeforeSave hook re-hashes the
// password only when it is not already a bcrypt hash.
func (r *UserRepo) Update(user *entity.User) error {
	return r.db.Save(user).Error
}

// UpdatePassword rewrites the credential for a user. The hash is computed
// here and written with raw SQL to bypass the BeforeSave hook, so a value
// that happens to look like a hash can never be double-hashed.
func (r *UserRepo) UpdatePassword(userID uint, newPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	result := r.db.Exec(
		"UPDATE users SET password = ?, updated_at = ? WHERE id = ?",
		string(hashedPassword),
		time.Now(),
		userID,
	)
	if result.Error != nil {
		return fmt.Errorf("failed to update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkVerified flips the account to verified and active.
func (r *UserRepo) MarkVerified(userID uint) error {
	result := r.db.Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_verified": true,
			"is_active":   true,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List returns accounts with pagination.
func (r *UserRepo) List(limit, offset int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.Limit(limit).Offset(offset).Order("id").Find(&users).Error
	return users, err
}
