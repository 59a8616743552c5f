package entity

import (
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the system.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Email      string    `gorm:"size:100;not null;uniqueIndex" json:"email_address"`
	Password   string    `gorm:"size:100;not null" json:"-"`
	Role       string    `gorm:"size:20;not null;default:'user'" json:"role"` // "user" or "admin"
	IsActive   bool      `gorm:"not null;default:false" json:"is_active"`
	IsVerified bool      `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt  time.Time `json:"date_joined"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName sets the table name for GORM.
func (User) TableName() string {
	return "users"
}

// NewUser builds an account with normalized email. Admin accounts are created
// active and verified; everyone else starts dormant and confirms via OTP.
func NewUser(email, password, role string) *User {
	if role == "" {
		role = RoleUser
	}
	return &User{
		Email:      NormalizeEmail(email),
		Password:   password,
		Role:       role,
		IsActive:   role == RoleAdmin,
		IsVerified: role == RoleAdmin,
	}
}

// NormalizeEmail lowercases and trims an email address. All lookups and
// uniqueness checks go through this so "A@x.com" and "a@x.com " collide.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BeforeSave hashes the password unless it is already a bcrypt hash.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if len(u.Password) > 0 && !strings.HasPrefix(u.Password, "$2a$") &&
		!strings.HasPrefix(u.Password, "$2b$") && !strings.HasPrefix(u.Password, "$2y$") {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[User.BeforeSave] failed to hash password for email=%s: %v", u.Email, err)
			return err
		}
		u.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword reports whether the given plaintext matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// DefaultProfileName derives the default profile name from the email local part.
func (u *User) DefaultProfileName() string {
	if i := strings.IndexByte(u.Email, '@'); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}
