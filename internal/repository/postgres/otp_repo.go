package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	apperrors "github.com/hijabpoint/accounts-api/internal/pkg/errors"
)

// OTPRepo implements repository.OTPRepository on PostgreSQL via GORM.
type OTPRepo struct {
	db *gorm.DB
}

// NewOTPRepo creates a new OTP repository.
func NewOTPRepo(db *gorm.DB) *OTPRepo {
	return &OTPRepo{db: db}
}

// Replace deletes any existing records for (email, purpose) and inserts the
// new one in a single transaction. Issuing a fresh code therefore always
// invalidates the previous one, and concurrent issuers resolve to whichever
// transaction commits last.
func (r *OTPRepo) Replace(otp *entity.OTP) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? AND purpose = ?", otp.Email, otp.Purpose).
			Delete(&entity.OTP{}).Error; err != nil {
			return fmt.Errorf("failed to delete superseded otps: %w", err)
		}
		if err := tx.Create(otp).Error; err != nil {
			return fmt.Errorf("failed to create otp: %w", err)
		}
		return nil
	})
}

// GetLive returns the most recent unused record for (email, purpose).
func (r *OTPRepo) GetLive(email, purpose string) (*entity.OTP, error) {
	var otp entity.OTP
	err := r.db.
		Where("email = ? AND purpose = ? AND is_used = ?", entity.NormalizeEmail(email), purpose, false).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get live otp: %w", err)
	}
	return &otp, nil
}

// GetByPurpose returns the most recent record for (email, purpose) regardless
// of the used flag.
func (r *OTPRepo) GetByPurpose(email, purpose string) (*entity.OTP, error) {
	var otp entity.OTP
	err := r.db.
		Where("email = ? AND purpose = ?", entity.NormalizeEmail(email), purpose).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}
	return &otp, nil
}

// Update saves the full OTP record (attempt counters, used flag, secret key).
func (r *OTPRepo) Update(otp *entity.OTP) error {
	return r.db.Save(otp).Error
}

// Delete removes a record by primary key.
func (r *OTPRepo) Delete(id uint) error {
	return r.db.Delete(&entity.OTP{}, id).Error
}
