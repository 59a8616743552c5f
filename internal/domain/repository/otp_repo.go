package repository

import "github.com/hijabpoint/accounts-api/internal/domain/entity"

// OTPRepository persists one-time codes keyed by (email, purpose).
type OTPRepository interface {
	// Replace deletes any existing records for (email, purpose) and inserts
	// the new one in a single transaction, so there is no window with zero
	// live records and the last committed replacement wins.
	Replace(otp *entity.OTP) error
	// GetLive returns the most recent unused record for (email, purpose).
	GetLive(email, purpose string) (*entity.OTP, error)
	// GetByPurpose returns the most recent record for (email, purpose)
	// regardless of the used flag. The capability flow needs the record that
	// was consumed by verification.
	GetByPurpose(email, purpose string) (*entity.OTP, error)
	Update(otp *entity.OTP) error
	Delete(id uint) error
}
