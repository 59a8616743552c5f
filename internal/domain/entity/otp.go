package entity

import "time"

// OTP purposes. An OTP is only valid for the purpose it was issued for.
const (
	PurposeSignup        = "signup"
	PurposePasswordReset = "password_reset"
)

// ValidPurpose reports whether p is a known OTP purpose.
func ValidPurpose(p string) bool {
	return p == PurposeSignup || p == PurposePasswordReset
}

// OTP stores a hashed one-time code keyed by (email, purpose), with an
// attempt counter and a fixed expiry. SecretKey is populated only after a
// successful password-reset verification and authorizes exactly one reset.
type OTP struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"size:100;not null;index:idx_otps_email_purpose" json:"email"`
	Purpose     string    `gorm:"size:20;not null;index:idx_otps_email_purpose" json:"purpose"`
	CodeHash    string    `gorm:"size:64;not null" json:"-"`
	CodeSalt    string    `gorm:"size:64;not null" json:"-"`
	SecretKey   string    `gorm:"size:36" json:"-"`
	Attempts    int       `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts int       `gorm:"not null;default:5" json:"max_attempts"`
	IsUsed      bool      `gorm:"not null;default:false" json:"is_used"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`
}

func (OTP) TableName() string {
	return "otps"
}

// NewOTP builds an OTP record with the expiry fixed at creation time.
// This is the only place expires_at is computed; it is never extended.
func NewOTP(email, purpose, codeHash, codeSalt string, maxAttempts int, ttl time.Duration, now time.Time) *OTP {
	return &OTP{
		Email:       NormalizeEmail(email),
		Purpose:     purpose,
		CodeHash:    codeHash,
		CodeSalt:    codeSalt,
		Attempts:    0,
		MaxAttempts: maxAttempts,
		IsUsed:      false,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// IsExpired reports whether the record can no longer verify: either the
// expiry window passed or the record reached a terminal state.
func (o *OTP) IsExpired(now time.Time) bool {
	return o.IsUsed || now.After(o.ExpiresAt)
}

// AttemptsExhausted reports whether the attempt limit has been reached.
func (o *OTP) AttemptsExhausted() bool {
	return o.Attempts >= o.MaxAttempts
}

// RegisterFailedAttempt increments the attempt counter and marks the record
// used when the limit is reached. Returns true if this attempt exhausted it.
func (o *OTP) RegisterFailedAttempt() bool {
	o.Attempts++
	if o.Attempts >= o.MaxAttempts {
		o.IsUsed = true
		return true
	}
	return false
}

// MarkUsed puts the record in its terminal state.
func (o *OTP) MarkUsed() {
	o.IsUsed = true
}
