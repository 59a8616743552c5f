package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidPurpose(t *testing.T) {
	assert.True(t, ValidPurpose(PurposeSignup))
	assert.True(t, ValidPurpose(PurposePasswordReset))
	assert.False(t, ValidPurpose(""))
	assert.False(t, ValidPurpose("login"))
}

func TestNewOTP_ExpiryFixedAtCreation(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	otp := NewOTP("User@Example.com", PurposeSignup, "hash", "salt", 5, 5*time.Minute, now)

	assert.Equal(t, "user@example.com", otp.Email)
	assert.Equal(t, now.Add(5*time.Minute), otp.ExpiresAt)
	assert.Equal(t, 0, otp.Attempts)
	assert.False(t, otp.IsUsed)
}

func TestOTP_IsExpired(t *testing.T) {
	now := time.Now()
	otp := NewOTP("user@example.com", PurposeSignup, "hash", "salt", 5, 5*time.Minute, now)

	assert.False(t, otp.IsExpired(now))
	assert.False(t, otp.IsExpired(now.Add(5*time.Minute)), "the boundary instant is still valid")
	assert.True(t, otp.IsExpired(now.Add(5*time.Minute+time.Second)))

	// A consumed record reads as expired whatever the clock says.
	otp.MarkUsed()
	assert.True(t, otp.IsExpired(now))
}

func TestOTP_RegisterFailedAttempt(t *testing.T) {
	otp := NewOTP("user@example.com", PurposeSignup, "hash", "salt", 3, 5*time.Minute, time.Now())

	assert.False(t, otp.RegisterFailedAttempt())
	assert.False(t, otp.RegisterFailedAttempt())
	assert.False(t, otp.IsUsed)

	// The final attempt retires the record in the same step.
	assert.True(t, otp.RegisterFailedAttempt())
	assert.True(t, otp.IsUsed)
	assert.True(t, otp.AttemptsExhausted())
	assert.Equal(t, 3, otp.Attempts)
}
