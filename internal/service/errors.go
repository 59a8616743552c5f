package service

import (
	"errors"
	"strings"
)

// Flow-specific errors used by handlers for stable error mapping. The names
// are deliberately uniform where enumeration is a risk: a login failure reads
// the same whether the account is missing, unverified, inactive or the
// password is wrong.
var (
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrInvalidCode         = errors.New("invalid_otp")
	ErrOTPExpired          = errors.New("otp_expired")
	ErrOTPAttemptsExceeded = errors.New("otp_attempts_exceeded")
	ErrInvalidCapability   = errors.New("invalid_secret_key")
)

// PasswordPolicyError reports which strength rules a candidate password
// failed. Handlers surface Messages under the new_password field of the
// error envelope.
type PasswordPolicyError struct {
	Messages []string
}

func (e *PasswordPolicyError) Error() string {
	return "password policy violation: " + strings.Join(e.Messages, "; ")
}
