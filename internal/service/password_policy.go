package service

import (
	"fmt"
	"unicode"
)

// PasswordValidator checks a candidate password against a strength policy.
// It returns one message per failed rule, or nil when the password passes.
// The policy is injected into the services that mutate credentials so
// deployments can swap in their own rules.
type PasswordValidator interface {
	Validate(password string) []string
}

// PasswordPolicy is the default validator: minimum length, at least one
// letter and at least one digit.
type PasswordPolicy struct {
	minLength int
}

// NewPasswordPolicy creates the default policy.
func NewPasswordPolicy(minLength int) *PasswordPolicy {
	if minLength <= 0 {
		minLength = 8
	}
	return &PasswordPolicy{minLength: minLength}
}

// Validate returns the failed rule messages for the candidate password.
func (p *PasswordPolicy) Validate(password string) []string {
	var messages []string

	if len(password) < p.minLength {
		messages = append(messages, fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.minLength))
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		messages = append(messages, "This password must contain at least one letter.")
	}
	if !hasDigit {
		messages = append(messages, "This password must contain at least one digit.")
	}

	return messages
}
