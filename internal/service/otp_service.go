package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	"github.com/hijabpoint/accounts-api/internal/domain/repository"
	apperrors "github.com/hijabpoint/accounts-api/internal/pkg/errors"
)

// OTPService drives the one-time code lifecycle: issue, verify, grant the
// password-reset capability and consume it. Codes are stored as salted and
// peppered SHA-256 hashes; callers only ever see the plain 6-digit string in
// the email.
//
// Verification applies one canonical precedence at every call site:
// live lookup, then attempt limit, then expiry, then the code comparison.
// A record that is already doomed never costs the caller an attempt.
type OTPService struct {
	otpRepo      repository.OTPRepository
	userRepo     repository.UserRepository
	emailService EmailService
	policy       PasswordValidator
	ttl          time.Duration
	maxAttempts  int
	codePepper   string
}

// NewOTPService creates the OTP lifecycle service.
func NewOTPService(
	otpRepo repository.OTPRepository,
	userRepo repository.UserRepository,
	emailService EmailService,
	policy PasswordValidator,
	ttl time.Duration,
	maxAttempts int,
	codePepper string,
) (*OTPService, error) {
	if otpRepo == nil {
		return nil, fmt.Errorf("OTPRepository is required for OTPService")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for OTPService")
	}
	if emailService == nil {
		return nil, fmt.Errorf("EmailService is required for OTPService")
	}
	if policy == nil {
		return nil, fmt.Errorf("PasswordValidator is required for OTPService")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	return &OTPService{
		otpRepo:      otpRepo,
		userRepo:     userRepo,
		emailService: emailService,
		policy:       policy,
		ttl:          ttl,
		maxAttempts:  maxAttempts,
		codePepper:   codePepper,
	}, nil
}

// Issue replaces any existing OTP for (email, purpose) with a fresh 6-digit
// code and emails it. The record is persisted before the send: a delivery
// failure surfaces as ErrDeliveryFailure but the record stays, so issuance is
// never rolled back and the client simply requests a new code.
func (s *OTPService) Issue(ctx context.Context, email, purpose string) error {
	email = entity.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	if !entity.ValidPurpose(purpose) {
		return fmt.Errorf("%w: invalid otp purpose %q", apperrors.ErrValidation, purpose)
	}

	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("failed to generate otp code: %w", err)
	}
	salt, err := generateOTPSalt()
	if err != nil {
		return fmt.Errorf("failed to generate otp salt: %w", err)
	}

	record := entity.NewOTP(email, purpose, hashOTPCode(code, salt, s.codePepper), salt, s.maxAttempts, s.ttl, time.Now())
	if err := s.otpRepo.Replace(record); err != nil {
		return fmt.Errorf("failed to persist otp: %w", err)
	}

	idempotencyKey := fmt.Sprintf("otp:%s:%d", purpose, record.ID)
	if err := s.emailService.SendOTPCode(ctx, email, code, idempotencyKey); err != nil {
		log.Printf("[OTPService] failed to deliver otp email=%s purpose=%s: %v", email, purpose, err)
		return fmt.Errorf("%w: %v", apperrors.ErrDeliveryFailure, err)
	}

	return nil
}

// Verify checks a submitted code against the live record for (email, purpose)
// and consumes the record on success. A wrong code costs one attempt and the
// record auto-expires when the limit is reached.
func (s *OTPService) Verify(ctx context.Context, email, purpose, submittedCode string) (*entity.OTP, error) {
	if strings.TrimSpace(submittedCode) == "" {
		return nil, fmt.Errorf("%w: otp code is required", apperrors.ErrValidation)
	}

	email = entity.NormalizeEmail(email)
	record, err := s.otpRepo.GetLive(email, purpose)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	if record.AttemptsExhausted() {
		return nil, ErrOTPAttemptsExceeded
	}
	if record.IsExpired(time.Now()) {
		return nil, ErrOTPExpired
	}

	expectedHash := hashOTPCode(submittedCode, record.CodeSalt, s.codePepper)
	if subtle.ConstantTimeCompare([]byte(expectedHash), []byte(record.CodeHash)) != 1 {
		exhausted := record.RegisterFailedAttempt()
		if updateErr := s.otpRepo.Update(record); updateErr != nil {
			return nil, fmt.Errorf("failed to record failed otp attempt: %w", updateErr)
		}
		if exhausted {
			return nil, ErrOTPAttemptsExceeded
		}
		return nil, ErrInvalidCode
	}

	record.MarkUsed()
	if err := s.otpRepo.Update(record); err != nil {
		return nil, fmt.Errorf("failed to mark otp used: %w", err)
	}
	return record, nil
}

// GrantResetKey mints the single-use secret key on a just-verified
// password-reset record. The record stays in storage (used, with the key) so
// ConsumeResetKey can match it later.
func (s *OTPService) GrantResetKey(ctx context.Context, record *entity.OTP) (string, error) {
	if record == nil || record.Purpose != entity.PurposePasswordReset {
		return "", fmt.Errorf("%w: reset key requires a password_reset otp", apperrors.ErrValidation)
	}

	record.SecretKey = uuid.NewString()
	if err := s.otpRepo.Update(record); err != nil {
		return "", fmt.Errorf("failed to persist reset key: %w", err)
	}
	return record.SecretKey, nil
}

// ConsumeResetKey redeems the secret key: it validates the new password
// against the policy, rewrites the account credential and deletes the OTP
// record so the key can never be used twice.
func (s *OTPService) ConsumeResetKey(ctx context.Context, email, secretKey, newPassword string) error {
	email = entity.NormalizeEmail(email)
	record, err := s.otpRepo.GetByPurpose(email, entity.PurposePasswordReset)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrNotFound
		}
		return err
	}

	if record.SecretKey == "" ||
		subtle.ConstantTimeCompare([]byte(record.SecretKey), []byte(secretKey)) != 1 {
		return ErrInvalidCapability
	}

	if messages := s.policy.Validate(newPassword); len(messages) > 0 {
		return &PasswordPolicyError{Messages: messages}
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrNotFound
		}
		return err
	}

	if err := s.userRepo.UpdatePassword(user.ID, newPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.otpRepo.Delete(record.ID); err != nil {
		// The credential is already rewritten; a stale record only blocks
		// reuse of a key that no longer matches anything.
		log.Printf("[OTPService] failed to delete consumed reset otp ID=%d: %v", record.ID, err)
	}

	return nil
}

func generateOTPCode() (string, error) {
	// Uniform in [100000, 999999]: always six digits, no leading zeros.
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

func generateOTPSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashOTPCode(code, salt, pepper string) string {
	sum := sha256.Sum256([]byte(pepper + ":" + salt + ":" + code))
	return hex.EncodeToString(sum[:])
}
