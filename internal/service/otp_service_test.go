package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hijabpoint/accounts-api/internal/domain/entity"
	apperrors "github.com/hijabpoint/accounts-api/internal/pkg/errors"
)

// ============================================================================
// Mocks for OTPService tests
// ============================================================================

// MockOTPRepository implements repository.OTPRepository
type MockOTPRepository struct {
	mock.Mock
}

func (m *MockOTPRepository) Replace(otp *entity.OTP) error {
	args := m.Called(otp)
	return args.Error(0)
}

func (m *MockOTPRepository) GetLive(email, purpose string) (*entity.OTP, error) {
	args := m.Called(email, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OTP), args.Error(1)
}

func (m *MockOTPRepository) GetByPurpose(email, purpose string) (*entity.OTP, error) {
	args := m.Called(email, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OTP), args.Error(1)
}

func (m *MockOTPRepository) Update(otp *entity.OTP) error {
	args := m.Called(otp)
	return args.Error(0)
}

func (m *MockOTPRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockEmailService implements EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendOTPCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	args := m.Called(ctx, toEmail, code, idempotencyKey)
	return args.Error(0)
}

// ============================================================================
// Helpers
// ============================================================================

const testPepper = "test-pepper"

func createTestOTPService(otpRepo *MockOTPRepository, userRepo *MockUserRepository, emailService *MockEmailService) *OTPService {
	return &OTPService{
		otpRepo:      otpRepo,
		userRepo:     userRepo,
		emailService: emailService,
		policy:       NewPasswordPolicy(8),
		ttl:          5 * time.Minute,
		maxAttempts:  5,
		codePepper:   testPepper,
	}
}

// newStoredOTP builds a persisted-looking record whose hash matches code.
func newStoredOTP(email, purpose, code string) *entity.OTP {
	salt := "0123456789abcdef"
	record := entity.NewOTP(email, purpose, hashOTPCode(code, salt, testPepper), salt, 5, 5*time.Minute, time.Now())
	record.ID = 1
	return record
}

// ============================================================================
// Issue
// ============================================================================

func TestOTPService_Issue_Success(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	mockEmail := new(MockEmailService)

	var sentCode string
	mockOTPRepo.On("Replace", mock.AnythingOfType("*entity.OTP")).Return(nil)
	mockEmail.On("SendOTPCode", mock.Anything, "user@example.com", mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { sentCode = args.String(2) }).
		Return(nil)

	svc := createTestOTPService(mockOTPRepo, nil, mockEmail)

	err := svc.Issue(context.Background(), "User@Example.com", entity.PurposeSignup)

	require.NoError(t, err)
	assert.Len(t, sentCode, 6, "emailed code must be six digits")
	assert.GreaterOrEqual(t, sentCode, "100000")
	assert.LessOrEqual(t, sentCode, "999999")

	// The stored record carries a hash of the emailed code, never the code.
	stored := mockOTPRepo.Calls[0].Arguments.Get(0).(*entity.OTP)
	assert.Equal(t, "user@example.com", stored.Email, "email must be normalized")
	assert.NotContains(t, stored.CodeHash, sentCode)
	assert.Equal(t, hashOTPCode(sentCode, stored.CodeSalt, testPepper), stored.CodeHash)
	mockOTPRepo.AssertExpectations(t)
	mockEmail.AssertExpectations(t)
}

func TestOTPService_Issue_InvalidPurpose(t *testing.T) {
	svc := createTestOTPService(new(MockOTPRepository), nil, new(MockEmailService))

	err := svc.Issue(context.Background(), "user@example.com", "banana")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestOTPService_Issue_DeliveryFailureKeepsRecord(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	mockEmail := new(MockEmailService)

	mockOTPRepo.On("Replace", mock.AnythingOfType("*entity.OTP")).Return(nil)
	mockEmail.On("SendOTPCode", mock.Anything, "user@example.com", mock.Anything, mock.Anything).
		Return(assert.AnError)

	svc := createTestOTPService(mockOTPRepo, nil, mockEmail)

	err := svc.Issue(context.Background(), "user@example.com", entity.PurposeSignup)

	assert.ErrorIs(t, err, apperrors.ErrDeliveryFailure)
	// Record stays persisted: no Delete after the failed send.
	mockOTPRepo.AssertNotCalled(t, "Delete", mock.Anything)
	mockOTPRepo.AssertExpectations(t)
}

// ============================================================================
// Verify
// ============================================================================

func TestOTPService_Verify_Success(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	record := newStoredOTP("user@example.com", entity.PurposeSignup, "123456")

	mockOTPRepo.On("GetLive", "user@example.com", entity.PurposeSignup).Return(record, nil)
	mockOTPRepo.On("Update", record).Return(nil)

	svc := createTestOTPService(mockOTPRepo, nil, new(MockEmailService))

	got, err := svc.Verify(context.Background(), "user@example.com", entity.PurposeSignup, "123456")

	require.NoError(t, err)
	assert.True(t, got.IsUsed, "a verified record must be consumed")
	mockOTPRepo.AssertExpectations(t)
}

func TestOTPService_Verify_NormalizesEmail(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	record := newStoredOTP("user@example.com", entity.PurposeSignup, "123456")

	// The repository must only ever see the normalized address.
	mockOTPRepo.On("GetLive", "user@example.com", entity.PurposeSignup).Return(record, nil)
	mockOTPRepo.On("Update", record).Return(nil)

	svc := createTestOTPService(mockOTPRepo, nil, new(MockEmailService))

	got, err := svc.Verify(context.Background(), "  User@Example.COM ", entity.PurposeSignup, "123456")

	require.NoError(t, err)
	assert.True(t, got.IsUsed)
	mockOTPRepo.AssertExpectations(t)
}

func TestOTPService_Verify_UsedNeverVerifiesAgain(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	// GetLive only surfaces unused records, so a consumed one reads as absent.
	mockOTPRepo.On("GetLive", "user@example.com", entity.PurposeSignup).Return(nil, apperrors.ErrNotFound)

	svc := createTestOTPService(mockOTPRepo, nil, new(MockEmailService))

	_, err := svc.Verify(context.Background(), "user@example.com", entity.PurposeSignup, "123456")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOTPService_Verify_WrongCodeCostsAttempt(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	record := newStoredOTP("user@example.com", entity.PurposeSignup, "123456")

	mockOTPRepo.On("GetLive", "user@example.com", entity.PurposeSignup).Return(record, nil)
	mockOTPRepo.On("Update", record).Return(nil)

	svc := createTestOTPService(mockOTPRepo, nil, new(MockEmailService))

	_, err := svc.Verify(context.Background(), "user@example.com", entity.PurposeSignup, "000000")

	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, 1, record.Attempts)
	assert.False(t, record.IsUsed)
	mockOTPRepo.AssertExpectations(t)
}

func TestOTPService_Verify_FifthWrongAttemptExhausts(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	record := newStoredOTP("user@example.com", entity.PurposeSignup, "123456")
	record.Attempts = 4

	mockOTPRepo.On("GetLive", "user@example.com", entity.PurposeSignup).Return(record, nil)
	mockOTPRepo.On("Update", record).Return(nil)

	svc := createTestOTPService(mockOTPRepo, nil, new(MockEmailService))

	_, err := svc.Verify(context.Background(), "user@example.com", entity.PurposeSignup, "000000")

	assert.ErrorIs(t, err, ErrOTPAttemptsExceeded)
	assert.Equal(t, 5, record.Attempts)
	assert.True(t, record.IsUsed, "exhaustion retires the record")
	mockOTPRepo.AssertExpectations(t)
}

func TestOTPService_Verify_ExhaustedRejectsEvenCorrectCode(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	record := newStoredOTP("user@example.com", entity.PurposeSignup, "123456")
	record.Attempts = 5

	mockOTPRepo.On("GetLive", "user@example.com", entity.PurposeSignup).Return(record, nil)

	svc := createTestOTPService(mockOTPRepo, nil, new(MockEmailService))

	_, err := svc.Verify(context.Background(), "user@example.com", entity.PurposeSignup, "123456")

	assert.ErrorIs(t, err, ErrOTPAttemptsExceeded)
	// Attempt precedence: no Update, the caller is not charged an attempt.
	mockOTPRepo.AssertNotCalled(t, "Update", mock.Anything)
}

func TestOTPService_Verify_ExpiredFailsWithAttemptsLeft(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	record := newStoredOTP("user@example.com", entity.PurposeSignup, "123456")
	record.ExpiresAt = time.Now().Add(-time.Minute)

	mockOTPRepo.On("GetLive", "user@example.com", entity.PurposeSignup).Return(record, nil)

	svc := createTestOTPService(mockOTPRepo, nil, new(MockEmailService))

	_, err := svc.Verify(context.Background(), "user@example.com", entity.PurposeSignup, "123456")

	assert.ErrorIs(t, err, ErrOTPExpired)
	assert.Equal(t, 0, record.Attempts)
	mockOTPRepo.AssertNotCalled(t, "Update", mock.Anything)
}

func TestOTPService_Verify_EmptyCode(t *testing.T) {
	svc := createTestOTPService(new(MockOTPRepository), nil, new(MockEmailService))

	_, err := svc.Verify(context.Background(), "user@example.com", entity.PurposeSignup, "   ")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// ============================================================================
// Reset capability
// ============================================================================

func TestOTPService_GrantResetKey(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	record := newStoredOTP("user@example.com", entity.PurposePasswordReset, "123456")
	record.MarkUsed()

	mockOTPRepo.On("Update", record).Return(nil)

	svc := createTestOTPService(mockOTPRepo, nil, new(MockEmailService))

	key, err := svc.GrantResetKey(context.Background(), record)

	require.NoError(t, err)
	assert.Len(t, key, 36, "reset key is a UUID string")
	assert.Equal(t, key, record.SecretKey)
	mockOTPRepo.AssertExpectations(t)
}

func TestOTPService_GrantResetKey_WrongPurpose(t *testing.T) {
	svc := createTestOTPService(new(MockOTPRepository), nil, new(MockEmailService))
	record := newStoredOTP("user@example.com", entity.PurposeSignup, "123456")

	_, err := svc.GrantResetKey(context.Background(), record)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestOTPService_ConsumeResetKey_Success(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	mockUserRepo := new(MockUserRepository)

	record := newStoredOTP("user@example.com", entity.PurposePasswordReset, "123456")
	record.MarkUsed()
	record.SecretKey = "2b1c6f1e-9a0f-4f8e-8f4c-1f2e3d4c5b6a"

	user := &entity.User{ID: 7, Email: "user@example.com", IsActive: true, IsVerified: true}

	mockOTPRepo.On("GetByPurpose", "user@example.com", entity.PurposePasswordReset).Return(record, nil)
	mockUserRepo.On("GetByEmail", "user@example.com").Return(user, nil)
	mockUserRepo.On("UpdatePassword", uint(7), "newSecret123").Return(nil)
	mockOTPRepo.On("Delete", uint(1)).Return(nil)

	svc := createTestOTPService(mockOTPRepo, mockUserRepo, new(MockEmailService))

	err := svc.ConsumeResetKey(context.Background(), "user@example.com", record.SecretKey, "newSecret123")

	require.NoError(t, err)
	mockOTPRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
}

func TestOTPService_ConsumeResetKey_NormalizesEmail(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	mockUserRepo := new(MockUserRepository)

	record := newStoredOTP("user@example.com", entity.PurposePasswordReset, "123456")
	record.MarkUsed()
	record.SecretKey = "2b1c6f1e-9a0f-4f8e-8f4c-1f2e3d4c5b6a"

	user := &entity.User{ID: 7, Email: "user@example.com", IsActive: true, IsVerified: true}

	// Both lookups go out with the normalized address.
	mockOTPRepo.On("GetByPurpose", "user@example.com", entity.PurposePasswordReset).Return(record, nil)
	mockUserRepo.On("GetByEmail", "user@example.com").Return(user, nil)
	mockUserRepo.On("UpdatePassword", uint(7), "newSecret123").Return(nil)
	mockOTPRepo.On("Delete", uint(1)).Return(nil)

	svc := createTestOTPService(mockOTPRepo, mockUserRepo, new(MockEmailService))

	err := svc.ConsumeResetKey(context.Background(), "  User@Example.COM ", record.SecretKey, "newSecret123")

	require.NoError(t, err)
	mockOTPRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
}

func TestOTPService_ConsumeResetKey_WrongKey(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	record := newStoredOTP("user@example.com", entity.PurposePasswordReset, "123456")
	record.SecretKey = "2b1c6f1e-9a0f-4f8e-8f4c-1f2e3d4c5b6a"

	mockOTPRepo.On("GetByPurpose", "user@example.com", entity.PurposePasswordReset).Return(record, nil)

	svc := createTestOTPService(mockOTPRepo, new(MockUserRepository), new(MockEmailService))

	err := svc.ConsumeResetKey(context.Background(), "user@example.com", "not-the-key", "newSecret123")

	assert.ErrorIs(t, err, ErrInvalidCapability)
	mockOTPRepo.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestOTPService_ConsumeResetKey_EmptyStoredKeyNeverMatches(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	// A record that was never granted a key must not be redeemable with "".
	record := newStoredOTP("user@example.com", entity.PurposePasswordReset, "123456")

	mockOTPRepo.On("GetByPurpose", "user@example.com", entity.PurposePasswordReset).Return(record, nil)

	svc := createTestOTPService(mockOTPRepo, new(MockUserRepository), new(MockEmailService))

	err := svc.ConsumeResetKey(context.Background(), "user@example.com", "", "newSecret123")

	assert.ErrorIs(t, err, ErrInvalidCapability)
}

func TestOTPService_ConsumeResetKey_WeakPassword(t *testing.T) {
	mockOTPRepo := new(MockOTPRepository)
	record := newStoredOTP("user@example.com", entity.PurposePasswordReset, "123456")
	record.SecretKey = "2b1c6f1e-9a0f-4f8e-8f4c-1f2e3d4c5b6a"

	mockOTPRepo.On("GetByPurpose", "user@example.com", entity.PurposePasswordReset).Return(record, nil)

	svc := createTestOTPService(mockOTPRepo, new(MockUserRepository), new(MockEmailService))

	err := svc.ConsumeResetKey(context.Background(), "user@example.com", record.SecretKey, "short")

	var policyErr *PasswordPolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.NotEmpty(t, policyErr.Messages)
	mockOTPRepo.AssertNotCalled(t, "Delete", mock.Anything)
}
