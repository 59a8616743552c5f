package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"gopkg.in/gomail.v2"
)

const otpEmailSubject = "Your OTP Code"

// EmailService delivers one-time codes over email.
type EmailService interface {
	SendOTPCode(ctx context.Context, toEmail, code, idempotencyKey string) error
}

func otpEmailText(code string) string {
	return fmt.Sprintf("Your OTP is %s", code)
}

func otpEmailHTML(code string) string {
	return fmt.Sprintf("<p>Your OTP is <strong>%s</strong>.</p><p>It expires in 5 minutes.</p>", code)
}

// NoopEmailService is used when no email provider is configured (tests, dev).
type NoopEmailService struct{}

func (s *NoopEmailService) SendOTPCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	log.Printf("[EmailService] noop send otp code to=%s", toEmail)
	return nil
}

// ResendEmailService sends emails via the Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendOTPCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	if toEmail == "" || code == "" {
		return fmt.Errorf("toEmail and code are required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: otpEmailSubject,
		Text:    otpEmailText(code),
		Html:    otpEmailHTML(code),
	}

	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}

// SMTPEmailService sends emails through a plain SMTP relay.
type SMTPEmailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPEmailService(host string, port int, user, password, from string) (*SMTPEmailService, error) {
	if host == "" || port == 0 {
		return nil, fmt.Errorf("smtp host and port are required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &SMTPEmailService{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}, nil
}

func (s *SMTPEmailService) SendOTPCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	if toEmail == "" || code == "" {
		return fmt.Errorf("toEmail and code are required")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", otpEmailSubject)
	m.SetBody("text/plain", otpEmailText(code))
	m.AddAlternative("text/html", otpEmailHTML(code))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
