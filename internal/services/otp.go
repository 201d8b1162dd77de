package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/storage"
	"github.com/alilals/ziraat-backend/internal/utils"
)

const (
	OTPTTL         = 300 * time.Second
	OTPCooldown    = 60 * time.Second
	OTPMaxAttempts = 3
)

// OTPIssued confirms a code was delivered. The code itself is never returned.
type OTPIssued struct {
	PhoneNumber string
	ExpiresIn   int
}

// OTPVerified confirms a successful verification
type OTPVerified struct {
	PhoneNumber string
	VerifiedAt  time.Time
}

// OTPService issues and verifies one-time login codes
type OTPService struct {
	cache      storage.OTPCache
	sender     SMSSender
	header     string
	templateID string
	logger     *zap.Logger

	now      func() time.Time
	generate func() (string, error)
}

// NewOTPService sends codes with the given DLT header and template id
func NewOTPService(cache storage.OTPCache, sender SMSSender, header, templateID string, logger *zap.Logger) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPService{
		cache:      cache,
		sender:     sender,
		header:     header,
		templateID: templateID,
		logger:     logger,
		now:        time.Now,
		generate:   utils.GenerateSecureOTP,
	}
}

// RequestOTP issues a new code for number unless one was issued within the
// cooldown window
func (s *OTPService) RequestOTP(ctx context.Context, number string) (*OTPIssued, error) {
	if number == "" {
		return nil, otpError(ErrInvalidInput, "Phone number is required")
	}
	if !utils.IsValidPhoneNumber(number) {
		return nil, otpError(ErrInvalidInput,
			"Invalid phone number format. Please enter a valid 10-digit Indian mobile number.")
	}

	now := s.now()
	existing, err := s.cache.Get(ctx, number)
	switch {
	case err == nil:
		elapsed := now.UnixMilli() - existing.CreatedAt
		if elapsed < OTPCooldown.Milliseconds() {
			remaining := int((OTPCooldown.Milliseconds() - elapsed + 999) / 1000)
			return nil, &OTPError{
				Kind:          ErrOTPCooldown,
				Message:       fmt.Sprintf("Please wait %d seconds before requesting a new OTP", remaining),
				RemainingTime: remaining,
			}
		}
	case errors.Is(err, storage.ErrOTPNotFound):
	default:
		return nil, fmt.Errorf("read otp: %w", err)
	}

	code, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	record := &models.OTPRecord{OTP: code, Attempts: 0, CreatedAt: now.UnixMilli()}
	if err := s.cache.Set(ctx, number, record, OTPTTL); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}

	_, err = s.sender.Send(ctx, &models.SMSRequest{
		Header:          s.header,
		TemplateID:      s.templateID,
		Numbers:         number,
		VariablesValues: []string{code},
	})
	if err != nil {
		// without the SMS the stored code is unreachable and would only block retries
		if delErr := s.cache.Delete(ctx, number); delErr != nil {
			s.logger.Error("Failed to roll back OTP after delivery failure", zap.Error(delErr))
		}
		s.logger.Warn("OTP delivery failed", zap.Error(err))
		return nil, &OTPError{Kind: ErrOTPDelivery, Message: "Failed to send OTP SMS", Cause: err}
	}

	s.logger.Info("OTP sent", zap.String("number", maskNumber(number)))
	return &OTPIssued{PhoneNumber: number, ExpiresIn: int(OTPTTL.Seconds())}, nil
}

// VerifyOTP checks code against the live record for number. Success and
// every terminal failure delete the record.
func (s *OTPService) VerifyOTP(ctx context.Context, number, code string) (*OTPVerified, error) {
	if number == "" || code == "" {
		return nil, otpError(ErrInvalidInput, "Phone number and OTP are required")
	}
	if !utils.IsValidPhoneNumber(number) {
		return nil, otpError(ErrInvalidInput, "Invalid phone number format")
	}
	if !utils.IsValidOTP(code) {
		return nil, otpError(ErrInvalidInput, "Invalid OTP format. OTP must be 6 digits")
	}

	record, err := s.cache.Get(ctx, number)
	if errors.Is(err, storage.ErrOTPNotFound) {
		return nil, otpError(ErrOTPNotFound, "OTP not found or expired")
	}
	if err != nil {
		return nil, fmt.Errorf("read otp: %w", err)
	}

	if record.Attempts >= OTPMaxAttempts {
		s.discard(ctx, number)
		return nil, otpError(ErrOTPMaxAttempts, "Maximum verification attempts exceeded")
	}

	now := s.now()
	if now.UnixMilli()-record.CreatedAt > OTPTTL.Milliseconds() {
		s.discard(ctx, number)
		return nil, otpError(ErrOTPExpired, "OTP has expired")
	}

	if code != record.OTP {
		record.Attempts++
		err := s.cache.SetKeepTTL(ctx, number, record)
		if errors.Is(err, storage.ErrOTPNotFound) {
			// expired between the read and the write
			return nil, otpError(ErrOTPNotFound, "OTP not found or expired")
		}
		if err != nil {
			return nil, fmt.Errorf("update otp attempts: %w", err)
		}

		remaining := OTPMaxAttempts - record.Attempts
		msg := fmt.Sprintf("Invalid OTP. %d attempts remaining.", remaining)
		if remaining <= 0 {
			msg = "Invalid OTP. No attempts remaining."
		}
		return nil, &OTPError{Kind: ErrOTPMismatch, Message: msg, RemainingAttempts: remaining}
	}

	if err := s.cache.Delete(ctx, number); err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}

	s.logger.Info("OTP verified", zap.String("number", maskNumber(number)))
	return &OTPVerified{PhoneNumber: number, VerifiedAt: now.UTC()}, nil
}

func (s *OTPService) discard(ctx context.Context, number string) {
	if err := s.cache.Delete(ctx, number); err != nil {
		s.logger.Error("Failed to delete OTP record", zap.Error(err))
	}
}

// maskNumber keeps the last four digits for logs
func maskNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "******" + number[len(number)-4:]
}
