package services

import (
	"errors"
	"fmt"
)

// OTP outcome categories. Use errors.Is against these; the concrete error
// is an *OTPError carrying the caller facing message and metadata.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrOTPCooldown    = errors.New("otp cooldown")
	ErrOTPDelivery    = errors.New("otp delivery failed")
	ErrOTPNotFound    = errors.New("otp not found or expired")
	ErrOTPMaxAttempts = errors.New("maximum verification attempts exceeded")
	ErrOTPExpired     = errors.New("otp has expired")
	ErrOTPMismatch    = errors.New("invalid otp")
)

// OTPError is returned by OTPService for every rejected request
type OTPError struct {
	Kind    error
	Message string

	// RemainingTime is the cooldown left in seconds, set for ErrOTPCooldown
	RemainingTime int
	// RemainingAttempts is set for ErrOTPMismatch
	RemainingAttempts int

	// Cause is the underlying failure for ErrOTPDelivery
	Cause error
}

func (e *OTPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *OTPError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func otpError(kind error, message string) *OTPError {
	return &OTPError{Kind: kind, Message: message}
}

// ValidationError reports malformed request input, before any side effect
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// GatewayError is a non-2xx answer from the SMS gateway
type GatewayError struct {
	Status int
	Body   []byte
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("sms gateway returned status %d", e.Status)
}
