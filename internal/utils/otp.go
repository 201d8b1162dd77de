package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

var (
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
	otpPattern   = regexp.MustCompile(`^\d{6}$`)
)

// GenerateSecureOTP generates a cryptographically secure 6-digit OTP
// uniformly in 100000-999999, so it never has a leading zero
func GenerateSecureOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// GenerateSecureID generates a booking reference number: prefix, unix time
// and six random digits
func GenerateSecureID(prefix string, now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%s%d%06d", prefix, now.Unix(), n.Int64()), nil
}

// IsValidPhoneNumber checks a 10-digit Indian mobile number without country code
func IsValidPhoneNumber(number string) bool {
	return phonePattern.MatchString(number)
}

// IsValidOTP checks a 6-digit code
func IsValidOTP(code string) bool {
	return otpPattern.MatchString(code)
}
