package models

// OTPRecord is the cache value stored under otp:<number>.
// CreatedAt is epoch milliseconds.
type OTPRecord struct {
	OTP       string `json:"otp"`
	Attempts  int    `json:"attempts"`
	CreatedAt int64  `json:"createdAt"`
}

// SendOTPRequest is the body of POST /api/send-otp
type SendOTPRequest struct {
	Number string `json:"number"`
}

// VerifyOTPRequest is the body of POST /api/verify-otp
type VerifyOTPRequest struct {
	Number string `json:"number"`
	OTP    string `json:"otp"`
}
