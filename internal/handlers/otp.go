package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/services"
)

// OTPHandler serves the OTP issue and verify endpoints
type OTPHandler struct {
	otp    *services.OTPService
	logger *zap.Logger
}

// NewOTPHandler creates a new OTP handler
func NewOTPHandler(otp *services.OTPService, logger *zap.Logger) *OTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPHandler{otp: otp, logger: logger}
}

// SendOTP issues a code for the number in the body
func (h *OTPHandler) SendOTP(c *fiber.Ctx) error {
	var req models.SendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	issued, err := h.otp.RequestOTP(c.UserContext(), req.Number)
	if err != nil {
		return h.otpFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "OTP sent successfully",
		"phone_number": issued.PhoneNumber,
		"expires_in":   issued.ExpiresIn,
	})
}

// DescribeSendOTP answers GET with the endpoint contract
func (h *OTPHandler) DescribeSendOTP(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":         "Send OTP API endpoint is working. Use POST method to send OTP.",
		"required_fields": []string{"number"},
		"otp_validity":    "5 minutes",
		"rate_limit":      "1 OTP per 60 seconds per number",
	})
}

// VerifyOTP checks a submitted code
func (h *OTPHandler) VerifyOTP(c *fiber.Ctx) error {
	var req models.VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	verified, err := h.otp.VerifyOTP(c.UserContext(), req.Number, req.OTP)
	if err != nil {
		return h.otpFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "OTP verified successfully",
		"phone_number": verified.PhoneNumber,
		"verified_at":  verified.VerifiedAt.Format(time.RFC3339Nano),
	})
}

// DescribeVerifyOTP answers GET with the endpoint contract
func (h *OTPHandler) DescribeVerifyOTP(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":         "Verify OTP API endpoint is working. Use POST method to verify OTP.",
		"required_fields": []string{"number", "otp"},
		"max_attempts":    services.OTPMaxAttempts,
		"otp_validity":    "5 minutes",
		"format": fiber.Map{
			"number": "10-digit Indian mobile number",
			"otp":    "6-digit numeric code",
		},
	})
}

func (h *OTPHandler) otpFailure(c *fiber.Ctx, err error) error {
	var otpErr *services.OTPError
	if !errors.As(err, &otpErr) {
		h.logger.Error("OTP request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Internal server error",
			"details": err.Error(),
		})
	}

	body := fiber.Map{"success": false, "error": otpErr.Message}
	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrOTPCooldown):
		status = fiber.StatusTooManyRequests
		body["remainingTime"] = otpErr.RemainingTime
	case errors.Is(err, services.ErrOTPDelivery):
		body["details"] = deliveryDetails(otpErr.Cause)
	case errors.Is(err, services.ErrOTPNotFound):
		status = fiber.StatusNotFound
		body["message"] = "Please request a new OTP"
	case errors.Is(err, services.ErrOTPMaxAttempts):
		status = fiber.StatusTooManyRequests
		body["message"] = "Please request a new OTP"
	case errors.Is(err, services.ErrOTPExpired):
		status = fiber.StatusGone
		body["message"] = "Please request a new OTP"
	case errors.Is(err, services.ErrOTPMismatch):
		status = fiber.StatusUnauthorized
		body["error"] = "Invalid OTP"
		body["message"] = otpErr.Message
		body["remaining_attempts"] = otpErr.RemainingAttempts
	}

	return c.Status(status).JSON(body)
}

// deliveryDetails summarizes a send failure without echoing the gateway request
func deliveryDetails(cause error) string {
	var gwErr *services.GatewayError
	if errors.As(cause, &gwErr) {
		return gwErr.Error()
	}
	return "SMS service error"
}
