package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
)

// DefaultFast2SMSURL is the DLT bulk endpoint
const DefaultFast2SMSURL = "https://www.fast2sms.com/dev/bulkV2"

// Fast2SMSClient sends DLT template messages through Fast2SMS
type Fast2SMSClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewFast2SMSClient creates a client; an empty baseURL uses DefaultFast2SMSURL
func NewFast2SMSClient(apiKey, baseURL string, logger *zap.Logger) *Fast2SMSClient {
	if baseURL == "" {
		baseURL = DefaultFast2SMSURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fast2SMSClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		timeout: 15 * time.Second,
		logger:  logger,
	}
}

// Query builds the bulkV2 query string for req
func (c *Fast2SMSClient) Query(req *models.SMSRequest) url.Values {
	params := url.Values{}
	params.Set("authorization", c.apiKey)
	params.Set("route", "dlt")
	params.Set("sender_id", req.Header)
	params.Set("message", req.TemplateID)
	params.Set("flash", "0")
	params.Set("numbers", req.Numbers)

	// the gateway wants "v1|v2|" with a trailing separator
	if len(req.VariablesValues) > 0 {
		params.Set("variables_values", strings.Join(req.VariablesValues, "|")+"|")
	}
	if s := strings.TrimSpace(req.ScheduleTime); s != "" {
		params.Set("schedule_time", s)
	}
	return params
}

func (c *Fast2SMSClient) Send(ctx context.Context, req *models.SMSRequest) (*SMSResult, error) {
	if err := ValidateSMSRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}

	agent := fiber.Get(c.baseURL)
	agent.QueryString(c.Query(req).Encode())
	agent.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	agent.Timeout(timeout)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		c.logger.Error("Fast2SMS request failed",
			zap.String("sender_id", req.Header),
			zap.String("template_id", req.TemplateID),
			zap.Error(errs[0]))
		return nil, fmt.Errorf("fast2sms request: %w", errs[0])
	}

	if status < 200 || status >= 300 {
		c.logger.Warn("Fast2SMS rejected message",
			zap.Int("status", status),
			zap.String("sender_id", req.Header),
			zap.String("template_id", req.TemplateID),
			zap.ByteString("body", body))
		return nil, &GatewayError{Status: status, Body: body}
	}

	c.logger.Info("Fast2SMS message accepted",
		zap.String("sender_id", req.Header),
		zap.String("template_id", req.TemplateID))

	result := &SMSResult{Provider: "fast2sms"}
	if json.Valid(body) {
		result.Data = body
	}
	return result, nil
}
