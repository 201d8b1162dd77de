package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
)

var scheduleTimePattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}-\d{2}-\d{2}$`)

// SMSSender delivers a DLT template message through some provider
type SMSSender interface {
	Send(ctx context.Context, req *models.SMSRequest) (*SMSResult, error)
}

// SMSResult is what the provider answered on success
type SMSResult struct {
	Provider string          `json:"provider"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// ValidateSMSRequest checks required fields and the schedule_time format
func ValidateSMSRequest(req *models.SMSRequest) error {
	if req.Header == "" || req.TemplateID == "" || strings.TrimSpace(req.Numbers) == "" {
		return &ValidationError{Message: "Missing required fields: header, template_id, or numbers"}
	}
	if s := strings.TrimSpace(req.ScheduleTime); s != "" && !scheduleTimePattern.MatchString(s) {
		return &ValidationError{Message: "Invalid schedule_time format. Expected: DD-MM-YYYY-HH-MM"}
	}
	return nil
}

// splitNumbers turns the comma separated numbers field into a list
func splitNumbers(numbers string) []string {
	var out []string
	for _, n := range strings.Split(numbers, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// LogSender only logs the message, for local runs without a gateway.
// Variable values are not logged since they may carry an OTP.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, req *models.SMSRequest) (*SMSResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Info("SMS send skipped (log provider)",
		zap.String("header", req.Header),
		zap.String("template_id", req.TemplateID),
		zap.Strings("numbers", splitNumbers(req.Numbers)),
		zap.Int("variables", len(req.VariablesValues)),
		zap.String("schedule_time", req.ScheduleTime))
	return &SMSResult{Provider: "log"}, nil
}
