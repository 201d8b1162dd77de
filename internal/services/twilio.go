package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
)

// messageCreator is the part of the Twilio REST API the sender uses
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender delivers DLT templates as plain SMS through Twilio.
// Twilio has no DLT template ids, so the registered text is rendered locally.
type TwilioSender struct {
	api      messageCreator
	from     string
	registry *TemplateRegistry
	logger   *zap.Logger
}

// NewTwilioSender creates a new Twilio sender
func NewTwilioSender(accountSid, authToken, from string, registry *TemplateRegistry, logger *zap.Logger) (*TwilioSender, error) {
	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return newTwilioSender(client.Api, from, registry, logger), nil
}

func newTwilioSender(api messageCreator, from string, registry *TemplateRegistry, logger *zap.Logger) *TwilioSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TwilioSender{
		api:      api,
		from:     from,
		registry: registry,
		logger:   logger,
	}
}

// Send renders the template and sends one message per number. It stops at
// the first failure; numbers before it have already been sent.
func (t *TwilioSender) Send(ctx context.Context, req *models.SMSRequest) (*SMSResult, error) {
	if err := ValidateSMSRequest(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ScheduleTime) != "" {
		return nil, &ValidationError{Message: "schedule_time is not supported by the twilio provider"}
	}

	entry, err := t.registry.Find(req.Header, req.TemplateID)
	if err != nil {
		return nil, err
	}
	body := Render(entry, req.VariablesValues)

	for _, number := range splitNumbers(req.Numbers) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetFrom(t.from)
		params.SetTo(toE164(number))
		params.SetBody(body)

		resp, err := t.api.CreateMessage(params)
		if err != nil {
			t.logger.Error("Failed to send SMS via Twilio", zap.String("template_id", req.TemplateID), zap.Error(err))
			return nil, fmt.Errorf("twilio send: %w", err)
		}
		if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
			msg := ""
			if resp.ErrorMessage != nil {
				msg = *resp.ErrorMessage
			}
			return nil, fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
		}

		sid := ""
		if resp.Sid != nil {
			sid = *resp.Sid
		}
		t.logger.Info("SMS sent via Twilio", zap.String("sid", sid), zap.String("template_id", req.TemplateID))
	}

	return &SMSResult{Provider: "twilio"}, nil
}

// toE164 prefixes bare 10-digit Indian numbers with +91
func toE164(number string) string {
	if strings.HasPrefix(number, "+") {
		return number
	}
	return "+91" + number
}
