package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/services"
)

// SMSHandler proxies DLT messages and exposes the template registry
type SMSHandler struct {
	sender    services.SMSSender
	registry  *services.TemplateRegistry
	templates *services.TemplateService
	logger    *zap.Logger
}

// NewSMSHandler creates a new SMS handler
func NewSMSHandler(sender services.SMSSender, registry *services.TemplateRegistry, templates *services.TemplateService, logger *zap.Logger) *SMSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMSHandler{
		sender:    sender,
		registry:  registry,
		templates: templates,
		logger:    logger,
	}
}

// SendSMS forwards a DLT template message to the gateway
func (h *SMSHandler) SendSMS(c *fiber.Ctx) error {
	var req models.SMSRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := services.ValidateSMSRequest(&req); err != nil {
		return h.sendFailure(c, err)
	}

	result, err := h.sender.Send(c.UserContext(), &req)
	if err != nil {
		return h.sendFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"provider": result.Provider,
		"data":     result.Data,
	})
}

// DescribeSendSMS answers GET with the endpoint contract
func (h *SMSHandler) DescribeSendSMS(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":              "SMS API endpoint is working. Use POST method to send SMS.",
		"required_fields":      []string{"header", "template_id", "numbers"},
		"optional_fields":      []string{"variables_values", "schedule_time"},
		"schedule_time_format": "DD-MM-YYYY-HH-MM",
		"variables_format":     `Array of strings, will be formatted as "value1|value2|"`,
	})
}

// GetTemplates lists the templates registered under ?dltHeader=
func (h *SMSHandler) GetTemplates(c *fiber.Ctx) error {
	header := c.Query("dltHeader")
	if header == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing or invalid dltHeader parameter",
		})
	}

	entries, ok := h.registry.Lookup(header)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	return c.JSON(fiber.Map{header: entries})
}

// SendTemplate sends a registered template after checking its variables
func (h *SMSHandler) SendTemplate(c *fiber.Ctx) error {
	var req models.SendTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.templates.SendTemplate(c.UserContext(), &req)
	if err != nil {
		return h.sendFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"provider": result.Provider,
		"data":     result.Data,
	})
}

func (h *SMSHandler) sendFailure(c *fiber.Ctx, err error) error {
	var gwErr *services.GatewayError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, services.ErrUnknownHeader), errors.Is(err, services.ErrUnknownTemplate):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case errors.As(err, &gwErr):
		var details any = string(gwErr.Body)
		if json.Valid(gwErr.Body) {
			details = json.RawMessage(gwErr.Body)
		}
		return c.Status(gwErr.Status).JSON(fiber.Map{
			"success": false,
			"error":   "Fast2SMS API error",
			"details": details,
			"status":  gwErr.Status,
		})
	}

	h.logger.Error("SMS send failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "Internal server error",
		"details": err.Error(),
	})
}
