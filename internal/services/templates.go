package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
)

var (
	ErrUnknownHeader   = errors.New("dlt header not found")
	ErrUnknownTemplate = errors.New("template not found")
)

// DLTTemplates maps each registered sender header to its approved templates
var DLTTemplates = map[string][]models.TemplateEntry{
	"ALIAGR": {
		{
			Template:      "Welcome to ALILAS  We're excited to have you onboard. At {#var#}, we strive to offer the best experience and support to help you get started. Whether you're here to explore, grow, or collaborate, we're here to guide you every step of the way.",
			VariableCount: 1,
			TemplateID:    "188673",
			Title:         "Test Template",
		},
	},
	"ZIRAAT": {
		{
			Template:      "Dear Grower! your OTP for login is {#var#}. Do not share it with anyone!Team ZIRAAT®",
			VariableCount: 1,
			TemplateID:    "191100",
			Title:         "OTP for booking",
		},
		{
			Template:      "We have received Rs. {#price#} for project ID community_id. Our representative will shortly connect with you for {#purpose#} .Team ZIRAAT®",
			VariableCount: 3,
			TemplateID:    "191099",
			Title:         "Payment Confirmation",
		},
		{
			Template:      "Dear Grower {#name#}!We’re thrilled to have you with us. Project ID {#project ID#} has been assigned to your orchard for future reference. Your orchard development journey begins here—with expert care, precision farming, and sustainable solutions.Let’s grow success together! Team ZIRAAT® {#link#}.",
			VariableCount: 3,
			TemplateID:    "191054",
			Title:         "Welcome to ZIRAAT",
		},
		{
			Template:      "ZIRAAT® by Alialls Agrico Pvt Ltd offers farmer-friendly High-Density Orchard installation and allied services with expert support. Click here {#link#} to Book service online for March {#session#} plantation. Or call us at 8899-888-983.",
			VariableCount: 2,
			TemplateID:    "191053",
			Title:         "Orchard Booking Marketting",
		},
		{
			Template:      "Dear Grower!Your Site {#project ID#} has been assigned a Layout team. Team lead {#lead_name#}, they will visit the site on {#layout_date#}.Team ZIRAAT®",
			VariableCount: 3,
			TemplateID:    "194373",
			Title:         "Layout Team Deployment",
		},
		{
			Template:      "Dear Grower {#project_id#}! Your payment schedule has been updated with us as follows: First Instalment of Rs. {#first_instalment_amount#} due on {#first_instalment_date#}, Second Instalment of Rs. {#second_instalment_amount#} due on {#second_instalment_date#}, Third Instalment of Rs. {#third_instalment_amount#} due on {#third_instalment_date#}. Please make payments as scheduled to avoid any service delay. Team ZIRAAT® {#website_link#}.",
			VariableCount: 8,
			TemplateID:    "197926",
			Title:         "Payment Schedule",
		},
		{
			Template:      "Dear Grower {#project_id#}! Your Instalment amount of Rs. {#instalment_amount#} is due on {#due_date#}. Please pay on time to avoid service delays. Ignore if already paid. For assistance call our office at {#customer_care_number#}. Team ZIRAAT®",
			VariableCount: 4,
			TemplateID:    "197923",
			Title:         "Payment Due Date Reminder",
		},
		{
			Template:      "FINAL REMINDER! Your payment of Rs. {#overdue_amount#} is overdue. Please make the payment immediately to avoid any service disruption. Failure to clear the dues within 7 days will result in termination of enforceable service guarantees, including the Plant Mortality Replacement Guarantee. For assistance call our office at {#customer_care_number#}. Team ZIRAAT®",
			VariableCount: 2,
			TemplateID:    "197924",
			Title:         "Payment Overdue Reminder",
		},
		{
			Template:      "Dear Grower {#project_id#}! We have received payment of Rs. {#payment_amount#} on {#payment_date#}. Your Net outstanding Balance is {#ledger_balance#}. For any clarification, please call our Finance Department at {#finance_department_number#}. Team ZIRAAT®",
			VariableCount: 5,
			TemplateID:    "197925",
			Title:         "Payment Receipt with Ledger Balance",
		},
		{
			Template:      "Dear Grower {#project_id#}! Our {#service_type#} Team, headed by {#team_lead#} will visit the project site on {#service_date#}. Please remain available on the mentioned date. Team ZIRAAT®",
			VariableCount: 4,
			TemplateID:    "197922",
			Title:         "Service Team Deployment",
		},
	},
}

var placeholderPattern = regexp.MustCompile(`\{#[^#]*#\}`)

// TemplateRegistry answers template lookups by DLT header
type TemplateRegistry struct {
	templates map[string][]models.TemplateEntry
}

// NewTemplateRegistry wraps a header -> templates map, usually DLTTemplates
func NewTemplateRegistry(templates map[string][]models.TemplateEntry) *TemplateRegistry {
	return &TemplateRegistry{templates: templates}
}

// Lookup returns the templates registered under header
func (r *TemplateRegistry) Lookup(header string) ([]models.TemplateEntry, bool) {
	entries, ok := r.templates[header]
	if !ok {
		return nil, false
	}
	out := make([]models.TemplateEntry, len(entries))
	copy(out, entries)
	return out, true
}

// Find returns one template by header and template id
func (r *TemplateRegistry) Find(header, templateID string) (*models.TemplateEntry, error) {
	entries, ok := r.templates[header]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHeader, header)
	}
	for _, e := range entries {
		if e.TemplateID == templateID {
			entry := e
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrUnknownTemplate, header, templateID)
}

// Render fills the {#...#} placeholders of entry with vars, in order.
// Placeholders without a value are left as they are.
func Render(entry *models.TemplateEntry, vars []string) string {
	i := 0
	return placeholderPattern.ReplaceAllStringFunc(entry.Template, func(p string) string {
		if i >= len(vars) {
			return p
		}
		v := vars[i]
		i++
		return v
	})
}

// TemplateService sends registered DLT templates
type TemplateService struct {
	registry *TemplateRegistry
	sender   SMSSender
	logger   *zap.Logger
}

// NewTemplateService creates a new template service
func NewTemplateService(registry *TemplateRegistry, sender SMSSender, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{
		registry: registry,
		sender:   sender,
		logger:   logger,
	}
}

// SendTemplate checks the template exists and gets exactly the variables it
// declares, then sends it
func (ts *TemplateService) SendTemplate(ctx context.Context, req *models.SendTemplateRequest) (*SMSResult, error) {
	if req.Header == "" || req.TemplateID == "" || strings.TrimSpace(req.Numbers) == "" {
		return nil, &ValidationError{Message: "Missing required fields: header, template_id, or numbers"}
	}

	entry, err := ts.registry.Find(req.Header, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if len(req.Variables) != entry.VariableCount {
		return nil, &ValidationError{Message: fmt.Sprintf(
			"template %s expects %d variables, got %d", entry.TemplateID, entry.VariableCount, len(req.Variables))}
	}

	smsReq := &models.SMSRequest{
		Header:          req.Header,
		TemplateID:      req.TemplateID,
		Numbers:         req.Numbers,
		VariablesValues: req.Variables,
		ScheduleTime:    req.ScheduleTime,
	}
	if err := ValidateSMSRequest(smsReq); err != nil {
		return nil, err
	}

	result, err := ts.sender.Send(ctx, smsReq)
	if err != nil {
		ts.logger.Warn("Template send failed",
			zap.String("header", req.Header),
			zap.String("template_id", req.TemplateID),
			zap.Error(err))
		return nil, err
	}

	ts.logger.Info("Template sent",
		zap.String("header", req.Header),
		zap.String("template_id", req.TemplateID),
		zap.String("title", entry.Title))
	return result, nil
}
