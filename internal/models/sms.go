package models

// SMSRequest is a DLT message request. Numbers is a comma separated list,
// ScheduleTime uses the gateway's DD-MM-YYYY-HH-mm format.
type SMSRequest struct {
	Header          string   `json:"header"`
	TemplateID      string   `json:"template_id"`
	Numbers         string   `json:"numbers"`
	VariablesValues []string `json:"variables_values,omitempty"`
	ScheduleTime    string   `json:"schedule_time,omitempty"`
}

// TemplateEntry is one registered DLT template under a sender header
type TemplateEntry struct {
	Template      string `json:"template"`
	VariableCount int    `json:"variable-count"`
	TemplateID    string `json:"template_id"`
	Title         string `json:"title,omitempty"`
}

// SendTemplateRequest is the body of POST /api/send-template
type SendTemplateRequest struct {
	Header       string   `json:"header"`
	TemplateID   string   `json:"template_id"`
	Numbers      string   `json:"numbers"`
	Variables    []string `json:"variables"`
	ScheduleTime string   `json:"schedule_time,omitempty"`
}
