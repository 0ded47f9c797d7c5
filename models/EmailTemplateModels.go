package models

// EmailTemplate is a notification template. Subject and Body may contain
// {{variable}} placeholders.
type EmailTemplate struct {
	TemplateType string `json:"template_type" example:"deadline_reminder"`
	Subject      string `json:"subject" example:"RFP deadline approaching: {{rfp_title}}"`
	Body         string `json:"body" example:"Hello {{user_name}}"`
}

// EmailTemplateVariable represents a single variable in the template
type EmailTemplateVariable struct {
	Key         string `json:"key" example:"rfp_title"`
	Description string `json:"description" example:"Title of the RFP"`
}

// EmailData carries the substitution values for one outgoing email.
type EmailData struct {
	UserName      string `json:"user_name"`
	Email         string `json:"email"`
	RfpTitle      string `json:"rfp_title"`
	VendorName    string `json:"vendor_name"`
	Deadline      string `json:"deadline"`
	ProposalCount string `json:"proposal_count"`
	ComparisonURL string `json:"comparison_url"`
	SupportEmail  string `json:"support_email"`
}
