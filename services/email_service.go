package services

import (
	"fmt"
	"net/smtp"
	"os"
	"regexp"
	"strings"

	"backend/models"

	"golang.org/x/net/html"
)

// convertHTMLToText converts HTML content to plain text for email sending
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "table", "tr":
				text.WriteString("\n")
			case "td", "th":
				text.WriteString(" | ")
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}

	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	result = strings.TrimSpace(result)

	return result
}

// EmailService sends notification emails over SMTP. Templates are HTML with
// {{variable}} placeholders, converted to plain text before sending.
type EmailService struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewEmailService reads SMTP settings from the environment.
func NewEmailService() *EmailService {
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}
	return &EmailService{
		host: os.Getenv("SMTP_HOST"),
		port: os.Getenv("SMTP_PORT"),
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		from: from,
	}
}

// Enabled reports whether SMTP is configured. Callers skip sending when it
// is not, rather than failing the surrounding operation.
func (es *EmailService) Enabled() bool {
	return es.host != "" && es.user != ""
}

var defaultTemplates = map[string]models.EmailTemplate{
	"proposal_extracted": {
		TemplateType: "proposal_extracted",
		Subject:      "Proposal from {{vendor_name}} is ready to compare",
		Body: `<p>Hi {{user_name}},</p>
<p>The proposal submitted by <b>{{vendor_name}}</b> for <b>{{rfp_title}}</b> has been processed. Its line items are now part of the comparison matrix.</p>
<p>View the comparison: {{comparison_url}}</p>
<p>Questions? Reach us at {{support_email}}.</p>`,
	},
	"deadline_reminder": {
		TemplateType: "deadline_reminder",
		Subject:      "RFP deadline approaching: {{rfp_title}}",
		Body: `<p>Hi {{user_name}},</p>
<p>The submission deadline for <b>{{rfp_title}}</b> is {{deadline}}.</p>
<p>{{proposal_count}} proposal(s) received so far. Review them here: {{comparison_url}}</p>`,
	},
}

// SendTemplatedEmail fills the named template with the email data and sends
// it. Unknown template types are an error.
func (es *EmailService) SendTemplatedEmail(templateType string, emailData models.EmailData) error {
	emailTemplate, ok := defaultTemplates[templateType]
	if !ok {
		return fmt.Errorf("unknown email template type %q", templateType)
	}

	subject, err := es.processTemplate(emailTemplate.Subject, emailData)
	if err != nil {
		return fmt.Errorf("failed to process subject template: %v", err)
	}

	body, err := es.processTemplate(emailTemplate.Body, emailData)
	if err != nil {
		return fmt.Errorf("failed to process body template: %v", err)
	}

	plainTextBody := convertHTMLToText(body)

	return es.sendEmail(emailData.Email, subject, plainTextBody)
}

// PreviewEmailAsText renders a template to the plain text that would be
// sent, for frontend previews.
func (es *EmailService) PreviewEmailAsText(htmlContent string, emailData models.EmailData) (string, error) {
	processedContent, err := es.processTemplate(htmlContent, emailData)
	if err != nil {
		return "", fmt.Errorf("failed to process template: %v", err)
	}
	return convertHTMLToText(processedContent), nil
}

func templateVariables(data models.EmailData) map[string]string {
	return map[string]string{
		"user_name":      data.UserName,
		"email":          data.Email,
		"rfp_title":      data.RfpTitle,
		"vendor_name":    data.VendorName,
		"deadline":       data.Deadline,
		"proposal_count": data.ProposalCount,
		"comparison_url": data.ComparisonURL,
		"support_email":  data.SupportEmail,
	}
}

// processTemplate substitutes {{variable}} placeholders.
func (es *EmailService) processTemplate(templateStr string, data models.EmailData) (string, error) {
	result := templateStr
	for key, value := range templateVariables(data) {
		placeholder := fmt.Sprintf("{{%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result, nil
}

// ValidateTemplate checks a template string for unmatched braces and
// unknown variables.
func (es *EmailService) ValidateTemplate(templateStr string) error {
	openBraces := strings.Count(templateStr, "{{")
	closeBraces := strings.Count(templateStr, "}}")
	if openBraces != closeBraces {
		return fmt.Errorf("unmatched braces in template")
	}

	valid := templateVariables(models.EmailData{})
	re := regexp.MustCompile(`\{\{([^}]+)\}\}`)
	for _, match := range re.FindAllStringSubmatch(templateStr, -1) {
		if len(match) > 1 {
			variable := strings.TrimSpace(match[1])
			if _, ok := valid[variable]; !ok {
				return fmt.Errorf("invalid variable: %s", variable)
			}
		}
	}
	return nil
}

// GetAvailableVariables returns a list of available template variables
func (es *EmailService) GetAvailableVariables() []models.EmailTemplateVariable {
	return []models.EmailTemplateVariable{
		{Key: "user_name", Description: "Recipient full name"},
		{Key: "email", Description: "Recipient email"},
		{Key: "rfp_title", Description: "Title of the RFP"},
		{Key: "vendor_name", Description: "Vendor whose proposal was processed"},
		{Key: "deadline", Description: "RFP submission deadline"},
		{Key: "proposal_count", Description: "Number of proposals received"},
		{Key: "comparison_url", Description: "Link to the comparison matrix"},
		{Key: "support_email", Description: "Support contact email"},
	}
}

func (es *EmailService) sendEmail(to, subject, body string) error {
	if !es.Enabled() {
		return fmt.Errorf("SMTP is not configured")
	}

	port := es.port
	if port == "" {
		port = "587"
	}

	auth := smtp.PlainAuth("", es.user, es.pass, es.host)

	headers := []string{
		"From: " + es.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}
	msg := []byte(strings.Join(headers, "\r\n") + "\r\n")

	return smtp.SendMail(es.host+":"+port, auth, es.from, []string{to}, msg)
}

// SendProposalExtractedEmail notifies the RFP owner that a vendor's
// proposal finished extraction.
func (es *EmailService) SendProposalExtractedEmail(ownerName, ownerEmail string, rfp models.Rfp, vendorName string) error {
	emailData := models.EmailData{
		UserName:      ownerName,
		Email:         ownerEmail,
		RfpTitle:      rfp.Title,
		VendorName:    vendorName,
		ComparisonURL: comparisonURL(rfp.ID),
		SupportEmail:  supportEmail(),
	}
	return es.SendTemplatedEmail("proposal_extracted", emailData)
}

// SendDeadlineReminderEmail reminds the RFP owner of an approaching
// submission deadline.
func (es *EmailService) SendDeadlineReminderEmail(ownerName, ownerEmail string, rfp models.Rfp, proposalCount int) error {
	deadline := ""
	if rfp.Deadline != nil {
		deadline = rfp.Deadline.Format("02-Jan-2006")
	}
	emailData := models.EmailData{
		UserName:      ownerName,
		Email:         ownerEmail,
		RfpTitle:      rfp.Title,
		Deadline:      deadline,
		ProposalCount: fmt.Sprintf("%d", proposalCount),
		ComparisonURL: comparisonURL(rfp.ID),
		SupportEmail:  supportEmail(),
	}
	return es.SendTemplatedEmail("deadline_reminder", emailData)
}

func comparisonURL(rfpID string) string {
	baseURL := strings.TrimRight(os.Getenv("APP_BASE_URL"), "/")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	return fmt.Sprintf("%s/rfps/%s/comparison", baseURL, rfpID)
}

func supportEmail() string {
	if v := os.Getenv("SUPPORT_EMAIL"); v != "" {
		return v
	}
	return "support@example.com"
}
