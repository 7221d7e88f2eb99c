// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/agrilink/agrilink-backend/internal/config"
	"github.com/agrilink/agrilink-backend/internal/models"
)

// LoanNotifier is told about loan lifecycle events.
type LoanNotifier interface {
	SendLoanStatusEmail(loan *models.Loan) error
	SendPaymentReceivedEmail(loan *models.Loan, payment *models.LoanPayment) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type NotificationService struct {
	config   *config.Config
	sendMail sendMailFunc
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(config *config.Config) *NotificationService {
	return &NotificationService{
		config:   config,
		sendMail: smtp.SendMail,
	}
}

// Authentication notifications
func (s *NotificationService) SendWelcomeEmail(user *models.User) error {
	data := map[string]interface{}{
		"Name":         user.FullName(),
		"DashboardURL": s.config.Frontend.BaseURL + "/dashboard",
		"PlatformName": "AgriLink",
	}
	return s.send(user.Email, "welcome", data)
}

// Loan notifications
func (s *NotificationService) SendLoanStatusEmail(loan *models.Loan) error {
	if loan.Applicant == nil {
		return fmt.Errorf("loan %s has no applicant loaded", loan.ID)
	}

	data := map[string]interface{}{
		"Name":           loan.Applicant.FullName(),
		"LoanType":       loan.LoanType,
		"Amount":         fmt.Sprintf("%.2f %s", loan.Amount, loan.Currency),
		"MonthlyPayment": fmt.Sprintf("%.2f %s", loan.MonthlyPayment, loan.Currency),
		"Term":           loan.Term,
		"InterestRate":   loan.InterestRate,
		"Reason":         loan.RejectionReason,
		"DueDate":        loan.DueDate.Format("02 Jan 2006"),
		"LoanURL":        fmt.Sprintf("%s/loans/%s", s.config.Frontend.BaseURL, loan.ID),
	}
	return s.send(loan.Applicant.Email, "loan_"+string(loan.Status), data)
}

func (s *NotificationService) SendPaymentReceivedEmail(loan *models.Loan, payment *models.LoanPayment) error {
	if loan.Applicant == nil {
		return fmt.Errorf("loan %s has no applicant loaded", loan.ID)
	}

	data := map[string]interface{}{
		"Name":      loan.Applicant.FullName(),
		"Amount":    fmt.Sprintf("%.2f %s", payment.AmountDue(), loan.Currency),
		"Sequence":  payment.Sequence,
		"Term":      loan.Term,
		"Remaining": fmt.Sprintf("%.2f %s", loan.OutstandingBalance(), loan.Currency),
		"Reference": payment.Reference,
		"LoanURL":   fmt.Sprintf("%s/loans/%s", s.config.Frontend.BaseURL, loan.ID),
	}
	return s.send(loan.Applicant.Email, "payment_received", data)
}

// Helper methods
func (s *NotificationService) send(to, templateType string, data interface{}) error {
	tmpl := s.getEmailTemplate(templateType)
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return s.sendEmail(to, tmpl.Subject, body)
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug("SMTP not configured, skipping email")
		return nil
	}

	// Setup authentication
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	// Compose message
	from := fmt.Sprintf("%s <%s>", s.config.Email.FromName, s.config.Email.FromEmail)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", from, to, subject, body))

	// Send email
	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return s.sendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

var emailTemplates = map[string]EmailTemplate{
	"welcome": {
		Subject: "Welcome to AgriLink",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Welcome {{.Name}}!</h2>
	<p>Thank you for joining {{.PlatformName}}. Browse the marketplace, ask our AI advisor or apply for a microloan from your dashboard.</p>
	<a href="{{.DashboardURL}}">Open Dashboard</a>
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
	},
	"loan_approved": {
		Subject: "Your loan has been approved",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Loan Approved!</h2>
	<p>Hello {{.Name}},</p>
	<p>Your {{.LoanType}} application for {{.Amount}} has been approved at {{.InterestRate}}% APR.</p>
	<p>Monthly installment: {{.MonthlyPayment}} for {{.Term}} months. Funds will be disbursed shortly.</p>
	<a href="{{.LoanURL}}">View Loan</a>
	<p>Best regards,<br>AgriLink Team</p>
</body>
</html>`,
	},
	"loan_rejected": {
		Subject: "Update on your loan application",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.Name}},</p>
	<p>Unfortunately your {{.LoanType}} application for {{.Amount}} was not approved.</p>
	{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
	<p>Best regards,<br>AgriLink Team</p>
</body>
</html>`,
	},
	"loan_active": {
		Subject: "Your loan has been disbursed",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Funds Disbursed</h2>
	<p>Hello {{.Name}},</p>
	<p>{{.Amount}} has been disbursed. Your first installment of {{.MonthlyPayment}} is due in one month; the loan matures on {{.DueDate}}.</p>
	<a href="{{.LoanURL}}">View Repayment Schedule</a>
	<p>Best regards,<br>AgriLink Team</p>
</body>
</html>`,
	},
	"loan_completed": {
		Subject: "Loan fully repaid",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Congratulations {{.Name}}!</h2>
	<p>Your {{.LoanType}} of {{.Amount}} is fully repaid.</p>
	<p>Best regards,<br>AgriLink Team</p>
</body>
</html>`,
	},
	"loan_defaulted": {
		Subject: "Your loan is in default",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.Name}},</p>
	<p>Your {{.LoanType}} of {{.Amount}} has been marked as defaulted after missed installments. Please contact support.</p>
	<a href="{{.LoanURL}}">View Loan</a>
</body>
</html>`,
	},
	"payment_received": {
		Subject: "Payment received",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.Name}},</p>
	<p>We received {{.Amount}} for installment {{.Sequence}} of {{.Term}}.{{if .Reference}} Reference: {{.Reference}}.{{end}}</p>
	<p>Remaining balance: {{.Remaining}}</p>
	<a href="{{.LoanURL}}">View Loan</a>
</body>
</html>`,
	},
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	if template, exists := emailTemplates[templateType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "AgriLink notification",
		Body:    "<p>Hello {{.Name}}, there is an update on your account.</p>",
	}
}
