// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/models"
)

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

// Notify delivers a lifecycle notification to a user. It never reports an
// error to the caller: notification delivery must not influence the outcome
// of the operation that triggered it.
func (s *NotificationService) Notify(userID uuid.UUID, eventKind string, data map[string]interface{}) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Notification recipient not found")
		return
	}

	template := s.getEmailTemplate(eventKind)

	templateData := map[string]interface{}{
		"Username": user.Username,
	}
	for k, v := range data {
		templateData[k] = v
	}

	body, err := s.renderTemplate(template.Body, templateData)
	if err != nil {
		logrus.WithError(err).WithField("event_kind", eventKind).Error("Failed to render notification template")
		return
	}

	if err := s.sendEmail(user.Email, template.Subject, body); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"event_kind": eventKind,
		}).Error("Failed to send notification email")
	}
}

// Authentication notifications
func (s *NotificationService) SendWelcomeEmail(user *models.User, verificationToken string) error {
	template := s.getEmailTemplate("welcome")

	data := map[string]interface{}{
		"Username":        user.Username,
		"VerificationURL": fmt.Sprintf("%s/verify-email?token=%s", s.config.Frontend.BaseURL, verificationToken),
		"PlatformName":    "ArborVest",
	}

	subject := "Welcome to ArborVest"
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

func (s *NotificationService) SendPasswordResetEmail(user *models.User, resetToken string) error {
	template := s.getEmailTemplate("password_reset")

	data := map[string]interface{}{
		"Username":  user.Username,
		"ResetURL":  fmt.Sprintf("%s/reset-password?token=%s", s.config.Frontend.BaseURL, resetToken),
		"ExpiresIn": "1 hour",
	}

	subject := "Password Reset Request"
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

// Admin notifications
func (s *NotificationService) SendUserStatusChangeNotification(user *models.User, oldStatus models.UserStatus, reason string) error {
	data := map[string]interface{}{
		"Username":  user.Username,
		"NewStatus": user.Status,
		"OldStatus": oldStatus,
		"Reason":    reason,
	}

	subject := "Account Status Update"
	template := s.getEmailTemplate("user_status_change")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

func (s *NotificationService) SendVerificationUpdateNotification(user *models.User, level models.VerificationLevel) error {
	data := map[string]interface{}{
		"Username":          user.Username,
		"VerificationLevel": level,
	}

	subject := "Verification Status Update"
	template := s.getEmailTemplate("verification_update")
	body, err := s.renderTemplate(template.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("Email delivery skipped (SMTP not configured)")
		return nil
	}

	// Setup authentication
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	// Compose message
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	// Send email
	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
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

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	// In a real implementation, these would be loaded from files or database
	templates := map[string]EmailTemplate{
		"welcome": {
			Subject: "Welcome to ArborVest",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Welcome {{.Username}}!</h2>
	<p>Thank you for joining ArborVest. Please verify your email address by clicking the link below:</p>
	<a href="{{.VerificationURL}}">Verify Email</a>
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
		},
		"investment_activated": {
			Subject: "Your Investment Is Active",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Congratulations {{.Username}}!</h2>
	<p>Your payment was received and your tree investment is now active.</p>
	<p>Investment: {{.investment_id}}</p>
	<p>Best regards,<br>ArborVest Team</p>
</body>
</html>`,
		},
		"payment_failed": {
			Subject: "Payment Failed",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Username}},</h2>
	<p>Unfortunately your recent payment did not go through. No money was taken and your investment remains pending.</p>
	<p>You can retry the payment from your dashboard.</p>
	<p>Best regards,<br>ArborVest Team</p>
</body>
</html>`,
		},
		// Add more templates as needed...
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>Hello {{.Username}}, there is an update on your ArborVest account.</p>",
	}
}
