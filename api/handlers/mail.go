package handlers

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/RoshiKK/emergency-response-api/config"
	templates "github.com/RoshiKK/emergency-response-api/templates/html"
)

// Mailer sends transactional notices. Delivery is best effort: a failed
// send is logged and never fails the request that triggered it.
type Mailer struct {
	APIKey      string
	FromAddress string
}

// NewMailer builds a mailer from the app config
func NewMailer(conf config.Config) *Mailer {
	from := conf.SupportEmail
	if from == "" {
		from = "no-reply@emergency-response.local"
	}
	return &Mailer{APIKey: conf.SendgridAPIKey, FromAddress: from}
}

func (m *Mailer) send(toName, toEmail, subject, htmlContent, plainText string) error {
	from := mail.NewEmail("Emergency Response Platform", m.FromAddress)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(m.APIKey)
	response, err := client.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send email", "error", err, "to", toEmail)
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", toEmail)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	zap.S().Infow("email sent successfully", "to", toEmail, "subject", subject)
	return nil
}

// SendRestrictionNotice tells a user their account was restricted. Runs in
// the background so the restrict endpoint never waits on sendgrid.
func (m *Mailer) SendRestrictionNotice(toName, toEmail, reason, until string) {
	if m == nil || m.APIKey == "" || toEmail == "" {
		return
	}
	subject := "Your account has been restricted"
	htmlContent := templates.RenderRestrictionEmail(toName, reason, until)
	plainText := fmt.Sprintf("Hi %s, your account has been restricted until %s. Reason: %s", toName, until, reason)

	go func() {
		if err := m.send(toName, toEmail, subject, htmlContent, plainText); err != nil {
			zap.S().Warnw("restriction notice not delivered", "to", toEmail)
		}
	}()
}
