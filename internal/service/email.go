package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridEmailSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGridEmailSender delivers admin notification mail through SendGrid.
func NewSendGridEmailSender(apiKey, fromEmail, fromName string) EmailSender {
	return &sendGridEmailSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailSender) SendEmail(ctx context.Context, to, subject, plainText, html string) error {
	message := buildEmail(s.fromName, s.fromEmail, to, subject, plainText, html)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func buildEmail(fromName, fromEmail, to, subject, plainText, html string) *mail.SGMailV3 {
	from := mail.NewEmail(fromName, fromEmail)
	recipient := mail.NewEmail("", to)
	return mail.NewSingleEmail(from, "[Asset Rental] "+subject, recipient, plainText, html)
}
