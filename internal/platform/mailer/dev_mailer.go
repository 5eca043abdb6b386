package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/bistro-api/pkg/logger"
)

// DevMailer logs messages instead of sending them.
type DevMailer struct{}

func (DevMailer) Send(ctx context.Context, toEmail, toName, subject, text, html string) (string, error) {
	id := fmt.Sprintf("dev-%d", time.Now().UnixNano())
	logger.InfoContext(ctx, "mail not sent (dev mailer)",
		"message_id", id,
		"to", toEmail,
		"subject", subject,
		"text", text,
	)
	return id, nil
}

// New returns the MailerSend client when an API key is configured, otherwise DevMailer.
func New(apiKey, fromName, fromEmail string) Service {
	m := NewMailer(apiKey, fromName, fromEmail)
	if !m.Enabled {
		return DevMailer{}
	}
	return m
}
