// Package mail sends transactional email (verification codes). The SMTP
// implementation is intentionally thin; a Nop mailer stands in when no SMTP
// host is configured, logging instead of sending.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/biplovgautam/himalai-expense-tracker-backend/internal/logging"
)

// Mailer sends one message to one recipient.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr   string
	from   string
	auth   smtp.Auth
	logger logging.Logger
}

// NewSMTPMailer creates an SMTPMailer. Username may be empty for relays
// without authentication.
func NewSMTPMailer(host string, port int, username, password, from string, logger logging.Logger) *SMTPMailer {
	if logger == nil {
		logger = logging.GetLogger()
	}
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr:   fmt.Sprintf("%s:%d", host, port),
		from:   from,
		auth:   auth,
		logger: logger,
	}
}

// Send delivers one plain-text message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	var msg strings.Builder
	msg.WriteString("From: " + m.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Debug("Mail sent",
		logging.Field{Key: "to", Value: to},
		logging.Field{Key: "subject", Value: subject})
	return nil
}

// Nop is a mailer that logs instead of sending. Used in development and
// tests.
type Nop struct {
	Logger logging.Logger
}

// Send logs the message and succeeds.
func (n Nop) Send(to, subject, body string) error {
	logger := n.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	logger.Info("Mail suppressed (no SMTP configured)",
		logging.Field{Key: "to", Value: to},
		logging.Field{Key: "subject", Value: subject})
	return nil
}
