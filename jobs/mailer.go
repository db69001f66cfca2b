package jobs

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer delivers notification emails.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay. With no host
// configured it logs the message instead, which keeps local development
// working without a mail server.
type SMTPMailer struct {
	addr   string
	from   string
	logger *slog.Logger
}

// NewSMTPMailer constructs a mailer. addr may be empty.
func NewSMTPMailer(addr, from string, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from, logger: logger}
}

// Send delivers one email, or logs it when no relay is configured.
func (m *SMTPMailer) Send(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("mail: recipient required")
	}
	if m.addr == "" {
		m.logger.Info("mail (no SMTP relay configured)",
			slog.String("to", to),
			slog.String("subject", subject))
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	return smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg.String()))
}
