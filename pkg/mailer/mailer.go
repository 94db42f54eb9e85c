// Package mailer sends transactional email over SMTP.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Config holds SMTP connection and sender identity.
type Config struct {
	FromAddress string
	FromName    string
	Host        string
	Port        int
	Username    string
	Password    string
}

// Sender delivers a single email. Implemented by Mailer; faked in tests and
// replaced by a log-only sender when SMTP is not configured.
type Sender interface {
	Send(to, subject, bodyHTML string) error
}

// Mailer sends email via SMTP with plain auth.
type Mailer struct {
	cfg Config
}

// New creates an SMTP mailer.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers one HTML email.
func (m *Mailer) Send(to, subject, bodyHTML string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.FromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(bodyHTML)

	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender logs email instead of sending it. Used when SMTP is not configured
// (local development).
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the email envelope.
func (l *LogSender) Send(to, subject, bodyHTML string) error {
	l.Logger.Info("email (smtp not configured, not sent)",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
