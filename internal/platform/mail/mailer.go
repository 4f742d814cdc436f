package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"trailwise/internal/platform/config"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer is the out-of-band notification sink. Delivery is fire-and-forget
// from the caller's point of view; by the time Send runs, any state the
// message refers to has already been committed.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type smtpMailer struct {
	host, port, username, password, from string
}

// NewFromConfig returns an SMTP mailer when SMTP_HOST is configured and a
// log-only mailer otherwise, so local development works without a relay.
func NewFromConfig() Mailer {
	cfg := config.AppConfig
	if cfg.SMTPHost == "" {
		return &logMailer{}
	}
	return &smtpMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.EmailFrom,
	}
}

func (m *smtpMailer) Send(_ context.Context, msg Message) error {
	addr := m.host + ":" + m.port
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.from, msg.To, msg.Subject, msg.Body)
	if err := smtp.SendMail(addr, auth, m.from, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

type logMailer struct{}

func (m *logMailer) Send(_ context.Context, msg Message) error {
	// Body intentionally not logged: reset emails carry the plaintext token.
	log.Printf("mail (not sent, SMTP unconfigured): to=%s subject=%q", msg.To, msg.Subject)
	return nil
}
