package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// Message is a plain-text notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a Message through some transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the SMTP account used for alerts.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPMailer sends messages over SMTP with STARTTLS.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.Host == "" {
		return errors.New("smtp host not configured")
	}
	if msg.To == "" {
		return errors.New("recipient not configured")
	}

	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	// The email package has no context support; run the send in the
	// background so the caller's deadline still bounds the wait.
	done := make(chan error, 1)
	go func() {
		done <- e.SendWithStartTLS(
			net.JoinHostPort(m.cfg.Host, m.cfg.Port),
			auth,
			&tls.Config{ServerName: m.cfg.Host},
		)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
