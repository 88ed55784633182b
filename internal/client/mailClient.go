package client

import (
	"ai-build-shop/internal/config"
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

type MailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg *MailMessage) error
}

type smtpMailerImpl struct {
	cfg config.SMTP
}

// NewMailer returns nil when the SMTP settings are incomplete.
func NewMailer(cfg config.SMTP) Mailer {
	if !cfg.Enabled() {
		return nil
	}
	return &smtpMailerImpl{cfg: cfg}
}

func (m *smtpMailerImpl) Send(ctx context.Context, msg *MailMessage) error {
	message := mail.NewMsg()
	if err := message.From(m.cfg.FromEmail); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := message.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	message.Subject(msg.Subject)
	message.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		message.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
		mail.WithTimeout(15 * time.Second),
	}
	if m.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := c.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}
