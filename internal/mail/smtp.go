package mail

import (
	"context"
	"fmt"
	"strings"

	"student-result-system/internal/config"

	gomail "github.com/wneessen/go-mail"
)

type SMTPSender struct {
	cfg   config.MailConfig
	creds Credentials
}

func NewSMTPSender(cfg config.MailConfig, creds Credentials) *SMTPSender {
	return &SMTPSender{cfg: cfg, creds: creds}
}

// NewSMTPFactory returns a factory that opens SMTP senders for the given
// server settings.
func NewSMTPFactory(cfg config.MailConfig) SenderFactory {
	return func(creds Credentials) (Sender, error) {
		if !creds.Configured() {
			return nil, fmt.Errorf("smtp: missing username or password")
		}
		return NewSMTPSender(cfg, creds), nil
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.creds.Username),
		gomail.WithPassword(s.creds.Password),
		gomail.WithTLSPolicy(tlsPolicy(s.cfg.TLS)),
		gomail.WithTimeout(s.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, m)
}

func (s *SMTPSender) build(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.creds.Username); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func tlsPolicy(name string) gomail.TLSPolicy {
	switch strings.ToLower(name) {
	case "none":
		return gomail.NoTLS
	case "opportunistic":
		return gomail.TLSOpportunistic
	default:
		return gomail.TLSMandatory
	}
}
