package mail

import "context"

// Message is one fully rendered email.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a rendered message. Implementations report transport
// failures as errors and never retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Credentials are the mailbox login used as both SMTP auth and sender address.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Configured() bool {
	return c.Username != "" && c.Password != ""
}

// SenderFactory builds a Sender bound to one set of credentials.
type SenderFactory func(creds Credentials) (Sender, error)
