package mail

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"student-result-system/internal/config"

	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
)

type failingSender struct {
	calls int
	err   error
}

func (f *failingSender) Send(context.Context, Message) error {
	f.calls++
	return f.err
}

func TestSMTPSenderBuildsMultipartMessage(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{FromName: "Academic Department"},
		Credentials{Username: "teacher@school.com", Password: "secret"})

	m, err := s.build(Message{
		To:      []string{"alice@x.com"},
		Subject: "Academic Results - Web",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Subject: Academic Results - Web",
		"teacher@school.com",
		"alice@x.com",
		"text/plain",
		"text/html",
		"plain body",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSMTPSenderRejectsBadRecipient(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{}, Credentials{Username: "teacher@school.com", Password: "x"})
	if _, err := s.build(Message{To: []string{"not an address"}}); err == nil {
		t.Fatal("expected invalid recipient error")
	}
}

func TestSMTPFactoryRequiresCredentials(t *testing.T) {
	factory := NewSMTPFactory(config.MailConfig{Host: "localhost", Port: 25})
	if _, err := factory(Credentials{Username: "a@b.com"}); err == nil {
		t.Fatal("expected error without password")
	}
	if _, err := factory(Credentials{Username: "a@b.com", Password: "p"}); err != nil {
		t.Fatal(err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingSender{err: errors.New("connection refused")}
	b := NewBreakerSender(inner, config.BreakerConfig{Enabled: true, ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Send(ctx, Message{}); err == nil || errors.Is(err, gobreaker.ErrOpenState) {
			t.Fatalf("send %d: unexpected error %v", i+1, err)
		}
	}
	err := b.Send(ctx, Message{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("transport called %d times, want 2", inner.calls)
	}
}

func TestWithBreakerDisabledReturnsFactory(t *testing.T) {
	inner := &failingSender{}
	factory := WithBreaker(func(Credentials) (Sender, error) { return inner, nil }, config.BreakerConfig{})
	s, err := factory(Credentials{})
	if err != nil {
		t.Fatal(err)
	}
	if s != Sender(inner) {
		t.Fatalf("expected unwrapped sender, got %T", s)
	}
}

func TestCredentialStoreUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SECRET_KEY=keep-me\nMAIL_USERNAME=old@school.com\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewCredentialStore(path, Credentials{Username: "old@school.com"})
	if store.Get().Configured() {
		t.Fatal("store without password should not be configured")
	}

	creds := Credentials{Username: "new@school.com", Password: "app pass"}
	if err := store.Update(creds); err != nil {
		t.Fatal(err)
	}
	if store.Get() != creds {
		t.Fatalf("Get() = %+v", store.Get())
	}

	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if env["MAIL_USERNAME"] != "new@school.com" || env["MAIL_PASSWORD"] != "app pass" || env["SECRET_KEY"] != "keep-me" {
		t.Fatalf("persisted env = %v", env)
	}
}

func TestCredentialStoreCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	store := NewCredentialStore(path, Credentials{})
	if err := store.Update(Credentials{Username: "a@b.com", Password: "p"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}
