// Command send-test-email mails the sample result report to the configured
// mailbox, to check SMTP settings without touching student data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"student-result-system/internal/config"
	"student-result-system/internal/logger"
	"student-result-system/internal/mail"
	"student-result-system/internal/report"
)

func main() {
	to := flag.String("to", "", "recipient (defaults to the configured mailbox)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, "console")
	log := logger.For("send-test-email")

	creds := mail.Credentials{Username: cfg.Mail.Username, Password: cfg.Mail.Password}
	if !creds.Configured() {
		log.Error().Str("credentials_file", cfg.Mail.CredentialsFile).Msg("MAIL_USERNAME and MAIL_PASSWORD must be set")
		os.Exit(1)
	}
	recipient := *to
	if recipient == "" {
		recipient = creds.Username
	}

	renderer, err := report.NewRenderer(cfg.Mail.FromName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load email templates")
	}
	msg, err := renderer.Render(report.SampleStudent(), recipient, true)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render test email")
	}

	log.Info().
		Str("from", creds.Username).
		Str("to", recipient).
		Str("subject", msg.Subject).
		Str("server", fmt.Sprintf("%s:%d", cfg.Mail.Host, cfg.Mail.Port)).
		Msg("Sending test email")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mail.Timeout)
	defer cancel()

	if err := mail.NewSMTPSender(cfg.Mail, creds).Send(ctx, msg); err != nil {
		log.Error().Err(err).Msg("Test email failed")
		os.Exit(1)
	}
	log.Info().Msg("Test email sent, check your inbox")
}
