// Package mailer delivers outbound email. Delivery is best-effort: callers
// commit their state change first and dispatch the message afterwards, so a
// send failure is logged and never propagated into a request flow.
package mailer

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/taskassign/taskassign-api/internal/config"
)

// Sender delivers a single message.
type Sender interface {
	Send(to, subject, body string) error
}

// NewFromConfig returns a SendGrid-backed sender when an API key is configured
// and a log-only sender otherwise.
func NewFromConfig(cfg *config.Config) Sender {
	if cfg.SendGridAPIKey == "" {
		log.Println("SENDGRID_API_KEY not set, outbound email will be logged only")
		return &LogSender{}
	}
	return &SendGridSender{
		apiKey:   cfg.SendGridAPIKey,
		from:     cfg.SendGridFrom,
		fromName: cfg.SendGridName,
	}
}

// LogSender writes the message to the process log instead of delivering it.
type LogSender struct{}

func (s *LogSender) Send(to, subject, body string) error {
	log.Printf("[EMAIL] To: %s; Subject: %s; Body: %s", to, subject, body)
	return nil
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	apiKey   string
	from     string
	fromName string
}

func (s *SendGridSender) Send(to, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.from)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	resp, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// Dispatch sends the message on its own goroutine. The caller's state change
// is already durable, so a delivery failure only gets logged.
func Dispatch(s Sender, to, subject, body string) {
	go func() {
		if err := s.Send(to, subject, body); err != nil {
			log.Printf("Failed to send email to %s: %v", to, err)
		}
	}()
}
