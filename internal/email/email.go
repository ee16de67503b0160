package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
)

// Message is a single outbound email. Text is the plain-text alternative
// to HTML; Category tags the send at the provider for filtering.
type Message struct {
	To       string
	Subject  string
	HTML     string
	Text     string
	Category string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes mail to the log instead of sending it. ENV=local only:
// bodies may carry reset codes.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email (local dev)",
		"to", msg.To,
		"subject", msg.Subject,
		"category", msg.Category,
		"text", msg.Text,
	)
	return nil
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		// A unique ref keeps mail clients from threading successive codes
		// together and hiding the newest one.
		Headers: map[string]string{"X-Entity-Ref-ID": uuid.NewString()},
	}
	if msg.Category != "" {
		params.Tags = []resend.Tag{{Name: "category", Value: msg.Category}}
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend %s email: %w", msg.Category, err)
	}
	return nil
}

// NewSender returns a LogSender for ENV=local, ResendSender otherwise.
func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return &LogSender{logger: logger.With("component", "email")}
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}
