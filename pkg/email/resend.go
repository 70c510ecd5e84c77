package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/resend/resend-go/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ErrNotConfigured is returned when the sender has no API key or sender address.
var ErrNotConfigured = errors.New("email sender is not configured")

// Message is an outgoing email with a markdown body.
type Message struct {
	From     string
	To       []string
	Subject  string
	Markdown string
}

// Sender delivers rendered emails.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SenderFactory builds a Sender for an API key, so each tenant can bring its own account.
type SenderFactory func(apiKey string) Sender

type resendSender struct {
	client *resend.Client
	apiKey string
}

// NewResendSender creates a Sender backed by the Resend API.
func NewResendSender(apiKey string) Sender {
	return &resendSender{
		client: resend.NewClient(apiKey),
		apiKey: apiKey,
	}
}

func (s *resendSender) Send(ctx context.Context, msg Message) (string, error) {
	if s.apiKey == "" || msg.From == "" || len(msg.To) == 0 {
		return "", ErrNotConfigured
	}

	html, err := RenderHTML(msg.Markdown)
	if err != nil {
		return "", err
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    html,
		Text:    msg.Markdown,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email via resend: %w", err)
	}
	return sent.Id, nil
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderHTML converts a markdown body to HTML.
func RenderHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// FormatUSD formats an amount as a US dollar string, e.g. "$1,234.56".
func FormatUSD(amount float64) string {
	return money.NewFromFloat(amount, money.USD).Display()
}
