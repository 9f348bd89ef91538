package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Verify(ctx context.Context) error
}

// Notifier composes and sends download-link emails. Failures are returned,
// never retried.
type Notifier struct {
	sender  Sender
	appName string
}

// New creates a notifier. appName is used when a call passes no label.
func New(sender Sender, appName string) *Notifier {
	return &Notifier{sender: sender, appName: appName}
}

// SendDownloadLink emails downloadURL to recipient.
func (n *Notifier) SendDownloadLink(ctx context.Context, recipient, appLabel, downloadURL string) error {
	if appLabel == "" {
		appLabel = n.appName
	}

	msg, err := ComposeDownloadLink(recipient, appLabel, downloadURL)
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", recipient, err)
	}
	return nil
}

// Verify checks the transport is reachable.
func (n *Notifier) Verify(ctx context.Context) error {
	return n.sender.Verify(ctx)
}

// LogSender writes messages to the log instead of sending them.
// It is used when no SMTP host is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.Logger.InfoContext(ctx, "email delivery disabled, logging message",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}

func (s *LogSender) Verify(ctx context.Context) error { return nil }
