// Package mail sends report and alert emails over SMTP.
package mail

import (
	"context"
	"log/slog"
)

// Attachment is an optional file included with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single outbound email.
type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Mailer delivers messages. Workers depend on this interface so tests
// and unconfigured deployments can swap in LogMailer.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer records messages in the log instead of delivering them.
// Used when SMTP is not configured.
type LogMailer struct{}

var _ Mailer = LogMailer{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "Mail delivery skipped, SMTP not configured",
		"to", msg.To,
		"subject", msg.Subject,
		"has_attachment", msg.Attachment != nil)
	return nil
}
