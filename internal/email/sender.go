// Package email renders and delivers staff notification mail.
package email

import (
	"context"
)

// Message is a rendered-on-send notification mail.
type Message struct {
	To       string
	Subject  string
	Heading  string
	Body     string
	CTALabel string
	CTAURL   string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error { return nil }
