// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mailer delivers compiled emails to a test inbox through
// Postmark so a generation can be previewed in real mail clients.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/mrz1836/postmark"
)

// previewTag groups preview sends in the Postmark activity feed.
const previewTag = "mailsmith-preview"

// ErrInvalidMessage is returned when a message fails validation.
var ErrInvalidMessage = errors.New("mailer: invalid message")

// Message is one email to deliver.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Validate checks the recipient, subject and body.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient: %v", ErrInvalidMessage, err)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.HTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// Postmark sends messages with the Postmark transactional API.
type Postmark struct {
	client *postmark.Client
	from   string
}

// NewPostmark creates a sender. Returns (nil, nil) when serverToken is empty
// so the app can start without preview delivery.
func NewPostmark(serverToken, accountToken, from string) (*Postmark, error) {
	if serverToken == "" {
		return nil, nil
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("mailer: sender address: %w", err)
	}
	return &Postmark{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
	}, nil
}

// Send delivers msg and returns the provider's message id. Link tracking
// stays off so previews show the real hrefs.
func (p *Postmark) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:       p.from,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        previewTag,
		HTMLBody:   msg.HTML,
		TrackOpens: false,
	})
	if err != nil {
		return "", fmt.Errorf("postmark send: %w", err)
	}
	if resp.ErrorCode > 0 {
		return "", fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}

	slog.Info("preview email sent", "to", msg.To, "message_id", resp.MessageID)
	return resp.MessageID, nil
}
