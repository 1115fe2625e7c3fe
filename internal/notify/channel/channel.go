// Package channel holds one sender adapter per delivery channel. Every
// sender resolves the recipient's channel-specific address from a
// ContactCard and performs the actual send with a bounded timeout.
package channel

import (
	"context"

	"vhm-notifier/internal/models"
)

// ContactCard is the result of resolving a recipient id once; each
// channel picks its own address out of it.
type ContactCard struct {
	RecipientID    string `json:"recipientId"`
	TelegramChatID int64  `json:"telegramChatId,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

// Meta carries per-kind hints a sender may need beyond the rendered body.
type Meta struct {
	Kind     models.Kind
	Subject  string
	Markup   models.Markup
	Priority models.Priority
}

// Sender is the uniform capability every delivery channel implements.
// Send failures are returned as *errors.DispatchError values so the
// dispatcher can fold them into per-attempt results.
type Sender interface {
	Channel() models.Channel
	Send(ctx context.Context, card *ContactCard, message string, meta Meta) error
}
