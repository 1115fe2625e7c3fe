package channel

import (
	"context"
	"time"

	"gopkg.in/telebot.v3"

	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/models"
)

// TelegramAPI is the slice of the bot client the sender needs; defined
// for mocking.
type TelegramAPI interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramSender delivers messages to a recipient's chat id through the
// bot platform.
type TelegramSender struct {
	bot     TelegramAPI
	timeout time.Duration
}

func NewTelegramSender(bot TelegramAPI, timeout time.Duration) *TelegramSender {
	return &TelegramSender{bot: bot, timeout: timeout}
}

func (s *TelegramSender) Channel() models.Channel {
	return models.ChannelTelegram
}

func (s *TelegramSender) Send(ctx context.Context, card *ContactCard, message string, meta Meta) error {
	if s.bot == nil {
		return apperrors.NewChannelNotConfiguredError(string(models.ChannelTelegram))
	}
	if card == nil || card.TelegramChatID == 0 {
		return apperrors.NewNoAddressError(recipientOf(card), string(models.ChannelTelegram))
	}

	opts := &telebot.SendOptions{ParseMode: parseMode(meta.Markup)}
	recipient := &telebot.User{ID: card.TelegramChatID}

	// telebot's Send has no context form; enforce the bounded per-send
	// timeout around it.
	done := make(chan error, 1)
	go func() {
		_, err := s.bot.Send(recipient, message, opts)
		done <- err
	}()

	timeout := s.timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return apperrors.NewSendTransportError(string(models.ChannelTelegram), err)
		}
		return nil
	case <-timer.C:
		return apperrors.NewSendTransportError(string(models.ChannelTelegram), context.DeadlineExceeded)
	case <-ctx.Done():
		return apperrors.NewSendTransportError(string(models.ChannelTelegram), ctx.Err())
	}
}

func parseMode(markup models.Markup) telebot.ParseMode {
	switch markup {
	case models.MarkupMarkdown:
		return telebot.ModeMarkdown
	case models.MarkupHTML:
		return telebot.ModeHTML
	default:
		return telebot.ModeDefault
	}
}

func recipientOf(card *ContactCard) string {
	if card == nil {
		return ""
	}
	return card.RecipientID
}
