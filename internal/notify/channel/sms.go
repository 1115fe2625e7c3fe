package channel

import (
	"context"

	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/models"
)

// SMSSender is a deliberate stub: it exists to exercise the channel
// abstraction and always reports the channel as not implemented. A real
// provider integration would replace the Send body.
type SMSSender struct{}

func NewSMSSender() *SMSSender {
	return &SMSSender{}
}

func (s *SMSSender) Channel() models.Channel {
	return models.ChannelSMS
}

func (s *SMSSender) Send(_ context.Context, card *ContactCard, _ string, _ Meta) error {
	if card == nil || card.Phone == "" {
		return apperrors.NewNoAddressError(recipientOf(card), string(models.ChannelSMS))
	}
	return apperrors.NewSMSNotImplementedError()
}
