package channel

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/models"
)

// SESAPI is the slice of the SES client the sender needs; defined for
// mocking.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailSender delivers messages through the outbound mail transport. An
// absent transport yields ChannelNotConfigured, which the dispatcher
// records as a failed attempt rather than a crash.
type EmailSender struct {
	client    SESAPI
	fromEmail string
}

func NewEmailSender(client SESAPI, fromEmail string) *EmailSender {
	return &EmailSender{client: client, fromEmail: fromEmail}
}

func (s *EmailSender) Channel() models.Channel {
	return models.ChannelEmail
}

func (s *EmailSender) Send(ctx context.Context, card *ContactCard, message string, meta Meta) error {
	if s.client == nil || s.fromEmail == "" {
		return apperrors.NewChannelNotConfiguredError(string(models.ChannelEmail))
	}
	if card == nil || card.Email == "" {
		return apperrors.NewNoAddressError(recipientOf(card), string(models.ChannelEmail))
	}

	subject := meta.Subject
	if subject == "" {
		subject = string(meta.Kind)
	}

	body := &types.Body{Text: &types.Content{Data: aws.String(message)}}
	if meta.Markup == models.MarkupHTML {
		body.Html = &types.Content{Data: aws.String(message)}
	}

	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{card.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body:    body,
		},
		Source: aws.String(s.fromEmail),
	})
	if err != nil {
		return apperrors.NewSendTransportError(string(models.ChannelEmail), err)
	}
	return nil
}
