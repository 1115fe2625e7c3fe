package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeUnknownKind, CodeOf(NewUnknownKindError("bogus")))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))

	// Wrapped errors still resolve to their code.
	wrapped := fmt.Errorf("dispatch: %w", NewNoRecipientsError())
	assert.Equal(t, ErrCodeNoRecipients, CodeOf(wrapped))
}

func TestDispatchError_Error(t *testing.T) {
	err := NewSendTransportError("telegram", errors.New("retry after 30"))
	assert.Contains(t, err.Error(), "SEND_TRANSPORT_ERROR")
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Details, "retry after 30")
}

func TestValidationErrorsAreNotRetryable(t *testing.T) {
	for _, err := range []*DispatchError{
		NewUnknownKindError("x"),
		NewNoRecipientsError(),
		NewUnsupportedChannelError("k", "c"),
		NewUnknownTemplateError("k", "c"),
		NewNoAddressError("r", "c"),
		NewChannelNotConfiguredError("c"),
		NewSMSNotImplementedError(),
	} {
		assert.False(t, err.Retryable, string(err.Code))
	}
}
