// Package errors provides standardized error handling for the dispatch engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Dispatch validation errors (abort the call before any send).
const (
	ErrCodeUnknownKind        ErrorCode = "UNKNOWN_KIND"
	ErrCodeNoRecipients       ErrorCode = "NO_RECIPIENTS"
	ErrCodeUnsupportedChannel ErrorCode = "UNSUPPORTED_CHANNEL"
)

// Per-attempt delivery errors (captured, never thrown out of dispatch).
const (
	ErrCodeUnknownTemplate      ErrorCode = "UNKNOWN_TEMPLATE"
	ErrCodeNoAddressForChannel  ErrorCode = "NO_ADDRESS_FOR_CHANNEL"
	ErrCodeChannelNotConfigured ErrorCode = "CHANNEL_NOT_CONFIGURED"
	ErrCodeSendTransportError   ErrorCode = "SEND_TRANSPORT_ERROR"
	ErrCodeSMSNotImplemented    ErrorCode = "SMS_NOT_IMPLEMENTED"
)

// API-surface and infrastructure errors.
const (
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeMalformedInput     ErrorCode = "MALFORMED_INPUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeQueryFailed        ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeRecordInsertFailed ErrorCode = "RECORD_INSERT_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// DispatchError represents a structured application error.
type DispatchError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("DispatchError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal for plain errors.
func CodeOf(err error) ErrorCode {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}

// NewUnknownKindError creates a non-retryable validation error for an
// unrecognized notification kind.
func NewUnknownKindError(kind string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeUnknownKind,
		Message:   "Unknown notification kind",
		Details:   fmt.Sprintf("kind: %s", kind),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoRecipientsError creates a non-retryable validation error for an
// empty recipient list.
func NewNoRecipientsError() *DispatchError {
	return &DispatchError{
		Code:      ErrCodeNoRecipients,
		Message:   "Dispatch requires at least one recipient",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedChannelError creates a non-retryable validation error for
// a channel restriction outside the kind's allowed set.
func NewUnsupportedChannelError(kind, channel string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeUnsupportedChannel,
		Message:   "Requested channel is not allowed for this notification kind",
		Details:   fmt.Sprintf("kind: %s, channel: %s", kind, channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownTemplateError creates a non-retryable template lookup error.
func NewUnknownTemplateError(kind, channel string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeUnknownTemplate,
		Message:   "No template registered for kind/channel pair",
		Details:   fmt.Sprintf("kind: %s, channel: %s", kind, channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoAddressError creates a per-attempt error for a recipient with no
// resolvable address on the given channel.
func NewNoAddressError(recipient, channel string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeNoAddressForChannel,
		Message:   "Recipient has no address for channel",
		Details:   fmt.Sprintf("recipient: %s, channel: %s", recipient, channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewChannelNotConfiguredError creates a per-channel error for a sender
// whose transport is absent. Recorded as a failed attempt, never thrown.
func NewChannelNotConfiguredError(channel string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeChannelNotConfigured,
		Message:   "Channel transport is not configured",
		Details:   fmt.Sprintf("channel: %s", channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSendTransportError creates a retryable transport/provider failure.
func NewSendTransportError(channel string, err error) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeSendTransportError,
		Message:   "Delivery transport failure",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSMSNotImplementedError marks the SMS channel stub.
func NewSMSNotImplementedError() *DispatchError {
	return &DispatchError{
		Code:      ErrCodeSMSNotImplemented,
		Message:   "SMS delivery is not implemented",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError creates an authentication error for missing or
// invalid credentials.
func NewUnauthorizedError(details string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeUnauthorized,
		Message:   "Missing or invalid credentials",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewForbiddenError creates an authorization error for privileged operations.
func NewForbiddenError(details string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeForbidden,
		Message:   "Caller lacks the required role",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedInputError creates a request validation error.
func NewMalformedInputError(details string) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeMalformedInput,
		Message:   "Malformed request input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryFailedError creates a retryable record-store query error.
func NewQueryFailedError(entity string, err error) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeQueryFailed,
		Message:   "Record store query failed",
		Details:   fmt.Sprintf("entity: %s, error: %s", entity, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordInsertFailedError creates a retryable record-store insert error.
func NewRecordInsertFailedError(entity string, err error) *DispatchError {
	return &DispatchError{
		Code:      ErrCodeRecordInsertFailed,
		Message:   "Record store insert failed",
		Details:   fmt.Sprintf("entity: %s, error: %s", entity, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
