package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "vhm-notifier/internal/common/errors"
)

type errorBody struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Details string              `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps an application error to an HTTP status and a stable
// error envelope. Unrecognized errors never leak internals.
func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Code: apperrors.ErrCodeInternal, Message: "Internal server error"}

	var de *apperrors.DispatchError
	if errors.As(err, &de) {
		body.Code = de.Code
		body.Message = de.Message
		body.Details = de.Details
	}

	writeJSON(w, statusFor(body.Code), body)
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeMalformedInput,
		apperrors.ErrCodeUnknownKind,
		apperrors.ErrCodeNoRecipients,
		apperrors.ErrCodeUnsupportedChannel:
		return http.StatusBadRequest
	case apperrors.ErrCodeChannelNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
