package httpapi

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "vhm-notifier/internal/common/errors"
)

// Request body schemas, compiled once at package init. Validation runs
// before decoding so malformed payloads fail with a field-level message
// instead of a decoder error.
var (
	telegramMessageSchema = mustCompile(`{
		"type": "object",
		"required": ["chatId", "text"],
		"properties": {
			"chatId": {"type": "integer"},
			"text": {"type": "string", "minLength": 1, "maxLength": 4096}
		},
		"additionalProperties": false
	}`)

	emailMessageSchema = mustCompile(`{
		"type": "object",
		"required": ["to", "subject", "body"],
		"properties": {
			"to": {"type": "string", "format": "email"},
			"subject": {"type": "string", "minLength": 1, "maxLength": 255},
			"body": {"type": "string", "minLength": 1}
		},
		"additionalProperties": false
	}`)

	dispatchSchema = mustCompile(`{
		"type": "object",
		"required": ["kind", "recipients"],
		"properties": {
			"kind": {"type": "string", "minLength": 1},
			"recipients": {
				"type": "array",
				"items": {"type": "string", "minLength": 1}
			},
			"payload": {"type": "object"},
			"channels": {
				"type": "array",
				"items": {"type": "string", "enum": ["telegram", "email", "sms"]}
			},
			"title": {"type": "string", "maxLength": 255}
		},
		"additionalProperties": false
	}`)

	broadcastSchema = mustCompile(`{
		"type": "object",
		"required": ["message"],
		"properties": {
			"message": {"type": "string", "minLength": 1, "maxLength": 4096},
			"roles": {
				"type": "array",
				"items": {"type": "string", "enum": ["admin", "operator", "technician", "warehouse_manager"]}
			},
			"channels": {
				"type": "array",
				"items": {"type": "string", "enum": ["telegram", "email", "sms"]}
			}
		},
		"additionalProperties": false
	}`)
)

func mustCompile(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic("invalid request schema: " + err.Error())
	}
	return compiled
}

// validateBody checks raw JSON against a schema and folds every
// violation into one MALFORMED_INPUT error.
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apperrors.NewMalformedInputError("request body is not valid JSON")
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return apperrors.NewMalformedInputError(strings.Join(violations, "; "))
}
