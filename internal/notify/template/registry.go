// Package template maps a notification kind to per-channel message
// templates with placeholder interpolation.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/models"
)

// Template is one channel's rendering for a kind. Subject is only used
// by the email channel.
type Template struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// Registry holds the per-kind, per-channel template table. The table is
// built once at construction and read-only afterwards.
type Registry struct {
	templates map[models.Kind]map[models.Channel]Template
}

// NewRegistry returns a registry preloaded with the built-in templates.
func NewRegistry() *Registry {
	return &Registry{templates: defaultTemplates()}
}

// LoadFile merges template overrides from a JSON file on top of the
// built-in set. The file maps kind -> channel -> {subject, body}.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template file: %w", err)
	}
	var overrides map[models.Kind]map[models.Channel]Template
	if err := json.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse template file: %w", err)
	}
	for kind, byChannel := range overrides {
		if _, ok := r.templates[kind]; !ok {
			r.templates[kind] = make(map[models.Channel]Template)
		}
		for ch, tmpl := range byChannel {
			r.templates[kind][ch] = tmpl
		}
	}
	return nil
}

// Has reports whether a template exists for the (kind, channel) pair.
func (r *Registry) Has(kind models.Kind, channel models.Channel) bool {
	byChannel, ok := r.templates[kind]
	if !ok {
		return false
	}
	_, ok = byChannel[channel]
	return ok
}

// Render produces the message body for a kind/channel pair. Placeholders
// are written as {fieldName} and substituted literally from the payload;
// a missing payload field leaves the placeholder token verbatim.
func (r *Registry) Render(kind models.Kind, channel models.Channel, payload map[string]interface{}) (string, error) {
	tmpl, err := r.lookup(kind, channel)
	if err != nil {
		return "", err
	}
	return interpolate(tmpl.Body, payload), nil
}

// Subject renders the email subject line for a kind. Falls back to the
// kind's fixed title when the template has no subject.
func (r *Registry) Subject(kind models.Kind, payload map[string]interface{}) (string, error) {
	tmpl, err := r.lookup(kind, models.ChannelEmail)
	if err != nil {
		return "", err
	}
	if tmpl.Subject == "" {
		if meta, ok := models.MetaFor(kind); ok {
			return meta.Title, nil
		}
	}
	return interpolate(tmpl.Subject, payload), nil
}

func (r *Registry) lookup(kind models.Kind, channel models.Channel) (Template, error) {
	byChannel, ok := r.templates[kind]
	if !ok {
		return Template{}, apperrors.NewUnknownTemplateError(string(kind), string(channel))
	}
	tmpl, ok := byChannel[channel]
	if !ok {
		return Template{}, apperrors.NewUnknownTemplateError(string(kind), string(channel))
	}
	return tmpl, nil
}

// interpolate replaces {field} tokens with stringified payload values.
// No recursion, no conditionals. Unknown tokens stay as-is.
func interpolate(tmpl string, payload map[string]interface{}) string {
	if len(payload) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	result := tmpl
	for k, v := range payload {
		result = strings.ReplaceAll(result, "{"+k+"}", stringify(v))
	}
	return result
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		// JSON numbers decode to float64; print integers without decimals.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
