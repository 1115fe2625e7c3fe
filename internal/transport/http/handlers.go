package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/models"
	"vhm-notifier/internal/notify/dispatcher"
)

const maxBodyBytes = 1 << 20

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewMalformedInputError("unreadable request body")
	}
	return body, nil
}

type telegramMessageRequest struct {
	ChatID int64  `json:"chatId"`
	Text   string `json:"text"`
}

// handleTelegramMessage delivers one raw telegram message outside the
// kind/template flow.
func (s *Server) handleTelegramMessage(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := validateBody(telegramMessageSchema, body); err != nil {
		writeError(w, err)
		return
	}

	var req telegramMessageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperrors.NewMalformedInputError(err.Error()))
		return
	}

	if err := s.notifier.SendTelegram(r.Context(), req.ChatID, req.Text); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

type emailMessageRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (s *Server) handleEmailMessage(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := validateBody(emailMessageSchema, body); err != nil {
		writeError(w, err)
		return
	}

	var req emailMessageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperrors.NewMalformedInputError(err.Error()))
		return
	}

	if err := s.notifier.SendEmail(r.Context(), req.To, req.Subject, req.Body); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

type dispatchRequest struct {
	Kind       string                 `json:"kind"`
	Recipients []string               `json:"recipients"`
	Payload    map[string]interface{} `json:"payload"`
	Channels   []string               `json:"channels"`
	Title      string                 `json:"title"`
}

// handleDispatch runs a full typed dispatch. Partial delivery is a 200
// with overallSuccess false and per-attempt detail; only validation and
// persistence failures produce an error status.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := validateBody(dispatchSchema, body); err != nil {
		writeError(w, err)
		return
	}

	var req dispatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperrors.NewMalformedInputError(err.Error()))
		return
	}

	var opts *dispatcher.Options
	if len(req.Channels) > 0 || req.Title != "" {
		opts = &dispatcher.Options{Title: req.Title}
		for _, ch := range req.Channels {
			opts.Channels = append(opts.Channels, models.Channel(ch))
		}
	}

	result, err := s.notifier.Dispatch(r.Context(), models.Kind(req.Kind), req.Recipients, req.Payload, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type broadcastRequest struct {
	Message  string   `json:"message"`
	Roles    []string `json:"roles"`
	Channels []string `json:"channels"`
}

// handleBroadcast sends a system alert to every active user, optionally
// filtered by role. Admin-only and rate-limited; a rejected caller
// causes zero sends.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := validateBody(broadcastSchema, body); err != nil {
		writeError(w, err)
		return
	}

	var req broadcastRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperrors.NewMalformedInputError(err.Error()))
		return
	}

	recipients, err := s.broadcastRecipients(r, req.Roles)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(recipients) == 0 {
		writeError(w, apperrors.NewNoRecipientsError())
		return
	}

	var opts *dispatcher.Options
	if len(req.Channels) > 0 {
		opts = &dispatcher.Options{}
		for _, ch := range req.Channels {
			opts.Channels = append(opts.Channels, models.Channel(ch))
		}
	}

	payload := map[string]interface{}{"message": req.Message}
	result, err := s.notifier.Dispatch(r.Context(), models.KindSystemAlert, recipients, payload, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	s.log.Info("broadcast dispatched", map[string]interface{}{
		"recipients": len(recipients),
		"roles":      req.Roles,
	})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) broadcastRecipients(r *http.Request, roles []string) ([]string, error) {
	if len(roles) == 0 {
		users, err := s.users.ActiveUsers(r.Context())
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		return ids, nil
	}

	seen := make(map[string]bool)
	var ids []string
	for _, role := range roles {
		users, err := s.users.UsersByRole(r.Context(), role)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if !seen[u.ID] {
				seen[u.ID] = true
				ids = append(ids, u.ID)
			}
		}
	}
	return ids, nil
}

// handleHistory returns past notification records. Callers without the
// admin role only see records addressed to themselves.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.HistoryFilter{
		Channel:   models.Channel(q.Get("channel")),
		Recipient: q.Get("recipient"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, apperrors.NewMalformedInputError("from: expected RFC3339 timestamp"))
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, apperrors.NewMalformedInputError("to: expected RFC3339 timestamp"))
			return
		}
		filter.To = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, apperrors.NewMalformedInputError("limit: expected integer in [1, 1000]"))
			return
		}
		filter.Limit = n
	}

	claims := ClaimsFromContext(r.Context())
	if claims != nil && claims.Role != models.RoleAdmin {
		filter.Recipient = claims.UserID
	}

	records, err := s.records.History(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// handleStats returns dispatch counts grouped by kind and status over a
// time window, defaulting to the last 24 hours.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, apperrors.NewMalformedInputError("from: expected RFC3339 timestamp"))
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, apperrors.NewMalformedInputError("to: expected RFC3339 timestamp"))
			return
		}
		to = t
	}

	stats, err := s.records.Stats(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	if stats == nil {
		stats = []models.NotificationStat{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":  from,
		"to":    to,
		"stats": stats,
	})
}

// handleScanTrigger runs one scan routine synchronously.
func (s *Server) handleScanTrigger(w http.ResponseWriter, r *http.Request) {
	routine := chi.URLParam(r, "routine")

	if err := s.scans.Trigger(r.Context(), routine); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"routine": routine, "status": "completed"})
}
