// Package dispatcher is the orchestration core: it resolves the
// applicable channels and priority for a notification kind, renders
// messages, fans out sends per recipient and channel, and persists one
// audit record per dispatch call.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/common/logger"
	"vhm-notifier/internal/common/metrics"
	"vhm-notifier/internal/models"
	"vhm-notifier/internal/notify/channel"
	"vhm-notifier/internal/notify/template"
	"vhm-notifier/internal/store"
)

// Options tweaks a single dispatch call.
type Options struct {
	// Channels restricts delivery to a subset of the kind's default
	// channel set. A channel outside the set fails the call with
	// UNSUPPORTED_CHANNEL before anything is sent.
	Channels []models.Channel
	// Title overrides the kind's fixed title on the audit record.
	Title string
}

// AuditIndexer receives finalized records for secondary indexing.
// Implementations must never fail the dispatch.
type AuditIndexer interface {
	IndexRecord(ctx context.Context, rec *models.NotificationRecord)
}

// Dispatcher owns NotificationRecord creation and the per-recipient
// fan-out. Concurrent Dispatch calls are independent; no cross-dispatch
// locking exists.
type Dispatcher struct {
	registry *template.Registry
	senders  map[models.Channel]channel.Sender
	resolver *channel.AddressResolver
	records  store.NotificationStore
	indexer  AuditIndexer
	log      logger.Logger
}

func New(
	registry *template.Registry,
	senders []channel.Sender,
	resolver *channel.AddressResolver,
	records store.NotificationStore,
	indexer AuditIndexer,
	log logger.Logger,
) *Dispatcher {
	byChannel := make(map[models.Channel]channel.Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	return &Dispatcher{
		registry: registry,
		senders:  byChannel,
		resolver: resolver,
		records:  records,
		indexer:  indexer,
		log:      log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Dispatch delivers one logical notification to every recipient across
// the effective channel set. Validation errors abort before any send;
// failures during fan-out are captured per attempt and folded into the
// record's FAILED status, never returned as an error.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	kind models.Kind,
	recipients []string,
	payload map[string]interface{},
	opts *Options,
) (*models.DispatchResult, error) {
	meta, ok := models.MetaFor(kind)
	if !ok {
		return nil, apperrors.NewUnknownKindError(string(kind))
	}
	if len(recipients) == 0 {
		return nil, apperrors.NewNoRecipientsError()
	}

	channels, err := d.effectiveChannels(kind, meta, opts)
	if err != nil {
		return nil, err
	}

	// Render once per channel; payloads are identical across recipients
	// and rendering is idempotent.
	bodies := make(map[models.Channel]string, len(channels))
	for _, ch := range channels {
		body, renderErr := d.registry.Render(kind, ch, payload)
		if renderErr != nil {
			// Cannot happen for channels that passed the template filter,
			// but keep the fan-out robust.
			continue
		}
		bodies[ch] = body
	}

	title := meta.Title
	if opts != nil && opts.Title != "" {
		title = opts.Title
	}

	rec := &models.NotificationRecord{
		ID:         uuid.New().String(),
		Kind:       kind,
		Title:      title,
		Message:    primaryBody(bodies, channels),
		Recipients: recipients,
		Priority:   meta.Priority,
		Channels:   channels,
		Payload:    payload,
		Status:     models.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := d.records.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}

	start := time.Now()
	attempts := d.fanOut(ctx, kind, meta, recipients, channels, bodies, payload)
	metrics.DispatchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	overall := true
	for _, a := range attempts {
		result := "success"
		if !a.Success {
			overall = false
			result = "failure"
		}
		metrics.DeliveryAttempts.WithLabelValues(string(a.Channel), result).Inc()
	}

	status := models.StatusSent
	if !overall {
		status = models.StatusFailed
	}
	sentAt := time.Now().UTC()
	if err := d.records.FinalizeRecord(ctx, rec.ID, status, attempts, sentAt); err != nil {
		// The audit trail is a hard precondition of the engine; a record
		// stuck in PENDING must surface to the caller.
		d.log.Error("finalize notification record failed", map[string]interface{}{
			"notificationId": rec.ID,
			"error":          err.Error(),
		})
		return nil, err
	}
	metrics.NotificationsDispatched.WithLabelValues(string(kind), status).Inc()

	rec.Status = status
	rec.Attempts = attempts
	rec.SentAt = &sentAt
	if d.indexer != nil {
		d.indexer.IndexRecord(ctx, rec)
	}

	d.log.Info("dispatch complete", map[string]interface{}{
		"notificationId": rec.ID,
		"kind":           kind,
		"recipients":     len(recipients),
		"channels":       len(channels),
		"status":         status,
	})

	return &models.DispatchResult{
		NotificationID: rec.ID,
		OverallSuccess: overall,
		Attempts:       attempts,
	}, nil
}

// effectiveChannels computes opts.Channels ∩ kind defaults, or the
// defaults when unrestricted, then drops channels with no template or
// no registered sender (unsupported for the kind, not an error).
func (d *Dispatcher) effectiveChannels(kind models.Kind, meta models.KindMeta, opts *Options) ([]models.Channel, error) {
	allowed := make(map[models.Channel]bool, len(meta.Channels))
	for _, ch := range meta.Channels {
		allowed[ch] = true
	}

	requested := meta.Channels
	if opts != nil && len(opts.Channels) > 0 {
		for _, ch := range opts.Channels {
			if !allowed[ch] {
				return nil, apperrors.NewUnsupportedChannelError(string(kind), string(ch))
			}
		}
		requested = opts.Channels
	}

	var effective []models.Channel
	for _, ch := range requested {
		if _, ok := d.senders[ch]; !ok {
			continue
		}
		if !d.registry.Has(kind, ch) {
			continue
		}
		effective = append(effective, ch)
	}
	return effective, nil
}

// fanOut runs every (recipient, channel) attempt concurrently and joins
// them all; one failure never cancels sibling attempts.
func (d *Dispatcher) fanOut(
	ctx context.Context,
	kind models.Kind,
	meta models.KindMeta,
	recipients []string,
	channels []models.Channel,
	bodies map[models.Channel]string,
	payload map[string]interface{},
) []models.DeliveryAttempt {
	subject := ""
	if s, err := d.registry.Subject(kind, payload); err == nil {
		subject = s
	}

	results := make(chan models.DeliveryAttempt, len(recipients)*len(channels))
	var wg sync.WaitGroup

	for _, recipient := range recipients {
		wg.Add(1)
		go func(recipient string) {
			defer wg.Done()

			// Address resolution happens once per recipient; its failure
			// fails every channel attempt for that recipient.
			card, resolveErr := d.resolver.Resolve(ctx, recipient)
			if resolveErr == nil && card == nil {
				resolveErr = apperrors.NewNoAddressError(recipient, "any")
			}

			var inner sync.WaitGroup
			for _, ch := range channels {
				inner.Add(1)
				go func(ch models.Channel) {
					defer inner.Done()
					results <- d.attempt(ctx, ch, recipient, card, resolveErr, bodies[ch], channel.Meta{
						Kind:     kind,
						Subject:  subject,
						Markup:   meta.Markup,
						Priority: meta.Priority,
					})
				}(ch)
			}
			inner.Wait()
		}(recipient)
	}

	wg.Wait()
	close(results)

	attempts := make([]models.DeliveryAttempt, 0, len(recipients)*len(channels))
	for a := range results {
		attempts = append(attempts, a)
	}
	return attempts
}

func (d *Dispatcher) attempt(
	ctx context.Context,
	ch models.Channel,
	recipient string,
	card *channel.ContactCard,
	resolveErr error,
	body string,
	meta channel.Meta,
) models.DeliveryAttempt {
	att := models.DeliveryAttempt{
		Channel:   ch,
		Recipient: recipient,
		Timestamp: time.Now().UTC(),
	}

	err := resolveErr
	if err == nil {
		err = d.senders[ch].Send(ctx, card, body, meta)
	}
	if err != nil {
		att.Error = err.Error()
		d.log.Warn("delivery attempt failed", map[string]interface{}{
			"channel":   ch,
			"recipient": recipient,
			"error":     err.Error(),
		})
		return att
	}

	att.Success = true
	return att
}

// SendTelegram delivers a one-off message to a raw chat id, outside the
// kind/template flow. Used by the single-channel message API.
func (d *Dispatcher) SendTelegram(ctx context.Context, chatID int64, text string) error {
	sender, ok := d.senders[models.ChannelTelegram]
	if !ok {
		return apperrors.NewChannelNotConfiguredError(string(models.ChannelTelegram))
	}
	card := &channel.ContactCard{TelegramChatID: chatID}
	return sender.Send(ctx, card, text, channel.Meta{Markup: models.MarkupPlain})
}

// SendEmail delivers a one-off email to a raw address, outside the
// kind/template flow.
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, body string) error {
	sender, ok := d.senders[models.ChannelEmail]
	if !ok {
		return apperrors.NewChannelNotConfiguredError(string(models.ChannelEmail))
	}
	card := &channel.ContactCard{Email: to}
	return sender.Send(ctx, card, body, channel.Meta{Subject: subject, Markup: models.MarkupPlain})
}

func primaryBody(bodies map[models.Channel]string, channels []models.Channel) string {
	if body, ok := bodies[models.ChannelTelegram]; ok {
		return body
	}
	for _, ch := range channels {
		if body, ok := bodies[ch]; ok {
			return body
		}
	}
	return ""
}
