// internal/models/notification.go
package models

import "time"

// Kind is a closed, named category of fleet event. The set is fixed at
// compile time; each kind carries a priority and a default channel set.
type Kind string

const (
	KindTaskOverdue         Kind = "task_overdue"
	KindLowStock            Kind = "low_stock"
	KindMachineOffline      Kind = "machine_offline"
	KindRouteCompleted      Kind = "route_completed"
	KindMaintenanceDue      Kind = "maintenance_due"
	KindIncompleteData      Kind = "incomplete_data"
	KindSystemAlert         Kind = "system_alert"
	KindFuelReport          Kind = "fuel_report"
	KindArrivalConfirmation Kind = "arrival_confirmation"
	KindWarehouseReceipt    Kind = "warehouse_receipt"
)

// Channel is a delivery mechanism for a rendered message.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
)

// Priority levels for notification kinds and follow-up tasks.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Markup hint for the telegram sender.
type Markup string

const (
	MarkupPlain    Markup = "plain"
	MarkupMarkdown Markup = "markdown"
	MarkupHTML     Markup = "html"
)

// KindMeta describes the fixed attributes of a notification kind.
type KindMeta struct {
	Title    string
	Priority Priority
	Channels []Channel
	Markup   Markup
}

// kindRegistry is the closed kind set. Every kind lists telegram first;
// email is included where the operations team reads mail.
var kindRegistry = map[Kind]KindMeta{
	KindTaskOverdue:         {Title: "Task overdue", Priority: PriorityHigh, Channels: []Channel{ChannelTelegram, ChannelEmail}, Markup: MarkupMarkdown},
	KindLowStock:            {Title: "Low stock", Priority: PriorityMedium, Channels: []Channel{ChannelTelegram, ChannelEmail}, Markup: MarkupMarkdown},
	KindMachineOffline:      {Title: "Machine offline", Priority: PriorityHigh, Channels: []Channel{ChannelTelegram, ChannelEmail}, Markup: MarkupMarkdown},
	KindRouteCompleted:      {Title: "Route completed", Priority: PriorityLow, Channels: []Channel{ChannelTelegram}, Markup: MarkupPlain},
	KindMaintenanceDue:      {Title: "Maintenance due", Priority: PriorityMedium, Channels: []Channel{ChannelTelegram, ChannelEmail}, Markup: MarkupMarkdown},
	KindIncompleteData:      {Title: "Incomplete data", Priority: PriorityMedium, Channels: []Channel{ChannelTelegram}, Markup: MarkupPlain},
	KindSystemAlert:         {Title: "System alert", Priority: PriorityHigh, Channels: []Channel{ChannelTelegram, ChannelEmail, ChannelSMS}, Markup: MarkupHTML},
	KindFuelReport:          {Title: "Fuel report", Priority: PriorityLow, Channels: []Channel{ChannelTelegram}, Markup: MarkupPlain},
	KindArrivalConfirmation: {Title: "Arrival confirmation", Priority: PriorityLow, Channels: []Channel{ChannelTelegram}, Markup: MarkupPlain},
	KindWarehouseReceipt:    {Title: "Warehouse receipt", Priority: PriorityLow, Channels: []Channel{ChannelTelegram, ChannelEmail}, Markup: MarkupMarkdown},
}

// MetaFor returns the fixed attributes of a kind. The second return is
// false for kinds outside the closed set.
func MetaFor(kind Kind) (KindMeta, bool) {
	meta, ok := kindRegistry[kind]
	return meta, ok
}

// Kinds returns the closed kind set.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindRegistry))
	for k := range kindRegistry {
		out = append(out, k)
	}
	return out
}

// Notification record statuses.
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

// DeliveryAttempt records a single (channel, recipient) send attempt.
type DeliveryAttempt struct {
	Channel   Channel   `json:"channel"`
	Recipient string    `json:"recipient"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationRecord is the persisted audit record of one dispatch call.
// Status is SENT iff every attempt succeeded; any failed attempt makes
// the whole record FAILED with per-channel detail retained.
type NotificationRecord struct {
	ID         string                 `json:"id"`
	Kind       Kind                   `json:"kind"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Recipients []string               `json:"recipients"`
	Priority   Priority               `json:"priority"`
	Channels   []Channel              `json:"channels"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Status     string                 `json:"status"`
	Attempts   []DeliveryAttempt      `json:"attempts,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	SentAt     *time.Time             `json:"sentAt,omitempty"`
}

// DispatchResult is returned to the caller of Dispatch.
type DispatchResult struct {
	NotificationID string            `json:"notificationId"`
	OverallSuccess bool              `json:"overallSuccess"`
	Attempts       []DeliveryAttempt `json:"attempts"`
}

// NotificationStat is one row of the grouped stats query.
type NotificationStat struct {
	Kind   Kind   `json:"kind"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// HistoryFilter narrows notification history queries.
type HistoryFilter struct {
	Channel   Channel
	Recipient string
	From      time.Time
	To        time.Time
	Limit     int
}
