// Package store defines the record-store collaborator interfaces. The
// dispatch engine treats the relational schema behind these purely as
// an interface; postgres.go is the production implementation.
package store

import (
	"context"
	"time"

	"vhm-notifier/internal/models"
)

// TaskStore queries and creates work items.
type TaskStore interface {
	// OverdueTasks returns open tasks whose due date is in the past.
	OverdueTasks(ctx context.Context) ([]models.Task, error)
	// OpenTasks returns non-terminal tasks for a machine and task type,
	// used for follow-up dedup before creating a new one.
	OpenTasks(ctx context.Context, machineID, taskType string) ([]models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
}

// InventoryStore queries stock positions.
type InventoryStore interface {
	// UnderstockedItems returns positions with quantity <= minQuantity.
	UnderstockedItems(ctx context.Context) ([]models.InventoryItem, error)
	// AllItems returns every position, for the full inventory audit.
	AllItems(ctx context.Context) ([]models.InventoryItem, error)
}

// MachineStore queries fleet machines.
type MachineStore interface {
	// OfflineMachines returns machines whose last ping is older than the
	// cutoff, or that never pinged.
	OfflineMachines(ctx context.Context, cutoff time.Time) ([]models.Machine, error)
	// MaintenanceDue returns machines last serviced before the cutoff,
	// or never serviced.
	MaintenanceDue(ctx context.Context, cutoff time.Time) ([]models.Machine, error)
}

// UserStore resolves recipients and role-based recipient sets.
type UserStore interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
	// UsersByRole returns active users holding the given role.
	UsersByRole(ctx context.Context, role string) ([]models.User, error)
	// ActiveUsers returns every active user, for unfiltered broadcasts.
	ActiveUsers(ctx context.Context) ([]models.User, error)
}

// NotificationStore owns the dispatch audit trail. Presence of the
// backing table is a hard precondition: persistence failures surface as
// errors, they are never silently swallowed.
type NotificationStore interface {
	CreateRecord(ctx context.Context, rec *models.NotificationRecord) error
	// FinalizeRecord transitions a PENDING record to SENT or FAILED with
	// the collected attempts.
	FinalizeRecord(ctx context.Context, id, status string, attempts []models.DeliveryAttempt, sentAt time.Time) error
	History(ctx context.Context, filter models.HistoryFilter) ([]models.NotificationRecord, error)
	Stats(ctx context.Context, from, to time.Time) ([]models.NotificationStat, error)
}

// Store aggregates every record-store capability the engine needs.
type Store interface {
	TaskStore
	InventoryStore
	MachineStore
	UserStore
	NotificationStore
}
