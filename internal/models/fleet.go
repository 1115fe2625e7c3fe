// internal/models/fleet.go
package models

import "time"

// User roles used for recipient resolution.
const (
	RoleAdmin            = "admin"
	RoleOperator         = "operator"
	RoleTechnician       = "technician"
	RoleWarehouseManager = "warehouse_manager"
)

// User is a fleet operator account. TelegramChatID, Email and Phone are
// the channel addresses a recipient id resolves to.
type User struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Roles          []string `json:"roles"`
	TelegramChatID int64    `json:"telegramChatId,omitempty"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Active         bool     `json:"active"`
}

// HasRole reports whether the user holds the given role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Task statuses. A task is open until it reaches a terminal status.
const (
	TaskStatusCreated    = "CREATED"
	TaskStatusAssigned   = "ASSIGNED"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusCompleted  = "COMPLETED"
	TaskStatusCancelled  = "CANCELLED"
)

// Task is a work item in the external task store.
type Task struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    Priority   `json:"priority"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	MachineID   string     `json:"machineId,omitempty"`
	DueDate     time.Time  `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// IsOpen reports whether the task has not reached a terminal status.
func (t Task) IsOpen() bool {
	return t.Status != TaskStatusCompleted && t.Status != TaskStatusCancelled
}

// Machine is one vending machine in the fleet.
type Machine struct {
	ID                  string     `json:"id"`
	Code                string     `json:"code"`
	Name                string     `json:"name"`
	Location            string     `json:"location,omitempty"`
	LastPing            *time.Time `json:"lastPing,omitempty"`
	LastMaintenanceDate *time.Time `json:"lastMaintenanceDate,omitempty"`
}

// InventoryItem is one stock position, machine-bound or warehouse-bound.
type InventoryItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	MachineID   string  `json:"machineId,omitempty"`
	Quantity    float64 `json:"quantity"`
	MinQuantity float64 `json:"minQuantity"`
	Unit        string  `json:"unit,omitempty"`
}

// Understocked reports whether the position is at or below its threshold.
func (i InventoryItem) Understocked() bool {
	return i.Quantity <= i.MinQuantity
}
