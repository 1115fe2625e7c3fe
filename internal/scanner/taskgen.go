package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vhm-notifier/internal/common/logger"
	"vhm-notifier/internal/common/metrics"
	"vhm-notifier/internal/models"
	"vhm-notifier/internal/store"
)

// Follow-up task types created from scan findings.
const (
	TaskTypeMaintenance    = "MAINTENANCE"
	TaskTypeRestock        = "RESTOCK"
	TaskTypeInventoryAudit = "INVENTORY_AUDIT"
)

// Subject identifies the entity a follow-up task is about.
type Subject struct {
	MachineID string
	Name      string
	Detail    string
}

// TaskGenerator creates work items in the task store as a side effect
// of scan findings. An open task of the same type for the same machine
// suppresses creation, so repeated scans on a still-degraded subject do
// not pile up duplicates.
type TaskGenerator struct {
	tasks store.TaskStore
	log   logger.Logger
}

func NewTaskGenerator(tasks store.TaskStore, log logger.Logger) *TaskGenerator {
	return &TaskGenerator{
		tasks: tasks,
		log:   log.WithFields(map[string]interface{}{"component": "task_generator"}),
	}
}

// CreateFollowUpTask synthesizes and persists a task for a finding.
// Returns the new task id and true, or the empty id and false when an
// open task for the same (type, machine) already covers the finding.
func (g *TaskGenerator) CreateFollowUpTask(ctx context.Context, findingKind models.Kind, subject Subject, dueInDays int) (string, bool, error) {
	taskType := taskTypeFor(findingKind)

	if subject.MachineID != "" {
		open, err := g.tasks.OpenTasks(ctx, subject.MachineID, taskType)
		if err != nil {
			return "", false, err
		}
		if len(open) > 0 {
			g.log.Debug("open follow-up task exists, skipping", map[string]interface{}{
				"machineId": subject.MachineID,
				"taskType":  taskType,
			})
			return "", false, nil
		}
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New().String(),
		Type:        taskType,
		Title:       titleFor(findingKind, subject),
		Description: descriptionFor(findingKind, subject),
		Status:      models.TaskStatusCreated,
		Priority:    priorityFor(findingKind),
		MachineID:   subject.MachineID,
		DueDate:     now.AddDate(0, 0, dueInDays),
		CreatedAt:   now,
	}
	if err := g.tasks.CreateTask(ctx, task); err != nil {
		return "", false, err
	}

	metrics.FollowUpTasksCreated.WithLabelValues(string(findingKind)).Inc()
	g.log.Info("follow-up task created", map[string]interface{}{
		"taskId":   task.ID,
		"taskType": taskType,
		"subject":  subject.Name,
		"dueDate":  task.DueDate,
	})
	return task.ID, true, nil
}

func taskTypeFor(kind models.Kind) string {
	switch kind {
	case models.KindMaintenanceDue:
		return TaskTypeMaintenance
	case models.KindLowStock:
		return TaskTypeRestock
	default:
		return TaskTypeInventoryAudit
	}
}

// priorityFor maps finding urgency onto the task. Audit tasks are
// always LOW regardless of the alert kind that spawned them.
func priorityFor(kind models.Kind) models.Priority {
	switch taskTypeFor(kind) {
	case TaskTypeMaintenance, TaskTypeRestock:
		if meta, ok := models.MetaFor(kind); ok {
			return meta.Priority
		}
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func titleFor(kind models.Kind, subject Subject) string {
	switch kind {
	case models.KindMaintenanceDue:
		return fmt.Sprintf("Maintenance: %s", subject.Name)
	case models.KindLowStock:
		return fmt.Sprintf("Restock: %s", subject.Name)
	default:
		return fmt.Sprintf("Inventory audit: %s", subject.Name)
	}
}

func descriptionFor(kind models.Kind, subject Subject) string {
	if subject.Detail == "" {
		return fmt.Sprintf("Automatically created from a %s finding.", kind)
	}
	return fmt.Sprintf("Automatically created from a %s finding. %s", kind, subject.Detail)
}
