// internal/store/postgres_test.go
package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/models"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

// ==========================
// Task Queries
// ==========================

func TestPostgres_OverdueTasks(t *testing.T) {
	p, mock := newMockStore(t)

	due := time.Now().Add(-24 * time.Hour)
	created := due.Add(-48 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "type", "title", "description", "status", "priority",
		"assignee_id", "machine_id", "due_date", "created_at", "completed_at",
	}).AddRow("t-1", "MAINTENANCE", "Service VM-007", "", models.TaskStatusAssigned,
		models.PriorityMedium, "tech-1", "m-1", due, created, nil)

	mock.ExpectQuery(`SELECT .+ FROM tasks`).
		WithArgs(models.TaskStatusCompleted, models.TaskStatusCancelled).
		WillReturnRows(rows)

	tasks, err := p.OverdueTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t-1", tasks[0].ID)
	assert.Equal(t, "tech-1", tasks[0].AssigneeID)
	assert.Nil(t, tasks[0].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_OpenTasks(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM tasks`).
		WithArgs("m-1", "RESTOCK", models.TaskStatusCompleted, models.TaskStatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "type", "title", "description", "status", "priority",
			"assignee_id", "machine_id", "due_date", "created_at", "completed_at",
		}))

	tasks, err := p.OpenTasks(context.Background(), "m-1", "RESTOCK")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateTask(t *testing.T) {
	p, mock := newMockStore(t)

	now := time.Now().UTC()
	task := &models.Task{
		ID:        "t-9",
		Type:      "RESTOCK",
		Title:     "Restock: Coffee",
		Status:    models.TaskStatusCreated,
		Priority:  models.PriorityMedium,
		MachineID: "m-1",
		DueDate:   now.AddDate(0, 0, 3),
		CreatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO tasks`).
		WithArgs(task.ID, task.Type, task.Title, task.Description, task.Status, task.Priority,
			nil, task.MachineID, task.DueDate, task.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.CreateTask(context.Background(), task))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// User Queries
// ==========================

func TestPostgres_UsersByRole(t *testing.T) {
	p, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "roles", "telegram_chat_id", "email", "phone", "active"}).
		AddRow("u-1", "A. Karimov", "{technician}", int64(42), "a@example.com", nil, true).
		AddRow("u-2", "B. Rustamov", "{technician,operator}", nil, nil, "+998", true)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE .+ ANY\(roles\)`).
		WithArgs("technician").
		WillReturnRows(rows)

	users, err := p.UsersByRole(context.Background(), "technician")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(42), users[0].TelegramChatID)
	assert.Equal(t, "a@example.com", users[0].Email)
	assert.Equal(t, int64(0), users[1].TelegramChatID)
	assert.Equal(t, "+998", users[1].Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UserByID_NotFound(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "roles", "telegram_chat_id", "email", "phone", "active"}))

	user, err := p.UserByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Notification Records
// ==========================

func TestPostgres_CreateRecord(t *testing.T) {
	p, mock := newMockStore(t)

	rec := &models.NotificationRecord{
		ID:         "n-1",
		Kind:       models.KindLowStock,
		Title:      "Low stock",
		Message:    "2 position(s)",
		Recipients: []string{"wh-1"},
		Priority:   models.PriorityMedium,
		Channels:   []models.Channel{models.ChannelTelegram, models.ChannelEmail},
		Payload:    map[string]interface{}{"itemCount": 2},
		Status:     models.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(rec.ID, rec.Kind, rec.Title, rec.Message, sqlmock.AnyArg(), rec.Priority,
			sqlmock.AnyArg(), sqlmock.AnyArg(), rec.Status, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.CreateRecord(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateRecord_InsertFailure(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnError(errors.New("connection reset"))

	err := p.CreateRecord(context.Background(), &models.NotificationRecord{ID: "n-1"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRecordInsertFailed, apperrors.CodeOf(err))
}

func TestPostgres_FinalizeRecord(t *testing.T) {
	p, mock := newMockStore(t)

	sentAt := time.Now().UTC()
	attempts := []models.DeliveryAttempt{
		{Channel: models.ChannelTelegram, Recipient: "u-1", Success: true, Timestamp: sentAt},
	}

	mock.ExpectExec(`UPDATE notifications SET status`).
		WithArgs(models.StatusSent, sqlmock.AnyArg(), sentAt, "n-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.FinalizeRecord(context.Background(), "n-1", models.StatusSent, attempts, sentAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_History_AppliesFilters(t *testing.T) {
	p, mock := newMockStore(t)

	from := time.Now().Add(-24 * time.Hour)
	columns := []string{"id", "kind", "title", "message", "recipients", "priority",
		"channels", "payload", "status", "attempts", "created_at", "sent_at"}
	rows := sqlmock.NewRows(columns).AddRow(
		"n-1", models.KindSystemAlert, "System alert", "msg",
		"{u-1}", models.PriorityHigh, "{telegram}",
		[]byte(`{"message":"x"}`), models.StatusSent,
		[]byte(`[{"channel":"telegram","recipient":"u-1","success":true}]`),
		time.Now(), time.Now(),
	)

	mock.ExpectQuery(`FROM notifications WHERE 1=1 AND .+ ANY\(recipients\) AND created_at >= .+ LIMIT`).
		WithArgs("u-1", from, 50).
		WillReturnRows(rows)

	records, err := p.History(context.Background(), models.HistoryFilter{
		Recipient: "u-1",
		From:      from,
		Limit:     50,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.KindSystemAlert, records[0].Kind)
	assert.Equal(t, []models.Channel{models.ChannelTelegram}, records[0].Channels)
	require.Len(t, records[0].Attempts, 1)
	assert.True(t, records[0].Attempts[0].Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_History_DefaultLimit(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`FROM notifications WHERE 1=1 ORDER BY created_at DESC LIMIT`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "title", "message", "recipients", "priority",
			"channels", "payload", "status", "attempts", "created_at", "sent_at"}))

	records, err := p.History(context.Background(), models.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Stats(t *testing.T) {
	p, mock := newMockStore(t)

	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()
	rows := sqlmock.NewRows([]string{"kind", "status", "count"}).
		AddRow(models.KindLowStock, models.StatusSent, 12).
		AddRow(models.KindLowStock, models.StatusFailed, 2)

	mock.ExpectQuery(`SELECT kind, status, COUNT\(\*\) FROM notifications`).
		WithArgs(from, to).
		WillReturnRows(rows)

	stats, err := p.Stats(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 12, stats[0].Count)
	assert.Equal(t, models.StatusFailed, stats[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryFailureCode(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`FROM inventory_items WHERE quantity`).
		WillReturnError(errors.New("relation does not exist"))

	_, err := p.UnderstockedItems(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeQueryFailed, apperrors.CodeOf(err))
}
