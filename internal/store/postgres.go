// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/lib/pq"

	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/models"
)

// Postgres implements Store on top of database/sql with lib/pq.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// --- tasks ---

const taskColumns = `id, type, title, description, status, priority, assignee_id, machine_id, due_date, created_at, completed_at`

func (p *Postgres) OverdueTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE due_date < NOW() AND status NOT IN ($1, $2)
		 ORDER BY due_date`,
		models.TaskStatusCompleted, models.TaskStatusCancelled,
	)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("tasks", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (p *Postgres) OpenTasks(ctx context.Context, machineID, taskType string) ([]models.Task, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE machine_id = $1 AND type = $2 AND status NOT IN ($3, $4)`,
		machineID, taskType, models.TaskStatusCompleted, models.TaskStatusCancelled,
	)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("tasks", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (p *Postgres) CreateTask(ctx context.Context, task *models.Task) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO tasks (id, type, title, description, status, priority, assignee_id, machine_id, due_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.Type, task.Title, task.Description, task.Status, task.Priority,
		nullable(task.AssigneeID), nullable(task.MachineID), task.DueDate, task.CreatedAt,
	)
	if err != nil {
		return apperrors.NewRecordInsertFailedError("tasks", err)
	}
	return nil
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var out []models.Task
	for rows.Next() {
		var t models.Task
		var assignee, machine sql.NullString
		var completed sql.NullTime
		if err := rows.Scan(&t.ID, &t.Type, &t.Title, &t.Description, &t.Status, &t.Priority,
			&assignee, &machine, &t.DueDate, &t.CreatedAt, &completed); err != nil {
			return nil, apperrors.NewQueryFailedError("tasks", err)
		}
		t.AssigneeID = assignee.String
		t.MachineID = machine.String
		if completed.Valid {
			t.CompletedAt = &completed.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- inventory ---

func (p *Postgres) UnderstockedItems(ctx context.Context) ([]models.InventoryItem, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, machine_id, quantity, min_quantity, unit
		 FROM inventory_items WHERE quantity <= min_quantity ORDER BY name`,
	)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("inventory_items", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (p *Postgres) AllItems(ctx context.Context) ([]models.InventoryItem, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, machine_id, quantity, min_quantity, unit FROM inventory_items ORDER BY name`,
	)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("inventory_items", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	for rows.Next() {
		var i models.InventoryItem
		var machine, unit sql.NullString
		if err := rows.Scan(&i.ID, &i.Name, &machine, &i.Quantity, &i.MinQuantity, &unit); err != nil {
			return nil, apperrors.NewQueryFailedError("inventory_items", err)
		}
		i.MachineID = machine.String
		i.Unit = unit.String
		out = append(out, i)
	}
	return out, rows.Err()
}

// --- machines ---

func (p *Postgres) OfflineMachines(ctx context.Context, cutoff time.Time) ([]models.Machine, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, code, name, location, last_ping, last_maintenance_date
		 FROM machines WHERE last_ping IS NULL OR last_ping < $1`,
		cutoff,
	)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("machines", err)
	}
	defer rows.Close()
	return scanMachines(rows)
}

func (p *Postgres) MaintenanceDue(ctx context.Context, cutoff time.Time) ([]models.Machine, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, code, name, location, last_ping, last_maintenance_date
		 FROM machines WHERE last_maintenance_date IS NULL OR last_maintenance_date < $1`,
		cutoff,
	)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("machines", err)
	}
	defer rows.Close()
	return scanMachines(rows)
}

func scanMachines(rows *sql.Rows) ([]models.Machine, error) {
	var out []models.Machine
	for rows.Next() {
		var m models.Machine
		var location sql.NullString
		var ping, maint sql.NullTime
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &location, &ping, &maint); err != nil {
			return nil, apperrors.NewQueryFailedError("machines", err)
		}
		m.Location = location.String
		if ping.Valid {
			m.LastPing = &ping.Time
		}
		if maint.Valid {
			m.LastMaintenanceDate = &maint.Time
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- users ---

const userColumns = `id, name, roles, telegram_chat_id, email, phone, active`

func (p *Postgres) UserByID(ctx context.Context, id string) (*models.User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewQueryFailedError("users", err)
	}
	return u, nil
}

func (p *Postgres) UsersByRole(ctx context.Context, role string) ([]models.User, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE $1 = ANY(roles) AND active = TRUE`, role,
	)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("users", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (p *Postgres) ActiveUsers(ctx context.Context) ([]models.User, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE active = TRUE`,
	)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("users", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var chatID sql.NullInt64
	var email, phone sql.NullString
	if err := row.Scan(&u.ID, &u.Name, pq.Array(&u.Roles), &chatID, &email, &phone, &u.Active); err != nil {
		return nil, err
	}
	u.TelegramChatID = chatID.Int64
	u.Email = email.String
	u.Phone = phone.String
	return &u, nil
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.NewQueryFailedError("users", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// --- notification records ---

func (p *Postgres) CreateRecord(ctx context.Context, rec *models.NotificationRecord) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return apperrors.NewRecordInsertFailedError("notifications", err)
	}
	channels := make([]string, len(rec.Channels))
	for i, ch := range rec.Channels {
		channels[i] = string(ch)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO notifications (id, kind, title, message, recipients, priority, channels, payload, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Kind, rec.Title, rec.Message, pq.Array(rec.Recipients), rec.Priority,
		pq.Array(channels), payload, rec.Status, rec.CreatedAt,
	)
	if err != nil {
		return apperrors.NewRecordInsertFailedError("notifications", err)
	}
	return nil
}

func (p *Postgres) FinalizeRecord(ctx context.Context, id, status string, attempts []models.DeliveryAttempt, sentAt time.Time) error {
	encoded, err := json.Marshal(attempts)
	if err != nil {
		return apperrors.NewRecordInsertFailedError("notifications", err)
	}
	_, err = p.db.ExecContext(ctx,
		`UPDATE notifications SET status = $1, attempts = $2, sent_at = $3 WHERE id = $4`,
		status, encoded, sentAt, id,
	)
	if err != nil {
		return apperrors.NewRecordInsertFailedError("notifications", err)
	}
	return nil
}

func (p *Postgres) History(ctx context.Context, filter models.HistoryFilter) ([]models.NotificationRecord, error) {
	query := `SELECT id, kind, title, message, recipients, priority, channels, payload, status, attempts, created_at, sent_at
		 FROM notifications WHERE 1=1`
	args := []interface{}{}
	n := 0
	next := func(v interface{}) string {
		n++
		args = append(args, v)
		return "$" + strconv.Itoa(n)
	}
	if filter.Channel != "" {
		query += ` AND ` + next(string(filter.Channel)) + ` = ANY(channels)`
	}
	if filter.Recipient != "" {
		query += ` AND ` + next(filter.Recipient) + ` = ANY(recipients)`
	}
	if !filter.From.IsZero() {
		query += ` AND created_at >= ` + next(filter.From)
	}
	if !filter.To.IsZero() {
		query += ` AND created_at <= ` + next(filter.To)
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + next(limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("notifications", err)
	}
	defer rows.Close()

	var out []models.NotificationRecord
	for rows.Next() {
		var rec models.NotificationRecord
		var channels []string
		var payload, attempts []byte
		var sentAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Title, &rec.Message, pq.Array(&rec.Recipients),
			&rec.Priority, pq.Array(&channels), &payload, &rec.Status, &attempts,
			&rec.CreatedAt, &sentAt); err != nil {
			return nil, apperrors.NewQueryFailedError("notifications", err)
		}
		for _, ch := range channels {
			rec.Channels = append(rec.Channels, models.Channel(ch))
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &rec.Payload)
		}
		if len(attempts) > 0 {
			_ = json.Unmarshal(attempts, &rec.Attempts)
		}
		if sentAt.Valid {
			rec.SentAt = &sentAt.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Stats(ctx context.Context, from, to time.Time) ([]models.NotificationStat, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT kind, status, COUNT(*) FROM notifications
		 WHERE created_at >= $1 AND created_at <= $2
		 GROUP BY kind, status ORDER BY kind, status`,
		from, to,
	)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("notifications", err)
	}
	defer rows.Close()

	var out []models.NotificationStat
	for rows.Next() {
		var s models.NotificationStat
		if err := rows.Scan(&s.Kind, &s.Status, &s.Count); err != nil {
			return nil, apperrors.NewQueryFailedError("notifications", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
