// Package scanner runs the periodic scans over operational state and
// turns findings into notifications and follow-up tasks.
package scanner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"vhm-notifier/internal/common/config"
	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/common/logger"
	"vhm-notifier/internal/common/metrics"
	"vhm-notifier/internal/models"
	"vhm-notifier/internal/notify/dispatcher"
	"vhm-notifier/internal/store"
)

// Routine names, used for manual triggers, guards and metrics labels.
const (
	RoutineOperational = "operational"
	RoutineLowStock    = "low_stock"
	RoutineMaintenance = "maintenance"
	RoutineAudit       = "inventory_audit"
)

// Notifier is the slice of the dispatcher the scanner uses.
type Notifier interface {
	Dispatch(ctx context.Context, kind models.Kind, recipients []string, payload map[string]interface{}, opts *dispatcher.Options) (*models.DispatchResult, error)
}

// Scanner owns the four scan routines. Each routine runs on its own
// interval; a per-routine guard prevents a routine from overlapping
// itself while different routines interleave freely.
type Scanner struct {
	store    store.Store
	notifier Notifier
	taskgen  *TaskGenerator
	cfg      config.ScannerConfig
	log      logger.Logger

	cronEngine *cron.Cron
	inFlight   map[string]*atomic.Bool
}

func New(st store.Store, notifier Notifier, taskgen *TaskGenerator, cfg config.ScannerConfig, log logger.Logger) *Scanner {
	return &Scanner{
		store:    st,
		notifier: notifier,
		taskgen:  taskgen,
		cfg:      cfg,
		log:      log.WithFields(map[string]interface{}{"component": "scanner"}),
		inFlight: map[string]*atomic.Bool{
			RoutineOperational: {},
			RoutineLowStock:    {},
			RoutineMaintenance: {},
			RoutineAudit:       {},
		},
	}
}

// Start registers every routine on its configured interval. Intervals
// come from config as explicit durations; there are no cron expression
// strings.
func (s *Scanner) Start() {
	s.cronEngine = cron.New()

	schedule := func(interval time.Duration, name string, run func(ctx context.Context) error) {
		s.cronEngine.Schedule(cron.Every(interval), cron.FuncJob(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := s.runGuarded(ctx, name, run); err != nil {
				s.log.Error("scan routine failed", map[string]interface{}{
					"routine": name,
					"error":   err.Error(),
				})
			}
		}))
	}

	schedule(s.cfg.OperationalInterval, RoutineOperational, s.runOperationalScan)
	schedule(s.cfg.LowStockInterval, RoutineLowStock, s.runLowStockScan)
	schedule(s.cfg.MaintenanceInterval, RoutineMaintenance, s.runMaintenanceScan)
	schedule(s.cfg.AuditInterval, RoutineAudit, s.runInventoryAudit)

	s.cronEngine.Start()
	s.log.Info("scanner started", map[string]interface{}{
		"operationalInterval": s.cfg.OperationalInterval.String(),
		"lowStockInterval":    s.cfg.LowStockInterval.String(),
		"maintenanceInterval": s.cfg.MaintenanceInterval.String(),
		"auditInterval":       s.cfg.AuditInterval.String(),
	})
}

// Stop halts the timers and waits for running passes to finish.
func (s *Scanner) Stop() {
	if s.cronEngine == nil {
		return
	}
	<-s.cronEngine.Stop().Done()
	s.log.Info("scanner stopped", nil)
}

// Trigger runs one routine synchronously, bypassing the timers. Used by
// privileged operators to force an out-of-cycle scan; it is the same
// code path as the scheduled run, guard included.
func (s *Scanner) Trigger(ctx context.Context, routine string) error {
	switch routine {
	case RoutineOperational:
		return s.runGuarded(ctx, routine, s.runOperationalScan)
	case RoutineLowStock:
		return s.runGuarded(ctx, routine, s.runLowStockScan)
	case RoutineMaintenance:
		return s.runGuarded(ctx, routine, s.runMaintenanceScan)
	case RoutineAudit:
		return s.runGuarded(ctx, routine, s.runInventoryAudit)
	default:
		return apperrors.NewMalformedInputError("unknown scan routine: " + routine)
	}
}

// Routines returns the valid routine names.
func Routines() []string {
	return []string{RoutineOperational, RoutineLowStock, RoutineMaintenance, RoutineAudit}
}

// runGuarded executes a routine unless its previous pass is still in
// flight. A skipped pass is not an error; the next tick retries.
func (s *Scanner) runGuarded(ctx context.Context, name string, run func(ctx context.Context) error) error {
	guard := s.inFlight[name]
	if !guard.CompareAndSwap(false, true) {
		s.log.Warn("scan routine still in flight, skipping pass", map[string]interface{}{
			"routine": name,
		})
		metrics.ScanRuns.WithLabelValues(name, "skipped").Inc()
		return nil
	}
	defer guard.Store(false)

	start := time.Now()
	err := run(ctx)
	metrics.ScanDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ScanRuns.WithLabelValues(name, outcome).Inc()
	return err
}

// recipientsByRole collects the ids of active users holding any of the
// given roles, deduplicated.
func (s *Scanner) recipientsByRole(ctx context.Context, roles ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, role := range roles {
		users, err := s.store.UsersByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if !seen[u.ID] {
				seen[u.ID] = true
				out = append(out, u.ID)
			}
		}
	}
	return out, nil
}
