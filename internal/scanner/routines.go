package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vhm-notifier/internal/models"
)

// Follow-up due windows, in days from the finding.
const (
	restockDueDays     = 3
	maintenanceDueDays = 7
	auditDueDays       = 14
)

// runOperationalScan covers the short-cycle findings: overdue tasks and
// machines that stopped pinging. One notification per finding; errors on
// a single finding are logged and the pass moves on.
func (s *Scanner) runOperationalScan(ctx context.Context) error {
	tasks, err := s.store.OverdueTasks(ctx)
	if err != nil {
		return err
	}

	admins, err := s.recipientsByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		recipients := admins
		assigneeName := "unassigned"
		if task.AssigneeID != "" {
			recipients = dedup(append([]string{task.AssigneeID}, admins...))
			if u, uerr := s.store.UserByID(ctx, task.AssigneeID); uerr == nil && u != nil {
				assigneeName = u.Name
			}
		}
		if len(recipients) == 0 {
			continue
		}

		payload := map[string]interface{}{
			"taskTitle":    task.Title,
			"machineName":  task.MachineID,
			"dueDate":      formatDate(task.DueDate),
			"assigneeName": assigneeName,
		}
		if _, derr := s.notifier.Dispatch(ctx, models.KindTaskOverdue, recipients, payload, nil); derr != nil {
			s.log.Warn("overdue task notification failed", map[string]interface{}{
				"taskId": task.ID,
				"error":  derr.Error(),
			})
		}
	}

	cutoff := time.Now().UTC().Add(-s.cfg.OfflineThreshold)
	machines, err := s.store.OfflineMachines(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(machines) == 0 {
		return nil
	}

	technicians, err := s.recipientsByRole(ctx, models.RoleTechnician, models.RoleAdmin)
	if err != nil {
		return err
	}
	if len(technicians) == 0 {
		s.log.Warn("offline machines found but no technicians to notify", map[string]interface{}{
			"machines": len(machines),
		})
		return nil
	}

	for _, m := range machines {
		payload := map[string]interface{}{
			"machineName": m.Name,
			"machineCode": m.Code,
			"location":    m.Location,
			"lastPing":    formatPing(m.LastPing),
		}
		if _, derr := s.notifier.Dispatch(ctx, models.KindMachineOffline, technicians, payload, nil); derr != nil {
			s.log.Warn("offline machine notification failed", map[string]interface{}{
				"machineId": m.ID,
				"error":     derr.Error(),
			})
		}
	}
	return nil
}

// runLowStockScan groups every understocked position into a single
// notification to the warehouse managers and opens one restock task per
// affected position.
func (s *Scanner) runLowStockScan(ctx context.Context) error {
	items, err := s.store.UnderstockedItems(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	recipients, err := s.recipientsByRole(ctx, models.RoleWarehouseManager, models.RoleAdmin)
	if err != nil {
		return err
	}
	if len(recipients) > 0 {
		payload := map[string]interface{}{
			"itemCount": len(items),
			"itemList":  formatItemList(items),
		}
		if _, derr := s.notifier.Dispatch(ctx, models.KindLowStock, recipients, payload, nil); derr != nil {
			s.log.Warn("low stock notification failed", map[string]interface{}{
				"items": len(items),
				"error": derr.Error(),
			})
		}
	}

	for _, item := range items {
		subject := Subject{
			MachineID: item.MachineID,
			Name:      item.Name,
			Detail:    fmt.Sprintf("Quantity %s at or below minimum %s.", formatQty(item.Quantity, item.Unit), formatQty(item.MinQuantity, item.Unit)),
		}
		if _, _, terr := s.taskgen.CreateFollowUpTask(ctx, models.KindLowStock, subject, restockDueDays); terr != nil {
			s.log.Warn("restock task creation failed", map[string]interface{}{
				"item":  item.Name,
				"error": terr.Error(),
			})
		}
	}
	return nil
}

// runMaintenanceScan opens a maintenance task and notifies technicians
// for every machine past its service window.
func (s *Scanner) runMaintenanceScan(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.cfg.MaintenanceMaxAge)
	machines, err := s.store.MaintenanceDue(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(machines) == 0 {
		return nil
	}

	technicians, err := s.recipientsByRole(ctx, models.RoleTechnician, models.RoleAdmin)
	if err != nil {
		return err
	}

	for _, m := range machines {
		subject := Subject{
			MachineID: m.ID,
			Name:      m.Name,
			Detail:    fmt.Sprintf("Last serviced: %s.", formatPing(m.LastMaintenanceDate)),
		}
		if _, _, terr := s.taskgen.CreateFollowUpTask(ctx, models.KindMaintenanceDue, subject, maintenanceDueDays); terr != nil {
			s.log.Warn("maintenance task creation failed", map[string]interface{}{
				"machineId": m.ID,
				"error":     terr.Error(),
			})
		}

		if len(technicians) == 0 {
			continue
		}
		payload := map[string]interface{}{
			"machineName":         m.Name,
			"machineCode":         m.Code,
			"lastMaintenanceDate": formatPing(m.LastMaintenanceDate),
		}
		if _, derr := s.notifier.Dispatch(ctx, models.KindMaintenanceDue, technicians, payload, nil); derr != nil {
			s.log.Warn("maintenance notification failed", map[string]interface{}{
				"machineId": m.ID,
				"error":     derr.Error(),
			})
		}
	}
	return nil
}

// runInventoryAudit summarizes overall stock health for the long cycle
// and opens a single audit task when anything is understocked.
func (s *Scanner) runInventoryAudit(ctx context.Context) error {
	all, err := s.store.AllItems(ctx)
	if err != nil {
		return err
	}

	understocked := 0
	for _, item := range all {
		if item.Understocked() {
			understocked++
		}
	}

	recipients, err := s.recipientsByRole(ctx, models.RoleAdmin, models.RoleWarehouseManager)
	if err != nil {
		return err
	}
	if len(recipients) > 0 {
		payload := map[string]interface{}{
			"message": fmt.Sprintf("Inventory audit: %d position(s) total, %d at or below minimum.", len(all), understocked),
		}
		if _, derr := s.notifier.Dispatch(ctx, models.KindSystemAlert, recipients, payload, nil); derr != nil {
			s.log.Warn("inventory audit notification failed", map[string]interface{}{
				"error": derr.Error(),
			})
		}
	}

	if understocked == 0 {
		return nil
	}
	subject := Subject{
		Name:   "warehouse",
		Detail: fmt.Sprintf("%d of %d positions at or below minimum quantity.", understocked, len(all)),
	}
	if _, _, terr := s.taskgen.CreateFollowUpTask(ctx, models.KindSystemAlert, subject, auditDueDays); terr != nil {
		s.log.Warn("audit task creation failed", map[string]interface{}{
			"error": terr.Error(),
		})
	}
	return nil
}

func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func formatPing(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}

func formatQty(q float64, unit string) string {
	v := fmt.Sprintf("%g", q)
	if unit != "" {
		return v + " " + unit
	}
	return v
}

func formatItemList(items []models.InventoryItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s: %s (min %s)", item.Name, formatQty(item.Quantity, item.Unit), formatQty(item.MinQuantity, item.Unit)))
	}
	return strings.Join(lines, "\n")
}
