package template

import "vhm-notifier/internal/models"

// defaultTemplates is the built-in template table. Every kind has at
// least the telegram body; email templates exist only for kinds the
// operations team reads by mail.
func defaultTemplates() map[models.Kind]map[models.Channel]Template {
	return map[models.Kind]map[models.Channel]Template{
		models.KindTaskOverdue: {
			models.ChannelTelegram: {Body: "⚠️ *Task overdue*\nTask: {taskTitle}\nMachine: {machineName}\nDue: {dueDate}\nAssignee: {assigneeName}"},
			models.ChannelEmail: {
				Subject: "Overdue task: {taskTitle}",
				Body:    "Task {taskTitle} for machine {machineName} was due on {dueDate} and is still open. Assignee: {assigneeName}.",
			},
		},
		models.KindLowStock: {
			models.ChannelTelegram: {Body: "📦 *Low stock*\n{itemCount} position(s) at or below threshold:\n{itemList}"},
			models.ChannelEmail: {
				Subject: "Low stock: {itemCount} position(s)",
				Body:    "The following positions are at or below their minimum quantity:\n{itemList}",
			},
		},
		models.KindMachineOffline: {
			models.ChannelTelegram: {Body: "🔴 *Machine offline*\nMachine: {machineName} ({machineCode})\nLocation: {location}\nLast ping: {lastPing}"},
			models.ChannelEmail: {
				Subject: "Machine offline: {machineName}",
				Body:    "Machine {machineName} ({machineCode}) at {location} has not pinged since {lastPing}.",
			},
		},
		models.KindRouteCompleted: {
			models.ChannelTelegram: {Body: "Route {routeName} completed by {operatorName} at {completedAt}."},
		},
		models.KindMaintenanceDue: {
			models.ChannelTelegram: {Body: "🔧 *Maintenance due*\nMachine: {machineName} ({machineCode})\nLast service: {lastMaintenanceDate}"},
			models.ChannelEmail: {
				Subject: "Maintenance due: {machineName}",
				Body:    "Machine {machineName} ({machineCode}) was last serviced on {lastMaintenanceDate} and is due for maintenance.",
			},
		},
		models.KindIncompleteData: {
			models.ChannelTelegram: {Body: "Data for {entityType} {entityName} is incomplete: {missingFields}."},
		},
		models.KindSystemAlert: {
			models.ChannelTelegram: {Body: "<b>System alert</b>\n{message}"},
			models.ChannelEmail: {
				Subject: "System alert",
				Body:    "{message}",
			},
			models.ChannelSMS: {Body: "{message}"},
		},
		models.KindFuelReport: {
			models.ChannelTelegram: {Body: "Fuel report from {operatorName}: {liters} l, {amount} sum, odometer {odometer} km."},
		},
		models.KindArrivalConfirmation: {
			models.ChannelTelegram: {Body: "{operatorName} arrived at {machineName} at {arrivedAt}."},
		},
		models.KindWarehouseReceipt: {
			models.ChannelTelegram: {Body: "Warehouse receipt: {itemName} x{quantity} accepted by {managerName}."},
			models.ChannelEmail: {
				Subject: "Warehouse receipt: {itemName}",
				Body:    "{itemName} x{quantity} accepted by {managerName} at {acceptedAt}.",
			},
		},
	}
}
