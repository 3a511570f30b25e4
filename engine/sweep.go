/*
 * Copyright 2025 The BizFlow Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package engine

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/cast"
	"github.com/bizflow/bizflow/utils/str"
)

// deadlineSource describes one business collection the deadline sweep
// scans: where its target date lives, which reminder kind it produces and
// which statuses put an entity past caring.
type deadlineSource struct {
	collection string
	kind       types.ReminderKind
	dateColumn string
	terminal   map[string]bool
}

var deadlineSources = []deadlineSource{
	{
		collection: types.CollectionProjects,
		kind:       types.ReminderProjectDeadline,
		dateColumn: "deadline",
		terminal:   map[string]bool{"completed": true, "cancelled": true, "archived": true},
	},
	{
		collection: types.CollectionInvoices,
		kind:       types.ReminderInvoicePayment,
		dateColumn: "due_date",
		terminal:   map[string]bool{"paid": true, "cancelled": true, "draft": true},
	},
	{
		collection: types.CollectionTasks,
		kind:       types.ReminderTaskDue,
		dateColumn: "due_date",
		terminal:   map[string]bool{"completed": true, "cancelled": true},
	},
	{
		collection: types.CollectionClients,
		kind:       types.ReminderClientFollowup,
		dateColumn: "next_followup_at",
		terminal:   map[string]bool{"archived": true},
	},
}

// startSweeps wires the periodic sweeps onto a cron runner. A panicking
// sweep is recovered and logged, never taking the runner down.
func (e *Engine) startSweeps() {
	runner := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(e.config.Logger)),
	))
	add := func(spec string, job func()) {
		if spec == "" {
			return
		}
		if _, err := runner.AddFunc(spec, job); err != nil {
			e.config.Logger.Printf("engine: bad sweep spec %q: %v", spec, err)
		}
	}
	add(e.config.OverdueSweepSpec, func() {
		if err := e.RunOverdueInvoiceSweep(context.Background()); err != nil {
			e.config.Logger.Printf("engine: overdue sweep: %v", err)
		}
	})
	add(e.config.DeadlineSweepSpec, func() {
		if err := e.RunDeadlineSweep(context.Background()); err != nil {
			e.config.Logger.Printf("engine: deadline sweep: %v", err)
		}
	})
	add(e.config.CleanupSweepSpec, func() {
		if err := e.RunRetentionCleanup(context.Background()); err != nil {
			e.config.Logger.Printf("engine: cleanup sweep: %v", err)
		}
	})
	runner.Start()
	e.cron = runner
}

// RunOverdueInvoiceSweep transitions unpaid invoices past their due date
// to overdue and fires the invoice-overdue event for each. Invoices
// already overdue, paid, cancelled or still in draft are skipped, so the
// sweep is idempotent: an invoice transitions at most once.
func (e *Engine) RunOverdueInvoiceSweep(ctx context.Context) error {
	rows, err := e.config.Store.ReadAll(types.CollectionInvoices)
	if err != nil {
		return err
	}
	now := e.config.Clock.Now()
	for _, row := range rows {
		status := str.ToString(row["status"])
		switch status {
		case "paid", "cancelled", "draft", "overdue":
			continue
		}
		dueDate := cast.ToTime(row["due_date"])
		if dueDate.IsZero() || !dueDate.Before(now) {
			continue
		}
		invoiceId := str.ToString(row["id"])
		if _, err := e.config.Store.Update(types.CollectionInvoices, invoiceId, types.Row{
			"status":     "overdue",
			"updated_at": now.UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return err
		}
		eventContext := types.Configuration{"invoice": rowToContext(row)}
		if _, err := e.TriggerEvent(ctx, types.TriggerInvoiceOverdue, invoiceId, eventContext); err != nil {
			e.config.Logger.Printf("engine: overdue sweep: invoice %s: %v", invoiceId, err)
		}
	}
	return nil
}

// RunDeadlineSweep scans the business collections for entities whose
// target date falls inside the lookahead window and schedules the default
// reminder for any that still lack a pending one. Entities already
// covered by a pending schedule are skipped, so repeated sweeps never
// double-book reminders.
func (e *Engine) RunDeadlineSweep(ctx context.Context) error {
	now := e.config.Clock.Now()
	horizon := now.Add(e.config.DeadlineLookahead)
	for _, source := range deadlineSources {
		rows, err := e.config.Store.ReadAll(source.collection)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if source.terminal[str.ToString(row["status"])] {
				continue
			}
			target := cast.ToTime(row[source.dateColumn])
			if target.IsZero() || !target.After(now) || target.After(horizon) {
				continue
			}
			entityId := str.ToString(row["id"])
			pending, err := e.scheduler.HasPending(source.kind, entityId)
			if err != nil {
				return err
			}
			if pending {
				continue
			}
			if err := e.scheduleWithFallback(source.kind, entityId, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// scheduleWithFallback applies the default reminder config; when every
// derived date is already past (the target is closer than DaysBefore) it
// arms a single reminder at the target itself so the entity still gets
// one and the sweep's pending-schedule guard holds.
func (e *Engine) scheduleWithFallback(kind types.ReminderKind, entityId string, target time.Time) error {
	schedules, err := e.scheduler.Schedule(kind, entityId, target, e.config.DefaultReminder)
	if err != nil {
		return err
	}
	if len(schedules) == 0 {
		_, err = e.scheduler.ScheduleAt(kind, entityId, target, e.config.DefaultReminder)
	}
	return err
}

// RunRetentionCleanup deletes terminal executions and schedules older
// than the retention window. Pending schedules are never touched.
func (e *Engine) RunRetentionCleanup(ctx context.Context) error {
	cutoff := e.config.Clock.Now().AddDate(0, 0, -e.config.RetentionDays)
	deletedExecutions, err := e.adapter.DeleteExecutionsBefore(cutoff)
	if err != nil {
		return err
	}
	deletedSchedules, err := e.adapter.DeleteTerminalSchedulesBefore(cutoff)
	if err != nil {
		return err
	}
	if deletedExecutions > 0 || deletedSchedules > 0 {
		e.config.Logger.Printf("engine: retention cleanup removed %d executions, %d schedules", deletedExecutions, deletedSchedules)
	}
	return nil
}

// rowToContext exposes a store row to condition evaluation and ${}
// templates.
func rowToContext(row types.Row) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
