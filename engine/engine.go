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

// Package engine implements the workflow automation engine: rule
// matching and condition evaluation, action dispatch with an audit
// record per firing, reminder scheduling over in-process timers and the
// periodic sweeps that keep invoices, deadlines and retention honest.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/components/action"
	"github.com/bizflow/bizflow/storage"
	"github.com/bizflow/bizflow/transport"
	"github.com/bizflow/bizflow/utils/str"
)

// reminderKinds binds each reminder kind to the trigger it synthesizes
// when it fires, the collection its entity lives in and the context key
// the entity row is exposed under.
var reminderKinds = map[types.ReminderKind]struct {
	trigger    types.TriggerType
	collection string
	contextKey string
}{
	types.ReminderProjectDeadline: {types.TriggerProjectDeadlineApproaching, types.CollectionProjects, "project"},
	types.ReminderInvoicePayment:  {types.TriggerInvoiceDueApproaching, types.CollectionInvoices, "invoice"},
	types.ReminderTaskDue:         {types.TriggerTaskDue, types.CollectionTasks, "task"},
	types.ReminderClientFollowup:  {types.TriggerClientFollowupDue, types.CollectionClients, "client"},
}

// Engine is the workflow automation engine. Construct it with New, wire
// collaborators through types.Config and drive it with TriggerEvent and
// the rule and reminder APIs. One engine instance is safe for concurrent
// use.
type Engine struct {
	config     types.Config
	adapter    *storage.Adapter
	matcher    *matcher
	dispatcher *dispatcher
	scheduler  *scheduler
	cron       *cron.Cron
}

// New creates an engine from the config, filling the collaborator
// defaults: the in-memory store, the logging no-op notifier and the
// built-in action catalog. The rule cache is loaded eagerly so a
// construction-time store failure surfaces here, not on the first event.
func New(config types.Config) (*Engine, error) {
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	if config.Clock == nil {
		config.Clock = types.SystemClock()
	}
	if config.Store == nil {
		config.Store = storage.NewMemoryStore()
	}
	if config.Notifier == nil {
		config.Notifier = transport.NewNoop(config.Logger)
	}
	if config.Registry == nil {
		config.Registry = action.Registry
	}
	e := &Engine{
		config:  config,
		adapter: storage.NewAdapter(config.Store),
	}
	e.matcher = newMatcher(e.adapter)
	e.dispatcher = newDispatcher(config, config.Registry)
	e.scheduler = newScheduler(config, e.adapter, e.deliverReminder)
	if err := e.matcher.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() types.Config {
	return e.config
}

// Start re-arms the timers for pending future reminders and starts the
// periodic sweeps. Pending reminders whose time passed while the process
// was down stay pending; the sweeps re-evaluate their entities.
func (e *Engine) Start() error {
	armed, err := e.scheduler.Rearm()
	if err != nil {
		return err
	}
	if armed > 0 {
		e.config.Logger.Printf("engine: re-armed %d pending reminders", armed)
	}
	e.startSweeps()
	return nil
}

// Stop stops the sweeps and the reminder timers. Pending schedule rows
// are left in place for the next Start.
func (e *Engine) Stop() {
	if e.cron != nil {
		e.cron.Stop()
		e.cron = nil
	}
	e.scheduler.Stop()
}

// TriggerEvent dispatches a business event: every active rule subscribed
// to the trigger type is evaluated against the context and fired on a
// match. Returns the audit record of each firing, in dispatch order. A
// failing rule never blocks its siblings.
func (e *Engine) TriggerEvent(ctx context.Context, triggerType types.TriggerType, entityId string, eventContext types.Configuration) ([]types.WorkflowExecution, error) {
	if !types.ValidTriggerType(triggerType) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidTrigger, triggerType)
	}
	var executions []types.WorkflowExecution
	for _, rule := range e.matcher.Match(triggerType) {
		ectx := &types.ExecutionContext{
			TriggerType: triggerType,
			EntityId:    entityId,
			Context:     cloneConfiguration(eventContext),
		}
		if !EvaluateConditions(rule.Conditions, ectx.Context) {
			continue
		}
		executions = append(executions, e.fire(ctx, rule, ectx))
	}
	return executions, nil
}

// CreateRule validates and persists a new rule. Rules are created active;
// the id and timestamps are assigned here when absent.
func (e *Engine) CreateRule(rule types.Rule) (types.Rule, error) {
	if err := e.validateRule(&rule); err != nil {
		return types.Rule{}, err
	}
	if rule.Id == "" {
		rule.Id = e.newId()
	}
	now := e.config.Clock.Now()
	rule.Active = true
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if err := e.adapter.SaveRule(rule); err != nil {
		return types.Rule{}, err
	}
	return rule, e.matcher.Reload()
}

// UpdateRule validates and rewrites an existing rule, preserving its
// creation time and active flag.
func (e *Engine) UpdateRule(rule types.Rule) (types.Rule, error) {
	existing, err := e.adapter.GetRule(rule.Id)
	if err != nil {
		return types.Rule{}, err
	}
	if err := e.validateRule(&rule); err != nil {
		return types.Rule{}, err
	}
	rule.Active = existing.Active
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = e.config.Clock.Now()
	if err := e.adapter.UpdateRule(rule); err != nil {
		return types.Rule{}, err
	}
	return rule, e.matcher.Reload()
}

// DeleteRule deactivates a rule. The row is kept so past executions stay
// resolvable; a deactivated rule never matches again.
func (e *Engine) DeleteRule(id string) error {
	rule, err := e.adapter.GetRule(id)
	if err != nil {
		return err
	}
	rule.Active = false
	rule.UpdatedAt = e.config.Clock.Now()
	if err := e.adapter.UpdateRule(rule); err != nil {
		return err
	}
	return e.matcher.Reload()
}

// GetRule loads one rule by id.
func (e *Engine) GetRule(id string) (types.Rule, error) {
	return e.adapter.GetRule(id)
}

// ListRules loads every rule, active or not.
func (e *Engine) ListRules() ([]types.Rule, error) {
	return e.adapter.ListRules()
}

func (e *Engine) validateRule(rule *types.Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if !types.ValidTriggerType(rule.Trigger.Type) {
		return fmt.Errorf("%w: %q", types.ErrInvalidTrigger, rule.Trigger.Type)
	}
	if len(rule.Actions) == 0 {
		return fmt.Errorf("rule needs at least one action")
	}
	return ValidateConditions(rule.Conditions)
}

// ScheduleReminder derives and persists reminder schedules for an entity
// around a target date. A zero config falls back to the engine's default
// reminder config.
func (e *Engine) ScheduleReminder(kind types.ReminderKind, entityId string, target time.Time, config types.ReminderConfig) ([]types.ReminderSchedule, error) {
	if _, ok := reminderKinds[kind]; !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidKind, kind)
	}
	if entityId == "" {
		return nil, fmt.Errorf("entity id is required")
	}
	if config.IsZero() {
		config = e.config.DefaultReminder
	} else if configHasNoDates(config) {
		schedule, err := e.scheduler.ScheduleAt(kind, entityId, target, config)
		if err != nil {
			return nil, err
		}
		return []types.ReminderSchedule{schedule}, nil
	}
	return e.scheduler.Schedule(kind, entityId, target, config)
}

func configHasNoDates(config types.ReminderConfig) bool {
	return config.DaysBefore == 0 && config.DaysAfter == 0 && len(config.EscalationDays) == 0
}

// CancelPendingReminders cancels every pending reminder of the
// (kind, entity) pair, e.g. when an invoice is paid or a project closes.
// Returns how many were cancelled.
func (e *Engine) CancelPendingReminders(kind types.ReminderKind, entityId string) (int, error) {
	return e.scheduler.CancelPending(kind, entityId)
}

// deliverReminder fires one due reminder: it synthesizes the kind's
// trigger event with the entity row in context and, when the schedule
// config names a channel and recipient, sends the reminder notification.
func (e *Engine) deliverReminder(schedule types.ReminderSchedule) error {
	kind, ok := reminderKinds[schedule.Kind]
	if !ok {
		return fmt.Errorf("unknown reminder kind %q", schedule.Kind)
	}
	eventContext := types.Configuration{
		"reminder": map[string]interface{}{
			"id":           schedule.Id,
			"kind":         string(schedule.Kind),
			"entity_id":    schedule.EntityId,
			"scheduled_at": schedule.ScheduledAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if row := e.entityRow(kind.collection, schedule.EntityId); row != nil {
		eventContext[kind.contextKey] = rowToContext(row)
	}
	if _, err := e.TriggerEvent(context.Background(), kind.trigger, schedule.EntityId, eventContext); err != nil {
		return err
	}
	if schedule.Config.Channel != "" && schedule.Config.Recipient != "" {
		return e.sendReminderNotification(schedule, eventContext)
	}
	return nil
}

func (e *Engine) entityRow(collection, entityId string) types.Row {
	rows, err := e.config.Store.Query(collection, types.Filter{"id": entityId})
	if err != nil || len(rows) == 0 {
		return nil
	}
	return rows[0]
}

func (e *Engine) sendReminderNotification(schedule types.ReminderSchedule, eventContext types.Configuration) error {
	subject := fmt.Sprintf("Reminder: %s", schedule.Kind)
	body := fmt.Sprintf("Reminder %s for %s is due.", schedule.Kind, schedule.EntityId)
	if schedule.Config.TemplateId != "" {
		template, err := e.adapter.GetTemplate(schedule.Config.TemplateId)
		if err != nil {
			return err
		}
		dict := map[string]interface{}(eventContext)
		subject = str.ExecuteTemplate(template.Subject, dict)
		body = str.ExecuteTemplate(template.Body, dict)
	}
	return e.config.Notifier.Send(context.Background(), types.Notification{
		Channel:   schedule.Config.Channel,
		Recipient: schedule.Config.Recipient,
		Subject:   subject,
		Body:      body,
	})
}

// Executions loads the audit records started inside the window, oldest
// first.
func (e *Engine) Executions(window types.AnalyticsWindow) ([]types.WorkflowExecution, error) {
	return e.adapter.ExecutionsBetween(window.Start, window.End)
}

// SaveTemplate persists a notification template.
func (e *Engine) SaveTemplate(template types.NotificationTemplate) error {
	if template.Id == "" {
		template.Id = e.newId()
	}
	return e.adapter.SaveTemplate(template)
}

// PendingReminderTimers returns the number of armed reminder timers.
func (e *Engine) PendingReminderTimers() int {
	return e.scheduler.PendingTimerCount()
}

func (e *Engine) newId() string {
	return newUUID()
}
