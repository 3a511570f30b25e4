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

// Package storage translates engine entities to and from the flat rows
// of the tabular store. Nested structures (conditions, actions, trigger
// config, context snapshots) are serialized as JSON text in single
// columns; that serialization never leaks past this package.
package storage

import (
	"fmt"
	"time"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/cast"
	"github.com/bizflow/bizflow/utils/json"
	"github.com/bizflow/bizflow/utils/str"
)

// Adapter wraps a types.Store with typed accessors for the collections
// the engine owns.
type Adapter struct {
	store types.Store
}

// NewAdapter creates an adapter over the given store.
func NewAdapter(store types.Store) *Adapter {
	return &Adapter{store: store}
}

// Store exposes the underlying tabular store for business collections.
func (a *Adapter) Store() types.Store {
	return a.store
}

// --- rules ---

// SaveRule inserts a rule row. The rule must carry id and timestamps.
func (a *Adapter) SaveRule(rule types.Rule) error {
	row, err := ruleToRow(rule)
	if err != nil {
		return err
	}
	_, err = a.store.Create(types.CollectionRules, row)
	return err
}

// UpdateRule rewrites every column of an existing rule row.
func (a *Adapter) UpdateRule(rule types.Rule) error {
	row, err := ruleToRow(rule)
	if err != nil {
		return err
	}
	ok, err := a.store.Update(types.CollectionRules, rule.Id, row)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrRuleNotFound
	}
	return nil
}

// GetRule loads one rule by id.
func (a *Adapter) GetRule(id string) (types.Rule, error) {
	rows, err := a.store.Query(types.CollectionRules, types.Filter{"id": id})
	if err != nil {
		return types.Rule{}, err
	}
	if len(rows) == 0 {
		return types.Rule{}, types.ErrRuleNotFound
	}
	return ruleFromRow(rows[0])
}

// ListRules loads every rule in store order.
func (a *Adapter) ListRules() ([]types.Rule, error) {
	rows, err := a.store.ReadAll(types.CollectionRules)
	if err != nil {
		return nil, err
	}
	return rulesFromRows(rows)
}

// ListActiveRules loads the active rules in store order.
func (a *Adapter) ListActiveRules() ([]types.Rule, error) {
	rows, err := a.store.Query(types.CollectionRules, types.Filter{"active": true})
	if err != nil {
		return nil, err
	}
	return rulesFromRows(rows)
}

func rulesFromRows(rows []types.Row) ([]types.Rule, error) {
	rules := make([]types.Rule, 0, len(rows))
	for _, row := range rows {
		rule, err := ruleFromRow(row)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func ruleToRow(rule types.Rule) (types.Row, error) {
	conditions, err := marshalText(rule.Conditions)
	if err != nil {
		return nil, err
	}
	actions, err := marshalText(rule.Actions)
	if err != nil {
		return nil, err
	}
	triggerConfig, err := marshalText(rule.Trigger.Config)
	if err != nil {
		return nil, err
	}
	return types.Row{
		"id":             rule.Id,
		"name":           rule.Name,
		"trigger_type":   string(rule.Trigger.Type),
		"trigger_config": triggerConfig,
		"conditions":     conditions,
		"actions":        actions,
		"active":         rule.Active,
		"created_at":     encodeTime(rule.CreatedAt),
		"updated_at":     encodeTime(rule.UpdatedAt),
	}, nil
}

func ruleFromRow(row types.Row) (types.Rule, error) {
	rule := types.Rule{
		Id:        str.ToString(row["id"]),
		Name:      str.ToString(row["name"]),
		Active:    cast.ToBool(row["active"]),
		CreatedAt: cast.ToTime(row["created_at"]),
		UpdatedAt: cast.ToTime(row["updated_at"]),
	}
	rule.Trigger.Type = types.TriggerType(str.ToString(row["trigger_type"]))
	if err := unmarshalText(row["trigger_config"], &rule.Trigger.Config); err != nil {
		return rule, fmt.Errorf("rule %s: trigger config: %w", rule.Id, err)
	}
	if err := unmarshalText(row["conditions"], &rule.Conditions); err != nil {
		return rule, fmt.Errorf("rule %s: conditions: %w", rule.Id, err)
	}
	if err := unmarshalText(row["actions"], &rule.Actions); err != nil {
		return rule, fmt.Errorf("rule %s: actions: %w", rule.Id, err)
	}
	return rule, nil
}

// --- reminder schedules ---

// SaveSchedule inserts a schedule row.
func (a *Adapter) SaveSchedule(schedule types.ReminderSchedule) error {
	row, err := scheduleToRow(schedule)
	if err != nil {
		return err
	}
	_, err = a.store.Create(types.CollectionSchedules, row)
	return err
}

// GetSchedule loads one schedule by id.
func (a *Adapter) GetSchedule(id string) (types.ReminderSchedule, error) {
	rows, err := a.store.Query(types.CollectionSchedules, types.Filter{"id": id})
	if err != nil {
		return types.ReminderSchedule{}, err
	}
	if len(rows) == 0 {
		return types.ReminderSchedule{}, types.ErrScheduleNotFound
	}
	return scheduleFromRow(rows[0])
}

// MarkSchedule updates the firing outcome of a schedule row.
func (a *Adapter) MarkSchedule(id string, status types.ScheduleStatus, attempts int, lastAttemptAt time.Time) error {
	_, err := a.store.Update(types.CollectionSchedules, id, types.Row{
		"status":          string(status),
		"attempts":        attempts,
		"last_attempt_at": encodeTime(lastAttemptAt),
	})
	return err
}

// CancelSchedule marks a schedule row cancelled.
func (a *Adapter) CancelSchedule(id string) error {
	_, err := a.store.Update(types.CollectionSchedules, id, types.Row{
		"status": string(types.ScheduleCancelled),
	})
	return err
}

// PendingSchedules loads pending schedules for a (kind, entity) pair in
// store order.
func (a *Adapter) PendingSchedules(kind types.ReminderKind, entityId string) ([]types.ReminderSchedule, error) {
	rows, err := a.store.Query(types.CollectionSchedules, types.Filter{
		"kind":      string(kind),
		"entity_id": entityId,
		"status":    string(types.SchedulePending),
	})
	if err != nil {
		return nil, err
	}
	return schedulesFromRows(rows)
}

// AllPendingSchedules loads every pending schedule, for restart recovery.
func (a *Adapter) AllPendingSchedules() ([]types.ReminderSchedule, error) {
	rows, err := a.store.Query(types.CollectionSchedules, types.Filter{
		"status": string(types.SchedulePending),
	})
	if err != nil {
		return nil, err
	}
	return schedulesFromRows(rows)
}

// DeleteTerminalSchedulesBefore removes sent, failed and cancelled
// schedule rows created before the cutoff. Returns how many were deleted.
func (a *Adapter) DeleteTerminalSchedulesBefore(cutoff time.Time) (int, error) {
	rows, err := a.store.ReadAll(types.CollectionSchedules)
	if err != nil {
		return 0, err
	}
	var deleted int
	for _, row := range rows {
		status := types.ScheduleStatus(str.ToString(row["status"]))
		if status == types.SchedulePending {
			continue
		}
		if cast.ToTime(row["created_at"]).Before(cutoff) {
			if ok, err := a.store.Delete(types.CollectionSchedules, str.ToString(row["id"])); err != nil {
				return deleted, err
			} else if ok {
				deleted++
			}
		}
	}
	return deleted, nil
}

func schedulesFromRows(rows []types.Row) ([]types.ReminderSchedule, error) {
	schedules := make([]types.ReminderSchedule, 0, len(rows))
	for _, row := range rows {
		schedule, err := scheduleFromRow(row)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

func scheduleToRow(schedule types.ReminderSchedule) (types.Row, error) {
	config, err := marshalText(schedule.Config)
	if err != nil {
		return nil, err
	}
	row := types.Row{
		"id":           schedule.Id,
		"kind":         string(schedule.Kind),
		"entity_id":    schedule.EntityId,
		"scheduled_at": encodeTime(schedule.ScheduledAt),
		"config":       config,
		"status":       string(schedule.Status),
		"attempts":     schedule.Attempts,
		"created_at":   encodeTime(schedule.CreatedAt),
	}
	if schedule.LastAttemptAt != nil {
		row["last_attempt_at"] = encodeTime(*schedule.LastAttemptAt)
	} else {
		row["last_attempt_at"] = ""
	}
	return row, nil
}

func scheduleFromRow(row types.Row) (types.ReminderSchedule, error) {
	schedule := types.ReminderSchedule{
		Id:          str.ToString(row["id"]),
		Kind:        types.ReminderKind(str.ToString(row["kind"])),
		EntityId:    str.ToString(row["entity_id"]),
		ScheduledAt: cast.ToTime(row["scheduled_at"]),
		Status:      types.ScheduleStatus(str.ToString(row["status"])),
		Attempts:    int(cast.ToInt64(row["attempts"])),
		CreatedAt:   cast.ToTime(row["created_at"]),
	}
	if v := str.ToString(row["last_attempt_at"]); v != "" {
		t := cast.ToTime(v)
		schedule.LastAttemptAt = &t
	}
	if err := unmarshalText(row["config"], &schedule.Config); err != nil {
		return schedule, fmt.Errorf("schedule %s: config: %w", schedule.Id, err)
	}
	return schedule, nil
}

// --- workflow executions ---

// SaveExecution inserts an execution row.
func (a *Adapter) SaveExecution(execution types.WorkflowExecution) error {
	row, err := executionToRow(execution)
	if err != nil {
		return err
	}
	_, err = a.store.Create(types.CollectionExecutions, row)
	return err
}

// UpdateExecution rewrites every column of an existing execution row.
func (a *Adapter) UpdateExecution(execution types.WorkflowExecution) error {
	row, err := executionToRow(execution)
	if err != nil {
		return err
	}
	_, err = a.store.Update(types.CollectionExecutions, execution.Id, row)
	return err
}

// ExecutionsBetween loads executions with StartedAt in [start, end).
// The store only filters by equality, so the range scan is client-side.
func (a *Adapter) ExecutionsBetween(start, end time.Time) ([]types.WorkflowExecution, error) {
	rows, err := a.store.ReadAll(types.CollectionExecutions)
	if err != nil {
		return nil, err
	}
	var executions []types.WorkflowExecution
	for _, row := range rows {
		execution, err := executionFromRow(row)
		if err != nil {
			return nil, err
		}
		if execution.StartedAt.Before(start) || !execution.StartedAt.Before(end) {
			continue
		}
		executions = append(executions, execution)
	}
	return executions, nil
}

// DeleteExecutionsBefore removes execution rows started before the
// cutoff. Returns how many were deleted.
func (a *Adapter) DeleteExecutionsBefore(cutoff time.Time) (int, error) {
	rows, err := a.store.ReadAll(types.CollectionExecutions)
	if err != nil {
		return 0, err
	}
	var deleted int
	for _, row := range rows {
		if cast.ToTime(row["started_at"]).Before(cutoff) {
			if ok, err := a.store.Delete(types.CollectionExecutions, str.ToString(row["id"])); err != nil {
				return deleted, err
			} else if ok {
				deleted++
			}
		}
	}
	return deleted, nil
}

func executionToRow(execution types.WorkflowExecution) (types.Row, error) {
	context, err := marshalText(execution.TriggerContext)
	if err != nil {
		return nil, err
	}
	actions, err := marshalText(execution.ActionsExecuted)
	if err != nil {
		return nil, err
	}
	row := types.Row{
		"id":               execution.Id,
		"rule_id":          execution.RuleId,
		"trigger_context":  context,
		"status":           string(execution.Status),
		"started_at":       encodeTime(execution.StartedAt),
		"error":            execution.Error,
		"actions_executed": actions,
		"created_at":       encodeTime(execution.StartedAt),
	}
	if execution.CompletedAt != nil {
		row["completed_at"] = encodeTime(*execution.CompletedAt)
	} else {
		row["completed_at"] = ""
	}
	return row, nil
}

func executionFromRow(row types.Row) (types.WorkflowExecution, error) {
	execution := types.WorkflowExecution{
		Id:        str.ToString(row["id"]),
		RuleId:    str.ToString(row["rule_id"]),
		Status:    types.ExecutionStatus(str.ToString(row["status"])),
		StartedAt: cast.ToTime(row["started_at"]),
		Error:     str.ToString(row["error"]),
	}
	if v := str.ToString(row["completed_at"]); v != "" {
		t := cast.ToTime(v)
		execution.CompletedAt = &t
	}
	if err := unmarshalText(row["trigger_context"], &execution.TriggerContext); err != nil {
		return execution, fmt.Errorf("execution %s: context: %w", execution.Id, err)
	}
	if err := unmarshalText(row["actions_executed"], &execution.ActionsExecuted); err != nil {
		return execution, fmt.Errorf("execution %s: actions: %w", execution.Id, err)
	}
	return execution, nil
}

// --- notification templates ---

// SaveTemplate inserts a template row.
func (a *Adapter) SaveTemplate(template types.NotificationTemplate) error {
	variables, err := marshalText(template.Variables)
	if err != nil {
		return err
	}
	_, err = a.store.Create(types.CollectionTemplates, types.Row{
		"id":         template.Id,
		"channel":    template.Channel,
		"subject":    template.Subject,
		"body":       template.Body,
		"variables":  variables,
		"active":     template.Active,
		"created_at": encodeTime(time.Now()),
	})
	return err
}

// GetTemplate loads one active template by id.
func (a *Adapter) GetTemplate(id string) (types.NotificationTemplate, error) {
	rows, err := a.store.Query(types.CollectionTemplates, types.Filter{"id": id})
	if err != nil {
		return types.NotificationTemplate{}, err
	}
	if len(rows) == 0 {
		return types.NotificationTemplate{}, types.ErrTemplateNotFound
	}
	row := rows[0]
	template := types.NotificationTemplate{
		Id:      str.ToString(row["id"]),
		Channel: str.ToString(row["channel"]),
		Subject: str.ToString(row["subject"]),
		Body:    str.ToString(row["body"]),
		Active:  cast.ToBool(row["active"]),
	}
	if err := unmarshalText(row["variables"], &template.Variables); err != nil {
		return template, fmt.Errorf("template %s: variables: %w", template.Id, err)
	}
	if !template.Active {
		return template, types.ErrTemplateNotFound
	}
	return template, nil
}

// --- codec helpers ---

func marshalText(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalText(raw interface{}, out interface{}) error {
	text := str.ToString(raw)
	if text == "" || text == "null" {
		return nil
	}
	return json.Unmarshal([]byte(text), out)
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
