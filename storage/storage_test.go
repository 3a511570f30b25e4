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

package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/test/assert"
)

func TestRuleRoundTrip(t *testing.T) {
	adapter := NewAdapter(NewMemoryStore())
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rule := types.Rule{
		Id:   "r1",
		Name: "late fee",
		Trigger: types.Trigger{
			Type:   types.TriggerInvoiceOverdue,
			Config: types.Configuration{"grace_days": float64(3)},
		},
		Conditions: []types.Condition{
			{Field: "invoice.total", Operator: types.OperatorGreaterThan, Value: float64(100), Join: types.JoinAnd},
			{Field: "invoice.status", Operator: types.OperatorNotEquals, Value: "disputed"},
		},
		Actions: []types.Action{
			{Type: "apply-late-fee", Parameters: types.Configuration{"percent": 1.5}},
		},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	assert.Nil(t, adapter.SaveRule(rule))

	loaded, err := adapter.GetRule("r1")
	assert.Nil(t, err)
	assert.Equal(t, rule, loaded)

	rule.Name = "late fee v2"
	rule.Active = false
	assert.Nil(t, adapter.UpdateRule(rule))

	active, err := adapter.ListActiveRules()
	assert.Nil(t, err)
	assert.Equal(t, 0, len(active))

	all, err := adapter.ListRules()
	assert.Nil(t, err)
	assert.Equal(t, 1, len(all))
	assert.Equal(t, "late fee v2", all[0].Name)

	_, err = adapter.GetRule("missing")
	assert.True(t, errors.Is(err, types.ErrRuleNotFound))
	err = adapter.UpdateRule(types.Rule{Id: "missing"})
	assert.True(t, errors.Is(err, types.ErrRuleNotFound))
}

func TestScheduleRoundTripAndMark(t *testing.T) {
	adapter := NewAdapter(NewMemoryStore())
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	schedule := types.ReminderSchedule{
		Id:          "s1",
		Kind:        types.ReminderInvoicePayment,
		EntityId:    "i1",
		ScheduledAt: now.AddDate(0, 0, 7),
		Config: types.ReminderConfig{
			DaysBefore:     3,
			EscalationDays: []int{7, 14},
			Channel:        "email",
			Recipient:      "client@example.com",
		},
		Status:    types.SchedulePending,
		CreatedAt: now,
	}
	assert.Nil(t, adapter.SaveSchedule(schedule))

	loaded, err := adapter.GetSchedule("s1")
	assert.Nil(t, err)
	assert.Equal(t, schedule, loaded)

	attemptAt := now.AddDate(0, 0, 7)
	assert.Nil(t, adapter.MarkSchedule("s1", types.ScheduleSent, 1, attemptAt))
	loaded, err = adapter.GetSchedule("s1")
	assert.Nil(t, err)
	assert.Equal(t, types.ScheduleSent, loaded.Status)
	assert.Equal(t, 1, loaded.Attempts)
	assert.Equal(t, attemptAt, *loaded.LastAttemptAt)
	// the config snapshot survives the patch
	assert.Equal(t, []int{7, 14}, loaded.Config.EscalationDays)

	_, err = adapter.GetSchedule("missing")
	assert.True(t, errors.Is(err, types.ErrScheduleNotFound))
}

func TestPendingScheduleQueries(t *testing.T) {
	adapter := NewAdapter(NewMemoryStore())
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	save := func(id, entityId string, kind types.ReminderKind, status types.ScheduleStatus) {
		assert.Nil(t, adapter.SaveSchedule(types.ReminderSchedule{
			Id: id, Kind: kind, EntityId: entityId,
			ScheduledAt: now.AddDate(0, 0, 1), Status: status, CreatedAt: now,
		}))
	}
	save("a", "i1", types.ReminderInvoicePayment, types.SchedulePending)
	save("b", "i1", types.ReminderInvoicePayment, types.ScheduleSent)
	save("c", "i1", types.ReminderTaskDue, types.SchedulePending)
	save("d", "i2", types.ReminderInvoicePayment, types.SchedulePending)

	pending, err := adapter.PendingSchedules(types.ReminderInvoicePayment, "i1")
	assert.Nil(t, err)
	assert.Equal(t, 1, len(pending))
	assert.Equal(t, "a", pending[0].Id)

	all, err := adapter.AllPendingSchedules()
	assert.Nil(t, err)
	assert.Equal(t, 3, len(all))

	assert.Nil(t, adapter.CancelSchedule("a"))
	pending, err = adapter.PendingSchedules(types.ReminderInvoicePayment, "i1")
	assert.Nil(t, err)
	assert.Equal(t, 0, len(pending))
}

func TestExecutionRoundTripAndRange(t *testing.T) {
	adapter := NewAdapter(NewMemoryStore())
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	completedAt := now.Add(30 * time.Millisecond)
	execution := types.WorkflowExecution{
		Id:              "e1",
		RuleId:          "r1",
		TriggerContext:  types.Configuration{"remaining_tasks": float64(0)},
		Status:          types.ExecutionCompleted,
		StartedAt:       now,
		CompletedAt:     &completedAt,
		ActionsExecuted: []string{"update-status", "send-notification"},
	}
	assert.Nil(t, adapter.SaveExecution(execution))
	assert.Nil(t, adapter.SaveExecution(types.WorkflowExecution{
		Id: "e2", RuleId: "r1", Status: types.ExecutionFailed,
		StartedAt: now.Add(48 * time.Hour), Error: "boom", ActionsExecuted: []string{},
	}))

	inWindow, err := adapter.ExecutionsBetween(now.Add(-time.Hour), now.Add(time.Hour))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(inWindow))
	assert.Equal(t, execution, inWindow[0])

	execution.Status = types.ExecutionFailed
	execution.Error = "late failure"
	assert.Nil(t, adapter.UpdateExecution(execution))
	inWindow, err = adapter.ExecutionsBetween(now.Add(-time.Hour), now.Add(time.Hour))
	assert.Nil(t, err)
	assert.Equal(t, "late failure", inWindow[0].Error)
}

func TestTemplateLookup(t *testing.T) {
	adapter := NewAdapter(NewMemoryStore())
	assert.Nil(t, adapter.SaveTemplate(types.NotificationTemplate{
		Id:      "tpl-1",
		Channel: "email",
		Subject: "Invoice ${invoice.number} is overdue",
		Body:    "Please pay ${invoice.total}.",
		Active:  true,
	}))
	assert.Nil(t, adapter.SaveTemplate(types.NotificationTemplate{
		Id:     "tpl-2",
		Body:   "retired",
		Active: false,
	}))

	template, err := adapter.GetTemplate("tpl-1")
	assert.Nil(t, err)
	assert.Equal(t, "email", template.Channel)

	// inactive templates resolve as missing
	_, err = adapter.GetTemplate("tpl-2")
	assert.True(t, errors.Is(err, types.ErrTemplateNotFound))
	_, err = adapter.GetTemplate("missing")
	assert.True(t, errors.Is(err, types.ErrTemplateNotFound))
}
