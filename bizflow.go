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

// Package bizflow is a workflow automation engine for business
// management applications: declarative rules react to business events
// (task completed, invoice overdue, payment received), reminder
// schedules fire on in-process timers, and periodic sweeps transition
// overdue invoices, book deadline reminders and enforce retention.
//
// Create an engine, register rules and feed it events:
//
//	e, err := bizflow.New(
//		types.WithStore(store),
//		types.WithNotifier(notifier),
//	)
//	if err != nil {
//		// handle
//	}
//	if err = e.Start(); err != nil {
//		// handle
//	}
//	defer e.Stop()
//
//	rule, err := e.CreateRule(types.Rule{
//		Name:    "close project on final task",
//		Trigger: types.Trigger{Type: types.TriggerTaskCompleted},
//		Conditions: []types.Condition{
//			{Field: "remaining_tasks", Operator: types.OperatorEquals, Value: 0},
//		},
//		Actions: []types.Action{
//			{Type: "update-status", Parameters: types.Configuration{
//				"entityType": "project",
//				"newStatus":  "completed",
//			}},
//		},
//	})
//
//	executions, err := e.TriggerEvent(ctx, types.TriggerTaskCompleted,
//		taskId, types.Configuration{"remaining_tasks": 0, "project_id": projectId})
package bizflow

import (
	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/engine"
)

// New creates a workflow engine with default configuration, applying the
// given options.
func New(opts ...types.Option) (*engine.Engine, error) {
	return engine.New(types.NewConfig(opts...))
}
