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

package types

import "time"

// Config defines the configuration for the workflow engine. Engines are
// constructed explicitly from a Config and passed by handle; there is no
// process-wide engine instance.
type Config struct {
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Store is the tabular persistence collaborator. Defaults to the
	// in-memory store when nil.
	Store Store
	// Notifier is the channel-transport collaborator. Defaults to a
	// logging no-op transport when nil.
	Notifier Notifier
	// Clock supplies wall time and timers, defaulting to `SystemClock()`.
	// Tests inject a simulated clock.
	Clock Clock
	// Registry is the action component registry. When nil the engine uses
	// the built-in catalog from components/action.
	Registry *SafeComponentSlice
	// Properties are global properties in key-value format. Action
	// parameters and templates can reference them with ${global.key}.
	Properties map[string]string
	// OnExecutionEnd is an optional callback invoked with every terminal
	// workflow execution, e.g. to feed the websocket execution stream.
	OnExecutionEnd func(execution WorkflowExecution)

	// OverdueSweepSpec is the cron spec of the overdue-invoice sweep.
	OverdueSweepSpec string
	// DeadlineSweepSpec is the cron spec of the approaching-deadline sweep.
	DeadlineSweepSpec string
	// CleanupSweepSpec is the cron spec of the retention cleanup sweep.
	CleanupSweepSpec string
	// DeadlineLookahead is the window the deadline sweep scans ahead for
	// entities that still lack a pending reminder schedule.
	DeadlineLookahead time.Duration
	// RetentionDays is how long terminal executions and schedules are
	// kept before the cleanup sweep deletes them.
	RetentionDays int
	// TopRulesLimit caps the most-fired-rules ranking in analytics.
	TopRulesLimit int
	// DefaultReminder is the reminder config the deadline sweep uses when
	// scheduling, snapshotting it onto each created schedule row.
	DefaultReminder ReminderConfig
}

// NewConfig creates a new Config with default values and applies the
// provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Logger:            DefaultLogger(),
		Clock:             SystemClock(),
		OverdueSweepSpec:  "@hourly",
		DeadlineSweepSpec: "0 */6 * * *",
		CleanupSweepSpec:  "@daily",
		DeadlineLookahead: 72 * time.Hour,
		RetentionDays:     30,
		TopRulesLimit:     5,
		DefaultReminder:   ReminderConfig{DaysBefore: 3},
	}
	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
