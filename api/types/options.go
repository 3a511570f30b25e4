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

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithStore is an option that sets the persistence collaborator.
func WithStore(store Store) Option {
	return func(c *Config) error {
		c.Store = store
		return nil
	}
}

// WithNotifier is an option that sets the channel-transport collaborator.
func WithNotifier(notifier Notifier) Option {
	return func(c *Config) error {
		c.Notifier = notifier
		return nil
	}
}

// WithClock is an option that sets the clock, typically a simulated clock
// in tests.
func WithClock(clock Clock) Option {
	return func(c *Config) error {
		c.Clock = clock
		return nil
	}
}

// WithRegistry is an option that sets the action component registry.
func WithRegistry(registry *SafeComponentSlice) Option {
	return func(c *Config) error {
		c.Registry = registry
		return nil
	}
}

// WithProperties is an option that sets the global properties.
func WithProperties(properties map[string]string) Option {
	return func(c *Config) error {
		c.Properties = properties
		return nil
	}
}

// WithOnExecutionEnd is an option that sets the terminal-execution
// callback.
func WithOnExecutionEnd(f func(execution WorkflowExecution)) Option {
	return func(c *Config) error {
		c.OnExecutionEnd = f
		return nil
	}
}

// WithSweepSpecs is an option that overrides the sweep cadences.
func WithSweepSpecs(overdue, deadline, cleanup string) Option {
	return func(c *Config) error {
		if overdue != "" {
			c.OverdueSweepSpec = overdue
		}
		if deadline != "" {
			c.DeadlineSweepSpec = deadline
		}
		if cleanup != "" {
			c.CleanupSweepSpec = cleanup
		}
		return nil
	}
}

// WithDeadlineLookahead is an option that sets the deadline sweep window.
func WithDeadlineLookahead(d time.Duration) Option {
	return func(c *Config) error {
		c.DeadlineLookahead = d
		return nil
	}
}

// WithRetentionDays is an option that sets the cleanup retention.
func WithRetentionDays(days int) Option {
	return func(c *Config) error {
		c.RetentionDays = days
		return nil
	}
}

// WithTopRulesLimit is an option that sets the analytics ranking size.
func WithTopRulesLimit(n int) Option {
	return func(c *Config) error {
		c.TopRulesLimit = n
		return nil
	}
}

// WithDefaultReminder is an option that sets the sweep reminder config.
func WithDefaultReminder(cfg ReminderConfig) Option {
	return func(c *Config) error {
		c.DefaultReminder = cfg
		return nil
	}
}
