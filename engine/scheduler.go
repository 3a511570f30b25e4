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
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/storage"
)

// scheduler persists reminder schedules and arms one in-process timer per
// pending row. Invariant: a live timer exists exactly for the pending
// rows whose scheduled_at is in the future; cancelling or firing a row
// removes its timer, and armed rows are re-derived from the store on
// restart.
type scheduler struct {
	config  types.Config
	adapter *storage.Adapter
	// deliver fires the reminder: synthesize the trigger event and send
	// the configured notification. A delivery error marks the row failed.
	deliver func(schedule types.ReminderSchedule) error

	mu     sync.Mutex
	timers map[string]types.Timer
}

func newScheduler(config types.Config, adapter *storage.Adapter, deliver func(types.ReminderSchedule) error) *scheduler {
	return &scheduler{
		config:  config,
		adapter: adapter,
		deliver: deliver,
		timers:  make(map[string]types.Timer),
	}
}

// Schedule derives the reminder dates from the target date per the
// reminder config, persists one pending row per date still in the future
// and arms a timer for each. Dates already in the past are discarded, not
// stored. The config snapshot is stored on every row it produced.
func (s *scheduler) Schedule(kind types.ReminderKind, entityId string, target time.Time, config types.ReminderConfig) ([]types.ReminderSchedule, error) {
	now := s.config.Clock.Now()
	var schedules []types.ReminderSchedule
	for _, at := range reminderDates(target, config) {
		if !at.After(now) {
			continue
		}
		schedule := types.ReminderSchedule{
			Id:          newUUID(),
			Kind:        kind,
			EntityId:    entityId,
			ScheduledAt: at,
			Config:      config,
			Status:      types.SchedulePending,
			CreatedAt:   now,
		}
		if err := s.adapter.SaveSchedule(schedule); err != nil {
			return schedules, err
		}
		s.arm(schedule)
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

// ScheduleAt persists a single pending reminder at an explicit time,
// bypassing date derivation. The time must be in the future.
func (s *scheduler) ScheduleAt(kind types.ReminderKind, entityId string, at time.Time, config types.ReminderConfig) (types.ReminderSchedule, error) {
	now := s.config.Clock.Now()
	if !at.After(now) {
		return types.ReminderSchedule{}, fmt.Errorf("scheduler: %s is not in the future", at)
	}
	schedule := types.ReminderSchedule{
		Id:          newUUID(),
		Kind:        kind,
		EntityId:    entityId,
		ScheduledAt: at,
		Config:      config,
		Status:      types.SchedulePending,
		CreatedAt:   now,
	}
	if err := s.adapter.SaveSchedule(schedule); err != nil {
		return types.ReminderSchedule{}, err
	}
	s.arm(schedule)
	return schedule, nil
}

// reminderDates expands a reminder config into concrete dates around the
// target: DaysBefore ahead of it, DaysAfter past it and one date per
// escalation offset.
func reminderDates(target time.Time, config types.ReminderConfig) []time.Time {
	var dates []time.Time
	if config.DaysBefore > 0 {
		dates = append(dates, target.AddDate(0, 0, -config.DaysBefore))
	}
	if config.DaysAfter > 0 {
		dates = append(dates, target.AddDate(0, 0, config.DaysAfter))
	}
	for _, days := range config.EscalationDays {
		if days > 0 {
			dates = append(dates, target.AddDate(0, 0, days))
		}
	}
	return dates
}

// CancelPending stops and cancels every pending schedule of the
// (kind, entity) pair, returning how many were cancelled. Sent and failed
// rows are history and stay untouched.
func (s *scheduler) CancelPending(kind types.ReminderKind, entityId string) (int, error) {
	schedules, err := s.adapter.PendingSchedules(kind, entityId)
	if err != nil {
		return 0, err
	}
	var cancelled int
	for _, schedule := range schedules {
		s.disarm(schedule.Id)
		if err := s.adapter.CancelSchedule(schedule.Id); err != nil {
			return cancelled, err
		}
		cancelled++
	}
	return cancelled, nil
}

// HasPending reports whether the (kind, entity) pair has at least one
// pending schedule. The deadline sweep uses it for idempotency.
func (s *scheduler) HasPending(kind types.ReminderKind, entityId string) (bool, error) {
	schedules, err := s.adapter.PendingSchedules(kind, entityId)
	if err != nil {
		return false, err
	}
	return len(schedules) > 0, nil
}

// Rearm re-creates timers for the pending rows whose scheduled_at is
// still in the future, after a restart dropped the in-process timers.
// Past-due pending rows are deliberately not fired here: firing stale
// reminders on boot would surprise recipients, and the periodic sweeps
// re-evaluate the underlying entities anyway. Returns how many timers
// were armed.
func (s *scheduler) Rearm() (int, error) {
	schedules, err := s.adapter.AllPendingSchedules()
	if err != nil {
		return 0, err
	}
	now := s.config.Clock.Now()
	var armed int
	for _, schedule := range schedules {
		if !schedule.ScheduledAt.After(now) {
			continue
		}
		s.arm(schedule)
		armed++
	}
	return armed, nil
}

// Stop stops every live timer. Pending rows stay pending; a later Rearm
// picks them up again.
func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// PendingTimerCount returns the number of live timers.
func (s *scheduler) PendingTimerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *scheduler) arm(schedule types.ReminderSchedule) {
	delay := schedule.ScheduledAt.Sub(s.config.Clock.Now())
	if delay < 0 {
		delay = 0
	}
	id := schedule.Id
	s.mu.Lock()
	if old, ok := s.timers[id]; ok {
		old.Stop()
	}
	s.timers[id] = s.config.Clock.AfterFunc(delay, func() {
		s.fire(id)
	})
	s.mu.Unlock()
}

func (s *scheduler) disarm(id string) {
	s.mu.Lock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
}

// fire delivers one reminder. Reminders are single-attempt: the row moves
// to sent or failed and is never retried. A row cancelled between arming
// and firing is skipped.
func (s *scheduler) fire(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()

	schedule, err := s.adapter.GetSchedule(id)
	if err != nil {
		s.config.Logger.Printf("scheduler: load schedule %s: %v", id, err)
		return
	}
	if schedule.Status != types.SchedulePending {
		return
	}
	now := s.config.Clock.Now()
	status := types.ScheduleSent
	if err := s.safeDeliver(schedule); err != nil {
		s.config.Logger.Printf("scheduler: deliver schedule %s: %v", id, err)
		status = types.ScheduleFailed
	}
	if err := s.adapter.MarkSchedule(id, status, schedule.Attempts+1, now); err != nil {
		s.config.Logger.Printf("scheduler: mark schedule %s: %v", id, err)
	}
}

func (s *scheduler) safeDeliver(schedule types.ReminderSchedule) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.config.Logger.Printf("scheduler: schedule %s panicked: %v\n%s", schedule.Id, r, debug.Stack())
		}
	}()
	return s.deliver(schedule)
}

func newUUID() string {
	return uuid.Must(uuid.NewV4()).String()
}
