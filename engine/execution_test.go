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
	"testing"
	"time"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/storage"
	"github.com/bizflow/bizflow/test/assert"
)

func saveExecution(t *testing.T, adapter *storage.Adapter, id, ruleId string, status types.ExecutionStatus, startedAt time.Time, latency time.Duration) {
	t.Helper()
	execution := types.WorkflowExecution{
		Id:              id,
		RuleId:          ruleId,
		Status:          status,
		StartedAt:       startedAt,
		ActionsExecuted: []string{},
	}
	if status == types.ExecutionCompleted || status == types.ExecutionFailed {
		completedAt := startedAt.Add(latency)
		execution.CompletedAt = &completedAt
	}
	assert.Nil(t, adapter.SaveExecution(execution))
}

func TestAnalytics(t *testing.T) {
	e, clock, store := newTestEngine(t)
	adapter := storage.NewAdapter(store)
	now := clock.Now()

	saveExecution(t, adapter, "e1", "r1", types.ExecutionCompleted, now.Add(-3*time.Hour), 20*time.Millisecond)
	saveExecution(t, adapter, "e2", "r1", types.ExecutionCompleted, now.Add(-2*time.Hour), 40*time.Millisecond)
	saveExecution(t, adapter, "e3", "r2", types.ExecutionFailed, now.Add(-time.Hour), 60*time.Millisecond)
	// outside the window
	saveExecution(t, adapter, "e4", "r1", types.ExecutionCompleted, now.Add(-50*time.Hour), time.Millisecond)

	analytics, err := e.Analytics(types.AnalyticsWindow{Start: now.Add(-24 * time.Hour), End: now})
	assert.Nil(t, err)
	assert.Equal(t, int64(3), analytics.Total)
	assert.Equal(t, int64(2), analytics.Successful)
	assert.Equal(t, int64(1), analytics.Failed)
	assert.Equal(t, 66.67, analytics.SuccessRate)
	assert.Equal(t, 40.0, analytics.AvgCompletionMs)

	assert.Equal(t, 2, len(analytics.TopRules))
	assert.Equal(t, "r1", analytics.TopRules[0].RuleId)
	assert.Equal(t, int64(2), analytics.TopRules[0].Count)
	assert.Equal(t, "r2", analytics.TopRules[1].RuleId)
}

func TestAnalyticsEmptyWindow(t *testing.T) {
	e, clock, _ := newTestEngine(t)
	now := clock.Now()
	analytics, err := e.Analytics(types.AnalyticsWindow{Start: now.Add(-time.Hour), End: now})
	assert.Nil(t, err)
	assert.Equal(t, int64(0), analytics.Total)
	assert.Equal(t, 0.0, analytics.SuccessRate)
	assert.Equal(t, 0.0, analytics.AvgCompletionMs)
	assert.Equal(t, 0, len(analytics.TopRules))
}

func TestAnalyticsTopRulesTiesAndLimit(t *testing.T) {
	e, clock, store := newTestEngine(t)
	adapter := storage.NewAdapter(store)
	now := clock.Now()

	// rb and rc tie on count; the rule id breaks the tie
	saveExecution(t, adapter, "x1", "rc", types.ExecutionCompleted, now.Add(-time.Hour), time.Millisecond)
	saveExecution(t, adapter, "x2", "rb", types.ExecutionCompleted, now.Add(-time.Hour), time.Millisecond)
	saveExecution(t, adapter, "x3", "ra", types.ExecutionCompleted, now.Add(-time.Hour), time.Millisecond)
	saveExecution(t, adapter, "x4", "ra", types.ExecutionCompleted, now.Add(-time.Hour), time.Millisecond)

	analytics, err := e.Analytics(types.AnalyticsWindow{Start: now.Add(-2 * time.Hour), End: now})
	assert.Nil(t, err)
	assert.Equal(t, 3, len(analytics.TopRules))
	assert.Equal(t, "ra", analytics.TopRules[0].RuleId)
	assert.Equal(t, "rb", analytics.TopRules[1].RuleId)
	assert.Equal(t, "rc", analytics.TopRules[2].RuleId)

	limited, err := New(types.NewConfig(
		types.WithStore(store),
		types.WithClock(clock),
		types.WithTopRulesLimit(2),
	))
	assert.Nil(t, err)
	analytics, err = limited.Analytics(types.AnalyticsWindow{Start: now.Add(-2 * time.Hour), End: now})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(analytics.TopRules))
}

func TestAnalyticsWindowBoundaries(t *testing.T) {
	e, clock, store := newTestEngine(t)
	adapter := storage.NewAdapter(store)
	now := clock.Now()

	// [start, end): the start is included, the end is not
	saveExecution(t, adapter, "at-start", "r1", types.ExecutionCompleted, now.Add(-time.Hour), time.Millisecond)
	saveExecution(t, adapter, "at-end", "r1", types.ExecutionCompleted, now, time.Millisecond)

	analytics, err := e.Analytics(types.AnalyticsWindow{Start: now.Add(-time.Hour), End: now})
	assert.Nil(t, err)
	assert.Equal(t, int64(1), analytics.Total)
}
