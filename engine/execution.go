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
	"fmt"
	"math"
	"runtime/debug"
	"sort"

	"github.com/bizflow/bizflow/api/types"
)

// fire runs every action of a matched rule and writes the audit record.
// The action type is appended to ActionsExecuted before the action runs,
// so the audit trail shows what was attempted even when the action (or
// the process) dies mid-way. An action error marks the execution failed
// but never stops the remaining actions.
func (e *Engine) fire(ctx context.Context, rule types.Rule, ectx *types.ExecutionContext) types.WorkflowExecution {
	execution := types.WorkflowExecution{
		Id:              e.newId(),
		RuleId:          rule.Id,
		TriggerContext:  cloneConfiguration(ectx.Context),
		Status:          types.ExecutionRunning,
		StartedAt:       e.config.Clock.Now(),
		ActionsExecuted: []string{},
	}
	if err := e.adapter.SaveExecution(execution); err != nil {
		e.config.Logger.Printf("engine: save execution %s: %v", execution.Id, err)
	}

	var firstErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				firstErr = fmt.Errorf("panic: %v", r)
				e.config.Logger.Printf("engine: rule %s panicked: %v\n%s", rule.Id, r, debug.Stack())
			}
		}()
		for _, action := range rule.Actions {
			execution.ActionsExecuted = append(execution.ActionsExecuted, action.Type)
			if err := e.dispatcher.Execute(ctx, action, ectx); err != nil {
				e.config.Logger.Printf("engine: rule %s: %v", rule.Id, err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}()

	completedAt := e.config.Clock.Now()
	execution.CompletedAt = &completedAt
	if firstErr != nil {
		execution.Status = types.ExecutionFailed
		execution.Error = firstErr.Error()
	} else {
		execution.Status = types.ExecutionCompleted
	}
	if err := e.adapter.UpdateExecution(execution); err != nil {
		e.config.Logger.Printf("engine: update execution %s: %v", execution.Id, err)
	}
	if e.config.OnExecutionEnd != nil {
		e.config.OnExecutionEnd(execution)
	}
	return execution
}

// Analytics aggregates the executions started inside the window: totals,
// success rate, the most-fired rules and the mean completion latency.
func (e *Engine) Analytics(window types.AnalyticsWindow) (types.Analytics, error) {
	executions, err := e.adapter.ExecutionsBetween(window.Start, window.End)
	if err != nil {
		return types.Analytics{}, err
	}
	analytics := types.Analytics{TopRules: []types.RuleFireCount{}}
	counts := make(map[string]int64)
	var latencySum float64
	var latencyCount int64
	for _, execution := range executions {
		analytics.Total++
		counts[execution.RuleId]++
		switch execution.Status {
		case types.ExecutionCompleted:
			analytics.Successful++
		case types.ExecutionFailed:
			analytics.Failed++
		}
		if execution.CompletedAt != nil {
			latencySum += float64(execution.CompletedAt.Sub(execution.StartedAt).Microseconds()) / 1000
			latencyCount++
		}
	}
	if analytics.Total > 0 {
		analytics.SuccessRate = round2(float64(analytics.Successful) / float64(analytics.Total) * 100)
	}
	if latencyCount > 0 {
		analytics.AvgCompletionMs = round2(latencySum / float64(latencyCount))
	}

	names := e.ruleNames()
	for ruleId, count := range counts {
		analytics.TopRules = append(analytics.TopRules, types.RuleFireCount{
			RuleId: ruleId,
			Name:   names[ruleId],
			Count:  count,
		})
	}
	// highest count first, rule id breaking ties so the ranking is stable
	sort.SliceStable(analytics.TopRules, func(i, j int) bool {
		if analytics.TopRules[i].Count == analytics.TopRules[j].Count {
			return analytics.TopRules[i].RuleId < analytics.TopRules[j].RuleId
		}
		return analytics.TopRules[i].Count > analytics.TopRules[j].Count
	})
	if limit := e.config.TopRulesLimit; limit > 0 && len(analytics.TopRules) > limit {
		analytics.TopRules = analytics.TopRules[:limit]
	}
	return analytics, nil
}

func (e *Engine) ruleNames() map[string]string {
	names := make(map[string]string)
	rules, err := e.adapter.ListRules()
	if err != nil {
		e.config.Logger.Printf("engine: list rules: %v", err)
		return names
	}
	for _, rule := range rules {
		names[rule.Id] = rule.Name
	}
	return names
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func cloneConfiguration(in types.Configuration) types.Configuration {
	if in == nil {
		return nil
	}
	out := make(types.Configuration, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
