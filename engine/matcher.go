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
	"sort"
	"sync"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/storage"
)

// matcher keeps an in-memory cache of the active rules so event dispatch
// never touches the store on the hot path. The cache is reloaded on every
// rule mutation.
type matcher struct {
	adapter *storage.Adapter
	mu      sync.RWMutex
	rules   []types.Rule
}

func newMatcher(adapter *storage.Adapter) *matcher {
	return &matcher{adapter: adapter}
}

// Reload replaces the cache with the store's active rules, ordered by
// creation time with the rule id breaking ties so dispatch order is
// deterministic across stores.
func (m *matcher) Reload() error {
	rules, err := m.adapter.ListActiveRules()
	if err != nil {
		return err
	}
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].Id < rules[j].Id
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	m.mu.Lock()
	m.rules = rules
	m.mu.Unlock()
	return nil
}

// Match returns the active rules subscribed to the trigger type, in
// dispatch order.
func (m *matcher) Match(triggerType types.TriggerType) []types.Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []types.Rule
	for _, rule := range m.rules {
		if rule.Trigger.Type == triggerType {
			matched = append(matched, rule)
		}
	}
	return matched
}
