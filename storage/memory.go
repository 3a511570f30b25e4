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
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/str"
)

// MemoryStore is an in-memory types.Store keeping insertion order per
// collection. It backs tests and single-process deployments that do not
// need durability.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	rows  []types.Row
	index map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{index: make(map[string]int)}
		s.collections[name] = c
	}
	return c
}

// ReadAll returns every row of a collection in insertion order.
func (s *MemoryStore) ReadAll(collection string) ([]types.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	out := make([]types.Row, 0, len(c.rows))
	for _, row := range c.rows {
		out = append(out, cloneRow(row))
	}
	return out, nil
}

// Query returns rows whose columns loosely equal the filter values, in
// insertion order. Values are compared through their string rendering so
// numeric types from different sources still match.
func (s *MemoryStore) Query(collection string, filter types.Filter) ([]types.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	var out []types.Row
	for _, row := range c.rows {
		if rowMatches(row, filter) {
			out = append(out, cloneRow(row))
		}
	}
	return out, nil
}

// Create inserts a row, assigning an id when the row carries none.
func (s *MemoryStore) Create(collection string, row types.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(collection)
	stored := cloneRow(row)
	id := str.ToString(stored["id"])
	if id == "" {
		uid, err := uuid.NewV4()
		if err != nil {
			return "", err
		}
		id = uid.String()
		stored["id"] = id
	}
	c.index[id] = len(c.rows)
	c.rows = append(c.rows, stored)
	return id, nil
}

// Update merges the patch into the row with the given id.
func (s *MemoryStore) Update(collection string, id string, patch types.Row) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return false, nil
	}
	i, ok := c.index[id]
	if !ok {
		return false, nil
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		c.rows[i][k] = v
	}
	return true, nil
}

// Delete removes the row with the given id.
func (s *MemoryStore) Delete(collection string, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return false, nil
	}
	i, ok := c.index[id]
	if !ok {
		return false, nil
	}
	c.rows = append(c.rows[:i], c.rows[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.rows); j++ {
		c.index[str.ToString(c.rows[j]["id"])] = j
	}
	return true, nil
}

func rowMatches(row types.Row, filter types.Filter) bool {
	for k, want := range filter {
		got, ok := row[k]
		if !ok {
			return false
		}
		if str.ToString(got) != str.ToString(want) {
			return false
		}
	}
	return true
}

func cloneRow(row types.Row) types.Row {
	out := make(types.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
