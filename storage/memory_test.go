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
	"testing"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/test/assert"
)

func TestMemoryStoreCrud(t *testing.T) {
	store := NewMemoryStore()

	id, err := store.Create("tasks", types.Row{"title": "first"})
	assert.Nil(t, err)
	assert.NotEqual(t, "", id, "an id is assigned")

	_, err = store.Create("tasks", types.Row{"id": "t2", "title": "second", "status": "pending"})
	assert.Nil(t, err)

	rows, err := store.ReadAll("tasks")
	assert.Nil(t, err)
	assert.Equal(t, 2, len(rows))
	assert.Equal(t, "first", rows[0]["title"], "insertion order is kept")

	ok, err := store.Update("tasks", "t2", types.Row{"status": "done", "id": "hijack"})
	assert.Nil(t, err)
	assert.True(t, ok)
	rows, _ = store.Query("tasks", types.Filter{"id": "t2"})
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, "done", rows[0]["status"])
	// the id column is immutable
	assert.Equal(t, "t2", rows[0]["id"])

	ok, err = store.Update("tasks", "missing", types.Row{"status": "x"})
	assert.Nil(t, err)
	assert.False(t, ok)

	ok, err = store.Delete("tasks", id)
	assert.Nil(t, err)
	assert.True(t, ok)
	rows, _ = store.ReadAll("tasks")
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, "t2", rows[0]["id"])

	// delete reindexes: the surviving row is still addressable
	ok, err = store.Update("tasks", "t2", types.Row{"status": "archived"})
	assert.Nil(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreLooseMatching(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Create("invoices", types.Row{"id": "i1", "total": 100, "active": true})
	assert.Nil(t, err)

	// numeric and boolean filters match across representations
	rows, err := store.Query("invoices", types.Filter{"total": "100"})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(rows))
	rows, err = store.Query("invoices", types.Filter{"active": "true"})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(rows))
	rows, err = store.Query("invoices", types.Filter{"total": 200})
	assert.Nil(t, err)
	assert.Equal(t, 0, len(rows))
}

func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Create("clients", types.Row{"id": "c1", "name": "Acme"})
	assert.Nil(t, err)

	rows, _ := store.ReadAll("clients")
	rows[0]["name"] = "mutated"
	rows, _ = store.ReadAll("clients")
	assert.Equal(t, "Acme", rows[0]["name"], "returned rows are copies")

	rows, _ = store.ReadAll("unknown")
	assert.Equal(t, 0, len(rows))
}
