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

// Collections owned by the engine. Business collections (projects,
// tasks, invoices, clients) belong to the surrounding application and are
// borrowed as read-mostly context.
const (
	CollectionRules      = "workflow_rules"
	CollectionSchedules  = "reminder_schedules"
	CollectionExecutions = "workflow_executions"
	CollectionTemplates  = "notification_templates"

	CollectionProjects = "projects"
	CollectionTasks    = "tasks"
	CollectionInvoices = "invoices"
	CollectionClients  = "clients"
)

// Row is one flat record of the tabular store. Nested engine structures
// (conditions, actions, trigger config) are serialized as text in single
// columns; the storage adapter owns that translation.
type Row map[string]interface{}

// Filter matches rows whose named columns equal the given values.
// The store offers nothing richer; range scans are done client-side.
type Filter map[string]interface{}

// Store is the tabular persistence collaborator. Every call may fail
// transiently; callers wrap failures so one degraded firing or tick never
// crashes the process.
type Store interface {
	// ReadAll returns every row of a collection in stable store order.
	ReadAll(collection string) ([]Row, error)
	// Query returns the rows matching the filter, in stable store order.
	Query(collection string, filter Filter) ([]Row, error)
	// Create inserts a row and returns its id. A row may carry its own
	// "id" column; otherwise the store assigns one.
	Create(collection string, row Row) (string, error)
	// Update applies a partial patch to the row with the given id and
	// reports whether a row was matched.
	Update(collection string, id string, patch Row) (bool, error)
	// Delete removes the row with the given id and reports whether a row
	// was matched.
	Delete(collection string, id string) (bool, error)
}
