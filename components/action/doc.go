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

// Package action provides the closed catalog of action components the
// workflow engine can execute when a rule matches:
//
// - SendNotificationNode: renders a template and hands it to the channel transport
// - CreateTaskNode: creates a task row, project id falling back to the trigger context
// - UpdateStatusNode: patches the status column of a business entity
// - GenerateInvoiceNode: creates a draft invoice row for a client
// - ApplyLateFeeNode: adds a percentage late fee to an unpaid invoice, once
// - CallWebhookNode: posts the context to an external URL, best effort
//
// Each component registers itself with the package Registry at init.
// String parameters may reference the trigger context with ${}
// placeholders; they are resolved before the collaborator call.
// The catalog is closed: an action type without a registered component is
// a configuration error and executes as a logged no-op.
package action

import "github.com/bizflow/bizflow/api/types"

// Registry holds the built-in action components.
var Registry = new(types.SafeComponentSlice)
