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

package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/maps"
)

func init() {
	Registry.Add(&UpdateStatusNode{})
}

// entityCollections maps the entity types accepted by updateStatus to
// their store collections.
var entityCollections = map[string]string{
	"project": types.CollectionProjects,
	"task":    types.CollectionTasks,
	"invoice": types.CollectionInvoices,
	"client":  types.CollectionClients,
}

// UpdateStatusNodeConfiguration defines the updateStatus action
// parameters.
type UpdateStatusNodeConfiguration struct {
	// EntityType is one of project, task, invoice, client.
	EntityType string
	// EntityId selects the row to patch. Supports ${} placeholders;
	// empty falls back to the triggering entity id.
	EntityId string
	// NewStatus is the status value to write. Supports ${} placeholders.
	NewStatus string
}

// UpdateStatusNode patches the status column of a business entity row.
type UpdateStatusNode struct {
	Config     UpdateStatusNodeConfiguration
	ruleConfig types.Config
	collection string
}

// Type returns the component type identifier.
func (x *UpdateStatusNode) Type() string {
	return "update-status"
}

// New creates a new instance.
func (x *UpdateStatusNode) New() types.ActionNode {
	return &UpdateStatusNode{}
}

// Init decodes and validates the action parameters.
func (x *UpdateStatusNode) Init(ruleConfig types.Config, params types.Configuration) error {
	if err := maps.Map2Struct(params, &x.Config); err != nil {
		return err
	}
	x.ruleConfig = ruleConfig
	collection, ok := entityCollections[x.Config.EntityType]
	if !ok {
		return fmt.Errorf("update-status: unknown entity type %q", x.Config.EntityType)
	}
	x.collection = collection
	if x.Config.NewStatus == "" {
		return errors.New("update-status: newStatus is required")
	}
	return nil
}

// Execute patches the entity's status column.
func (x *UpdateStatusNode) Execute(ctx context.Context, ectx *types.ExecutionContext) (types.Configuration, error) {
	if x.ruleConfig.Store == nil {
		return nil, errors.New("update-status: no store configured")
	}
	data := templateData(x.ruleConfig, ectx)
	entityId := renderString(x.Config.EntityId, data)
	if entityId == "" {
		entityId = ectx.EntityId
	}
	if entityId == "" {
		return nil, errors.New("update-status: no entity id")
	}
	ok, err := x.ruleConfig.Store.Update(x.collection, entityId, types.Row{
		"status":     renderString(x.Config.NewStatus, data),
		"updated_at": x.ruleConfig.Clock.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("update-status: %s %s not found", x.Config.EntityType, entityId)
	}
	return nil, nil
}

// Destroy releases resources.
func (x *UpdateStatusNode) Destroy() {
}
