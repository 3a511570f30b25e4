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

	"github.com/bizflow/bizflow/api/types"
)

// dispatcher resolves action types against the component registry and
// runs one action at a time. Every firing gets fresh component instances
// so a rule's parameter decoding never leaks between executions.
type dispatcher struct {
	config   types.Config
	registry *types.SafeComponentSlice
}

func newDispatcher(config types.Config, registry *types.SafeComponentSlice) *dispatcher {
	return &dispatcher{config: config, registry: registry}
}

// Execute runs a single action. An unknown action type or a parameter
// decoding failure is a logged no-op: the action contributes nothing and
// its siblings still run. Only a runtime failure of a resolved action is
// returned, to be recorded on the execution.
func (d *dispatcher) Execute(ctx context.Context, action types.Action, ectx *types.ExecutionContext) error {
	prototype := d.registry.Get(action.Type)
	if prototype == nil {
		d.config.Logger.Printf("engine: unknown action type %q, skipping", action.Type)
		return nil
	}
	node := prototype.New()
	if err := node.Init(d.config, action.Parameters); err != nil {
		d.config.Logger.Printf("engine: action %q init failed: %v, skipping", action.Type, err)
		return nil
	}
	defer node.Destroy()
	output, err := node.Execute(ctx, ectx)
	if err != nil {
		return fmt.Errorf("action %s: %w", action.Type, err)
	}
	ectx.Merge(output)
	return nil
}
