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

import (
	"context"
	"sync"
)

// ExecutionContext is the mutable context one rule firing runs in.
// Context starts as a snapshot of the trigger context; action components
// may merge output values into it so later actions in the same firing can
// reference them through ${} placeholders.
type ExecutionContext struct {
	TriggerType TriggerType
	EntityId    string
	Context     Configuration
}

// Merge copies output values into the context. Nil-safe.
func (e *ExecutionContext) Merge(output Configuration) {
	if len(output) == 0 {
		return
	}
	if e.Context == nil {
		e.Context = make(Configuration, len(output))
	}
	for k, v := range output {
		e.Context[k] = v
	}
}

// ActionNode is the contract every action component implements. The
// catalog is closed: components register themselves with the action
// registry at package init, and the dispatcher resolves them by Type.
//
// A component value held by the registry acts as a factory; the
// dispatcher calls New for a fresh instance per firing and Init decodes
// the action parameters into the component's configuration struct.
type ActionNode interface {
	// Type returns the action type identifier, e.g. "send-notification".
	Type() string
	// New creates a new, uninitialized instance.
	New() ActionNode
	// Init decodes the action parameters and validates them.
	Init(config Config, params Configuration) error
	// Execute runs the action against its collaborators. The returned
	// configuration, if any, is merged into the execution context.
	Execute(ctx context.Context, ectx *ExecutionContext) (Configuration, error)
	// Destroy releases any resources held by the instance.
	Destroy()
}

// SafeComponentSlice is a concurrency-safe list of action components.
type SafeComponentSlice struct {
	components []ActionNode
	sync.Mutex
}

// Add appends components to the slice.
func (p *SafeComponentSlice) Add(nodes ...ActionNode) {
	p.Lock()
	defer p.Unlock()
	p.components = append(p.components, nodes...)
}

// Components returns the registered components.
func (p *SafeComponentSlice) Components() []ActionNode {
	p.Lock()
	defer p.Unlock()
	return p.components
}

// Get returns the component registered for the given action type, or nil.
func (p *SafeComponentSlice) Get(actionType string) ActionNode {
	p.Lock()
	defer p.Unlock()
	for _, component := range p.components {
		if component.Type() == actionType {
			return component
		}
	}
	return nil
}
