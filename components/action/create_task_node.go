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
	"time"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/maps"
)

func init() {
	Registry.Add(&CreateTaskNode{})
}

// CreateTaskNodeConfiguration defines the createTask action parameters.
type CreateTaskNodeConfiguration struct {
	// Title of the new task. Supports ${} placeholders.
	Title string
	// Description of the new task. Supports ${} placeholders.
	Description string
	// ProjectId the task belongs to. When empty, falls back to
	// project.id / project_id / projectId from the trigger context.
	ProjectId string
	// Assignee user id. Supports ${} placeholders.
	Assignee string
	// Status of the new task, defaulting to "pending".
	Status string
	// DueInDays sets the task due date relative to now. 0 leaves the
	// task without a due date.
	DueInDays int
}

// CreateTaskNode creates a task row in the business store.
type CreateTaskNode struct {
	Config     CreateTaskNodeConfiguration
	ruleConfig types.Config
}

// Type returns the component type identifier.
func (x *CreateTaskNode) Type() string {
	return "create-task"
}

// New creates a new instance.
func (x *CreateTaskNode) New() types.ActionNode {
	return &CreateTaskNode{Config: CreateTaskNodeConfiguration{
		Status: "pending",
	}}
}

// Init decodes and validates the action parameters.
func (x *CreateTaskNode) Init(ruleConfig types.Config, params types.Configuration) error {
	x.Config.Status = "pending"
	if err := maps.Map2Struct(params, &x.Config); err != nil {
		return err
	}
	x.ruleConfig = ruleConfig
	if x.Config.Title == "" {
		return errors.New("create-task: title is required")
	}
	if x.Config.Status == "" {
		x.Config.Status = "pending"
	}
	return nil
}

// Execute creates the task row. The project id falls back to the trigger
// context when not configured.
func (x *CreateTaskNode) Execute(ctx context.Context, ectx *types.ExecutionContext) (types.Configuration, error) {
	if x.ruleConfig.Store == nil {
		return nil, errors.New("create-task: no store configured")
	}
	data := templateData(x.ruleConfig, ectx)
	projectId := renderString(x.Config.ProjectId, data)
	if projectId == "" {
		projectId = contextString(ectx, "project.id", "project_id", "projectId")
	}
	now := x.ruleConfig.Clock.Now()
	row := types.Row{
		"title":       renderString(x.Config.Title, data),
		"description": renderString(x.Config.Description, data),
		"project_id":  projectId,
		"assignee":    renderString(x.Config.Assignee, data),
		"status":      x.Config.Status,
		"completed":   false,
		"created_at":  now.UTC().Format(time.RFC3339Nano),
	}
	if x.Config.DueInDays > 0 {
		row["due_date"] = now.AddDate(0, 0, x.Config.DueInDays).UTC().Format(time.RFC3339Nano)
	}
	id, err := x.ruleConfig.Store.Create(types.CollectionTasks, row)
	if err != nil {
		return nil, err
	}
	return types.Configuration{"task_id": id}, nil
}

// Destroy releases resources.
func (x *CreateTaskNode) Destroy() {
}
