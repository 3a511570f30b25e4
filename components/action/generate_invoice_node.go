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

	"github.com/gofrs/uuid/v5"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/cast"
	"github.com/bizflow/bizflow/utils/maps"
)

func init() {
	Registry.Add(&GenerateInvoiceNode{})
}

// GenerateInvoiceNodeConfiguration defines the generateInvoice action
// parameters.
type GenerateInvoiceNodeConfiguration struct {
	// ClientId the invoice is billed to. Supports ${} placeholders;
	// empty falls back to client.id / client_id from the trigger context.
	ClientId string
	// ProjectId the invoice belongs to. Supports ${} placeholders; empty
	// falls back to project.id / project_id from the trigger context.
	ProjectId string
	// Amount is the invoice total. Supports ${} placeholders, e.g.
	// ${project.budget}.
	Amount string
	// DueInDays sets the due date relative to now, defaulting to 30.
	DueInDays int
	// Notes is free text carried on the invoice. Supports ${}.
	Notes string
}

// GenerateInvoiceNode creates a draft invoice row for a client.
type GenerateInvoiceNode struct {
	Config     GenerateInvoiceNodeConfiguration
	ruleConfig types.Config
}

// Type returns the component type identifier.
func (x *GenerateInvoiceNode) Type() string {
	return "generate-invoice"
}

// New creates a new instance.
func (x *GenerateInvoiceNode) New() types.ActionNode {
	return &GenerateInvoiceNode{Config: GenerateInvoiceNodeConfiguration{
		DueInDays: 30,
	}}
}

// Init decodes and validates the action parameters.
func (x *GenerateInvoiceNode) Init(ruleConfig types.Config, params types.Configuration) error {
	x.Config.DueInDays = 30
	if err := maps.Map2Struct(params, &x.Config); err != nil {
		return err
	}
	x.ruleConfig = ruleConfig
	if x.Config.Amount == "" {
		return errors.New("generate-invoice: amount is required")
	}
	if x.Config.DueInDays <= 0 {
		x.Config.DueInDays = 30
	}
	return nil
}

// Execute creates the invoice row and merges its id and number into the
// execution context for later actions.
func (x *GenerateInvoiceNode) Execute(ctx context.Context, ectx *types.ExecutionContext) (types.Configuration, error) {
	if x.ruleConfig.Store == nil {
		return nil, errors.New("generate-invoice: no store configured")
	}
	data := templateData(x.ruleConfig, ectx)
	clientId := renderString(x.Config.ClientId, data)
	if clientId == "" {
		clientId = contextString(ectx, "client.id", "client_id", "clientId")
	}
	projectId := renderString(x.Config.ProjectId, data)
	if projectId == "" {
		projectId = contextString(ectx, "project.id", "project_id", "projectId")
	}
	amountText := renderString(x.Config.Amount, data)
	amount, err := cast.ToFloat64E(amountText)
	if err != nil {
		return nil, fmt.Errorf("generate-invoice: amount %q is not numeric", amountText)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	number := "INV-" + uid.String()[:8]
	now := x.ruleConfig.Clock.Now()
	id, err := x.ruleConfig.Store.Create(types.CollectionInvoices, types.Row{
		"number":           number,
		"client_id":        clientId,
		"project_id":       projectId,
		"total_amount":     amount,
		"status":           "draft",
		"late_fee_applied": false,
		"notes":            renderString(x.Config.Notes, data),
		"issued_at":        now.UTC().Format(time.RFC3339Nano),
		"due_date":         now.AddDate(0, 0, x.Config.DueInDays).UTC().Format(time.RFC3339Nano),
		"created_at":       now.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return types.Configuration{"invoice_id": id, "invoice_number": number}, nil
}

// Destroy releases resources.
func (x *GenerateInvoiceNode) Destroy() {
}
