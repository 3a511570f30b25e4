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
	"github.com/bizflow/bizflow/utils/cast"
	"github.com/bizflow/bizflow/utils/maps"
)

func init() {
	Registry.Add(&ApplyLateFeeNode{})
}

// ApplyLateFeeNodeConfiguration defines the applyLateFee action
// parameters.
type ApplyLateFeeNodeConfiguration struct {
	// Percent is the late fee as a percentage of the invoice total,
	// e.g. 1.5 adds 1.5%.
	Percent float64
	// InvoiceId selects the invoice. Supports ${} placeholders; empty
	// falls back to invoice.id / invoice_id from the trigger context,
	// then to the triggering entity id.
	InvoiceId string
}

// ApplyLateFeeNode adds a percentage late fee to an unpaid invoice.
// An invoice already carrying a late fee is left untouched, so repeated
// overdue sweeps never double-apply the fee.
type ApplyLateFeeNode struct {
	Config     ApplyLateFeeNodeConfiguration
	ruleConfig types.Config
}

// Type returns the component type identifier.
func (x *ApplyLateFeeNode) Type() string {
	return "apply-late-fee"
}

// New creates a new instance.
func (x *ApplyLateFeeNode) New() types.ActionNode {
	return &ApplyLateFeeNode{Config: ApplyLateFeeNodeConfiguration{
		Percent: 1.5,
	}}
}

// Init decodes and validates the action parameters.
func (x *ApplyLateFeeNode) Init(ruleConfig types.Config, params types.Configuration) error {
	x.Config.Percent = 1.5
	if err := maps.Map2Struct(params, &x.Config); err != nil {
		return err
	}
	x.ruleConfig = ruleConfig
	if x.Config.Percent <= 0 {
		return errors.New("apply-late-fee: percent must be positive")
	}
	return nil
}

// Execute loads the invoice, skips it when a fee was already applied and
// otherwise increases the total by the configured percentage.
func (x *ApplyLateFeeNode) Execute(ctx context.Context, ectx *types.ExecutionContext) (types.Configuration, error) {
	if x.ruleConfig.Store == nil {
		return nil, errors.New("apply-late-fee: no store configured")
	}
	data := templateData(x.ruleConfig, ectx)
	invoiceId := renderString(x.Config.InvoiceId, data)
	if invoiceId == "" {
		invoiceId = contextString(ectx, "invoice.id", "invoice_id", "invoiceId")
	}
	if invoiceId == "" {
		invoiceId = ectx.EntityId
	}
	if invoiceId == "" {
		return nil, errors.New("apply-late-fee: no invoice id")
	}
	rows, err := x.ruleConfig.Store.Query(types.CollectionInvoices, types.Filter{"id": invoiceId})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("apply-late-fee: invoice %s not found", invoiceId)
	}
	invoice := rows[0]
	if cast.ToBool(invoice["late_fee_applied"]) {
		x.ruleConfig.Logger.Printf("apply-late-fee: invoice %s already has a late fee, skipping", invoiceId)
		return nil, nil
	}
	total := cast.ToFloat64(invoice["total_amount"])
	fee := total * x.Config.Percent / 100
	_, err = x.ruleConfig.Store.Update(types.CollectionInvoices, invoiceId, types.Row{
		"total_amount":     total + fee,
		"late_fee_applied": true,
		"late_fee_amount":  fee,
		"updated_at":       x.ruleConfig.Clock.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return types.Configuration{"late_fee_amount": fee}, nil
}

// Destroy releases resources.
func (x *ApplyLateFeeNode) Destroy() {
}
