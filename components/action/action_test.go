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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/storage"
	"github.com/bizflow/bizflow/test"
	"github.com/bizflow/bizflow/test/assert"
	"github.com/bizflow/bizflow/utils/cast"
)

type capturingNotifier struct {
	sent []types.Notification
}

func (n *capturingNotifier) Send(ctx context.Context, notification types.Notification) error {
	n.sent = append(n.sent, notification)
	return nil
}

func newActionConfig(t *testing.T) (types.Config, types.Store, *capturingNotifier) {
	t.Helper()
	store := storage.NewMemoryStore()
	notifier := &capturingNotifier{}
	config := types.NewConfig(
		types.WithStore(store),
		types.WithNotifier(notifier),
		types.WithClock(test.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))),
	)
	return config, store, notifier
}

func initNode(t *testing.T, actionType string, config types.Config, params types.Configuration) types.ActionNode {
	t.Helper()
	prototype := Registry.Get(actionType)
	assert.NotNil(t, prototype, actionType)
	node := prototype.New()
	assert.Nil(t, node.Init(config, params))
	return node
}

func TestRegistryCatalog(t *testing.T) {
	for _, actionType := range []string{
		"send-notification", "create-task", "update-status",
		"generate-invoice", "apply-late-fee", "call-webhook",
	} {
		assert.NotNil(t, Registry.Get(actionType), actionType)
	}
	assert.Nil(t, Registry.Get("no-such-action"))
}

func TestUpdateStatus(t *testing.T) {
	config, store, _ := newActionConfig(t)
	_, err := store.Create(types.CollectionProjects, types.Row{"id": "p1", "status": "active"})
	assert.Nil(t, err)

	node := initNode(t, "update-status", config, types.Configuration{
		"entityType": "project",
		"entityId":   "${project_id}",
		"newStatus":  "completed",
	})
	defer node.Destroy()

	_, err = node.Execute(context.Background(), &types.ExecutionContext{
		TriggerType: types.TriggerTaskCompleted,
		EntityId:    "t9",
		Context:     types.Configuration{"project_id": "p1"},
	})
	assert.Nil(t, err)

	rows, _ := store.Query(types.CollectionProjects, types.Filter{"id": "p1"})
	assert.Equal(t, "completed", rows[0]["status"])
}

func TestUpdateStatusFallsBackToEntityId(t *testing.T) {
	config, store, _ := newActionConfig(t)
	_, err := store.Create(types.CollectionTasks, types.Row{"id": "t1", "status": "pending"})
	assert.Nil(t, err)

	node := initNode(t, "update-status", config, types.Configuration{
		"entityType": "task",
		"newStatus":  "done",
	})
	_, err = node.Execute(context.Background(), &types.ExecutionContext{EntityId: "t1"})
	assert.Nil(t, err)
	rows, _ := store.Query(types.CollectionTasks, types.Filter{"id": "t1"})
	assert.Equal(t, "done", rows[0]["status"])

	// a missing entity is a runtime error, recorded on the execution
	_, err = node.Execute(context.Background(), &types.ExecutionContext{EntityId: "missing"})
	assert.NotNil(t, err)
}

func TestUpdateStatusRejectsUnknownEntityType(t *testing.T) {
	config, _, _ := newActionConfig(t)
	node := Registry.Get("update-status").New()
	err := node.Init(config, types.Configuration{
		"entityType": "spaceship",
		"newStatus":  "launched",
	})
	assert.NotNil(t, err)
}

func TestApplyLateFeeOnce(t *testing.T) {
	config, store, _ := newActionConfig(t)
	_, err := store.Create(types.CollectionInvoices, types.Row{
		"id": "i1", "status": "overdue", "total_amount": 1000.0, "late_fee_applied": false,
	})
	assert.Nil(t, err)

	node := initNode(t, "apply-late-fee", config, types.Configuration{"percent": 1.5})
	ectx := &types.ExecutionContext{EntityId: "i1"}

	output, err := node.Execute(context.Background(), ectx)
	assert.Nil(t, err)
	assert.Equal(t, 15.0, output["late_fee_amount"])

	rows, _ := store.Query(types.CollectionInvoices, types.Filter{"id": "i1"})
	assert.Equal(t, 1015.0, cast.ToFloat64(rows[0]["total_amount"]))
	assert.True(t, cast.ToBool(rows[0]["late_fee_applied"]))

	// the second application is a logged skip, not an error
	output, err = node.Execute(context.Background(), ectx)
	assert.Nil(t, err)
	assert.Nil(t, output)
	rows, _ = store.Query(types.CollectionInvoices, types.Filter{"id": "i1"})
	assert.Equal(t, 1015.0, cast.ToFloat64(rows[0]["total_amount"]))
}

func TestApplyLateFeeValidation(t *testing.T) {
	config, _, _ := newActionConfig(t)
	node := Registry.Get("apply-late-fee").New()
	err := node.Init(config, types.Configuration{"percent": -1})
	assert.NotNil(t, err)

	node = initNode(t, "apply-late-fee", config, nil)
	_, err = node.Execute(context.Background(), &types.ExecutionContext{})
	assert.NotNil(t, err, "no invoice id anywhere")
}

func TestCreateTaskProjectFallback(t *testing.T) {
	config, store, _ := newActionConfig(t)
	node := initNode(t, "create-task", config, types.Configuration{
		"title":     "Chase ${invoice_number}",
		"dueInDays": 3,
	})
	_, err := node.Execute(context.Background(), &types.ExecutionContext{
		Context: types.Configuration{
			"project_id":     "p1",
			"invoice_number": "INV-7",
		},
	})
	assert.Nil(t, err)

	tasks, _ := store.ReadAll(types.CollectionTasks)
	assert.Equal(t, 1, len(tasks))
	assert.Equal(t, "Chase INV-7", tasks[0]["title"])
	assert.Equal(t, "p1", tasks[0]["project_id"])
	assert.Equal(t, "pending", tasks[0]["status"])
	assert.NotNil(t, tasks[0]["due_date"])
}

func TestGenerateInvoice(t *testing.T) {
	config, store, _ := newActionConfig(t)
	node := initNode(t, "generate-invoice", config, types.Configuration{
		"amount":   "${project.budget}",
		"clientId": "${client_id}",
	})
	output, err := node.Execute(context.Background(), &types.ExecutionContext{
		Context: types.Configuration{
			"client_id": "c1",
			"project":   map[string]interface{}{"id": "p1", "budget": 2500.0},
		},
	})
	assert.Nil(t, err)
	assert.NotNil(t, output["invoice_id"])
	number, _ := output["invoice_number"].(string)
	assert.True(t, strings.HasPrefix(number, "INV-"))

	invoices, _ := store.ReadAll(types.CollectionInvoices)
	assert.Equal(t, 1, len(invoices))
	assert.Equal(t, 2500.0, cast.ToFloat64(invoices[0]["total_amount"]))
	assert.Equal(t, "draft", invoices[0]["status"])
	assert.Equal(t, "c1", invoices[0]["client_id"])
	assert.Equal(t, "p1", invoices[0]["project_id"])
}

func TestGenerateInvoiceNonNumericAmount(t *testing.T) {
	config, _, _ := newActionConfig(t)
	node := initNode(t, "generate-invoice", config, types.Configuration{"amount": "${budget}"})
	_, err := node.Execute(context.Background(), &types.ExecutionContext{
		Context: types.Configuration{"budget": "lots"},
	})
	assert.NotNil(t, err)
}

func TestSendNotificationInline(t *testing.T) {
	config, _, notifier := newActionConfig(t)
	node := initNode(t, "send-notification", config, types.Configuration{
		"recipient": "${client.email}",
		"subject":   "Invoice ${invoice_number}",
		"body":      "Please pay ${amount}.",
	})
	_, err := node.Execute(context.Background(), &types.ExecutionContext{
		Context: types.Configuration{
			"client":         map[string]interface{}{"email": "billing@acme.test"},
			"invoice_number": "INV-7",
			"amount":         99.5,
		},
	})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(notifier.sent))
	assert.Equal(t, "email", notifier.sent[0].Channel)
	assert.Equal(t, "billing@acme.test", notifier.sent[0].Recipient)
	assert.Equal(t, "Invoice INV-7", notifier.sent[0].Subject)
	assert.Equal(t, "Please pay 99.5.", notifier.sent[0].Body)
}

func TestSendNotificationFromTemplate(t *testing.T) {
	config, store, notifier := newActionConfig(t)
	adapter := storage.NewAdapter(store)
	assert.Nil(t, adapter.SaveTemplate(types.NotificationTemplate{
		Id:      "overdue-notice",
		Channel: "sms",
		Subject: "Overdue",
		Body:    "Invoice ${invoice.number} is overdue.",
		Active:  true,
	}))

	node := initNode(t, "send-notification", config, types.Configuration{
		"recipient":  "+15550001",
		"templateId": "overdue-notice",
	})
	_, err := node.Execute(context.Background(), &types.ExecutionContext{
		Context: types.Configuration{
			"invoice": map[string]interface{}{"number": "INV-9"},
		},
	})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(notifier.sent))
	// the template's channel wins over the default
	assert.Equal(t, "sms", notifier.sent[0].Channel)
	assert.Equal(t, "Invoice INV-9 is overdue.", notifier.sent[0].Body)
}

func TestSendNotificationValidation(t *testing.T) {
	config, _, _ := newActionConfig(t)
	node := Registry.Get("send-notification").New()
	assert.NotNil(t, node.Init(config, types.Configuration{"body": "no recipient"}))
	node = Registry.Get("send-notification").New()
	assert.NotNil(t, node.Init(config, types.Configuration{"recipient": "x@y.z"}))
}

func TestCallWebhook(t *testing.T) {
	var gotPath, gotHeader string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-Entity")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	config, _, _ := newActionConfig(t)
	node := initNode(t, "call-webhook", config, types.Configuration{
		"url": server.URL + "/hooks/${event}",
		"headers": map[string]string{
			"X-Entity": "${entityId}",
		},
		"body": `{"invoice":"${invoice_number}"}`,
	})
	defer node.Destroy()

	output, err := node.Execute(context.Background(), &types.ExecutionContext{
		EntityId: "i1",
		Context: types.Configuration{
			"event":          "invoice-overdue",
			"invoice_number": "INV-7",
		},
	})
	assert.Nil(t, err)
	assert.Equal(t, http.StatusCreated, output["webhook_status"])
	assert.Equal(t, "/hooks/invoice-overdue", gotPath)
	assert.Equal(t, "i1", gotHeader)
	assert.Equal(t, `{"invoice":"INV-7"}`, string(gotBody))
}

func TestCallWebhookNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	config, _, _ := newActionConfig(t)
	node := initNode(t, "call-webhook", config, types.Configuration{"url": server.URL})
	defer node.Destroy()
	_, err := node.Execute(context.Background(), &types.ExecutionContext{})
	assert.NotNil(t, err)
}
