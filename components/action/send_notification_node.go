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

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/storage"
	"github.com/bizflow/bizflow/utils/maps"
)

func init() {
	Registry.Add(&SendNotificationNode{})
}

// SendNotificationNodeConfiguration defines the send-notification action
// parameters.
type SendNotificationNodeConfiguration struct {
	// Channel is the transport channel, e.g. email, sms, mqtt.
	Channel string
	// Recipient is the target address. ${} placeholders are resolved
	// against the trigger context.
	Recipient string
	// TemplateId selects a stored notification template. When empty,
	// Subject and Body are used inline.
	TemplateId string
	// Subject is the inline message subject. Supports ${} placeholders.
	Subject string
	// Body is the inline message body. Supports ${} placeholders.
	Body string
}

// SendNotificationNode renders a notification and hands it to the
// configured channel transport. The template is read at fire time and
// never mutated.
type SendNotificationNode struct {
	Config     SendNotificationNodeConfiguration
	ruleConfig types.Config
}

// Type returns the component type identifier.
func (x *SendNotificationNode) Type() string {
	return "send-notification"
}

// New creates a new instance.
func (x *SendNotificationNode) New() types.ActionNode {
	return &SendNotificationNode{Config: SendNotificationNodeConfiguration{
		Channel: "email",
	}}
}

// Init decodes and validates the action parameters.
func (x *SendNotificationNode) Init(ruleConfig types.Config, params types.Configuration) error {
	if err := maps.Map2Struct(params, &x.Config); err != nil {
		return err
	}
	x.ruleConfig = ruleConfig
	if x.Config.Recipient == "" {
		return errors.New("send-notification: recipient is required")
	}
	if x.Config.TemplateId == "" && x.Config.Body == "" {
		return errors.New("send-notification: templateId or body is required")
	}
	return nil
}

// Execute renders subject and body and sends the notification.
func (x *SendNotificationNode) Execute(ctx context.Context, ectx *types.ExecutionContext) (types.Configuration, error) {
	if x.ruleConfig.Notifier == nil {
		return nil, errors.New("send-notification: no notifier configured")
	}
	subject := x.Config.Subject
	body := x.Config.Body
	channel := x.Config.Channel
	if x.Config.TemplateId != "" {
		adapter := storage.NewAdapter(x.ruleConfig.Store)
		template, err := adapter.GetTemplate(x.Config.TemplateId)
		if err != nil {
			return nil, err
		}
		subject = template.Subject
		body = template.Body
		if template.Channel != "" {
			channel = template.Channel
		}
	}
	data := templateData(x.ruleConfig, ectx)
	notification := types.Notification{
		Channel:   channel,
		Recipient: renderString(x.Config.Recipient, data),
		Subject:   renderString(subject, data),
		Body:      renderString(body, data),
	}
	if err := x.ruleConfig.Notifier.Send(ctx, notification); err != nil {
		return nil, err
	}
	return nil, nil
}

// Destroy releases resources.
func (x *SendNotificationNode) Destroy() {
}
