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

package transport

import (
	"context"
	"strings"
	"testing"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/test/assert"
)

type recordingNotifier struct {
	sent []types.Notification
}

func (n *recordingNotifier) Send(ctx context.Context, notification types.Notification) error {
	n.sent = append(n.sent, notification)
	return nil
}

func TestRouterDispatchByChannel(t *testing.T) {
	email := &recordingNotifier{}
	sms := &recordingNotifier{}
	fallback := &recordingNotifier{}
	router := NewRouter(fallback).
		Register("email", email).
		Register("sms", sms)

	assert.Nil(t, router.Send(context.Background(), types.Notification{Channel: "email", Recipient: "a@b.c"}))
	assert.Nil(t, router.Send(context.Background(), types.Notification{Channel: "sms", Recipient: "+1555"}))
	assert.Nil(t, router.Send(context.Background(), types.Notification{Channel: "carrier-pigeon"}))

	assert.Equal(t, 1, len(email.sent))
	assert.Equal(t, 1, len(sms.sent))
	assert.Equal(t, 1, len(fallback.sent))
}

func TestRouterWithoutFallback(t *testing.T) {
	router := NewRouter(nil)
	err := router.Send(context.Background(), types.Notification{Channel: "email"})
	assert.NotNil(t, err)
}

func TestNoopAccepts(t *testing.T) {
	noop := NewNoop(nil)
	assert.Nil(t, noop.Send(context.Background(), types.Notification{
		Channel: "email", Recipient: "a@b.c", Subject: "s", Body: "b",
	}))
}

func TestSmtpConfigValidation(t *testing.T) {
	_, err := NewSmtp(SmtpConfig{From: "a@b.c"})
	assert.NotNil(t, err)
	_, err = NewSmtp(SmtpConfig{Server: "mail.example.com:587"})
	assert.NotNil(t, err)
	smtp, err := NewSmtp(SmtpConfig{Server: "mail.example.com:587", From: "a@b.c"})
	assert.Nil(t, err)
	assert.NotNil(t, smtp)
}

func TestBuildMessage(t *testing.T) {
	message := string(buildMessage("from@x.y", []string{"to@x.y"}, types.Notification{
		Subject: "Hello",
		Body:    "World",
	}))
	assert.True(t, strings.Contains(message, "From: from@x.y\r\n"))
	assert.True(t, strings.Contains(message, "To: to@x.y\r\n"))
	assert.True(t, strings.Contains(message, "Subject: Hello\r\n"))
	assert.True(t, strings.Contains(message, "\r\n\r\nWorld"))
}

func TestSplitRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@b.c", "d@e.f"}, splitRecipients("a@b.c, d@e.f"))
	assert.Equal(t, []string{"a@b.c"}, splitRecipients("a@b.c,"))
	assert.Nil(t, splitRecipients("  "))
}
