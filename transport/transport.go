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

// Package transport provides the notification channel transports: email
// over SMTP, MQTT publishing and a logging no-op, plus a router that
// multiplexes notifications to the transport registered for their
// channel.
package transport

import (
	"context"
	"fmt"

	"github.com/bizflow/bizflow/api/types"
)

// Noop logs every notification instead of sending it. It is the default
// notifier, so an engine without a wired transport still shows what it
// would have sent.
type Noop struct {
	logger types.Logger
}

// NewNoop creates the logging no-op transport.
func NewNoop(logger types.Logger) *Noop {
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &Noop{logger: logger}
}

// Send logs the notification and reports success.
func (n *Noop) Send(ctx context.Context, notification types.Notification) error {
	n.logger.Printf("notification [%s] to=%s subject=%q body=%q",
		notification.Channel, notification.Recipient, notification.Subject, notification.Body)
	return nil
}

// Router dispatches notifications to the transport registered for their
// channel. Channels without a registered transport go to the fallback.
type Router struct {
	transports map[string]types.Notifier
	fallback   types.Notifier
}

// NewRouter creates a router with the given fallback transport. A nil
// fallback rejects notifications on unregistered channels.
func NewRouter(fallback types.Notifier) *Router {
	return &Router{
		transports: make(map[string]types.Notifier),
		fallback:   fallback,
	}
}

// Register binds a channel name to a transport, replacing any previous
// binding.
func (r *Router) Register(channel string, notifier types.Notifier) *Router {
	r.transports[channel] = notifier
	return r
}

// Send routes the notification by channel.
func (r *Router) Send(ctx context.Context, notification types.Notification) error {
	if notifier, ok := r.transports[notification.Channel]; ok {
		return notifier.Send(ctx, notification)
	}
	if r.fallback != nil {
		return r.fallback.Send(ctx, notification)
	}
	return fmt.Errorf("transport: no transport for channel %q", notification.Channel)
}
