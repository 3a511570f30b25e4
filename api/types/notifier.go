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

import "context"

// Notification is one rendered message handed to a channel transport.
type Notification struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// Notifier is the channel-transport collaborator. Implementations live in
// the transport package (smtp, mqtt, noop) or are supplied by the host
// application. Send is expected to be short or internally non-blocking;
// reminder firings run on the engine's cooperative control flow.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}
