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
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/json"
)

// MqttConfig configures the MQTT transport.
type MqttConfig struct {
	// Server is the broker URL, e.g. tcp://127.0.0.1:1883.
	Server   string
	Username string
	Password string
	// ClientId identifies this publisher to the broker.
	ClientId string
	// TopicPrefix is prepended to the notification recipient to form the
	// publish topic. Default "bizflow/notifications".
	TopicPrefix string
	// QOS is the publish quality of service, 0..2.
	QOS byte
	// ConnectTimeout bounds the initial connect. Default 10s.
	ConnectTimeout time.Duration
}

// Mqtt publishes notifications to an MQTT broker. The recipient is used
// as the topic suffix, so subscribers can filter per target.
type Mqtt struct {
	config MqttConfig
	client paho.Client
}

// NewMqtt creates the MQTT transport and connects to the broker.
func NewMqtt(config MqttConfig) (*Mqtt, error) {
	if config.Server == "" {
		return nil, fmt.Errorf("mqtt: server is required")
	}
	if config.TopicPrefix == "" {
		config.TopicPrefix = "bizflow/notifications"
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	opts := paho.NewClientOptions().
		AddBroker(config.Server).
		SetClientID(config.ClientId).
		SetUsername(config.Username).
		SetPassword(config.Password).
		SetConnectTimeout(config.ConnectTimeout).
		SetAutoReconnect(true)
	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", config.Server)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return &Mqtt{config: config, client: client}, nil
}

// Send publishes the notification as a JSON payload.
func (m *Mqtt) Send(ctx context.Context, notification types.Notification) error {
	payload, err := json.Marshal(map[string]string{
		"recipient": notification.Recipient,
		"subject":   notification.Subject,
		"body":      notification.Body,
	})
	if err != nil {
		return err
	}
	topic := m.config.TopicPrefix
	if notification.Recipient != "" {
		topic = topic + "/" + strings.ReplaceAll(notification.Recipient, "/", "_")
	}
	token := m.client.Publish(topic, m.config.QOS, false, payload)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (m *Mqtt) Close() {
	m.client.Disconnect(250)
}
