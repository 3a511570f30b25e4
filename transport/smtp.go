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
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/bizflow/bizflow/api/types"
)

// SmtpConfig configures the email transport.
type SmtpConfig struct {
	// Server is the SMTP server address, host:port.
	Server string
	// From is the sender address.
	From string
	// Username and Password authenticate with PLAIN auth when set.
	Username string
	Password string
	// ImplicitTls dials a TLS connection directly (port 465 style)
	// instead of upgrading with STARTTLS.
	ImplicitTls bool
	// ConnectTimeout bounds the dial. Default 10s.
	ConnectTimeout time.Duration
}

// Smtp sends notifications as email over SMTP.
type Smtp struct {
	config SmtpConfig
}

// NewSmtp creates the email transport.
func NewSmtp(config SmtpConfig) (*Smtp, error) {
	if config.Server == "" {
		return nil, fmt.Errorf("smtp: server is required")
	}
	if config.From == "" {
		return nil, fmt.Errorf("smtp: from is required")
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	return &Smtp{config: config}, nil
}

// Send delivers the notification to the recipient address. Multiple
// recipients may be given comma-separated.
func (s *Smtp) Send(ctx context.Context, notification types.Notification) error {
	recipients := splitRecipients(notification.Recipient)
	if len(recipients) == 0 {
		return fmt.Errorf("smtp: no recipient")
	}
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	host, _, _ := net.SplitHostPort(s.config.Server)
	if !s.config.ImplicitTls {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err = client.StartTLS(&tls.Config{ServerName: host}); err != nil {
				return err
			}
		}
	}
	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, host)
		if err = client.Auth(auth); err != nil {
			return err
		}
	}
	if err = client.Mail(s.config.From); err != nil {
		return err
	}
	for _, recipient := range recipients {
		if err = client.Rcpt(recipient); err != nil {
			return err
		}
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = writer.Write(buildMessage(s.config.From, recipients, notification)); err != nil {
		return err
	}
	if err = writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (s *Smtp) dial(ctx context.Context) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: s.config.ConnectTimeout}
	host, _, _ := net.SplitHostPort(s.config.Server)
	if s.config.ImplicitTls {
		conn, err := tls.DialWithDialer(dialer, "tcp", s.config.Server, &tls.Config{ServerName: host})
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, host)
	}
	conn, err := dialer.DialContext(ctx, "tcp", s.config.Server)
	if err != nil {
		return nil, err
	}
	return smtp.NewClient(conn, host)
}

func splitRecipients(raw string) []string {
	var recipients []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}

func buildMessage(from string, to []string, notification types.Notification) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ",") + "\r\n")
	b.WriteString("Subject: " + notification.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(notification.Body)
	return []byte(b.String())
}
