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

// Package websocket streams terminal workflow executions to connected
// clients, for live dashboards. Wire Stream.OnExecutionEnd into the
// engine config.
package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/json"
)

const writeTimeout = 5 * time.Second

// Stream is a broadcast hub over websocket connections. Slow clients are
// dropped rather than back-pressuring the engine.
type Stream struct {
	logger   types.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewStream creates the execution stream hub.
func NewStream(logger types.Logger) *Stream {
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &Stream{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket: upgrade: %v", err)
		return
	}
	send := make(chan []byte, 64)
	s.mu.Lock()
	s.clients[conn] = send
	s.mu.Unlock()

	go s.writeLoop(conn, send)
	go s.readLoop(conn)
}

// OnExecutionEnd broadcasts a terminal execution to every client. It is
// shaped to plug straight into types.Config.OnExecutionEnd.
func (s *Stream) OnExecutionEnd(execution types.WorkflowExecution) {
	body, err := json.Marshal(execution)
	if err != nil {
		s.logger.Printf("websocket: marshal execution %s: %v", execution.Id, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, send := range s.clients {
		select {
		case send <- body:
		default:
			// client is not keeping up
			delete(s.clients, conn)
			close(send)
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *Stream) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, send := range s.clients {
		close(send)
		delete(s.clients, conn)
	}
}

func (s *Stream) writeLoop(conn *websocket.Conn, send chan []byte) {
	defer func() {
		_ = conn.Close()
	}()
	for body := range send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			s.drop(conn)
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readLoop drains the connection so pings and close frames are handled;
// incoming data is ignored.
func (s *Stream) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.drop(conn)
			return
		}
	}
}

func (s *Stream) drop(conn *websocket.Conn) {
	s.mu.Lock()
	if send, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		close(send)
	}
	s.mu.Unlock()
	_ = conn.Close()
}
