// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	closeAuthRejected = 4001
	pongWait          = 60 * time.Second
	pingPeriod        = 54 * time.Second
	writeWait         = 10 * time.Second
)

// connSender adapts a *websocket.Conn to Sender with a write mutex,
// grounded directly on the teacher's serveSession writeJSON closure
// (gorilla/websocket requires a single writer at a time).
type connSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *connSender) Send(msg ServerMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

func (s *connSender) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *connSender) close(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline := time.Now().Add(writeWait)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}

// Serve upgrades r to a WebSocket and runs the connection lifecycle
// described in spec §4.E: accept, expect auth, enter the message
// loop, dispatch, clean up on exit. Directly grounded on
// internal/api/handlers.ClaudeHandler.serveSession's structure (write
// mutex, ping ticker, non-blocking read-into-channel loop).
func Serve(w http.ResponseWriter, r *http.Request, deps Deps) {
	wsConn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer wsConn.Close()

	sender := &connSender{conn: wsConn}
	conn := NewConnection(deps, sender, r.RemoteAddr)
	defer conn.Cleanup()

	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()
	go func() {
		for range pingTicker.C {
			if err := sender.ping(); err != nil {
				return
			}
		}
	}()

	readCh := make(chan ClientMessage, 10)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			_, raw, err := wsConn.ReadMessage()
			if err != nil {
				return
			}
			var msg ClientMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				sender.Send(ServerMessage{Type: EvtError, ErrCode: ErrValidation, ErrMsg: "malformed message"})
				continue
			}
			readCh <- msg
		}
	}()

	authed := false
	ctx := r.Context()
	for {
		select {
		case msg := <-readCh:
			if !authed && msg.Type != MsgAuth {
				sender.Send(ServerMessage{Type: EvtError, ErrCode: ErrAuthRejected, ErrMsg: "auth required"})
				continue
			}
			if conn.Handle(ctx, msg) {
				if msg.Type == MsgAuth {
					sender.close(closeAuthRejected, "auth rejected")
					return
				}
				return
			}
			if msg.Type == MsgAuth {
				authed = true
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
