/*
 * browserkit - a DevTools control protocol driver for Chromium-family browsers
 * Copyright (C) 2026 The browserkit Authors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package ws is a fake DTCP server used by this module's own tests: a real
// WebSocket endpoint speaking the wire.Frame codec, plus a minimal
// /json/version handler for exercising HTTP discovery.
package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/browserkit/browserkit/wire"
)

const (
	DummySessionID        = "session_id_0123456789"
	DummyTargetID         = "target_id_0123456789"
	DummyBrowserContextID = "browser_context_id_0123456789"
)

// Handler processes one decoded inbound Frame and returns zero or more
// frames to write back, in order.
type Handler func(f *wire.Frame) []*wire.Frame

// TestServer is a real HTTP+WebSocket server for exercising Transport,
// Connection and the HTTP discovery poll against controlled behavior.
type TestServer struct {
	httpSrv *httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
}

// URL is the server's http:// base URL.
func (s *TestServer) URL() string { return s.httpSrv.URL }

// WSURL is the ws:// URL of the /cdp endpoint.
func (s *TestServer) WSURL() string {
	return "ws" + strings.TrimPrefix(s.httpSrv.URL, "http") + "/cdp"
}

// Close tears down the server, dropping every open /cdp WebSocket
// connection (httptest.Server.Close alone leaves hijacked connections open).
func (s *TestServer) Close() {
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.httpSrv.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// New starts a TestServer whose /cdp endpoint is driven by handler, and
// whose /json/version reports the corresponding ws:// endpoint.
func New(t testing.TB, handler Handler) *TestServer {
	t.Helper()

	mux := http.NewServeMux()
	srv := &TestServer{}

	mux.HandleFunc("/cdp", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		srv.mu.Lock()
		srv.conns = append(srv.conns, conn)
		srv.mu.Unlock()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frame, err := wire.Decode(raw)
			if err != nil {
				continue
			}
			for _, reply := range handler(frame) {
				out, err := wire.Encode(reply)
				if err != nil {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
					return
				}
			}
		}
	})

	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		wsURL := "ws" + strings.TrimPrefix(srv.httpSrv.URL, "http") + "/cdp"
		_ = json.NewEncoder(w).Encode(map[string]string{"webSocketDebuggerUrl": wsURL})
	})

	srv.httpSrv = httptest.NewServer(mux)
	return srv
}

// EchoOK replies to every command with an empty {} result and drops
// notifications, a baseline handler for transport-level tests. Commands
// whose schema declares a required return value get the smallest result
// that satisfies it (an empty list, or a dummy frame id), so descriptor
// decoding accepts the reply.
func EchoOK(f *wire.Frame) []*wire.Frame {
	if f.Method == "" {
		return nil
	}
	result := `{}`
	switch f.Method {
	case "Target.getTargets":
		result = `{"targetInfos":[]}`
	case "Storage.getCookies":
		result = `{"cookies":[]}`
	case "Page.navigate":
		result = `{"frameId":"frame_id_0123456789"}`
	}
	return []*wire.Frame{{ID: f.ID, Result: json.RawMessage(result), SessionID: f.SessionID}}
}

// AttachToTargetHandler answers Target.attachToTarget with a
// targetAttachedToTarget notification followed by the command's own
// sessionId result, matching real CDP's flatten-mode handshake, and echoes
// everything else with {}.
func AttachToTargetHandler(f *wire.Frame) []*wire.Frame {
	if f.Method != "Target.attachToTarget" {
		return EchoOK(f)
	}
	notif := fmt.Sprintf(
		`{"sessionId":%q,"targetInfo":{"targetId":%q,"type":"page","title":"","url":"about:blank","attached":true,"browserContextId":%q}}`,
		DummySessionID, DummyTargetID, DummyBrowserContextID)
	return []*wire.Frame{
		{Method: "Target.attachedToTarget", Params: json.RawMessage(notif)},
		{ID: f.ID, Result: json.RawMessage(fmt.Sprintf(`{"sessionId":%q}`, DummySessionID))},
	}
}

// ParseWSURL is a small helper for tests asserting on the discovered URL's
// shape.
func ParseWSURL(raw string) (*url.URL, error) { return url.Parse(raw) }
