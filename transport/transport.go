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

// Package transport is the full-duplex WebSocket client (spec component C).
package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Error wraps a transport-layer failure: attach, read or write.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Transport is a full-duplex WebSocket client. Send enqueues onto an
// unbounded (memory-bounded, not caller-blocking) queue drained by a single
// writer goroutine, so send order is preserved and a slow remote surfaces
// as growing queue depth rather than a blocked caller (spec §4.C).
type Transport struct {
	url    string
	log    *logrus.Entry
	conn   *websocket.Conn

	mu        sync.Mutex
	queue     [][]byte
	queueCond *sync.Cond
	closed    bool
	closeErr  error
	drained   chan struct{}
}

// Attach dials the given WebSocket URL, returning once the handshake
// succeeds or failing with a transport Error (spec §4.C "Attach").
func Attach(ctx context.Context, url string, log *logrus.Entry) (*Transport, error) {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &Error{Op: "attach", Err: err}
	}
	t := &Transport{
		url:     url,
		log:     log,
		conn:    conn,
		drained: make(chan struct{}),
	}
	t.queueCond = sync.NewCond(&t.mu)
	go t.writeLoop()
	return t, nil
}

// QueueLen reports the number of frames waiting to be written, the
// observable half of "unbounded but observable" backpressure (spec §4.C).
func (t *Transport) QueueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Send enqueues a framed text message for the write loop. It never blocks
// on the network; backpressure surfaces as QueueLen growth, which callers
// detect via their own send timeouts (spec §4.C, §5 "Flow control").
func (t *Transport) Send(raw []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return &Error{Op: "send", Err: fmt.Errorf("transport closed")}
	}
	t.queue = append(t.queue, raw)
	t.queueCond.Signal()
	return nil
}

func (t *Transport) writeLoop() {
	for {
		t.mu.Lock()
		for len(t.queue) == 0 && !t.closed {
			t.queueCond.Wait()
		}
		if t.closed && len(t.queue) == 0 {
			t.mu.Unlock()
			return
		}
		msg := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()

		if err := t.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			t.fail(&Error{Op: "write", Err: err})
			return
		}
	}
}

// Recv blocks for the next inbound frame. The caller (Connection) drives
// its own receive loop by calling Recv in a tight loop, which is what makes
// delivery single-threaded and wire-ordered (spec §4.C "Ordering", §5).
func (t *Transport) Recv() ([]byte, error) {
	_, raw, err := t.conn.ReadMessage()
	if err != nil {
		wrapped := &Error{Op: "read", Err: err}
		t.fail(wrapped)
		return nil, wrapped
	}
	return raw, nil
}

func (t *Transport) fail(err *Error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.closeErr = err
	t.queueCond.Broadcast()
	t.mu.Unlock()
	_ = t.conn.Close()
	select {
	case <-t.drained:
	default:
		close(t.drained)
	}
}

// Close is idempotent: it stops the write loop, closes the socket, and
// unblocks any in-flight Recv with an error (spec §4.C "Close").
func (t *Transport) Close() error {
	t.mu.Lock()
	already := t.closed
	t.closed = true
	t.queueCond.Broadcast()
	t.mu.Unlock()

	if already {
		return nil
	}
	err := t.conn.Close()
	select {
	case <-t.drained:
	default:
		close(t.drained)
	}
	return err
}

// Err returns the reason the transport stopped, if any.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeErr
}
