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

// Package common holds the connection multiplexer and target registry:
// spec components D and E, the heart of the core.
package common

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/browserkit/browserkit/browserkiterr"
	"github.com/browserkit/browserkit/metrics"
	"github.com/browserkit/browserkit/protocol"
	"github.com/browserkit/browserkit/transport"
	"github.com/browserkit/browserkit/wire"
)

// connState is the Connection state machine (spec §4.D):
//
//	new --attach()--> open --close()--> closing --drained--> closed
//	                    |                                ^
//	                    +---------- transport-error ------+
type connState int32

const (
	stateNew connState = iota
	stateOpen
	stateClosing
	stateClosed
)

// Handler is a notification subscriber. It receives the event's decoded
// field set; handler errors are isolated (spec §4.D "Routing step").
type Handler func(fields map[string]json.RawMessage)

type subscriber struct {
	id uint64
	fn Handler
}

type pendingReply struct {
	descriptor *protocol.CommandDescriptor
	started    time.Time
	done       chan sendOutcome
}

type sendOutcome struct {
	result protocol.Result
	err    error
}

// Connection is the per-target JSON-RPC endpoint: handler table,
// pending-reply table, session routing (spec §4.D). A root Connection owns
// a real Transport; per-target Connections share the root's Transport and
// are distinguished purely by sessionID (spec §3 "Session").
type Connection struct {
	log    *logrus.Entry
	tracer trace.Tracer

	t         *transport.Transport
	sessionID string // "" for root
	root      *Connection

	state int32 // connState, accessed atomically

	mu          sync.Mutex
	pending     map[uint64]*pendingReply
	handlers    map[string][]subscriber
	nextSubID   uint64
	children    map[string]*Connection // sessionID -> child; root only
	onEvent     func(fields map[string]json.RawMessage)
	closeErr    error
	receiveDone chan struct{}
}

// Attach dials url and returns its root Connection (spec §4.C "Attach",
// §4.F step 4).
func Attach(ctx context.Context, url string, log *logrus.Entry) (*Connection, error) {
	t, err := transport.Attach(ctx, url, log)
	if err != nil {
		return nil, &browserkiterr.TransportError{Err: err}
	}
	c := &Connection{
		log:         log,
		tracer:      otel.Tracer("browserkit/connection"),
		t:           t,
		pending:     map[uint64]*pendingReply{},
		handlers:    map[string][]subscriber{},
		children:    map[string]*Connection{},
		receiveDone: make(chan struct{}),
	}
	atomic.StoreInt32(&c.state, int32(stateOpen))
	go c.receiveLoop()
	return c, nil
}

// CreateSession attaches to targetID over the existing multiplex
// (Target.attachToTarget with flatten=true) and returns a Connection scoped
// to the resulting session (spec §4.E, §3 "Session").
func (c *Connection) CreateSession(ctx context.Context, targetID string) (*Connection, error) {
	root := c.rootOf()
	result, err := root.Send(ctx, protocol.TargetAttachToTarget(targetID, true), false)
	if err != nil {
		return nil, err
	}
	sessionID, err := protocol.DecodeSessionID(result)
	if err != nil {
		return nil, &browserkiterr.DecodeError{Method: "Target.attachToTarget", Err: err}
	}

	child := &Connection{
		log:       root.log.WithField("session_id", sessionID),
		tracer:    root.tracer,
		t:         root.t,
		sessionID: sessionID,
		root:      root,
		pending:   map[uint64]*pendingReply{},
		handlers:  map[string][]subscriber{},
	}
	atomic.StoreInt32(&child.state, int32(stateOpen))

	root.mu.Lock()
	root.children[sessionID] = child
	root.mu.Unlock()
	return child, nil
}

func (c *Connection) rootOf() *Connection {
	if c.root != nil {
		return c.root
	}
	return c
}

func (c *Connection) currentState() connState {
	return connState(atomic.LoadInt32(&c.state))
}

// Send allocates a message id, encodes and dispatches cmd, and returns its
// future as a blocking call on the calling goroutine (spec §4.D "send").
// is_update suppresses recursive registry refresh when the registry itself
// is the caller, breaking the reconcile feedback loop (spec §9).
func (c *Connection) Send(ctx context.Context, cmd protocol.Command, isUpdate bool) (protocol.Result, error) {
	if c.currentState() == stateClosed {
		return protocol.Result{}, &browserkiterr.LifecycleError{Method: cmd.Method, State: "closed"}
	}

	descriptor, err := protocol.LookupCommand(cmd.Method)
	if err != nil {
		return protocol.Result{}, err
	}
	paramsRaw, err := descriptor.Encode(cmd.Params)
	if err != nil {
		return protocol.Result{}, err
	}

	ctx, span := c.tracer.Start(ctx, "Connection.Send", trace.WithAttributes())
	defer span.End()

	id := wire.NextID()
	frame := wire.NewRequest(id, cmd.Method, paramsRaw, c.sessionID)
	raw, err := wire.Encode(frame)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return protocol.Result{}, err
	}

	reply := &pendingReply{descriptor: descriptor, started: time.Now(), done: make(chan sendOutcome, 1)}
	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()

	metrics.CommandsSent.WithLabelValues(cmd.Method).Inc()

	if err := c.t.Send(raw); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		metrics.CommandsFailed.WithLabelValues(cmd.Method, "transport").Inc()
		span.SetStatus(codes.Error, err.Error())
		return protocol.Result{}, &browserkiterr.TransportError{Err: err}
	}

	select {
	case out := <-reply.done:
		metrics.SendLatency.WithLabelValues(cmd.Method).Observe(time.Since(reply.started).Seconds())
		if out.err != nil {
			metrics.CommandsFailed.WithLabelValues(cmd.Method, "protocol").Inc()
			span.SetStatus(codes.Error, out.err.Error())
		}
		return out.result, out.err
	case <-ctx.Done():
		// Cancellation safety (spec §8 property 7): remove the pending
		// entry so a late reply for this id is logged and dropped, never
		// mistaken for a different in-flight send.
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		metrics.CommandsFailed.WithLabelValues(cmd.Method, "cancelled").Inc()
		return protocol.Result{}, ctx.Err()
	}
}

// AddHandler registers subscriber for the named event method, preserving
// registration order (spec §4.D).
func (c *Connection) AddHandler(method string, h Handler) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.handlers[method] = append(c.handlers[method], subscriber{id: id, fn: h})
	return id
}

// RemoveHandlers removes a specific subscriber (when id != 0) or every
// subscriber for method. Removing a non-registered subscriber is a no-op
// (spec §4.D).
func (c *Connection) RemoveHandlers(method string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == 0 {
		delete(c.handlers, method)
		return
	}
	subs := c.handlers[method]
	out := subs[:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	c.handlers[method] = out
}

// Feed injects a raw frame through the same codec and routing path as an
// inbound transport frame, without touching the transport. This supports
// in-process synchronous continuations (e.g. of intercepted fetches) that
// must observe the same ordering guarantees as wire traffic (spec §4.D
// "feed").
func (c *Connection) Feed(raw []byte) {
	c.rootOf().route(raw)
}

func (c *Connection) receiveLoop() {
	defer close(c.receiveDone)
	for {
		raw, err := c.t.Recv()
		if err != nil {
			c.failAll(&browserkiterr.TransportError{Err: err})
			return
		}
		c.route(raw)
	}
}

// route is the routing step (spec §4.D): decode the frame, resolve the
// target Connection by session, then complete a pending reply or dispatch
// a notification. Only the root ever calls this from its own receive loop;
// Feed calls it directly for injected frames.
func (c *Connection) route(raw []byte) {
	frame, err := wire.Decode(raw)
	if err != nil {
		c.log.WithError(err).Warn("dropping malformed frame")
		return
	}

	target := c
	if frame.SessionID != "" {
		c.mu.Lock()
		child, ok := c.children[frame.SessionID]
		c.mu.Unlock()
		if !ok {
			c.log.WithField("session_id", frame.SessionID).Warn("frame for unknown session, dropping")
			return
		}
		target = child
	}

	switch frame.Classify() {
	case wire.KindResponse:
		target.completePending(frame)
	case wire.KindNotification:
		target.dispatchEvent(frame)
	}
}

func (c *Connection) completePending(frame *wire.Frame) {
	c.mu.Lock()
	reply, ok := c.pending[frame.ID]
	if ok {
		delete(c.pending, frame.ID)
	}
	c.mu.Unlock()
	if !ok {
		c.log.WithField("id", frame.ID).Debug("response for unknown or cancelled id, dropping")
		return
	}

	if frame.Error != nil {
		reply.done <- sendOutcome{err: &browserkiterr.ProtocolError{
			Method:  reply.descriptor.Method,
			Code:    frame.Error.Code,
			Message: frame.Error.Message,
		}}
		return
	}
	result, err := reply.descriptor.Decode(frame.Result)
	if err != nil {
		reply.done <- sendOutcome{err: &browserkiterr.DecodeError{Method: reply.descriptor.Method, Err: err}}
		return
	}
	reply.done <- sendOutcome{result: result}
}

func (c *Connection) dispatchEvent(frame *wire.Frame) {
	evt, err := protocol.LookupEvent(frame.Method)
	if err != nil {
		c.log.WithField("method", frame.Method).Debug("unknown event method, dropping")
		return
	}
	fields, err := evt.Decode(frame.Params)
	if err != nil {
		c.log.WithError(err).WithField("method", frame.Method).Warn("event decode failed, skipping delivery")
		return
	}

	c.mu.Lock()
	subs := append([]subscriber(nil), c.handlers[frame.Method]...)
	onEvent := c.onEvent
	c.mu.Unlock()

	if onEvent != nil {
		c.safeInvoke(func() { onEvent(fields) })
	}
	for _, s := range subs {
		sub := s
		c.safeInvoke(func() { sub.fn(fields) })
	}
}

// safeInvoke isolates one handler's panic so it cannot terminate the
// receive loop or block later handlers (spec §4.D "Routing step").
func (c *Connection) safeInvoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Error("event handler panicked, recovered")
		}
	}()
	fn()
}

// OnEvent installs a single internal hook invoked before per-method
// handlers, used by the target registry to drive its own bookkeeping off
// Target.* notifications without an extra subscriber indirection.
func (c *Connection) OnEvent(fn func(fields map[string]json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

func (c *Connection) failAll(err error) {
	if !atomic.CompareAndSwapInt32(&c.state, int32(stateOpen), int32(stateClosing)) {
		atomic.CompareAndSwapInt32(&c.state, int32(stateNew), int32(stateClosing))
	}

	c.mu.Lock()
	pending := c.pending
	c.pending = map[uint64]*pendingReply{}
	children := make([]*Connection, 0, len(c.children))
	for _, child := range c.children {
		children = append(children, child)
	}
	c.closeErr = err
	c.mu.Unlock()

	for id, reply := range pending {
		reply.done <- sendOutcome{err: err}
		_ = id
	}
	for _, child := range children {
		child.failAll(err)
	}
	atomic.StoreInt32(&c.state, int32(stateClosed))
}

// Close is idempotent. On the root it closes the Transport, which unblocks
// the receive loop and fails every pending reply on the whole family with a
// structured "transport closed" error (spec §4.C "Close", §4.D state
// machine).
func (c *Connection) Close() error {
	root := c.rootOf()
	if !atomic.CompareAndSwapInt32(&root.state, int32(stateOpen), int32(stateClosing)) {
		if root.currentState() == stateClosed {
			return nil
		}
	}
	err := root.t.Close()
	select {
	case <-root.receiveDone:
	case <-time.After(3 * time.Second):
	}
	root.failAll(&browserkiterr.TransportError{Err: errClosed})
	return err
}

var errClosed = closedSentinel{}

type closedSentinel struct{}

func (closedSentinel) Error() string { return "connection closed" }

// detach tears down a session-scoped Connection in place: it fails any of
// its own pending replies and removes its sessionID entry from the root's
// children table, without touching the shared Transport (spec §4.E "close
// the per-target Connection if attached" — this is the registry's targeted
// counterpart to Close, which instead tears down the whole family). It is a
// no-op on the root, which has no owning session to detach from.
func (c *Connection) detach() {
	if c.IsRoot() {
		return
	}
	if !atomic.CompareAndSwapInt32(&c.state, int32(stateOpen), int32(stateClosing)) {
		if c.currentState() == stateClosed {
			return
		}
	}

	c.mu.Lock()
	pending := c.pending
	c.pending = map[uint64]*pendingReply{}
	c.mu.Unlock()

	detachErr := &browserkiterr.LifecycleError{TargetID: c.sessionID, State: "target destroyed"}
	for _, reply := range pending {
		reply.done <- sendOutcome{err: detachErr}
	}
	atomic.StoreInt32(&c.state, int32(stateClosed))

	root := c.rootOf()
	root.mu.Lock()
	delete(root.children, c.sessionID)
	root.mu.Unlock()
}

// IsRoot reports whether c carries no session id.
func (c *Connection) IsRoot() bool { return c.sessionID == "" }

// SessionID returns the session id this Connection is scoped to, or "" for
// the root.
func (c *Connection) SessionID() string { return c.sessionID }
