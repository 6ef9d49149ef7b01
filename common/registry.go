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

package common

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/browserkit/browserkit/metrics"
	"github.com/browserkit/browserkit/protocol"
)

// TargetRecord mirrors one browser-side target. Its Connection is attached
// lazily: Conn() only issues Target.attachToTarget the first time a caller
// actually needs to talk to this target (spec §4.E "lazy attach").
type TargetRecord struct {
	Info protocol.TargetInfo

	root       *Connection
	attachOnce sync.Once

	mu        sync.Mutex
	conn      *Connection
	attachErr error
}

// Conn returns this target's per-target Connection, attaching on first use.
func (r *TargetRecord) Conn(ctx context.Context) (*Connection, error) {
	r.attachOnce.Do(func() {
		conn, err := r.root.CreateSession(ctx, r.Info.TargetID)
		r.mu.Lock()
		r.conn, r.attachErr = conn, err
		r.mu.Unlock()
	})
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn, r.attachErr
}

// closeConn tears down this target's Connection if one was ever attached
// (spec §4.E "close the per-target Connection if attached"). A target that
// was never attached has nothing to close.
func (r *TargetRecord) closeConn() {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn != nil {
		conn.detach()
	}
}

// Registry mirrors the browser's target set (spec §4.E). It is mutated only
// by Target.* event handlers installed on the root Connection plus explicit
// reconcile calls; entries are never speculatively removed, only in
// response to targetDestroyed or targetCrashed (spec §4.E invariant).
type Registry struct {
	log  *logrus.Entry
	root *Connection

	mu      sync.RWMutex
	records map[string]*TargetRecord // targetId -> record
	order   []string                 // targetId insertion order, for "main" selection
}

// NewRegistry installs the four Target.* handlers on root and returns the
// registry they feed (spec §4.E).
func NewRegistry(root *Connection, log *logrus.Entry) *Registry {
	r := &Registry{
		log:     log,
		root:    root,
		records: map[string]*TargetRecord{},
	}

	root.AddHandler(protocol.EventTargetCreated, r.onTargetCreated)
	root.AddHandler(protocol.EventTargetInfoChanged, r.onTargetInfoChanged)
	root.AddHandler(protocol.EventTargetDestroyed, r.onTargetDestroyed)
	root.AddHandler(protocol.EventTargetCrashed, r.onTargetDestroyed)
	return r
}

func (r *Registry) onTargetCreated(fields map[string]json.RawMessage) {
	info, err := protocol.DecodeTargetInfo(fields)
	if err != nil {
		r.log.WithError(err).Warn("targetCreated: decode failed")
		return
	}
	r.upsert(info)
}

func (r *Registry) onTargetInfoChanged(fields map[string]json.RawMessage) {
	info, err := protocol.DecodeTargetInfo(fields)
	if err != nil {
		r.log.WithError(err).Warn("targetInfoChanged: decode failed")
		return
	}
	r.upsert(info)
}

// onTargetDestroyed handles both targetDestroyed and targetCrashed: the
// registry only ever removes an entry in direct response to one of these
// two notifications (spec §4.E "event-driven deletion only"), closing the
// target's Connection if one was attached so its session entry does not
// stay routable on the root forever.
func (r *Registry) onTargetDestroyed(fields map[string]json.RawMessage) {
	id, err := protocol.DecodeTargetIDField(fields)
	if err != nil || id == "" {
		return
	}
	r.mu.Lock()
	rec, existed := r.records[id]
	delete(r.records, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	if existed {
		rec.closeConn()
		r.refreshMetrics()
	}
}

func (r *Registry) upsert(info protocol.TargetInfo) {
	r.mu.Lock()
	rec, existed := r.records[info.TargetID]
	var old protocol.TargetInfo
	if !existed {
		rec = &TargetRecord{Info: info, root: r.root}
		r.records[info.TargetID] = rec
		r.order = append(r.order, info.TargetID)
	} else {
		old = rec.Info
		rec.Info = info
	}
	r.mu.Unlock()
	if existed && old != info {
		r.log.WithFields(logrus.Fields{"target_id": info.TargetID, "old": old, "new": info}).Debug("target info changed")
	}
	if !existed {
		r.refreshMetrics()
	}
}

func (r *Registry) refreshMetrics() {
	r.mu.RLock()
	counts := map[string]int{}
	for _, rec := range r.records {
		counts[rec.Info.Type]++
	}
	r.mu.RUnlock()
	for typ, n := range counts {
		metrics.RegistrySize.WithLabelValues(typ).Set(float64(n))
	}
}

// Reconcile upserts every target Target.getTargets reports; records the
// reply does not mention are left in place. It is invoked from NewBrowser
// (spec §4.F step 6) and is itself an is_update send so it cannot
// recursively trigger another reconcile through its own notifications
// (spec §9 "feedback loop").
func (r *Registry) Reconcile(ctx context.Context) error {
	result, err := r.root.Send(ctx, protocol.TargetGetTargets(), true)
	if err != nil {
		return err
	}
	infos, err := protocol.DecodeGetTargets(result)
	if err != nil {
		return err
	}
	for _, info := range infos {
		r.upsert(info)
	}
	return nil
}

// Get returns the record for targetID, if known.
func (r *Registry) Get(targetID string) (*TargetRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[targetID]
	return rec, ok
}

// All returns a snapshot of every tracked record.
func (r *Registry) All() []*TargetRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TargetRecord, 0, len(r.records))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out
}

// Main returns the earliest-created surviving page-typed target, the
// registry's notion of the browser's primary target (spec §4.E "Main
// target").
func (r *Registry) Main() (*TargetRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		rec := r.records[id]
		if rec.Info.Type == "page" {
			return rec, true
		}
	}
	return nil, false
}

// Len reports how many targets are currently tracked.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
