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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/browserkit/browserkit/browserkiterr"
	"github.com/browserkit/browserkit/protocol"
)

// browserState mirrors the Browser lifecycle: new -> open -> closing ->
// closed (spec §3 "Lifecycle").
type browserState int32

const (
	BrowserStateNew browserState = iota
	BrowserStateOpen
	BrowserStateClosing
	BrowserStateClosed
)

// Browser owns the root Connection and the target registry; it is the
// session-level object a BrowserType.Launch/Attach call returns (spec
// §4.F).
type Browser struct {
	log    *logrus.Entry
	tracer trace.Tracer

	cfg  Config
	proc *BrowserProcess // nil in attach mode

	state int32 // browserState, accessed atomically

	Root     *Connection
	Registry *Registry
}

// NewBrowser runs the full start sequence against a process handle that is
// either freshly spawned (proc != nil) or nil (attach mode, spec §4.F step
// 2). It returns once the registry has been seeded (spec §4.F step 6).
func NewBrowser(ctx context.Context, proc *BrowserProcess, cfg Config, log *logrus.Entry) (*Browser, error) {
	if log == nil {
		log = NewLogger()
	}
	b := &Browser{
		log:    log,
		tracer: otel.Tracer("browserkit/browser"),
		cfg:    cfg,
		proc:   proc,
	}
	atomic.StoreInt32(&b.state, int32(BrowserStateNew))

	ctx, span := b.tracer.Start(ctx, "Browser.Start")
	defer span.End()

	wsURL, err := b.discover(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	root, err := Attach(ctx, wsURL, log.WithField("session", "root"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	b.Root = root
	b.Registry = NewRegistry(root, log)

	atomic.StoreInt32(&b.state, int32(BrowserStateOpen))

	if _, err := root.Send(ctx, protocol.TargetSetDiscoverTargets(true), false); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := b.Registry.Reconcile(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return b, nil
}

// discover resolves the control socket: either proc's already-known WSURL
// (spawned mode) or a fresh HTTP discovery poll against cfg.Host/cfg.Port
// (attach mode), per spec §4.F steps 2-3.
func (b *Browser) discover(ctx context.Context) (string, error) {
	if b.proc != nil && b.proc.WSURL != "" {
		return b.proc.WSURL, nil
	}
	if b.cfg.Host == "" || b.cfg.Port == "" {
		return "", &browserkiterr.ConfigError{Option: "host/port", Err: fmt.Errorf("attach mode requires both")}
	}
	maxTries := b.cfg.ConnectionMaxTries
	if maxTries <= 0 {
		maxTries = 20
	}
	timeout := b.cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return DiscoverWebSocketURL(ctx, b.cfg.Host, b.cfg.Port, maxTries, timeout)
}

func (b *Browser) currentState() browserState {
	return browserState(atomic.LoadInt32(&b.state))
}

// Stop runs the stop sequence (spec §4.F "Stop sequence") and is
// idempotent: calling it on an already-stopped Browser returns nil.
func (b *Browser) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&b.state, int32(BrowserStateOpen), int32(BrowserStateClosing)) {
		if b.currentState() == BrowserStateClosed {
			return nil
		}
		// Already closing, or Start never reached "open" cleanly; still
		// run the remaining teardown so a half-started Browser doesn't
		// leak a process or profile dir.
	}

	ctx, span := b.tracer.Start(ctx, "Browser.Stop")
	defer span.End()

	// Every step below runs regardless of earlier failures, so a half-open
	// Browser never leaks a process or profile dir, and every failure is
	// logged rather than raised (spec §4.F step 1 "swallowing errors", §7
	// "Stop errors are logged, not raised") so a killed-externally browser
	// still lets callers stop() cleanly (spec §8 scenario 6).
	if b.Root != nil {
		if _, err := b.Root.Send(ctx, protocol.BrowserClose(), false); err != nil {
			b.log.WithError(err).Debug("browser.close returned an error, ignoring")
		}
		if err := b.Root.Close(); err != nil {
			b.log.WithError(err).Debug("closing root connection returned an error, ignoring")
		}
	}

	if b.proc != nil {
		if err := b.proc.Terminate(3 * time.Second); err != nil {
			b.log.WithError(err).Warn("force-killed browser process after graceful deadline")
		}
		if err := b.proc.CleanupProfile(5); err != nil {
			b.log.WithError(err).Warn("failed to remove temporary profile directory")
		}
	}

	atomic.StoreInt32(&b.state, int32(BrowserStateClosed))
	return nil
}

// Pages returns the registry's page-type targets in creation order (spec
// §4.G "Iterating a Browser yields its page-type targets in creation
// order").
func (b *Browser) Pages() []*TargetRecord {
	all := b.Registry.All()
	out := make([]*TargetRecord, 0, len(all))
	for _, rec := range all {
		if rec.Info.Type == "page" {
			out = append(out, rec)
		}
	}
	return out
}

// PagesReversed returns the same set as Pages but in reverse order (spec
// §4.G "reversed iteration is supported").
func (b *Browser) PagesReversed() []*TargetRecord {
	pages := b.Pages()
	out := make([]*TargetRecord, len(pages))
	for i, p := range pages {
		out[len(pages)-1-i] = p
	}
	return out
}
