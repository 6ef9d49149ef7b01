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
	"os"
	"time"
)

// BrowserProcess is the spawned-process half of a Browser: the handle
// needed to locate its control socket and to terminate it on Stop (spec
// §4.F). In attach mode (Config.Host/Port both set) there is no process to
// own; Process is nil and Terminate/Cleanup are no-ops.
type BrowserProcess struct {
	Process     *os.Process
	WSURL       string
	UserDataDir string
	ownsProfile bool

	ctx      context.Context
	cancel   context.CancelFunc
	exitDone chan struct{}
}

// NewBrowserProcess wraps a spawned process. exitDone, if non-nil, is
// closed once the process has actually exited (the allocator's wait
// goroutine closes it); a nil exitDone (attach mode) means Terminate has
// nothing to wait on.
func NewBrowserProcess(ctx context.Context, cancel context.CancelFunc, proc *os.Process, wsURL, userDataDir string, ownsProfile bool, exitDone chan struct{}) *BrowserProcess {
	return &BrowserProcess{
		Process:     proc,
		WSURL:       wsURL,
		UserDataDir: userDataDir,
		ownsProfile: ownsProfile,
		ctx:         ctx,
		cancel:      cancel,
		exitDone:    exitDone,
	}
}

// Terminate sends SIGTERM (via context cancellation, which the allocator
// wires to a SIGTERM to the process) and waits up to the graceful deadline
// before force-killing (spec §4.F "Stop sequence" step 3).
func (p *BrowserProcess) Terminate(gracefulDeadline time.Duration) error {
	if p.Process == nil {
		return nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.exitDone == nil {
		return nil
	}
	select {
	case <-p.exitDone:
		return nil
	case <-time.After(gracefulDeadline):
		return p.Process.Kill()
	}
}

// CleanupProfile removes the temporary profile directory with bounded
// retries (spec §4.F "Stop sequence" step 4). It is a no-op when the
// profile directory was supplied by the caller rather than generated.
func (p *BrowserProcess) CleanupProfile(maxTries int) error {
	if !p.ownsProfile || p.UserDataDir == "" {
		return nil
	}
	var err error
	for attempt := 0; attempt < maxTries; attempt++ {
		if err = os.RemoveAll(p.UserDataDir); err == nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return err
}
