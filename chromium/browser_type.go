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

package chromium

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/browserkit/browserkit/common"
)

// BrowserType is the chromium entry point: Launch spawns a process, Attach
// connects to one already running (spec §4.F "Starts (or attaches to) a
// browser process").
type BrowserType struct {
	log *logrus.Entry
}

// NewBrowserType returns a chromium BrowserType logging through log (or a
// package default if nil).
func NewBrowserType(log *logrus.Entry) *BrowserType {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &BrowserType{log: log}
}

// Launch spawns a local process per cfg and returns its Browser (spec §4.F
// steps 1-6).
func (bt *BrowserType) Launch(ctx context.Context, cfg common.Config) (*common.Browser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	allocator, err := NewAllocator(cfg)
	if err != nil {
		return nil, err
	}
	proc, err := allocator.Allocate(ctx, cfg, cfg.ConnectionTimeout)
	if err != nil {
		return nil, err
	}

	return common.NewBrowser(ctx, proc, cfg, bt.log)
}

// Attach connects to an already-running instance at cfg.Host/cfg.Port
// without spawning a process (spec §4.F step 2 "attach mode").
func (bt *BrowserType) Attach(ctx context.Context, cfg common.Config) (*common.Browser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Host == "" || cfg.Port == "" {
		return nil, &attachWithoutAddressError{}
	}
	return common.NewBrowser(ctx, nil, cfg, bt.log)
}

type attachWithoutAddressError struct{}

func (*attachWithoutAddressError) Error() string {
	return "chromium: Attach requires both Config.Host and Config.Port"
}

// Name identifies this browser family for logging and config defaults.
func (bt *BrowserType) Name() string { return "chromium" }
