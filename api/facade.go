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

// Package api is the public façade: a thin, contract-only surface over
// common's Connection/Registry/Browser (spec §4.G). It never touches the
// codec, registry storage, or transport directly — everything here is
// composed from Endpoint's three primitives.
package api

import (
	"context"

	"github.com/browserkit/browserkit/common"
	"github.com/browserkit/browserkit/protocol"
)

// Handler is an event subscriber, re-exported from common so callers of
// this package never need to import common directly.
type Handler = common.Handler

// Endpoint is what the façade sees for any one target: send a command,
// subscribe to its events, unsubscribe from them. Every convenience method
// on Page is built from these three (spec §4.G).
type Endpoint interface {
	Send(ctx context.Context, cmd protocol.Command, isUpdate bool) (protocol.Result, error)
	AddHandler(method string, h Handler) uint64
	RemoveHandlers(method string, id uint64)
}

var _ Endpoint = (*common.Connection)(nil)

// Page is a target-scoped façade: the handful of convenience operations
// this driver exposes beyond raw send/add_handler, each one a direct
// composition of Endpoint calls (spec §4.G).
type Page struct {
	Target *common.TargetRecord
}

// Conn returns (attaching lazily on first call) the underlying Endpoint
// for this page's target.
func (p *Page) Conn(ctx context.Context) (Endpoint, error) {
	return p.Target.Conn(ctx)
}

// Navigate sends Page.navigate.
func (p *Page) Navigate(ctx context.Context, url string) error {
	conn, err := p.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.Send(ctx, protocol.PageNavigate(url), false)
	return err
}

// Close closes this page's target (spec §4.G "close()").
func (p *Page) Close(ctx context.Context) error {
	conn, err := p.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.Send(ctx, protocol.PageClose(), false)
	return err
}

// Activate brings this page's tab to the foreground, a convenience method
// recovered from the original zendriver driver's tab-activation helper
// (see SPEC_FULL.md's "supplemented features").
func (p *Page) Activate(ctx context.Context) error {
	conn, err := p.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.Send(ctx, protocol.TargetActivateTarget(p.Target.Info.TargetID), false)
	return err
}

// BringToFront requests the renderer itself raise its window, distinct
// from Activate (which operates at the target-manager level).
func (p *Page) BringToFront(ctx context.Context) error {
	conn, err := p.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.Send(ctx, protocol.PageBringToFront(), false)
	return err
}

// OnEvent subscribes a handler to one of this page's events.
func (p *Page) OnEvent(ctx context.Context, method string, h Handler) (uint64, error) {
	conn, err := p.Conn(ctx)
	if err != nil {
		return 0, err
	}
	return conn.AddHandler(method, h), nil
}

// Browser is the top-level façade over common.Browser: target iteration
// plus browser-context-scoped cookie and permission helpers (spec §4.G,
// and the original driver's cookie/permission convenience methods — see
// DESIGN.md).
type Browser struct {
	B *common.Browser
}

// Pages returns every page-type target as a Page, in creation order (spec
// §4.G "Iterating a Browser yields its page-type targets in creation
// order").
func (b *Browser) Pages() []*Page {
	recs := b.B.Pages()
	out := make([]*Page, len(recs))
	for i, r := range recs {
		out[i] = &Page{Target: r}
	}
	return out
}

// PagesReversed is Pages in reverse order (spec §4.G).
func (b *Browser) PagesReversed() []*Page {
	recs := b.B.PagesReversed()
	out := make([]*Page, len(recs))
	for i, r := range recs {
		out[i] = &Page{Target: r}
	}
	return out
}

// Cookies fetches the browser context's cookies once per call. The
// original driver this was distilled from fetched cookies twice per call
// (once to check presence, once to return them); this façade fetches once
// and returns the single result directly (see DESIGN.md's Open Question
// resolution).
func (b *Browser) Cookies(ctx context.Context, browserContextID string) ([]protocol.Cookie, error) {
	result, err := b.B.Root.Send(ctx, protocol.StorageGetCookies(browserContextID), false)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeCookies(result)
}

// SetCookies installs cookies into the given browser context.
func (b *Browser) SetCookies(ctx context.Context, cookies []protocol.Cookie, browserContextID string) error {
	_, err := b.B.Root.Send(ctx, protocol.StorageSetCookies(cookies, browserContextID), false)
	return err
}

// ClearCookies removes every cookie from the given browser context.
func (b *Browser) ClearCookies(ctx context.Context, browserContextID string) error {
	_, err := b.B.Root.Send(ctx, protocol.StorageClearCookies(browserContextID), false)
	return err
}

// GrantPermissions grants permissions for origin within browserContextID.
// CAPTURED_SURFACE_CONTROL is silently excluded from the requested set,
// preserving the original driver's undocumented behavior (see DESIGN.md).
func (b *Browser) GrantPermissions(ctx context.Context, permissions []string, origin, browserContextID string) error {
	_, err := b.B.Root.Send(ctx, protocol.BrowserGrantPermissions(permissions, origin, browserContextID), false)
	return err
}

// GrantAllPermissions grants every known permission for origin within
// browserContextID without the caller having to enumerate them (see
// SPEC_FULL.md's "supplemented features" — this is zendriver's
// grant_all_permissions).
func (b *Browser) GrantAllPermissions(ctx context.Context, origin, browserContextID string) error {
	_, err := b.B.Root.Send(ctx, protocol.BrowserGrantAllPermissions(origin, browserContextID), false)
	return err
}

// ResetPermissions resets all permission grants for browserContextID, a
// method the distilled spec dropped but the original driver exposed
// alongside GrantPermissions (see SPEC_FULL.md's "supplemented features").
func (b *Browser) ResetPermissions(ctx context.Context, browserContextID string) error {
	_, err := b.B.Root.Send(ctx, protocol.BrowserResetPermissions(browserContextID), false)
	return err
}

// Close runs the browser's stop sequence (spec §4.F "Stop sequence").
func (b *Browser) Close(ctx context.Context) error {
	return b.B.Stop(ctx)
}
