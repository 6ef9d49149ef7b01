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

package protocol

import "encoding/json"

// This file hand-writes typed convenience constructors and result decoders
// over the generic kernel for the handful of commands and events this
// driver's public surface names explicitly. Everything else the schema
// document describes remains reachable generically through Command plus
// LookupCommand/LookupEvent; these wrappers exist only to spare callers
// from hand-building param maps for the operations used throughout this
// package and its callers.

// --- Target domain ---

func TargetSetDiscoverTargets(discover bool) Command {
	return Command{Method: "Target.setDiscoverTargets", Params: map[string]interface{}{"discover": discover}}
}

func TargetGetTargets() Command {
	return Command{Method: "Target.getTargets"}
}

// DecodeGetTargets extracts the targetInfos array from a getTargets reply.
func DecodeGetTargets(r Result) ([]TargetInfo, error) {
	raw, ok := r.Values["targetInfos"]
	if !ok {
		return nil, nil
	}
	var infos []TargetInfo
	if err := json.Unmarshal(raw, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

type CreateTargetParams struct {
	URL              string
	Width, Height    int
	BrowserContextID string
	NewWindow        bool
	Background       bool
}

func TargetCreateTarget(p CreateTargetParams) Command {
	params := map[string]interface{}{"url": p.URL}
	if p.Width > 0 {
		params["width"] = p.Width
	}
	if p.Height > 0 {
		params["height"] = p.Height
	}
	if p.BrowserContextID != "" {
		params["browserContextId"] = p.BrowserContextID
	}
	if p.NewWindow {
		params["newWindow"] = true
	}
	if p.Background {
		params["background"] = true
	}
	return Command{Method: "Target.createTarget", Params: params}
}

// DecodeTargetID extracts a single "targetId" return value.
func DecodeTargetID(r Result) (string, error) {
	var id string
	err := r.Single(&id)
	return id, err
}

func TargetAttachToTarget(targetID string, flatten bool) Command {
	return Command{Method: "Target.attachToTarget", Params: map[string]interface{}{
		"targetId": targetID,
		"flatten":  flatten,
	}}
}

// DecodeSessionID extracts a single "sessionId" return value.
func DecodeSessionID(r Result) (string, error) {
	var id string
	err := r.Single(&id)
	return id, err
}

func TargetDetachFromTarget(sessionID string) Command {
	return Command{Method: "Target.detachFromTarget", Params: map[string]interface{}{"sessionId": sessionID}}
}

func TargetCloseTarget(targetID string) Command {
	return Command{Method: "Target.closeTarget", Params: map[string]interface{}{"targetId": targetID}}
}

func TargetActivateTarget(targetID string) Command {
	return Command{Method: "Target.activateTarget", Params: map[string]interface{}{"targetId": targetID}}
}

func TargetCreateBrowserContext() Command {
	return Command{Method: "Target.createBrowserContext"}
}

func TargetDisposeBrowserContext(browserContextID string) Command {
	return Command{Method: "Target.disposeBrowserContext", Params: map[string]interface{}{"browserContextId": browserContextID}}
}

// DecodeTargetInfo decodes an event's "targetInfo" field.
func DecodeTargetInfo(fields map[string]json.RawMessage) (TargetInfo, error) {
	var info TargetInfo
	raw, ok := fields["targetInfo"]
	if !ok {
		return info, nil
	}
	err := json.Unmarshal(raw, &info)
	return info, err
}

// DecodeTargetIDField decodes an event's "targetId" field.
func DecodeTargetIDField(fields map[string]json.RawMessage) (string, error) {
	raw, ok := fields["targetId"]
	if !ok {
		return "", nil
	}
	var id string
	err := json.Unmarshal(raw, &id)
	return id, err
}

const (
	EventTargetCreated         = "Target.targetCreated"
	EventTargetInfoChanged     = "Target.targetInfoChanged"
	EventTargetDestroyed       = "Target.targetDestroyed"
	EventTargetCrashed         = "Target.targetCrashed"
	EventTargetAttachedTarget  = "Target.attachedToTarget"
	EventTargetDetachedTarget  = "Target.detachedFromTarget"
)

// --- Page domain ---

func PageEnable() Command { return Command{Method: "Page.enable"} }

func PageNavigate(url string) Command {
	return Command{Method: "Page.navigate", Params: map[string]interface{}{"url": url}}
}

func PageClose() Command        { return Command{Method: "Page.close"} }
func PageBringToFront() Command { return Command{Method: "Page.bringToFront"} }

const EventPageFrameNavigated = "Page.frameNavigated"
const EventPageLoadEventFired = "Page.loadEventFired"

// --- Fetch domain ---

func FetchEnable() Command  { return Command{Method: "Fetch.enable"} }
func FetchDisable() Command { return Command{Method: "Fetch.disable"} }

func FetchContinueRequest(requestID string) Command {
	return Command{Method: "Fetch.continueRequest", Params: map[string]interface{}{"requestId": requestID}}
}

func FetchFailRequest(requestID, reason string) Command {
	return Command{Method: "Fetch.failRequest", Params: map[string]interface{}{
		"requestId":   requestID,
		"errorReason": reason,
	}}
}

const EventFetchRequestPaused = "Fetch.requestPaused"

// DecodeRequestID decodes an event's "requestId" field.
func DecodeRequestID(fields map[string]json.RawMessage) (string, error) {
	raw, ok := fields["requestId"]
	if !ok {
		return "", nil
	}
	var id string
	err := json.Unmarshal(raw, &id)
	return id, err
}

// --- Storage domain ---

type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

func StorageGetCookies(browserContextID string) Command {
	params := map[string]interface{}{}
	if browserContextID != "" {
		params["browserContextId"] = browserContextID
	}
	return Command{Method: "Storage.getCookies", Params: params}
}

func DecodeCookies(r Result) ([]Cookie, error) {
	raw, ok := r.Values["cookies"]
	if !ok {
		return nil, nil
	}
	var cookies []Cookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, err
	}
	return cookies, nil
}

func StorageSetCookies(cookies []Cookie, browserContextID string) Command {
	params := map[string]interface{}{"cookies": cookies}
	if browserContextID != "" {
		params["browserContextId"] = browserContextID
	}
	return Command{Method: "Storage.setCookies", Params: params}
}

func StorageClearCookies(browserContextID string) Command {
	params := map[string]interface{}{}
	if browserContextID != "" {
		params["browserContextId"] = browserContextID
	}
	return Command{Method: "Storage.clearCookies", Params: params}
}

// --- Browser domain ---

func BrowserClose() Command     { return Command{Method: "Browser.close"} }
func BrowserGetVersion() Command { return Command{Method: "Browser.getVersion"} }

// permissionDenylist lists permission names never granted by
// Browser.GrantPermissions. CAPTURED_SURFACE_CONTROL is removed from the
// requested set for reasons the upstream implementation this driver was
// distilled from never documented; see the Open Question decision in
// DESIGN.md for why this behavior is preserved rather than "fixed".
var permissionDenylist = map[string]bool{
	"capturedSurfaceControl": true,
}

// AllPermissions is the full cdp.browser.PermissionType enum with
// capturedSurfaceControl excluded, used by BrowserGrantAllPermissions so
// callers don't have to hand-enumerate every permission name themselves.
var AllPermissions = []string{
	"accessibilityEvents",
	"audioCapture",
	"backgroundSync",
	"backgroundFetch",
	"clipboardReadWrite",
	"clipboardSanitizedWrite",
	"displayCapture",
	"durableStorage",
	"geolocation",
	"idleDetection",
	"localFonts",
	"midi",
	"midiSysex",
	"nfc",
	"notifications",
	"paymentHandler",
	"periodicBackgroundSync",
	"protectedMediaIdentifier",
	"sensors",
	"storageAccess",
	"topLevelStorageAccess",
	"videoCapture",
	"videoCapturePanTiltZoom",
	"wakeLockScreen",
	"wakeLockSystem",
	"windowManagement",
}

func BrowserGrantPermissions(permissions []string, origin, browserContextID string) Command {
	filtered := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if permissionDenylist[p] {
			continue
		}
		filtered = append(filtered, p)
	}
	params := map[string]interface{}{"permissions": filtered}
	if origin != "" {
		params["origin"] = origin
	}
	if browserContextID != "" {
		params["browserContextId"] = browserContextID
	}
	return Command{Method: "Browser.grantPermissions", Params: params}
}

// BrowserGrantAllPermissions grants every known permission (AllPermissions)
// for origin within browserContextID, with no caller-supplied list.
func BrowserGrantAllPermissions(origin, browserContextID string) Command {
	return BrowserGrantPermissions(AllPermissions, origin, browserContextID)
}

func BrowserResetPermissions(browserContextID string) Command {
	params := map[string]interface{}{}
	if browserContextID != "" {
		params["browserContextId"] = browserContextID
	}
	return Command{Method: "Browser.resetPermissions", Params: params}
}

// --- Runtime domain ---

func RuntimeEnable() Command { return Command{Method: "Runtime.enable"} }

func RuntimeEvaluate(expression string, awaitPromise bool) Command {
	return Command{Method: "Runtime.evaluate", Params: map[string]interface{}{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  awaitPromise,
	}}
}
