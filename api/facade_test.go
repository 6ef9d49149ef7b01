package api

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/browserkit/browserkit/common"
	"github.com/browserkit/browserkit/protocol"
	wstest "github.com/browserkit/browserkit/tests/ws"
	"github.com/browserkit/browserkit/wire"
)

func getTargetsHandler(infos string) wstest.Handler {
	return func(f *wire.Frame) []*wire.Frame {
		if f.Method == "Target.getTargets" {
			return []*wire.Frame{{ID: f.ID, Result: json.RawMessage(fmt.Sprintf(`{"targetInfos":%s}`, infos))}}
		}
		return wstest.EchoOK(f)
	}
}

func newTestBrowser(t *testing.T, infos string) (*Browser, func()) {
	t.Helper()
	srv := wstest.New(t, getTargetsHandler(infos))
	proc := &common.BrowserProcess{WSURL: srv.WSURL()}
	cb, err := common.NewBrowser(context.Background(), proc, common.DefaultConfig(), nil)
	require.NoError(t, err)
	return &Browser{B: cb}, func() {
		cb.Stop(context.Background())
		srv.Close()
	}
}

func TestBrowserPagesOrderAndReverse(t *testing.T) {
	infos := `[
		{"targetId":"p1","type":"page","title":"","url":"","attached":true},
		{"targetId":"p2","type":"page","title":"","url":"","attached":true}
	]`
	b, cleanup := newTestBrowser(t, infos)
	defer cleanup()

	pages := b.Pages()
	require.Len(t, pages, 2)
	require.Equal(t, "p1", pages[0].Target.Info.TargetID)
	require.Equal(t, "p2", pages[1].Target.Info.TargetID)

	reversed := b.PagesReversed()
	require.Equal(t, "p2", reversed[0].Target.Info.TargetID)
	require.Equal(t, "p1", reversed[1].Target.Info.TargetID)
}

func TestBrowserCookiesDecodesEmptyList(t *testing.T) {
	b, cleanup := newTestBrowser(t, `[]`)
	defer cleanup()

	cookies, err := b.Cookies(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, cookies)
}

func attachAndListHandler(f *wire.Frame) []*wire.Frame {
	if f.Method == "Target.getTargets" {
		infos := fmt.Sprintf(`[{"targetId":%q,"type":"page","title":"","url":"about:blank","attached":true}]`, wstest.DummyTargetID)
		return []*wire.Frame{{ID: f.ID, Result: json.RawMessage(fmt.Sprintf(`{"targetInfos":%s}`, infos))}}
	}
	return wstest.AttachToTargetHandler(f)
}

func TestPageNavigateAndClose(t *testing.T) {
	srv := wstest.New(t, attachAndListHandler)
	proc := &common.BrowserProcess{WSURL: srv.WSURL()}
	cb, err := common.NewBrowser(context.Background(), proc, common.DefaultConfig(), nil)
	require.NoError(t, err)
	defer func() { cb.Stop(context.Background()); srv.Close() }()

	rec, ok := cb.Registry.Get(wstest.DummyTargetID)
	require.True(t, ok)

	page := &Page{Target: rec}
	require.NoError(t, page.Navigate(context.Background(), "about:blank"))
	require.NoError(t, page.Close(context.Background()))
}

func recordingHandler(seen *[]*wire.Frame) wstest.Handler {
	return func(f *wire.Frame) []*wire.Frame {
		if f.Method == "Browser.grantPermissions" || f.Method == "Browser.resetPermissions" {
			*seen = append(*seen, f)
		}
		return wstest.EchoOK(f)
	}
}

func TestBrowserGrantPermissionsExcludesCapturedSurfaceControl(t *testing.T) {
	var seen []*wire.Frame
	srv := wstest.New(t, recordingHandler(&seen))
	proc := &common.BrowserProcess{WSURL: srv.WSURL()}
	cb, err := common.NewBrowser(context.Background(), proc, common.DefaultConfig(), nil)
	require.NoError(t, err)
	defer func() { cb.Stop(context.Background()); srv.Close() }()

	b := &Browser{B: cb}
	requested := []string{"geolocation", "capturedSurfaceControl", "notifications"}
	require.NoError(t, b.GrantPermissions(context.Background(), requested, "https://example.com", ""))

	require.Len(t, seen, 1)
	var params struct {
		Permissions []string `json:"permissions"`
		Origin      string   `json:"origin"`
	}
	require.NoError(t, json.Unmarshal(seen[0].Params, &params))
	require.Equal(t, []string{"geolocation", "notifications"}, params.Permissions)
	require.Equal(t, "https://example.com", params.Origin)
}

func TestBrowserGrantAllPermissionsSendsFullListMinusExclusion(t *testing.T) {
	var seen []*wire.Frame
	srv := wstest.New(t, recordingHandler(&seen))
	proc := &common.BrowserProcess{WSURL: srv.WSURL()}
	cb, err := common.NewBrowser(context.Background(), proc, common.DefaultConfig(), nil)
	require.NoError(t, err)
	defer func() { cb.Stop(context.Background()); srv.Close() }()

	b := &Browser{B: cb}
	require.NoError(t, b.GrantAllPermissions(context.Background(), "", "ctx1"))

	require.Len(t, seen, 1)
	var params struct {
		Permissions      []string `json:"permissions"`
		BrowserContextID string   `json:"browserContextId"`
	}
	require.NoError(t, json.Unmarshal(seen[0].Params, &params))
	require.Equal(t, protocol.AllPermissions, params.Permissions)
	require.NotContains(t, params.Permissions, "capturedSurfaceControl")
	require.Equal(t, "ctx1", params.BrowserContextID)
}

func TestBrowserResetPermissions(t *testing.T) {
	var seen []*wire.Frame
	srv := wstest.New(t, recordingHandler(&seen))
	proc := &common.BrowserProcess{WSURL: srv.WSURL()}
	cb, err := common.NewBrowser(context.Background(), proc, common.DefaultConfig(), nil)
	require.NoError(t, err)
	defer func() { cb.Stop(context.Background()); srv.Close() }()

	b := &Browser{B: cb}
	require.NoError(t, b.ResetPermissions(context.Background(), "ctx1"))

	require.Len(t, seen, 1)
	require.Equal(t, "Browser.resetPermissions", seen[0].Method)
}
