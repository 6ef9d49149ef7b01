package common

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

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

func TestRegistryReconcileSeedsFromGetTargets(t *testing.T) {
	infos := `[{"targetId":"t1","type":"page","title":"","url":"about:blank","attached":true}]`
	srv := wstest.New(t, getTargetsHandler(infos))
	defer srv.Close()

	root, err := Attach(context.Background(), srv.WSURL(), testLog())
	require.NoError(t, err)
	defer root.Close()

	reg := NewRegistry(root, testLog())
	require.NoError(t, reg.Reconcile(context.Background()))

	require.Equal(t, 1, reg.Len())
	rec, ok := reg.Get("t1")
	require.True(t, ok)
	require.Equal(t, "page", rec.Info.Type)
}

func TestRegistryTargetCreatedAndDestroyed(t *testing.T) {
	srv := wstest.New(t, wstest.EchoOK)
	defer srv.Close()

	root, err := Attach(context.Background(), srv.WSURL(), testLog())
	require.NoError(t, err)
	defer root.Close()

	reg := NewRegistry(root, testLog())

	created, err := json.Marshal(map[string]interface{}{
		"method": protocol.EventTargetCreated,
		"params": map[string]interface{}{
			"targetInfo": map[string]interface{}{
				"targetId": "t2", "type": "page", "attached": true,
			},
		},
	})
	require.NoError(t, err)
	root.Feed(created)

	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 5*time.Millisecond)

	destroyed, err := json.Marshal(map[string]interface{}{
		"method": protocol.EventTargetDestroyed,
		"params": map[string]interface{}{"targetId": "t2"},
	})
	require.NoError(t, err)
	root.Feed(destroyed)

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRegistryTargetDestroyedClosesAttachedConnection(t *testing.T) {
	srv := wstest.New(t, wstest.AttachToTargetHandler)
	defer srv.Close()

	root, err := Attach(context.Background(), srv.WSURL(), testLog())
	require.NoError(t, err)
	defer root.Close()

	reg := NewRegistry(root, testLog())

	created, err := json.Marshal(map[string]interface{}{
		"method": protocol.EventTargetCreated,
		"params": map[string]interface{}{
			"targetInfo": map[string]interface{}{
				"targetId": wstest.DummyTargetID, "type": "page", "attached": true,
			},
		},
	})
	require.NoError(t, err)
	root.Feed(created)
	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 5*time.Millisecond)

	rec, ok := reg.Get(wstest.DummyTargetID)
	require.True(t, ok)
	conn, err := rec.Conn(context.Background())
	require.NoError(t, err)
	require.Equal(t, wstest.DummySessionID, conn.SessionID())

	root.mu.Lock()
	_, attached := root.children[conn.SessionID()]
	root.mu.Unlock()
	require.True(t, attached, "child connection should be registered on the root while the target is alive")

	destroyed, err := json.Marshal(map[string]interface{}{
		"method": protocol.EventTargetDestroyed,
		"params": map[string]interface{}{"targetId": wstest.DummyTargetID},
	})
	require.NoError(t, err)
	root.Feed(destroyed)

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		root.mu.Lock()
		_, stillThere := root.children[conn.SessionID()]
		root.mu.Unlock()
		return !stillThere
	}, time.Second, 5*time.Millisecond, "destroyed target's session should be removed from the root's children table")
	require.Eventually(t, func() bool {
		return conn.currentState() == stateClosed
	}, time.Second, 5*time.Millisecond, "destroyed target's Connection should be closed")

	_, err = conn.Send(context.Background(), protocol.PageNavigate("about:blank"), false)
	require.Error(t, err)
}

func TestRegistryMainIsEarliestPage(t *testing.T) {
	infos := `[
		{"targetId":"w1","type":"worker","title":"","url":"","attached":true},
		{"targetId":"p1","type":"page","title":"","url":"about:blank","attached":true},
		{"targetId":"p2","type":"page","title":"","url":"about:blank","attached":true}
	]`
	srv := wstest.New(t, getTargetsHandler(infos))
	defer srv.Close()

	root, err := Attach(context.Background(), srv.WSURL(), testLog())
	require.NoError(t, err)
	defer root.Close()

	reg := NewRegistry(root, testLog())
	require.NoError(t, reg.Reconcile(context.Background()))

	main, ok := reg.Main()
	require.True(t, ok)
	require.Equal(t, "p1", main.Info.TargetID)
}

func TestRegistryPagesReversed(t *testing.T) {
	infos := `[
		{"targetId":"p1","type":"page","title":"","url":"","attached":true},
		{"targetId":"p2","type":"page","title":"","url":"","attached":true}
	]`
	srv := wstest.New(t, getTargetsHandler(infos))
	defer srv.Close()

	proc := &BrowserProcess{WSURL: srv.WSURL()}
	b, err := NewBrowser(context.Background(), proc, DefaultConfig(), testLog())
	require.NoError(t, err)
	defer b.Stop(context.Background())

	pages := b.Pages()
	reversed := b.PagesReversed()
	require.Len(t, pages, 2)
	require.Equal(t, pages[0].Info.TargetID, reversed[1].Info.TargetID)
	require.Equal(t, pages[1].Info.TargetID, reversed[0].Info.TargetID)
}
