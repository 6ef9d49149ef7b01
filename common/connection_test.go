package common

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/browserkit/browserkit/protocol"
	wstest "github.com/browserkit/browserkit/tests/ws"
	"github.com/browserkit/browserkit/wire"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestConnectionSendReceivesResult(t *testing.T) {
	srv := wstest.New(t, wstest.EchoOK)
	defer srv.Close()

	conn, err := Attach(context.Background(), srv.WSURL(), testLog())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Send(context.Background(), protocol.PageEnable(), false)
	require.NoError(t, err)
}

func TestConnectionSessionScoping(t *testing.T) {
	srv := wstest.New(t, wstest.AttachToTargetHandler)
	defer srv.Close()

	root, err := Attach(context.Background(), srv.WSURL(), testLog())
	require.NoError(t, err)
	defer root.Close()

	child, err := root.CreateSession(context.Background(), wstest.DummyTargetID)
	require.NoError(t, err)
	require.Equal(t, wstest.DummySessionID, child.SessionID())
	require.False(t, child.IsRoot())
	require.True(t, root.IsRoot())
}

func TestConnectionCloseFailsPending(t *testing.T) {
	never := func(f *wire.Frame) []*wire.Frame { return nil }
	srv := wstest.New(t, never)
	defer srv.Close()

	conn, err := Attach(context.Background(), srv.WSURL(), testLog())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, sendErr := conn.Send(context.Background(), protocol.PageEnable(), false)
		done <- sendErr
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Send did not unblock after Close")
	}
}

func TestConnectionSendOnClosedFails(t *testing.T) {
	srv := wstest.New(t, wstest.EchoOK)
	conn, err := Attach(context.Background(), srv.WSURL(), testLog())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	srv.Close()

	_, err = conn.Send(context.Background(), protocol.PageEnable(), false)
	require.Error(t, err)
}

func TestConnectionFeedDispatchesLocally(t *testing.T) {
	srv := wstest.New(t, wstest.EchoOK)
	defer srv.Close()

	conn, err := Attach(context.Background(), srv.WSURL(), testLog())
	require.NoError(t, err)
	defer conn.Close()

	received := make(chan map[string]json.RawMessage, 1)
	conn.AddHandler(protocol.EventTargetDestroyed, func(fields map[string]json.RawMessage) {
		received <- fields
	})

	raw, err := json.Marshal(map[string]interface{}{
		"method": protocol.EventTargetDestroyed,
		"params": map[string]interface{}{"targetId": "t1"},
	})
	require.NoError(t, err)
	conn.Feed(raw)

	select {
	case fields := <-received:
		require.Equal(t, `"t1"`, string(fields["targetId"]))
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestConnectionRemoveHandlers(t *testing.T) {
	srv := wstest.New(t, wstest.EchoOK)
	defer srv.Close()

	conn, err := Attach(context.Background(), srv.WSURL(), testLog())
	require.NoError(t, err)
	defer conn.Close()

	calls := 0
	conn.AddHandler(protocol.EventTargetDestroyed, func(map[string]json.RawMessage) { calls++ })
	conn.RemoveHandlers(protocol.EventTargetDestroyed, 0)

	raw, err := json.Marshal(map[string]interface{}{
		"method": protocol.EventTargetDestroyed,
		"params": map[string]interface{}{"targetId": "t1"},
	})
	require.NoError(t, err)
	conn.Feed(raw)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, calls)
}
