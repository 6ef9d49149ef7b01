package common

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	wstest "github.com/browserkit/browserkit/tests/ws"
)

func TestBrowserStartSeedsRegistry(t *testing.T) {
	srv := wstest.New(t, wstest.EchoOK)
	defer srv.Close()

	proc := &BrowserProcess{WSURL: srv.WSURL()}
	b, err := NewBrowser(context.Background(), proc, DefaultConfig(), testLog())
	require.NoError(t, err)
	defer b.Stop(context.Background())

	require.Equal(t, BrowserStateOpen, b.currentState())
}

func TestBrowserStopIsIdempotent(t *testing.T) {
	srv := wstest.New(t, wstest.EchoOK)
	defer srv.Close()

	proc := &BrowserProcess{WSURL: srv.WSURL()}
	b, err := NewBrowser(context.Background(), proc, DefaultConfig(), testLog())
	require.NoError(t, err)

	require.NoError(t, b.Stop(context.Background()))
	require.NoError(t, b.Stop(context.Background()))
	require.Equal(t, BrowserStateClosed, b.currentState())
}

func TestBrowserStopAfterProcessKilledDoesNotRaise(t *testing.T) {
	srv := wstest.New(t, wstest.EchoOK)

	proc := &BrowserProcess{WSURL: srv.WSURL()}
	b, err := NewBrowser(context.Background(), proc, DefaultConfig(), testLog())
	require.NoError(t, err)

	// Simulate the browser process dying out from under the connection: the
	// socket drops, the receive loop fails every pending/future send, and
	// Root ends up in stateClosed before Stop ever runs.
	srv.Close()
	require.Eventually(t, func() bool {
		return b.Root.currentState() == stateClosed
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Stop(context.Background()))
	require.Equal(t, BrowserStateClosed, b.currentState())
}

func TestBrowserAttachModeDiscoversOverHTTP(t *testing.T) {
	srv := wstest.New(t, wstest.EchoOK)
	defer srv.Close()

	u, err := url.Parse(srv.URL())
	require.NoError(t, err)
	host, portStr := splitHostPort(u.Host)
	_, err = strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Host, cfg.Port = host, portStr

	b, err := NewBrowser(context.Background(), nil, cfg, testLog())
	require.NoError(t, err)
	defer b.Stop(context.Background())
}

func splitHostPort(hostport string) (string, string) {
	i := strings.LastIndex(hostport, ":")
	if i < 0 {
		return hostport, ""
	}
	return hostport[:i], hostport[i+1:]
}
