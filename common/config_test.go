package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigValidateRejectsReservedBrowserArg(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BrowserArgs = []string{"--user-data-dir=/tmp/x"}
	require.Error(t, cfg.Validate())

	cfg.BrowserArgs = []string{"--remote-debugging-port=9222"}
	require.Error(t, cfg.Validate())
}

func TestConfigValidateAllowsOrdinaryBrowserArg(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BrowserArgs = []string{"--window-size=800,600"}
	require.NoError(t, cfg.Validate())
}

func TestConfigValidateRejectsLopsidedHostPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	require.Error(t, cfg.Validate())

	cfg.Port = "9222"
	require.NoError(t, cfg.Validate())
}
