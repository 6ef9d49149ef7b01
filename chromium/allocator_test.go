package chromium

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/browserkit/browserkit/common"
)

func TestBuildCmdArgsGeneratesProfileDir(t *testing.T) {
	args, dir, owns, err := buildCmdArgs(common.DefaultConfig())
	require.NoError(t, err)
	require.True(t, owns)
	require.DirExists(t, dir)
	t.Cleanup(func() { os.RemoveAll(dir) })

	require.Contains(t, args, "--user-data-dir="+dir)
	require.Contains(t, args, "--remote-debugging-port=0")
}

func TestBuildCmdArgsHonorsUserDataDir(t *testing.T) {
	usrDir := t.TempDir()
	cfg := common.DefaultConfig()
	cfg.UserDataDir = usrDir

	args, dir, owns, err := buildCmdArgs(cfg)
	require.NoError(t, err)
	require.False(t, owns)
	require.Equal(t, usrDir, dir)
	require.Contains(t, args, "--user-data-dir="+usrDir)
}

func TestBuildCmdArgsHeadlessAndLang(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Headless = true
	cfg.Lang = "fr-FR"
	cfg.UserDataDir = t.TempDir()

	args, _, _, err := buildCmdArgs(cfg)
	require.NoError(t, err)
	require.Contains(t, args, "--headless=new")
	require.Contains(t, args, "--lang=fr-FR")
}

func TestBuildCmdArgsSandboxOffAddsNoSandbox(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Sandbox = false
	cfg.UserDataDir = t.TempDir()

	args, _, _, err := buildCmdArgs(cfg)
	require.NoError(t, err)
	require.Contains(t, args, "--no-sandbox")
}

func TestBuildCmdArgsAppendsBrowserArgsAfterDefaults(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.UserDataDir = t.TempDir()
	cfg.BrowserArgs = []string{"--window-size=800,600"}

	args, _, _, err := buildCmdArgs(cfg)
	require.NoError(t, err)
	last := args[len(args)-3] // before --user-data-dir and --remote-debugging-port
	require.Equal(t, "--window-size=800,600", last)
}

func TestFindExecPathFailsClosed(t *testing.T) {
	// Sanity check only: findExecPath either resolves a real browser on
	// this machine or reports a "no browser executable found" error, never
	// panics.
	_, err := findExecPath()
	if err != nil {
		require.True(t, strings.Contains(err.Error(), "no browser executable found"))
	}
}
