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

// Package chromium launches (or attaches to) a Chromium-family process and
// hands back the control socket a Browser needs to speak DTCP (spec §4.F
// steps 1-3).
package chromium

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/browserkit/browserkit/browserkiterr"
	"github.com/browserkit/browserkit/common"
)

// Allocator spawns a local browser process per a Config and reports its
// control socket (spec §4.F "Spawn process").
type Allocator struct {
	execPath string
	tempDir  string

	wg                   sync.WaitGroup
	combinedOutputWriter io.Writer
}

// NewAllocator resolves the executable to run from cfg (explicit path,
// else auto-detection across common install locations).
func NewAllocator(cfg common.Config) (*Allocator, error) {
	a := &Allocator{}
	if cfg.ExecPath != "" {
		a.execPath = cfg.ExecPath
		return a, nil
	}
	path, err := findExecPath()
	if err != nil {
		return nil, &browserkiterr.LaunchError{Err: err}
	}
	a.execPath = path
	return a, nil
}

// buildCmdArgs assembles `--flag[=value]` launch arguments from cfg (spec
// §4.F step 1 "assemble launch arguments"). It always generates a fresh
// profile directory unless cfg.UserDataDir is set, and forces --no-sandbox
// when running as root even if the caller asked for sandboxing, matching
// the upstream driver's root-detection behavior (see DESIGN.md).
func buildCmdArgs(cfg common.Config) (args []string, userDataDir string, ownsProfile bool, err error) {
	defaults := []string{
		"no-first-run", "no-default-browser-check",
		"disable-background-networking",
		"disable-background-timer-throttling",
		"disable-backgrounding-occluded-windows",
		"disable-breakpad",
		"disable-client-side-phishing-detection",
		"disable-component-extensions-with-background-pages",
		"disable-default-apps",
		"disable-dev-shm-usage",
		"disable-hang-monitor",
		"disable-ipc-flooding-protection",
		"disable-popup-blocking",
		"disable-prompt-on-repost",
		"disable-renderer-backgrounding",
		"disable-sync",
		"metrics-recording-only",
		"safebrowsing-disable-auto-update",
		"enable-automation",
		"password-store=basic",
		"use-mock-keychain",
	}
	for _, flag := range defaults {
		args = append(args, "--"+flag)
	}

	if cfg.Headless {
		args = append(args, "--headless=new")
	}
	if cfg.Expert {
		args = append(args, "--disable-web-security", "--disable-features=IsolateOrigins,site-per-process")
	}
	if cfg.Lang != "" {
		args = append(args, "--lang="+cfg.Lang)
	}

	sandbox := cfg.Sandbox
	if os.Getuid() == 0 {
		// Running as root (common in containers): Chrome refuses to start
		// sandboxed, so --no-sandbox is forced regardless of cfg.Sandbox
		// (spec §6 "sandbox ... forced false when the process runs as
		// root on POSIX").
		sandbox = false
	}
	if !sandbox {
		args = append(args, "--no-sandbox")
	}

	args = append(args, cfg.BrowserArgs...)

	store := &DataStore{}
	if err := store.Make("", cfg.UserDataDir); err != nil {
		return nil, "", false, fmt.Errorf("chromium: %w", err)
	}
	userDataDir = store.Dir
	ownsProfile = store.remove
	args = append(args, "--user-data-dir="+userDataDir)
	args = append(args, "--remote-debugging-port=0")
	return args, userDataDir, ownsProfile, nil
}

// findExecPath probes common Chrome/Chromium install locations across
// platforms. It uses the same candidate list whatever Config.Browser says;
// Brave install locations are not probed.
func findExecPath() (string, error) {
	candidates := []string{
		"headless_shell", "headless-shell", "chromium", "chromium-browser",
		"google-chrome", "google-chrome-stable", "google-chrome-beta", "google-chrome-unstable",
		"/usr/bin/google-chrome",
		"chrome", "chrome.exe",
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		filepath.Join(os.Getenv("USERPROFILE"), `AppData\Local\Google\Chrome\Application\chrome.exe`),
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	}
	for _, path := range candidates {
		if _, err := exec.LookPath(path); err == nil {
			return path, nil
		}
	}
	return "", errors.New("chromium: no browser executable found; set Config.ExecPath")
}

// readOutput scans cmd's combined output for Chrome's "DevTools listening
// on" line and extracts the WebSocket URL (spec §4.F step 3).
func (a *Allocator) readOutput(rc io.ReadCloser, forward io.Writer, done func()) (string, error) {
	prefix := []byte("DevTools listening on")
	var accumulated bytes.Buffer
	bufr := bufio.NewReader(rc)
	for {
		line, err := bufr.ReadBytes('\n')
		if err != nil {
			return "", fmt.Errorf("chromium: process exited before reporting a websocket url:\n%s", accumulated.Bytes())
		}
		if forward != nil {
			if _, err := forward.Write(line); err != nil {
				return "", err
			}
		}
		if bytes.HasPrefix(line, prefix) {
			wsURL := string(bytes.TrimSpace(line[len(prefix):]))
			if forward == nil {
				rc.Close()
			} else {
				go func() {
					_, _ = io.Copy(forward, bufr)
					done()
				}()
			}
			return wsURL, nil
		}
		accumulated.Write(line)
	}
}

// Allocate spawns the process and blocks until its control socket is known
// or timeout elapses (spec §4.F step 3).
func (a *Allocator) Allocate(ctx context.Context, cfg common.Config, timeout time.Duration) (_ *common.BrowserProcess, err error) {
	procCtx, cancel := context.WithCancel(ctx)
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	args, userDataDir, ownsProfile, err := buildCmdArgs(cfg)
	if err != nil {
		return nil, &browserkiterr.LaunchError{Err: err}
	}

	cmd := exec.CommandContext(procCtx, a.execPath, args...)
	// Cancelling procCtx asks the browser to exit with SIGTERM; the
	// force-kill after the graceful deadline is BrowserProcess.Terminate's.
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	KillAfterParent(cmd)
	defer func() {
		if ownsProfile && cmd.Process == nil {
			os.RemoveAll(userDataDir)
		}
	}()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &browserkiterr.LaunchError{Err: err}
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, &browserkiterr.LaunchError{Err: err}
	}
	if procCtx.Err() != nil {
		return nil, &browserkiterr.LaunchError{Err: procCtx.Err()}
	}

	exitDone := make(chan struct{})
	a.wg.Add(1)
	if a.combinedOutputWriter != nil {
		a.wg.Add(1)
	}
	go func() {
		_ = cmd.Wait()
		if ownsProfile {
			os.RemoveAll(userDataDir)
		}
		close(exitDone)
		a.wg.Done()
	}()

	var wsURL string
	wsURLChan := make(chan struct{}, 1)
	go func() {
		wsURL, err = a.readOutput(stdout, a.combinedOutputWriter, a.wg.Done)
		wsURLChan <- struct{}{}
	}()
	select {
	case <-wsURLChan:
	case <-time.After(timeout):
		err = errors.New("chromium: timed out waiting for websocket url")
	}
	if err != nil {
		if a.combinedOutputWriter != nil {
			a.wg.Done()
		}
		return nil, &browserkiterr.LaunchError{Err: err}
	}

	return common.NewBrowserProcess(procCtx, cancel, cmd.Process, wsURL, userDataDir, ownsProfile, exitDone), nil
}
