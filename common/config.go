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

package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/browserkit/browserkit/browserkiterr"
)

// BrowserKind names the browser family a Config is for (spec §6
// "Configuration surface"). Executable detection does not read it: the
// chromium allocator probes the same Chrome/Chromium locations for every
// value.
type BrowserKind string

const (
	BrowserAuto   BrowserKind = "auto"
	BrowserChrome BrowserKind = "chrome"
	BrowserBrave  BrowserKind = "brave"
)

// reservedArgs may never be passed through BrowserArgs; Config.Validate
// rejects them with a ConfigError (spec §7 "ConfigError").
var reservedArgs = map[string]bool{
	"remote-debugging-port": true,
	"user-data-dir":         true,
}

// Config is the full set of recognized launch/attach options (spec §6
// "Configuration surface"). Callers build one Config per Browser; it is
// never mutated after Start.
type Config struct {
	UserDataDir string
	Headless    bool
	ExecPath    string
	Browser     BrowserKind
	BrowserArgs []string
	Sandbox     bool
	Lang        string

	// Host/Port non-empty selects attach mode: no process is spawned and
	// discovery polls this address directly (spec §4.F step 2).
	Host string
	Port string

	Expert bool

	ConnectionTimeout  time.Duration
	ConnectionMaxTries int
}

// DefaultConfig returns the baseline options a Browser uses when the
// caller supplies none.
func DefaultConfig() Config {
	return Config{
		Browser:            BrowserAuto,
		Sandbox:            true,
		ConnectionTimeout:  10 * time.Second,
		ConnectionMaxTries: 20,
	}
}

// Validate rejects configuration misuse before anything is spawned (spec
// §7 "ConfigError raised synchronously").
func (c Config) Validate() error {
	for _, arg := range c.BrowserArgs {
		name := arg
		if i := strings.IndexByte(arg, '='); i >= 0 {
			name = arg[:i]
		}
		name = strings.TrimLeft(name, "-")
		if reservedArgs[name] {
			return &browserkiterr.ConfigError{Option: "browser-args", Err: fmt.Errorf("%q is reserved and managed internally", arg)}
		}
	}
	if (c.Host == "") != (c.Port == "") {
		return &browserkiterr.ConfigError{Option: "host/port", Err: fmt.Errorf("both or neither of host and port must be set")}
	}
	return nil
}
