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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/browserkit/browserkit/browserkiterr"
)

type versionInfo struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// discoveryClient is the package-level HTTP client every discovery request
// goes through.
var discoveryClient = &http.Client{Timeout: 10 * time.Second}

// DiscoverWebSocketURL polls GET http://host:port/json/version with
// bounded retries until a webSocketDebuggerUrl is returned (spec §4.F step
// 3, §6 "HTTP discovery"). Retries are paced by a limiter rather than a
// fixed sleep so bursts of early failures (the process still starting up)
// don't waste the whole retry budget busy-looping.
func DiscoverWebSocketURL(ctx context.Context, host, port string, maxTries int, timeout time.Duration) (string, error) {
	limiter := rate.NewLimiter(rate.Every(150*time.Millisecond), 1)
	url := fmt.Sprintf("http://%s:%s/json/version", host, port)

	var lastErr error
	for attempt := 1; attempt <= maxTries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return "", &browserkiterr.DiscoveryError{Host: host, Port: port, Tries: attempt, Err: err}
		}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		ws, err := tryDiscover(reqCtx, url)
		cancel()
		if err == nil {
			return ws, nil
		}
		lastErr = err
	}
	return "", &browserkiterr.DiscoveryError{Host: host, Port: port, Tries: maxTries, Err: lastErr}
}

func tryDiscover(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := discoveryClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discovery: unexpected status %d", resp.StatusCode)
	}
	var v versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return "", err
	}
	if v.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("discovery: response missing webSocketDebuggerUrl")
	}
	return v.WebSocketDebuggerURL, nil
}
