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

import (
	"fmt"
	"sync"
)

var (
	registryOnce sync.Once
	registry     *Catalog
	registryErr  error
)

// Registry returns the process-global descriptor catalog, built once from
// the schema embedded in the binary (spec §4.A "Registry of methods", §9
// "Global event-type registry"). Incoming notifications are routed by
// method-name lookup here rather than by traversing the schema document.
func Registry() (*Catalog, error) {
	registryOnce.Do(func() {
		registry, registryErr = LoadDefault()
	})
	return registry, registryErr
}

// LookupEvent resolves a notification method name to its descriptor using
// the process-global registry.
func LookupEvent(method string) (*EventDescriptor, error) {
	cat, err := Registry()
	if err != nil {
		return nil, err
	}
	evt, ok := cat.Events[method]
	if !ok {
		return nil, fmt.Errorf("protocol: unknown event method %q", method)
	}
	return evt, nil
}

// LookupCommand resolves a command method name to its descriptor using the
// process-global registry.
func LookupCommand(method string) (*CommandDescriptor, error) {
	cat, err := Registry()
	if err != nil {
		return nil, err
	}
	cmd, ok := cat.Commands[method]
	if !ok {
		return nil, fmt.Errorf("protocol: unknown command method %q", method)
	}
	return cmd, nil
}
