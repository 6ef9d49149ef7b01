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

package chromium

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/browserkit/browserkit/common"
)

func TestBrowserTypeAttachRequiresHostAndPort(t *testing.T) {
	bt := NewBrowserType(nil)
	_, err := bt.Attach(context.Background(), common.DefaultConfig())
	require.Error(t, err)
}

func TestBrowserTypeAttachRejectsInvalidConfig(t *testing.T) {
	bt := NewBrowserType(nil)
	cfg := common.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.BrowserArgs = []string{"--user-data-dir=/tmp/whatever"}
	cfg.Port = "9222"

	_, err := bt.Attach(context.Background(), cfg)
	require.Error(t, err)
}

func TestBrowserTypeName(t *testing.T) {
	require.Equal(t, "chromium", NewBrowserType(nil).Name())
}
