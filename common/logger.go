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
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logrus.Entry scoped to one Browser instance, reading
// its level from BROWSERKIT_LOG if set (falling back to info).
func NewLogger() *logrus.Entry {
	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, ok := os.LookupEnv("BROWSERKIT_LOG"); ok {
		if parsed, err := logrus.ParseLevel(lvl); err == nil {
			base.SetLevel(parsed)
		}
	}
	return logrus.NewEntry(base)
}
