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
	"fmt"
	"os"
)

const profileDirPattern = "browserkit-profile-*"

// DataStore owns a browser profile directory: either one the caller
// supplied (kept as-is, never removed) or one generated under tmpDir
// (removed on Cleanup). buildCmdArgs uses it to resolve --user-data-dir.
type DataStore struct {
	Dir    string // path to the data storage directory
	remove bool   // whether to remove the temporary directory in cleanup

	// FS abstractions
	fsMkdirTemp func(dir, pattern string) (string, error)
	fsRemoveAll func(path string) error
}

// Make creates a new temporary directory in tmpDir, and stores the path to
// the directory in the Dir field.
// When the Dir argument is not empty, no directory will be created.
func (d *DataStore) Make(tmpDir string, dir interface{}) error {
	// use the provided dir.
	if ud, ok := dir.(string); ok && ud != "" {
		d.Dir = ud
		return nil
	}

	// create a temporary dir because the provided dir is empty.
	if d.fsMkdirTemp == nil {
		d.fsMkdirTemp = os.MkdirTemp
	}
	var err error
	if d.Dir, err = d.fsMkdirTemp(tmpDir, profileDirPattern); err != nil {
		return fmt.Errorf("mkdirTemp: %w", err)
	}
	d.remove = true

	return nil
}

// Cleanup removes the temporary directory.
// it is named as Cleanup because it can be used for other features
// in the future.
func (d *DataStore) Cleanup() {
	if !d.remove {
		return
	}
	if d.fsRemoveAll == nil {
		d.fsRemoveAll = os.RemoveAll
	}
	_ = d.fsRemoveAll(d.Dir)
}
