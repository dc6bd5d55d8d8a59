// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher detects file changes in a project's input, output and
// scripts folders by diffing successive modification-time snapshots.
package watcher

import (
	"io/fs"
	"log"
	"path/filepath"
	"time"
)

// Snapshot maps absolute file paths to modification times.
// A snapshot is built whole by Scan and never mutated afterwards.
type Snapshot map[string]time.Time

// Scan walks folder recursively and records every regular file.
// Unreadable entries are skipped; a missing folder yields an empty snapshot.
func Scan(folder string) Snapshot {
	snap := make(Snapshot)
	if folder == "" {
		return snap
	}

	filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != folder {
				debugf("Watcher: skipping %s: %v", path, err)
			}
			if d != nil && d.IsDir() && path != folder {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			debugf("Watcher: skipping %s: %v", path, err)
			return nil
		}
		snap[path] = info.ModTime()
		return nil
	})

	return snap
}

// Verbose enables per-entry scan diagnostics.
var Verbose bool

func debugf(format string, args ...interface{}) {
	if Verbose {
		log.Printf(format, args...)
	}
}
