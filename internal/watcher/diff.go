// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import "sort"

// ChangeType describes how a file changed between two snapshots.
type ChangeType string

const (
	Created  ChangeType = "created"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
)

// Category names the watched folder a change belongs to.
type Category string

const (
	CategoryInput   Category = "input"
	CategoryOutput  Category = "output"
	CategoryScripts Category = "scripts"
)

// Change is a single file change.
type Change struct {
	Path     string     `json:"path"`
	Type     ChangeType `json:"type"`
	Category Category   `json:"category"`
}

// Diff compares two snapshots of the same folder. The result is sorted by
// path so identical inputs always produce identical output.
func Diff(old, cur Snapshot, category Category) []Change {
	var changes []Change

	for path, mtime := range cur {
		prev, ok := old[path]
		switch {
		case !ok:
			changes = append(changes, Change{Path: path, Type: Created, Category: category})
		case !prev.Equal(mtime):
			changes = append(changes, Change{Path: path, Type: Modified, Category: category})
		}
	}
	for path := range old {
		if _, ok := cur[path]; !ok {
			changes = append(changes, Change{Path: path, Type: Deleted, Category: category})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

// Changes groups the result of one check across the three folders.
type Changes struct {
	Input   []Change `json:"input_changes"`
	Output  []Change `json:"output_changes"`
	Scripts []Change `json:"script_changes"`
}

// Empty reports whether no folder changed.
func (c Changes) Empty() bool {
	return len(c.Input) == 0 && len(c.Output) == 0 && len(c.Scripts) == 0
}

// DataChanged reports whether the input or output folder changed.
func (c Changes) DataChanged() bool {
	return len(c.Input) > 0 || len(c.Output) > 0
}
