// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDiff(t *testing.T) {
	old := Snapshot{
		"/p/keep.csv":    t0,
		"/p/changed.csv": t0,
		"/p/gone.csv":    t0,
	}
	cur := Snapshot{
		"/p/keep.csv":    t0,
		"/p/changed.csv": t0.Add(time.Second),
		"/p/new.csv":     t0,
	}

	got := Diff(old, cur, CategoryInput)

	assert.Equal(t, []Change{
		{Path: "/p/changed.csv", Type: Modified, Category: CategoryInput},
		{Path: "/p/gone.csv", Type: Deleted, Category: CategoryInput},
		{Path: "/p/new.csv", Type: Created, Category: CategoryInput},
	}, got)
}

func TestDiff_Idempotent(t *testing.T) {
	snaps := []Snapshot{
		nil,
		{},
		{"/a": t0},
		{"/a": t0, "/b": t0.Add(time.Minute), "/c/d": t0},
	}
	for _, s := range snaps {
		assert.Empty(t, Diff(s, s, CategoryOutput))
	}
}

func TestDiff_Symmetry(t *testing.T) {
	a := Snapshot{"/x": t0, "/y": t0, "/z": t0}
	b := Snapshot{"/y": t0.Add(time.Second), "/z": t0, "/w": t0}

	forward := Diff(a, b, CategoryScripts)
	backward := Diff(b, a, CategoryScripts)

	flip := map[ChangeType]ChangeType{Created: Deleted, Deleted: Created, Modified: Modified}
	var flipped []Change
	for _, c := range forward {
		c.Type = flip[c.Type]
		flipped = append(flipped, c)
	}
	assert.Equal(t, backward, flipped)
}

func TestDiff_NilOld(t *testing.T) {
	got := Diff(nil, Snapshot{"/b": t0, "/a": t0}, CategoryInput)
	assert.Equal(t, []Change{
		{Path: "/a", Type: Created, Category: CategoryInput},
		{Path: "/b", Type: Created, Category: CategoryInput},
	}, got)
}

func TestChanges_Predicates(t *testing.T) {
	assert.True(t, Changes{}.Empty())
	assert.False(t, Changes{}.DataChanged())

	scriptsOnly := Changes{Scripts: []Change{{Path: "/s.py", Type: Created}}}
	assert.False(t, scriptsOnly.Empty())
	assert.False(t, scriptsOnly.DataChanged())

	assert.True(t, Changes{Output: []Change{{Path: "/o.csv", Type: Deleted}}}.DataChanged())
}
