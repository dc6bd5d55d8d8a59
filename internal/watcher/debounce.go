// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"sync"
	"time"
)

const (
	defaultDebounceWindow  = 500 * time.Millisecond
	defaultDebounceHorizon = 10 * time.Second
)

// Debouncer remembers when an event was last emitted for each path and
// suppresses repeats inside the window. Editors often write a file several
// times for one save; only the first write gets through.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	horizon time.Duration
	last    map[string]time.Time
	now     func() time.Time
}

// NewDebouncer creates a debouncer. Non-positive durations fall back to
// 500ms for the window and 10s for the pruning horizon.
func NewDebouncer(window, horizon time.Duration) *Debouncer {
	if window <= 0 {
		window = defaultDebounceWindow
	}
	if horizon < window {
		horizon = defaultDebounceHorizon
		if horizon < window {
			horizon = window
		}
	}
	return &Debouncer{
		window:  window,
		horizon: horizon,
		last:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether an event for path should be emitted now, and
// records the emission if so.
func (d *Debouncer) Allow(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if prev, ok := d.last[path]; ok && now.Sub(prev) < d.window {
		return false
	}
	d.last[path] = now
	return true
}

// Filter returns the changes that survive debouncing, in order.
func (d *Debouncer) Filter(changes []Change) []Change {
	var kept []Change
	for _, c := range changes {
		if d.Allow(c.Path) {
			kept = append(kept, c)
		}
	}
	return kept
}

// Prune forgets paths whose last emission is older than the horizon.
func (d *Debouncer) Prune() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := d.now().Add(-d.horizon)
	n := 0
	for path, t := range d.last {
		if t.Before(cutoff) {
			delete(d.last, path)
			n++
		}
	}
	return n
}

// Len returns the number of tracked paths.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.last)
}

// Reset forgets every path.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = make(map[string]time.Time)
}
