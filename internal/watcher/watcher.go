// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/vibefoundry/vibefoundry/internal/events"
)

// ErrNotIdle is returned when starting a watcher that already ran.
var ErrNotIdle = errors.New("watcher is not idle")

const defaultInterval = time.Second

// State is the lifecycle state of a Watcher.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Folders are the three watched directories of a project.
type Folders struct {
	Input   string
	Output  string
	Scripts string
}

func (f Folders) path(c Category) string {
	switch c {
	case CategoryInput:
		return f.Input
	case CategoryOutput:
		return f.Output
	case CategoryScripts:
		return f.Scripts
	}
	return ""
}

var categories = []Category{CategoryInput, CategoryOutput, CategoryScripts}

// Options configures a Watcher.
type Options struct {
	Folders  Folders
	Interval time.Duration // time between cycles, default 1s
	Debounce time.Duration // per-path suppression window, default 500ms
	Horizon  time.Duration // debounce table retention, default 10s
	Notify   bool          // wake early on fsnotify activity
}

// Watcher polls the project folders and publishes surviving changes on the
// event bus. Cycles never overlap, including CheckOnce calls.
type Watcher struct {
	folders   Folders
	interval  time.Duration
	notify    bool
	bus       events.EventBus
	debouncer *Debouncer

	mu        sync.Mutex // serializes cycles and guards snapshots
	snapshots map[Category]Snapshot

	stateMu  sync.Mutex
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	notifier *Notifier
}

// New creates an idle watcher. bus may be nil, in which case the loop
// only keeps its snapshots current.
func New(opts Options, bus events.EventBus) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	return &Watcher{
		folders:   opts.Folders,
		interval:  opts.Interval,
		notify:    opts.Notify,
		bus:       bus,
		debouncer: NewDebouncer(opts.Debounce, opts.Horizon),
		snapshots: make(map[Category]Snapshot),
	}
}

// Folders returns the watched folders.
func (w *Watcher) Folders() Folders {
	return w.folders
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.state
}

// Start takes the baseline snapshots and begins polling. The baseline never
// produces events.
func (w *Watcher) Start(ctx context.Context) error {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	if w.state != StateIdle {
		return ErrNotIdle
	}

	w.Baseline()

	if w.notify {
		n, err := NewNotifier(w.folders.Input, w.folders.Output, w.folders.Scripts)
		if err != nil {
			log.Printf("Watcher: fsnotify unavailable, polling only: %v", err)
		} else {
			w.notifier = n
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.state = StateRunning

	go w.run(ctx, w.done)
	return nil
}

// Stop ends polling and waits for an in-flight cycle to finish. No events
// are published after Stop returns. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stateMu.Lock()
	if w.state == StateRunning {
		w.cancel()
	}
	w.state = StateStopped
	done := w.done
	notifier := w.notifier
	w.notifier = nil
	w.stateMu.Unlock()

	if done != nil {
		<-done
	}
	if notifier != nil {
		notifier.Close()
	}
}

// Baseline replaces every snapshot with a fresh scan without diffing.
func (w *Watcher) Baseline() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range categories {
		w.snapshots[c] = Scan(w.folders.path(c))
	}
}

// CheckOnce runs one synchronous scan and diff, updates the snapshots and
// returns every change, deletions included. Nothing is debounced or
// published.
func (w *Watcher) CheckOnce() Changes {
	return w.rescan()
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var wake <-chan struct{}
	w.stateMu.Lock()
	if w.notifier != nil {
		wake = w.notifier.C()
	}
	w.stateMu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}
		if ctx.Err() != nil {
			return
		}
		w.cycle(context.WithoutCancel(ctx))
	}
}

func (w *Watcher) cycle(ctx context.Context) {
	changes := w.rescan()
	w.debouncer.Prune()
	if changes.Empty() {
		return
	}

	input := w.debouncer.Filter(dispatchable(changes.Input))
	output := w.debouncer.Filter(dispatchable(changes.Output))
	scripts := w.debouncer.Filter(dispatchable(changes.Scripts))

	if w.bus == nil {
		return
	}

	if len(input) > 0 || len(output) > 0 {
		w.publish(ctx, events.Event{
			Type: events.EventDataChanged,
			Payload: map[string]interface{}{
				"input":  len(input),
				"output": len(output),
			},
		})
	}
	for _, c := range output {
		w.publish(ctx, changeEvent(events.EventOutputChanged, c))
	}
	for _, c := range scripts {
		w.publish(ctx, changeEvent(events.EventScriptChanged, c))
	}
}

func (w *Watcher) rescan() Changes {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out Changes
	for _, c := range categories {
		next := Scan(w.folders.path(c))
		diff := Diff(w.snapshots[c], next, c)
		w.snapshots[c] = next
		switch c {
		case CategoryInput:
			out.Input = diff
		case CategoryOutput:
			out.Output = diff
		case CategoryScripts:
			out.Scripts = diff
		}
	}
	return out
}

func (w *Watcher) publish(ctx context.Context, event events.Event) {
	if err := w.bus.Publish(ctx, event); err != nil {
		log.Printf("Watcher: publish %s: %v", event.Type, err)
	}
}

// dispatchable drops deletions. Deleted files update the snapshot but do
// not notify anyone.
func dispatchable(changes []Change) []Change {
	var kept []Change
	for _, c := range changes {
		if c.Type != Deleted {
			kept = append(kept, c)
		}
	}
	return kept
}

func changeEvent(eventType string, c Change) events.Event {
	return events.Event{
		Type:       eventType,
		Path:       c.Path,
		Category:   string(c.Category),
		ChangeType: string(c.Type),
	}
}
