// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Notifier turns fsnotify activity under a set of folders into wake-up
// signals for the watch loop. It never produces changes itself; the loop
// still diffs snapshots, so a missed or coalesced notification only delays
// detection until the next tick.
type Notifier struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	wake    chan struct{}
	dirs    map[string]bool
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewNotifier watches each folder and its subdirectories. Folders that do
// not exist yet are skipped.
func NewNotifier(folders ...string) (*Notifier, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	n := &Notifier{
		watcher: fsWatcher,
		wake:    make(chan struct{}, 1),
		dirs:    make(map[string]bool),
		closeCh: make(chan struct{}),
	}
	for _, folder := range folders {
		n.addTree(folder)
	}

	n.wg.Add(1)
	go n.processEvents()

	return n, nil
}

// C delivers at most one pending wake-up.
func (n *Notifier) C() <-chan struct{} {
	return n.wake
}

// Watching returns the number of watched directories.
func (n *Notifier) Watching() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.dirs)
}

// Close stops the notifier. Safe to call more than once.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.closeCh)
	n.mu.Unlock()

	err := n.watcher.Close()
	n.wg.Wait()
	return err
}

func (n *Notifier) addTree(root string) {
	if _, err := os.Stat(root); err != nil {
		return
	}
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		n.addDir(path)
		return nil
	})
}

func (n *Notifier) addDir(dir string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || n.dirs[dir] {
		return
	}
	if err := n.watcher.Add(dir); err != nil {
		log.Printf("Watcher: cannot watch %s: %v", dir, err)
		return
	}
	n.dirs[dir] = true
}

func (n *Notifier) processEvents() {
	defer n.wg.Done()

	for {
		select {
		case <-n.closeCh:
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			n.handleEvent(event)

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher: fsnotify error: %v", err)
		}
	}
}

func (n *Notifier) handleEvent(event fsnotify.Event) {
	// Chmod alone never changes an mtime snapshot.
	if event.Op == fsnotify.Chmod {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			n.addTree(event.Name)
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		n.mu.Lock()
		delete(n.dirs, event.Name)
		n.mu.Unlock()
	}

	select {
	case n.wake <- struct{}{}:
	default:
	}
}
