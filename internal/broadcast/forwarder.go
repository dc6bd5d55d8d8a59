// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vibefoundry/vibefoundry/internal/events"
)

// Forwarder relays watch events from the bus to the registry as wire
// messages, with paths relative to the current project root.
type Forwarder struct {
	bus      events.EventBus
	registry *Registry
	root     func() string

	mu  sync.Mutex
	sub events.SubscriptionID
}

// NewForwarder creates a forwarder. root is consulted per event so a
// project switch takes effect immediately.
func NewForwarder(bus events.EventBus, registry *Registry, root func() string) *Forwarder {
	return &Forwarder{bus: bus, registry: registry, root: root}
}

// Start subscribes to change events.
func (f *Forwarder) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != "" {
		return nil
	}
	id, err := f.bus.SubscribeAsync("*.changed", f.handle, 256)
	if err != nil {
		return err
	}
	f.sub = id
	return nil
}

// Stop unsubscribes. Safe to call more than once.
func (f *Forwarder) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub == "" {
		return
	}
	f.bus.Unsubscribe(f.sub)
	f.sub = ""
}

func (f *Forwarder) handle(ctx context.Context, event events.Event) error {
	msg, ok := f.Translate(event)
	if !ok {
		return nil
	}
	f.registry.Broadcast(msg.Encode())
	return nil
}

// Translate maps a bus event to its wire message.
func (f *Forwarder) Translate(event events.Event) (Message, bool) {
	switch event.Type {
	case events.EventDataChanged:
		return Message{Type: TypeDataChange}, true
	case events.EventScriptChanged:
		return Message{Type: TypeScriptChange, Path: f.relative(event.Path)}, true
	case events.EventOutputChanged:
		return Message{
			Type:       TypeOutputFileChange,
			Path:       f.relative(event.Path),
			ChangeType: event.ChangeType,
		}, true
	}
	return Message{}, false
}

func (f *Forwarder) relative(path string) string {
	root := ""
	if f.root != nil {
		root = f.root()
	}
	if root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
