// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/vibefoundry/vibefoundry/internal/events"
)

// Manager tracks live bridges so they can be listed and shut down together.
// Bridges share nothing with each other; the manager only holds handles.
type Manager struct {
	opts BridgeOptions
	bus  events.EventBus

	mu      sync.Mutex
	bridges map[string]*tracked
	closed  bool
	wg      sync.WaitGroup
}

type tracked struct {
	bridge *Bridge
	cancel context.CancelFunc
}

// NewManager creates a manager whose bridges use opts.
func NewManager(opts BridgeOptions, bus events.EventBus) *Manager {
	return &Manager{
		opts:    opts,
		bus:     bus,
		bridges: make(map[string]*tracked),
	}
}

// Serve runs a bridge over ch until it ends. workDir overrides the
// configured working directory when non-empty.
func (m *Manager) Serve(ctx context.Context, ch Channel, workDir string) error {
	opts := m.opts
	if workDir != "" {
		opts.Session.WorkDir = workDir
	}
	bridge := NewBridge(ch, opts, m.bus)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		ch.Close()
		return context.Canceled
	}
	m.bridges[bridge.ID()] = &tracked{bridge: bridge, cancel: cancel}
	m.wg.Add(1)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.bridges, bridge.ID())
		m.mu.Unlock()
		m.wg.Done()
	}()

	return bridge.Run(ctx)
}

// List returns every live bridge ordered by id.
func (m *Manager) List() []BridgeInfo {
	m.mu.Lock()
	bridges := make([]*Bridge, 0, len(m.bridges))
	for _, t := range m.bridges {
		bridges = append(bridges, t.bridge)
	}
	m.mu.Unlock()

	infos := make([]BridgeInfo, 0, len(bridges))
	for _, b := range bridges {
		infos = append(infos, b.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Len returns the number of live bridges.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bridges)
}

// Shutdown cancels every bridge and waits for them to release their
// sessions. New bridges are refused afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	n := len(m.bridges)
	for _, t := range m.bridges {
		t.cancel()
	}
	m.mu.Unlock()

	if n > 0 {
		log.Printf("Terminal manager: closing %d active bridges", n)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
