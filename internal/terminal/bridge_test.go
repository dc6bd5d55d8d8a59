// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibefoundry/vibefoundry/internal/events"
)

// memChannel is an in-memory Channel. The test plays the peer.
type memChannel struct {
	in       chan []byte
	peerGone chan struct{}
	goneOnce sync.Once

	mu     sync.Mutex
	out    bytes.Buffer
	frames [][]byte
	closed bool
}

func newMemChannel() *memChannel {
	return &memChannel{
		in:       make(chan []byte, 16),
		peerGone: make(chan struct{}),
	}
}

func (c *memChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.out.Write(data)
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *memChannel) Receive(timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		select {
		case msg := <-c.in:
			return msg, nil
		case <-c.peerGone:
			return nil, ErrChannelClosed
		default:
			return nil, ErrTimeout
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-c.in:
		return msg, nil
	case <-c.peerGone:
		return nil, ErrChannelClosed
	case <-timer.C:
		return nil, ErrTimeout
	}
}

func (c *memChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *memChannel) disconnect() {
	c.goneOnce.Do(func() { close(c.peerGone) })
}

func (c *memChannel) output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

func (c *memChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *memChannel) waitFor(t *testing.T, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(c.output()), []byte(want))
	}, 5*time.Second, 10*time.Millisecond, "output never contained %q: %q", want, c.output())
}

func runBridge(t *testing.T, b *Bridge) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()
	require.Eventually(t, func() bool { return b.State() != StateConnecting }, 5*time.Second, 5*time.Millisecond)
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop")
		return nil
	}
}

func TestBridge_EchoHi(t *testing.T) {
	ch := newMemChannel()
	b := NewBridge(ch, BridgeOptions{Session: SessionOptions{Shell: "/bin/sh", WorkDir: t.TempDir()}}, nil)
	done := runBridge(t, b)
	assert.Equal(t, StateActive, b.State())

	ch.in <- []byte("echo hi\n")
	ch.waitFor(t, "hi")

	session := b.Session()
	ch.disconnect()
	assert.NoError(t, waitDone(t, done))

	assert.Equal(t, StateClosed, b.State())
	assert.True(t, ch.isClosed())
	assert.False(t, session.Alive())
}

func TestBridge_ResizeEmitsNoOutput(t *testing.T) {
	ch := newMemChannel()
	b := NewBridge(ch, BridgeOptions{Session: SessionOptions{Shell: "cat"}}, nil)
	done := runBridge(t, b)
	defer func() {
		ch.disconnect()
		waitDone(t, done)
	}()

	ch.in <- []byte(`{"type":"resize","rows":40,"cols":120}`)

	require.Eventually(t, func() bool {
		rows, cols := b.Session().Size()
		return rows == 40 && cols == 120
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, ch.output())
}

func TestBridge_Ping(t *testing.T) {
	ch := newMemChannel()
	b := NewBridge(ch, BridgeOptions{Session: SessionOptions{Shell: "cat"}}, nil)
	done := runBridge(t, b)
	defer func() {
		ch.disconnect()
		waitDone(t, done)
	}()

	ch.in <- []byte(`{"type":"ping"}`)
	ch.waitFor(t, `{"type":"pong"}`)
}

func TestBridge_BadControlFramesKeepConnection(t *testing.T) {
	ch := newMemChannel()
	b := NewBridge(ch, BridgeOptions{Session: SessionOptions{Shell: "cat"}}, nil)
	done := runBridge(t, b)
	defer func() {
		ch.disconnect()
		waitDone(t, done)
	}()

	ch.in <- []byte(`{not json`)
	ch.in <- []byte(`{"type":"telepathy"}`)
	ch.in <- []byte(`{"type":"resize","rows":0,"cols":0}`)
	ch.in <- []byte(`{"type":"ping"}`)

	ch.waitFor(t, `{"type":"pong"}`)
	assert.Equal(t, StateActive, b.State())
	assert.NotContains(t, ch.output(), "telepathy")
}

func TestBridge_RawInputReachesShell(t *testing.T) {
	ch := newMemChannel()
	b := NewBridge(ch, BridgeOptions{Session: SessionOptions{Shell: "cat"}}, nil)
	done := runBridge(t, b)
	defer func() {
		ch.disconnect()
		waitDone(t, done)
	}()

	ch.in <- []byte("hello bridge\n")
	ch.waitFor(t, "hello bridge")
}

func TestBridge_SpawnFailure(t *testing.T) {
	ch := newMemChannel()
	b := NewBridge(ch, BridgeOptions{Session: SessionOptions{Shell: "/nonexistent/shell"}}, nil)

	err := b.Run(context.Background())

	assert.ErrorIs(t, err, ErrSpawn)
	assert.Equal(t, StateClosed, b.State())
	assert.Contains(t, ch.output(), "Error:")
	assert.True(t, ch.isClosed())
	assert.Nil(t, b.Session())
}

func TestBridge_ShellExitEndsBridge(t *testing.T) {
	ch := newMemChannel()
	b := NewBridge(ch, BridgeOptions{Session: SessionOptions{Shell: "/bin/sh"}}, nil)
	done := runBridge(t, b)

	ch.in <- []byte("exit\n")

	assert.NoError(t, waitDone(t, done))
	assert.Equal(t, StateClosed, b.State())
	assert.Contains(t, ch.output(), "Session ended")
	assert.True(t, ch.isClosed())
}

func TestBridge_ContextCancel(t *testing.T) {
	ch := newMemChannel()
	b := NewBridge(ch, BridgeOptions{Session: SessionOptions{Shell: "cat"}, PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	require.Eventually(t, func() bool { return b.State() == StateActive }, 5*time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, waitDone(t, done))
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.Session().Alive())
}

func TestBridge_PublishesLifecycle(t *testing.T) {
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{})
	defer bus.Close()

	ch := newMemChannel()
	b := NewBridge(ch, BridgeOptions{Session: SessionOptions{Shell: "cat"}}, bus)
	done := runBridge(t, b)
	ch.disconnect()
	require.NoError(t, waitDone(t, done))

	history, err := bus.History(events.EventFilter{Types: []string{"terminal.*"}})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, events.EventTerminalOpened, history[0].Type)
	assert.Equal(t, events.EventTerminalClosed, history[1].Type)
	assert.Equal(t, b.ID(), history[0].Payload["bridge"])
}

func TestBridgeState_String(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", BridgeState(9).String())
}
