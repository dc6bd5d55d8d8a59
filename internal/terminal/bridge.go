// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vibefoundry/vibefoundry/internal/events"
)

const (
	defaultPollInterval = 20 * time.Millisecond
	readBufferSize      = 8192

	// maxPendingInput bounds keystrokes the shell has not taken yet. Past
	// it the bridge stops receiving, so the channel pushes back instead.
	maxPendingInput = 64 * 1024
)

// BridgeState is the lifecycle state of a Bridge.
type BridgeState int

const (
	StateConnecting BridgeState = iota
	StateActive
	StateClosing
	StateClosed
)

func (s BridgeState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	Session      SessionOptions
	PollInterval time.Duration // bound on each pty and channel wait
}

// Bridge pumps bytes between one Session and one Channel. It owns both and
// releases both when it stops.
type Bridge struct {
	id   string
	ch   Channel
	opts BridgeOptions
	bus  events.EventBus

	mu      sync.Mutex
	state   BridgeState
	session *Session

	decoder *textDecoder
	pending []byte // input the pty has not accepted yet; pump goroutine only
}

// NewBridge creates a bridge in the Connecting state. bus may be nil.
func NewBridge(ch Channel, opts BridgeOptions, bus events.EventBus) *Bridge {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Bridge{
		id:      uuid.NewString(),
		ch:      ch,
		opts:    opts,
		bus:     bus,
		state:   StateConnecting,
		decoder: newTextDecoder(),
	}
}

// ID returns the bridge's unique id.
func (b *Bridge) ID() string {
	return b.id
}

// State returns the current state.
func (b *Bridge) State() BridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) setState(s BridgeState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// Session returns the bridge's session, or nil before it started.
func (b *Bridge) Session() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// Run starts the shell and pumps until the channel disconnects, the shell
// exits or ctx is cancelled. The session and channel are always released
// before Run returns. Only a spawn failure is returned as an error.
func (b *Bridge) Run(ctx context.Context) error {
	session, err := StartSession(b.opts.Session)
	if err != nil {
		log.Printf("Terminal bridge %s: %v", b.id, err)
		b.ch.Send([]byte("Error: " + err.Error() + "\r\n"))
		if cerr := b.ch.Close(); cerr != nil {
			log.Printf("Terminal bridge %s: close channel: %v", b.id, cerr)
		}
		b.setState(StateClosed)
		return err
	}

	b.mu.Lock()
	b.session = session
	b.state = StateActive
	b.mu.Unlock()

	log.Printf("Terminal bridge %s: started %s (pid %d) in %s", b.id, session.shell, session.PID(), session.workDir)
	b.publish(events.EventTerminalOpened, session)

	reason := b.pump(ctx, session)

	b.setState(StateClosing)
	log.Printf("Terminal bridge %s: closing: %v", b.id, reason)
	if err := b.release(session); err != nil {
		log.Printf("Terminal bridge %s: release: %v", b.id, err)
	}
	b.setState(StateClosed)
	b.publish(events.EventTerminalClosed, session)

	return nil
}

// pump alternates bounded waits on the pty and the channel. After a side
// produced data the wait on the other side is skipped so bursts drain fast.
func (b *Bridge) pump(ctx context.Context, session *Session) error {
	buf := make([]byte, readBufferSize)
	poll := b.opts.PollInterval
	readWait, recvWait := poll, poll

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := session.ReadNonBlocking(buf, readWait)
		if n > 0 {
			if out := b.decoder.Decode(buf[:n]); len(out) > 0 {
				if serr := b.ch.Send(out); serr != nil {
					return fmt.Errorf("send: %w", serr)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if tail := b.decoder.Flush(); len(tail) > 0 {
					b.ch.Send(tail)
				}
				b.ch.Send([]byte("\r\n\x1b[33mSession ended\x1b[0m\r\n"))
				return io.EOF
			}
			return err
		}

		if len(b.pending) > 0 {
			b.flushInput(session, 0)
			if len(b.pending) >= maxPendingInput {
				readWait = poll
				continue
			}
		}

		recvWait = poll
		if n > 0 || len(b.pending) > 0 {
			recvWait = 0
		}
		msg, err := b.ch.Receive(recvWait)
		switch {
		case errors.Is(err, ErrTimeout):
			readWait = poll
		case err != nil:
			return fmt.Errorf("receive: %w", err)
		default:
			readWait = 0
			if herr := b.handleInput(session, msg); herr != nil {
				return herr
			}
		}
	}
}

// handleInput applies one inbound frame. Only channel failures are
// returned; bad control frames are logged and dropped.
func (b *Bridge) handleInput(session *Session, msg []byte) error {
	if !IsControl(msg) {
		b.pending = append(b.pending, msg...)
		b.flushInput(session, b.opts.PollInterval)
		return nil
	}

	ctrl, err := ParseControl(msg)
	if err != nil {
		log.Printf("Terminal bridge %s: %v", b.id, err)
		return nil
	}

	switch ctrl.Type {
	case ControlResize:
		if err := session.Resize(ctrl.Rows, ctrl.Cols); err != nil {
			log.Printf("Terminal bridge %s: %v", b.id, err)
		}
	case ControlPing:
		if err := b.ch.Send(pongFrame); err != nil {
			return fmt.Errorf("send pong: %w", err)
		}
	}
	return nil
}

// flushInput writes pending keystrokes, waiting at most timeout for the
// shell to make room. A write error drops the backlog.
func (b *Bridge) flushInput(session *Session, timeout time.Duration) {
	n, err := session.WriteNonBlocking(b.pending, timeout)
	b.pending = b.pending[n:]
	if err != nil {
		log.Printf("Terminal bridge %s: %v", b.id, err)
		b.pending = nil
	}
	if len(b.pending) == 0 {
		b.pending = nil
	}
}

// release terminates the session and closes the channel. Both always run.
func (b *Bridge) release(session *Session) error {
	var errs []error
	if err := session.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("terminate session: %w", err))
	}
	if err := b.ch.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close channel: %w", err))
	}
	return errors.Join(errs...)
}

func (b *Bridge) publish(eventType string, session *Session) {
	if b.bus == nil {
		return
	}
	err := b.bus.Publish(context.Background(), events.Event{
		Type: eventType,
		Payload: map[string]interface{}{
			"bridge":   b.id,
			"pid":      session.PID(),
			"work_dir": session.workDir,
		},
	})
	if err != nil && !errors.Is(err, events.ErrBusClosed) {
		log.Printf("Terminal bridge %s: publish %s: %v", b.id, eventType, err)
	}
}

// BridgeInfo describes a bridge for listings.
type BridgeInfo struct {
	ID      string       `json:"id"`
	State   string       `json:"state"`
	Session *SessionInfo `json:"session,omitempty"`
}

// Info returns a snapshot of the bridge.
func (b *Bridge) Info() BridgeInfo {
	info := BridgeInfo{ID: b.id, State: b.State().String()}
	if s := b.Session(); s != nil {
		si := s.Info()
		info.Session = &si
	}
	return info
}
