// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vibefoundry/vibefoundry/internal/terminal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// wsChannel adapts a WebSocket connection to terminal.Channel and
// broadcast.Observer. A gorilla connection is unusable after a read
// deadline fires, so a single reader goroutine feeds a queue and Receive
// waits on the queue instead.
type wsChannel struct {
	conn *websocket.Conn
	id   string

	in       chan []byte
	readDone chan struct{}
	closed   chan struct{}

	writeMu   sync.Mutex
	lastSend  atomic.Int64
	closeOnce sync.Once
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	c := &wsChannel{
		conn:     conn,
		id:       uuid.NewString(),
		in:       make(chan []byte, 64),
		readDone: make(chan struct{}),
		closed:   make(chan struct{}),
	}
	c.lastSend.Store(time.Now().UnixNano())
	go c.readLoop()
	return c
}

func (c *wsChannel) readLoop() {
	defer close(c.readDone)
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		select {
		case c.in <- data:
		case <-c.closed:
			return
		}
	}
}

// ID identifies the connection in the broadcast registry.
func (c *wsChannel) ID() string {
	return c.id
}

// Send writes one text frame.
func (c *wsChannel) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.closed:
		return terminal.ErrChannelClosed
	default:
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.lastSend.Store(time.Now().UnixNano())
	return nil
}

// Receive returns the next inbound frame. A zero timeout polls.
func (c *wsChannel) Receive(timeout time.Duration) ([]byte, error) {
	// Frames already queued win over a closed connection.
	select {
	case data := <-c.in:
		return data, nil
	default:
	}

	if timeout <= 0 {
		select {
		case <-c.readDone:
			return nil, terminal.ErrChannelClosed
		case <-c.closed:
			return nil, terminal.ErrChannelClosed
		default:
			return nil, terminal.ErrTimeout
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case data := <-c.in:
		return data, nil
	case <-c.readDone:
		// The reader queues its last frames before it exits.
		select {
		case data := <-c.in:
			return data, nil
		default:
			return nil, terminal.ErrChannelClosed
		}
	case <-c.closed:
		return nil, terminal.ErrChannelClosed
	case <-timer.C:
		return nil, terminal.ErrTimeout
	}
}

// idle returns the time since the last successful Send.
func (c *wsChannel) idle() time.Duration {
	return time.Since(time.Unix(0, c.lastSend.Load()))
}

// Close sends a close frame and releases the connection. Safe to call
// more than once.
func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		close(c.closed)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
