// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrProtocol marks a control frame that could not be understood.
var ErrProtocol = errors.New("malformed control message")

// ErrTimeout is returned by Channel.Receive when nothing arrived in time.
var ErrTimeout = errors.New("receive timed out")

// ErrChannelClosed is returned once the peer has gone away.
var ErrChannelClosed = errors.New("channel closed")

// Channel is the duplex connection a bridge talks to. Receive must honor
// its timeout without damaging the connection.
type Channel interface {
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

// Control message types.
const (
	ControlResize = "resize"
	ControlPing   = "ping"
	ControlPong   = "pong"
)

// ControlMessage is a JSON frame carried on the same channel as keystrokes.
// Any payload starting with '{' is a control frame.
type ControlMessage struct {
	Type string `json:"type"`
	Rows int    `json:"rows,omitempty"`
	Cols int    `json:"cols,omitempty"`
}

// IsControl reports whether payload is framed as a control message.
func IsControl(payload []byte) bool {
	return len(payload) > 0 && payload[0] == '{'
}

// ParseControl decodes a control frame.
func ParseControl(payload []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("%w: missing type", ErrProtocol)
	}
	return msg, nil
}

var pongFrame = []byte(`{"type":"pong"}`)
