// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// WatchClient polls the project folders for changes.
type WatchClient struct {
	c *Client
}

// Check rescans the project folders and returns what changed since the
// previous scan.
func (w *WatchClient) Check(ctx context.Context) (*Changes, error) {
	data, err := w.c.get(ctx, "/api/watch/check")
	if err != nil {
		return nil, err
	}

	var changes Changes
	if err := json.Unmarshal(data, &changes); err != nil {
		return nil, fmt.Errorf("failed to parse changes: %w", err)
	}
	return &changes, nil
}

// TerminalClient lists terminals attached over WebSocket.
type TerminalClient struct {
	c *Client
}

// List returns the live terminal sessions.
func (t *TerminalClient) List(ctx context.Context) ([]TerminalSession, error) {
	data, err := t.c.get(ctx, "/api/terminal/sessions")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Sessions []TerminalSession `json:"sessions"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse sessions: %w", err)
	}
	return resp.Sessions, nil
}
