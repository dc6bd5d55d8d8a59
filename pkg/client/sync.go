// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// SyncClient mirrors the project with a Codespace sync server.
//
// The server performs the transfers; codespaceURL is the sync server's
// base URL as reachable from the server, not from the caller.
type SyncClient struct {
	c *Client
}

type syncRequest struct {
	CodespaceURL string           `json:"codespace_url"`
	LastSync     map[string]int64 `json:"last_sync,omitempty"`
}

// Pull downloads remote scripts changed since lastSync into app_folder.
// Pass the returned LastSync to the next Pull.
func (s *SyncClient) Pull(ctx context.Context, codespaceURL string, lastSync map[string]int64) (*PullResult, error) {
	data, err := s.c.postJSON(ctx, "/api/sync/pull", syncRequest{CodespaceURL: codespaceURL, LastSync: lastSync})
	if err != nil {
		return nil, err
	}

	var res PullResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse pull result: %w", err)
	}
	return &res, nil
}

// Push uploads the project's scripts and notes. Data files never leave
// the machine.
func (s *SyncClient) Push(ctx context.Context, codespaceURL string) ([]string, error) {
	data, err := s.c.postJSON(ctx, "/api/sync/push", syncRequest{CodespaceURL: codespaceURL})
	if err != nil {
		return nil, err
	}

	var resp struct {
		PushedFiles []string `json:"pushed_files"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse push result: %w", err)
	}
	return resp.PushedFiles, nil
}

// Metadata uploads the metadata summaries and reports whether anything
// was sent.
func (s *SyncClient) Metadata(ctx context.Context, codespaceURL string) (bool, error) {
	data, err := s.c.postJSON(ctx, "/api/sync/metadata", syncRequest{CodespaceURL: codespaceURL})
	if err != nil {
		return false, err
	}

	var resp struct {
		Synced bool `json:"synced"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return false, fmt.Errorf("failed to parse metadata result: %w", err)
	}
	return resp.Synced, nil
}

// Full pulls scripts, then pushes metadata.
func (s *SyncClient) Full(ctx context.Context, codespaceURL string, lastSync map[string]int64) (*FullSync, error) {
	data, err := s.c.postJSON(ctx, "/api/sync/full", syncRequest{CodespaceURL: codespaceURL, LastSync: lastSync})
	if err != nil {
		return nil, err
	}

	var res FullSync
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse sync result: %w", err)
	}
	return &res, nil
}
