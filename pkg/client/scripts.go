// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// ScriptClient runs project scripts.
//
// Scripts run one after another on the server; the call returns when the
// last one finishes, so long runs need a generous [WithTimeout].
type ScriptClient struct {
	c *Client
}

// List returns the scripts in the project's scripts folder.
func (s *ScriptClient) List(ctx context.Context) ([]Script, error) {
	data, err := s.c.get(ctx, "/api/scripts")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Scripts []Script `json:"scripts"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse scripts: %w", err)
	}
	return resp.Scripts, nil
}

// Run executes the given scripts in order and returns one result per
// script. Paths may be absolute or relative to the project root.
func (s *ScriptClient) Run(ctx context.Context, scripts ...string) ([]ScriptResult, error) {
	data, err := s.c.postJSON(ctx, "/api/scripts/run", map[string][]string{"scripts": scripts})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []ScriptResult `json:"results"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	return resp.Results, nil
}

// GenerateMetadata rewrites the metadata summaries and returns them.
func (s *ScriptClient) GenerateMetadata(ctx context.Context) (*Metadata, error) {
	data, err := s.c.post(ctx, "/api/metadata/generate")
	if err != nil {
		return nil, err
	}

	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &md, nil
}
