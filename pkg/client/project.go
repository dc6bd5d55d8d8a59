// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// ProjectClient selects the project folder and browses for one.
//
// Access this client through [Client.Project]:
//
//	info, err := client.Project.Select(ctx, "/home/me/analysis")
type ProjectClient struct {
	c *Client
}

// Health reports server liveness and the selected project folder.
func (p *ProjectClient) Health(ctx context.Context) (*Health, error) {
	data, err := p.c.get(ctx, "/api/health")
	if err != nil {
		return nil, err
	}

	var h Health
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse health: %w", err)
	}
	return &h, nil
}

// Select opens path as the project, creating its working folders.
func (p *ProjectClient) Select(ctx context.Context, path string) (*ProjectInfo, error) {
	data, err := p.c.postJSON(ctx, "/api/folder/select", map[string]string{"path": path})
	if err != nil {
		return nil, err
	}
	return parseProjectInfo(data)
}

// Info describes the selected project. ProjectFolder is empty when none
// is selected.
func (p *ProjectClient) Info(ctx context.Context) (*ProjectInfo, error) {
	data, err := p.c.get(ctx, "/api/folder/info")
	if err != nil {
		return nil, err
	}
	return parseProjectInfo(data)
}

func parseProjectInfo(data json.RawMessage) (*ProjectInfo, error) {
	var info ProjectInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}
	return &info, nil
}

// Home returns the server user's home folder.
func (p *ProjectClient) Home(ctx context.Context) (string, error) {
	data, err := p.c.get(ctx, "/api/fs/home")
	if err != nil {
		return "", err
	}

	var resp struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to parse home: %w", err)
	}
	return resp.Path, nil
}

// ListDirs lists the folders inside path; an empty path lists home.
func (p *ProjectClient) ListDirs(ctx context.Context, path string) (*Listing, error) {
	params := url.Values{}
	if path != "" {
		params.Set("path", path)
	}
	data, err := p.c.getQuery(ctx, "/api/fs/list", params)
	if err != nil {
		return nil, err
	}

	var listing Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}
	return &listing, nil
}
