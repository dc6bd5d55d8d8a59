// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
)

// FileClient reads and writes files inside the selected project. Paths are
// relative to the project root.
type FileClient struct {
	c *Client
}

// Tree returns the project's file tree rooted at the project folder.
func (f *FileClient) Tree(ctx context.Context) (*FileNode, error) {
	data, err := f.c.get(ctx, "/api/files/tree")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Tree *FileNode `json:"tree"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse tree: %w", err)
	}
	return resp.Tree, nil
}

// Read returns a file's content. CSV and TSV files come back as a
// [Dataframe] preview.
func (f *FileClient) Read(ctx context.Context, path string) (*FileContent, error) {
	data, err := f.c.getQuery(ctx, "/api/files/read", url.Values{"path": {path}})
	if err != nil {
		return nil, err
	}

	var content FileContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	return &content, nil
}

// Bytes returns the raw bytes of text or binary content.
func (fc *FileContent) Bytes() ([]byte, error) {
	if fc.Encoding == "base64" {
		return base64.StdEncoding.DecodeString(fc.Content)
	}
	return []byte(fc.Content), nil
}

// Write replaces a file's content, creating parent folders as needed.
func (f *FileClient) Write(ctx context.Context, path, content string) error {
	_, err := f.c.postJSON(ctx, "/api/files/write", map[string]string{
		"path":    path,
		"content": content,
	})
	return err
}
