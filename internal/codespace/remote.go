// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package codespace mirrors project scripts and metadata with the sync
// server that runs inside a remote Codespace.
//
// The remote serves its scripts folder under /scripts and accepts metadata
// on /metadata. Locally the project's app_folder is the mirror root, so a
// remote "scripts/clean.py" lands in app_folder/scripts/clean.py.
package codespace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrInvalidURL is returned when the Codespace URL is missing or is not
	// an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid codespace URL")

	// ErrRemote wraps failures talking to the Codespace.
	ErrRemote = errors.New("codespace request failed")
)

// RemoteScript is one file listed by the remote scripts folder.
type RemoteScript struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"` // Unix seconds
}

// Metadata carries the two metadata summaries.
type Metadata struct {
	Input  string `json:"input_metadata"`
	Output string `json:"output_metadata"`
}

// RemoteError is a non-2xx answer from the Codespace.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Remote talks to one Codespace sync server.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemote validates baseURL and returns a client for it. A nil hc uses a
// client with a 30 second timeout.
func NewRemote(baseURL string, hc *http.Client) (*Remote, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Remote{baseURL: baseURL, httpClient: hc}, nil
}

// URL returns the normalized base URL.
func (r *Remote) URL() string {
	return r.baseURL
}

// Scripts lists every file in the remote scripts folder.
func (r *Remote) Scripts(ctx context.Context) ([]RemoteScript, error) {
	var resp struct {
		Scripts []RemoteScript `json:"scripts"`
	}
	if err := r.do(ctx, http.MethodGet, "/scripts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Scripts, nil
}

// Script downloads one script's text.
func (r *Remote) Script(ctx context.Context, path string) (string, error) {
	var resp struct {
		Content string `json:"content"`
	}
	if err := r.do(ctx, http.MethodGet, "/scripts/"+escapePath(path), nil, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// PutScript uploads one script, creating remote folders as needed.
func (r *Remote) PutScript(ctx context.Context, path, content string) error {
	body := map[string]string{"content": content}
	return r.do(ctx, http.MethodPost, "/scripts/"+escapePath(path), body, nil)
}

// PutMetadata replaces the remote metadata summaries.
func (r *Remote) PutMetadata(ctx context.Context, md Metadata) error {
	return r.do(ctx, http.MethodPost, "/metadata", md, nil)
}

func (r *Remote) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := &RemoteError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil {
			rerr.Message = e.Error
		}
		return rerr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
