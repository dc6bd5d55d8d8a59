// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the VibeFoundry API.
//
// VibeFoundry serves a local data-science workspace: a project folder with
// input, output and script folders, a script runner, metadata summaries
// and a change feed. This package gives typed access to its HTTP API.
//
// # Getting Started
//
//	c := client.New("http://127.0.0.1:8765")
//
//	// Open a project folder
//	info, err := c.Project.Select(ctx, "/home/me/analysis")
//
//	// Run every script the project holds
//	scripts, err := c.Scripts.List(ctx)
//	results, err := c.Scripts.Run(ctx, scripts[0].Path)
//
//	// Read a CSV as a dataframe preview
//	content, err := c.Files.Read(ctx, "output_folder/summary.csv")
//
// # API Versioning
//
// The server uses date-based API versioning. By default the client sends
// the latest version in the VibeFoundry-Version header; pin one with
// [WithVersion].
//
// # Error Handling
//
// API errors are returned as *APIError values:
//
//	_, err := c.Files.Read(ctx, "missing.csv")
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == "NOT_FOUND" {
//	    ...
//	}
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a VibeFoundry API client.
//
// A Client provides access to the API through resource-specific
// sub-clients. Use [New] to create a Client instance.
//
// The Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client

	// Project selects and describes the project folder and browses the
	// local filesystem for one.
	Project *ProjectClient

	// Files reads and writes files inside the project.
	Files *FileClient

	// Scripts lists and runs project scripts and regenerates metadata.
	Scripts *ScriptClient

	// Watch checks the project folders for changes.
	Watch *WatchClient

	// Terminals lists live terminal sessions.
	Terminals *TerminalClient

	// Events provides access to the event history.
	Events *EventClient

	// Sync mirrors scripts and metadata with a Codespace.
	Sync *SyncClient
}

// Option configures a [Client]. Options are passed to [New] to customize
// client behavior.
type Option func(*Client)

// New creates a new API client with the given base URL and options.
//
// The baseURL should be the root URL of the server (e.g., "http://127.0.0.1:8765").
// Any trailing slash is automatically removed.
//
// By default, the client uses:
//   - The latest API version ([LatestVersion])
//   - A 30-second HTTP timeout
//
// Use options like [WithVersion], [WithTimeout], or [WithHTTPClient] to customize.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: LatestVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	// Initialize service clients
	c.Project = &ProjectClient{c: c}
	c.Files = &FileClient{c: c}
	c.Scripts = &ScriptClient{c: c}
	c.Watch = &WatchClient{c: c}
	c.Terminals = &TerminalClient{c: c}
	c.Events = &EventClient{c: c}
	c.Sync = &SyncClient{c: c}

	return c
}

// WithVersion sets the API version to use for all requests.
//
// Versions are dates (e.g., "2026-06-01"). Pinning to a specific version
// ensures API compatibility as the server evolves. See [LatestVersion].
func WithVersion(v string) Option {
	return func(c *Client) {
		c.version = v
	}
}

// WithHTTPClient sets a custom HTTP client for making requests.
//
// This is useful for advanced configurations like custom TLS settings,
// proxy configuration, or request tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout for all requests.
//
// The default timeout is 30 seconds. Script runs can take minutes; raise
// it when calling [ScriptClient.Run].
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// Version returns the API version being used.
func (c *Client) Version() string {
	return c.version
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiResponse is the standard API response envelope.
type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

// APIError represents an error response from the API.
//
// API errors include a machine-readable Code and a human-readable Message.
// Some errors may include additional Details for debugging.
//
// Common error codes include:
//   - "NOT_FOUND": The requested file or folder does not exist
//   - "BAD_REQUEST": The request was malformed or invalid
//   - "FORBIDDEN": The path escapes the project folder
//   - "NO_PROJECT": No project folder is selected
//   - "INTERNAL_ERROR": An unexpected server error occurred
//   - "BAD_GATEWAY": The Codespace could not be reached during a sync
type APIError struct {
	// Code is a machine-readable error code (e.g., "NOT_FOUND", "NO_PROJECT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details contains additional error information, if available.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// get performs a GET request to the given path.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// getQuery performs a GET request with query parameters.
func (c *Client) getQuery(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.get(ctx, path)
}

// post performs a POST request to the given path with no body.
func (c *Client) post(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil)
}

// postJSON performs a POST request with a JSON body.
func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data))
}

// do performs an HTTP request and parses the response.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set(VersionHeader, c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.parseResponse(resp)
}

// parseResponse reads and parses an API response.
func (c *Client) parseResponse(resp *http.Response) (json.RawMessage, error) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Try to parse as standard envelope
	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		// If we can't parse it and status is bad, return error
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		// Return raw body for non-envelope responses
		return respBody, nil
	}

	// Check for error in envelope
	if apiResp.Error != nil {
		return nil, apiResp.Error
	}

	// Check for error embedded in data (some endpoints do this)
	if resp.StatusCode >= 400 {
		var errData APIError
		if err := json.Unmarshal(apiResp.Data, &errData); err == nil && errData.Code != "" {
			return nil, &errData
		}
	}

	return apiResp.Data, nil
}
