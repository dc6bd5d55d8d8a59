// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package version carries the date-based API version.
//
// Clients may pin a version with the VibeFoundry-Version header. Requests
// without one get LatestVersion, and every response echoes the version
// that served it. Unknown versions are answered with the latest.
package version

import "context"

// Version constants. Add new versions here when making breaking changes.
const (
	// Version20260601 is the initial API version.
	Version20260601 = "2026-06-01"
)

// LatestVersion is the current default API version.
var LatestVersion = Version20260601

// Supported lists every version the server can answer.
var Supported = map[string]bool{
	Version20260601: true,
}

// Header is the HTTP header used to specify the API version.
const Header = "VibeFoundry-Version"

type contextKey string

const versionKey contextKey = "api-version"

// FromContext returns the API version from the context.
// Returns LatestVersion if not set.
func FromContext(ctx context.Context) string {
	v, ok := ctx.Value(versionKey).(string)
	if !ok || v == "" {
		return LatestVersion
	}
	return v
}

// WithContext returns a new context with the API version set.
func WithContext(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, versionKey, version)
}
