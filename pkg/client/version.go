// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

// API version constants.
//
// Each version names the API as it existed on that date. The server
// answers unknown or missing versions with the latest one and echoes the
// version it used in the response header.
const (
	// LatestVersion is the current API version.
	LatestVersion = "2026-06-01"

	// Version20260601 is the initial API version.
	Version20260601 = "2026-06-01"
)

// VersionHeader is the HTTP header used to specify the API version.
const VersionHeader = "VibeFoundry-Version"
