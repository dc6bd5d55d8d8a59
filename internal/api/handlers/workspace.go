// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"

	"github.com/vibefoundry/vibefoundry/internal/project"
	"github.com/vibefoundry/vibefoundry/internal/watcher"
)

// Workspace is the application state the handlers act on. It is
// implemented by the app and by test fakes.
type Workspace interface {
	// Project returns the selected project or project.ErrNoProject.
	Project() (*project.Project, error)

	// SelectProject switches the server to the folder at path.
	SelectProject(ctx context.Context, path string) (*project.Project, error)

	// CheckChanges rescans the watched folders without debouncing.
	CheckChanges(ctx context.Context) (watcher.Changes, error)
}
