// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process event bus that connects the
// watch loop, terminal bridges and metadata regeneration to observers.
package events

import (
	"context"
	"time"
)

// Event is an immutable record of something that happened in a project.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Timestamp  time.Time              `json:"timestamp"`
	Project    string                 `json:"project,omitempty"`
	Path       string                 `json:"path,omitempty"`
	Category   string                 `json:"category,omitempty"`
	ChangeType string                 `json:"change_type,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// EventHandler processes received events.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// EventFilter for querying event history.
type EventFilter struct {
	Types    []string  // Event types to match (supports wildcards)
	Project  string    // Filter by project root
	Category string    // Filter by watched category
	Since    time.Time // Events after this time
	Limit    int       // Maximum events to return, newest kept
}

// EventBus is the pub/sub contract used across the server.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)
	Unsubscribe(id SubscriptionID) error
	History(filter EventFilter) ([]Event, error)

	// SetProject stamps events that carry no project of their own.
	SetProject(root string)

	Close() error
}

// Event types
const (
	// Watch loop
	EventDataChanged   = "data.changed"
	EventScriptChanged = "script.changed"
	EventOutputChanged = "output.changed"

	// Terminal bridges
	EventTerminalOpened = "terminal.opened"
	EventTerminalClosed = "terminal.closed"

	// Project lifecycle
	EventProjectSelected   = "project.selected"
	EventMetadataGenerated = "metadata.generated"
	EventScriptFinished    = "script.finished"

	// Codespace sync
	EventSyncCompleted = "sync.completed"
)
