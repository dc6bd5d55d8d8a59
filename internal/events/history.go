// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"sync"
	"time"
)

// HistoryConfig bounds the retained history.
type HistoryConfig struct {
	MaxEvents int
	MaxAge    time.Duration
}

// History keeps recent events in publish order.
type History struct {
	mu        sync.RWMutex
	events    []Event
	maxEvents int
	maxAge    time.Duration
	matcher   *PatternMatcher
	now       func() time.Time
}

// NewHistory creates a bounded event history.
func NewHistory(cfg HistoryConfig) *History {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 1000
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}
	return &History{
		maxEvents: cfg.MaxEvents,
		maxAge:    cfg.MaxAge,
		matcher:   NewPatternMatcher(),
		now:       time.Now,
	}
}

// Add appends an event, dropping the oldest once full.
func (h *History) Add(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append(h.events, event)
	if over := len(h.events) - h.maxEvents; over > 0 {
		// Copy so the backing array does not grow without bound.
		h.events = append([]Event(nil), h.events[over:]...)
	}
}

// Query returns matching events, oldest first.
func (h *History) Query(filter EventFilter) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Event, 0)
	for _, event := range h.events {
		if h.matches(event, filter) {
			result = append(result, event)
		}
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[len(result)-filter.Limit:]
	}
	return result
}

func (h *History) matches(event Event, filter EventFilter) bool {
	if len(filter.Types) > 0 {
		matched := false
		for _, pattern := range filter.Types {
			if h.matcher.Match(event.Type, pattern) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if filter.Project != "" && event.Project != filter.Project {
		return false
	}
	if filter.Category != "" && event.Category != filter.Category {
		return false
	}
	if !filter.Since.IsZero() && !event.Timestamp.After(filter.Since) {
		return false
	}
	return true
}

// Prune drops events older than the configured max age.
func (h *History) Prune() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-h.maxAge)
	i := 0
	for i < len(h.events) && h.events[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		h.events = append([]Event(nil), h.events[i:]...)
	}
	return i
}

// Len returns the number of retained events.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

// Reset drops every retained event.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}
