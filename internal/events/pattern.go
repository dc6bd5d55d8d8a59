// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"strings"
)

// ErrEmptyPattern is returned when compiling an empty pattern.
var ErrEmptyPattern = errors.New("empty pattern")

// PatternMatcher matches dotted event types against subscription patterns.
//
//	"data.*"    matches "data.changed"
//	"*.changed" matches "script.changed", "output.changed"
//	"*"         matches everything
type PatternMatcher struct{}

// NewPatternMatcher creates a new pattern matcher.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// Match reports whether eventType satisfies pattern.
func (pm *PatternMatcher) Match(eventType, pattern string) bool {
	cp, err := pm.Compile(pattern)
	if err != nil || eventType == "" {
		return false
	}
	return cp.Match(eventType)
}

// Compile splits a pattern once so matching is a prefix/suffix check.
func (pm *PatternMatcher) Compile(pattern string) (CompiledPattern, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	cp := &compiledPattern{raw: pattern}
	switch {
	case pattern == "*":
		cp.any = true
	case strings.HasSuffix(pattern, ".*"):
		cp.prefix = strings.TrimSuffix(pattern, "*")
	case strings.HasPrefix(pattern, "*."):
		cp.suffix = strings.TrimPrefix(pattern, "*")
	}
	return cp, nil
}

// CompiledPattern is a pattern ready for repeated matching.
type CompiledPattern interface {
	Match(eventType string) bool
	String() string
}

type compiledPattern struct {
	raw    string
	any    bool
	prefix string
	suffix string
}

func (cp *compiledPattern) Match(eventType string) bool {
	if eventType == "" {
		return false
	}
	switch {
	case cp.any:
		return true
	case cp.prefix != "":
		return strings.HasPrefix(eventType, cp.prefix)
	case cp.suffix != "":
		return strings.HasSuffix(eventType, cp.suffix)
	}
	return eventType == cp.raw
}

func (cp *compiledPattern) String() string {
	return cp.raw
}
