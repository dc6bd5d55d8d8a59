// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternMatcher_Match(t *testing.T) {
	matcher := NewPatternMatcher()

	tests := []struct {
		pattern   string
		eventType string
		matches   bool
	}{
		{"data.changed", "data.changed", true},
		{"data.changed", "script.changed", false},
		{"terminal.*", "terminal.opened", true},
		{"terminal.*", "terminal", false},
		{"terminal.*", "terminals.opened", false},
		{"*.changed", "output.changed", true},
		{"*.changed", "output.unchanged", false},
		{"*", "anything.at.all", true},
		{"", "data.changed", false},
		{"*", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.matches, matcher.Match(tt.eventType, tt.pattern))
		})
	}
}

func TestPatternMatcher_Compile(t *testing.T) {
	matcher := NewPatternMatcher()

	_, err := matcher.Compile("")
	assert.ErrorIs(t, err, ErrEmptyPattern)

	cp, err := matcher.Compile("script.*")
	require.NoError(t, err)
	assert.Equal(t, "script.*", cp.String())
	assert.True(t, cp.Match("script.changed"))
	assert.False(t, cp.Match("data.changed"))
}
