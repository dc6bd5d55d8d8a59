// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsControl(t *testing.T) {
	assert.True(t, IsControl([]byte(`{"type":"ping"}`)))
	assert.True(t, IsControl([]byte(`{`)))
	assert.False(t, IsControl([]byte(` {"type":"ping"}`)))
	assert.False(t, IsControl([]byte("ls -la\r")))
	assert.False(t, IsControl(nil))
}

func TestParseControl(t *testing.T) {
	msg, err := ParseControl([]byte(`{"type":"resize","rows":40,"cols":120}`))
	require.NoError(t, err)
	assert.Equal(t, ControlMessage{Type: ControlResize, Rows: 40, Cols: 120}, msg)

	msg, err = ParseControl([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, ControlPing, msg.Type)

	_, err = ParseControl([]byte(`{"type":`))
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = ParseControl([]byte(`{"rows":3}`))
	assert.ErrorIs(t, err, ErrProtocol)
}
