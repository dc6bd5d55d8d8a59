// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTextDecoder(t *testing.T) {
	d := newTextDecoder()

	assert.Equal(t, "plain ascii", string(d.Decode([]byte("plain ascii"))))
	assert.Equal(t, "a�b", string(d.Decode([]byte("a\xffb"))))
}

func TestTextDecoder_SplitRune(t *testing.T) {
	d := newTextDecoder()

	// "é" is C3 A9; "€" is E2 82 AC.
	assert.Equal(t, "caf", string(d.Decode([]byte("caf\xc3"))))
	assert.Equal(t, "é ", string(d.Decode([]byte("\xa9 "))))
	assert.Empty(t, d.Decode([]byte("\xe2")))
	assert.Empty(t, d.Decode([]byte("\x82")))
	assert.Equal(t, "€!", string(d.Decode([]byte("\xac!"))))
	assert.Nil(t, d.Flush())
}

func TestTextDecoder_FlushIncomplete(t *testing.T) {
	d := newTextDecoder()

	assert.Equal(t, "x", string(d.Decode([]byte("x\xe2\x82"))))
	tail := d.Flush()
	assert.True(t, utf8.Valid(tail))
	assert.Contains(t, string(tail), "�")
	assert.Nil(t, d.Flush())
}
