// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// textDecoder turns raw pty bytes into valid UTF-8. Invalid sequences
// become U+FFFD; a multi-byte rune split across reads is held back until
// the rest arrives.
type textDecoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

func newTextDecoder() *textDecoder {
	return &textDecoder{t: unicode.UTF8.NewDecoder()}
}

// Decode converts the next chunk of output.
func (d *textDecoder) Decode(p []byte) []byte {
	return d.run(p, false)
}

// Flush converts anything held back, replacing an incomplete rune.
func (d *textDecoder) Flush() []byte {
	if len(d.pending) == 0 {
		return nil
	}
	return d.run(nil, true)
}

func (d *textDecoder) run(p []byte, atEOF bool) []byte {
	src := append(d.pending, p...)
	d.pending = nil

	// Each invalid byte expands to at most three bytes of U+FFFD.
	if need := 3*len(src) + 4; cap(d.dst) < need {
		d.dst = make([]byte, need)
	}
	dst := d.dst[:cap(d.dst)]

	var out []byte
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]
		switch err {
		case transform.ErrShortDst:
			continue
		case transform.ErrShortSrc:
			d.pending = append([]byte(nil), src...)
		}
		return out
	}
}
