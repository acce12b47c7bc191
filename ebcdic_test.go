// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCodepageBasicLetters(t *testing.T) {
	cp := NewCodepage(CompatDefault)

	s, n := cp.Decode([]byte{0xC8, 0xC5, 0xD3, 0xD3, 0xD6}) // H E L L O
	assert.Equal(t, 5, n)
	assert.Equal(t, "HELLO", s)

	enc, n := cp.Encode("HELLO")
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte{0xC8, 0xC5, 0xD3, 0xD3, 0xD6}, enc)
}

func TestCodepageSpace(t *testing.T) {
	cp := NewCodepage(CompatDefault)
	s, _ := cp.Decode([]byte{0x40})
	assert.Equal(t, " ", s)
}

func TestCodepageSubstituteDefault(t *testing.T) {
	cp := NewCodepage(CompatDefault)
	// U+6771 ("東") has no CP037 mapping; Encode must substitute rather
	// than fail.
	enc, n := cp.Encode("東")
	assert.Equal(t, 1, n)
	assert.Equal(t, []byte{0x40}, enc)
}

func TestCodepageSubstituteP3270(t *testing.T) {
	cp := NewCodepage(CompatP3270)
	enc, _ := cp.Encode("東")
	assert.Equal(t, []byte{0x7A}, enc)
}

// TestCodepageASCIIRoundTrip exercises every printable ASCII byte CP037
// maps one-to-one, confirming Encode then Decode is the identity for the
// mappable subset of the code page.
func TestCodepageASCIIRoundTrip(t *testing.T) {
	cp := NewCodepage(CompatDefault)
	rapid.Check(t, func(t *rapid.T) {
		r := rune(rapid.IntRange(0x20, 0x7E).Draw(t, "r"))
		enc := cp.EncodeRune(r)
		got := cp.DecodeByte(enc)
		assert.Equal(t, r, got)
	})
}

// TestCodepageByteRoundTrip checks that decoding then re-encoding any
// EBCDIC byte reproduces the original byte, since CP037's mapping is a bijection over the full 256-value
// table.
func TestCodepageByteRoundTrip(t *testing.T) {
	cp := NewCodepage(CompatDefault)
	rapid.Check(t, func(t *rapid.T) {
		b := byte(rapid.IntRange(0, 255).Draw(t, "b"))
		r := cp.DecodeByte(b)
		got := cp.EncodeRune(r)
		assert.Equal(t, b, got)
	})
}
