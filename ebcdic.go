// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import "github.com/racingmars/tn3270/internal/codepage"

// Codepage provides EBCDIC<->Unicode translation. The default and only
// built-in table is CP037; a caller that needs a different mainframe
// code page can build one against internal/codepage's layout, the way
// racingmars/go3270 generates its larger codepage set.
type Codepage struct {
	cp codepage.Codepage
}

// EBCDICCompat selects which byte Encode substitutes for a Unicode
// character that has no EBCDIC mapping.
type EBCDICCompat int

const (
	// CompatDefault substitutes EBCDIC space (0x40).
	CompatDefault EBCDICCompat = iota
	// CompatP3270 substitutes EBCDIC 'z' (0x7A), matching the p3270
	// reference client's behavior.
	CompatP3270
)

func (c EBCDICCompat) substitute() byte {
	if c == CompatP3270 {
		return 0x7A
	}
	return 0x40
}

// NewCodepage returns the CP037 code page configured with the given
// compatibility profile's substitute byte.
func NewCodepage(compat EBCDICCompat) Codepage {
	return Codepage{cp: codepage.CP037.WithSubstitute(compat.substitute())}
}

// ID returns the code page identifier, e.g. "037".
func (c Codepage) ID() string { return c.cp.ID() }

// Decode converts EBCDIC bytes to a UTF-8 string, returning the string and
// the number of bytes consumed (always len(b)).
func (c Codepage) Decode(b []byte) (string, int) { return c.cp.Decode(b) }

// Encode converts a UTF-8 string to EBCDIC bytes, returning the bytes and
// the number of runes consumed (always the rune count of s). Encode never
// fails: unmappable runes become the configured substitute byte.
func (c Codepage) Encode(s string) ([]byte, int) { return c.cp.Encode(s) }

// DecodeByte converts a single EBCDIC byte to its Unicode code point.
func (c Codepage) DecodeByte(b byte) rune { return c.cp.DecodeByte(b) }

// EncodeRune converts a single Unicode code point to an EBCDIC byte.
func (c Codepage) EncodeRune(r rune) byte { return c.cp.EncodeRune(r) }
