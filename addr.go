// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

// addrCodes is the 3270 buffer-address I/O code table: the 64 byte values
// used to encode a 6-bit address component, taken verbatim from
// racingmars/go3270's util.go (itself transcribed from Figure D-1 of
// GA23-0059-00). Every client and host on the wire uses this same table for
// 12-bit buffer addressing.
var addrCodes = []byte{0x40, 0xc1, 0xc2, 0xc3, 0xc4, 0xc5, 0xc6, 0xc7, 0xc8,
	0xc9, 0x4a, 0x4b, 0x4c, 0x4d, 0x4e, 0x4f, 0x50, 0xd1, 0xd2, 0xd3, 0xd4,
	0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0x5a, 0x5b, 0x5c, 0x5d, 0x5e, 0x5f, 0x60,
	0x61, 0xe2, 0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0x6a, 0x6b, 0x6c,
	0x6d, 0x6e, 0x6f, 0xf0, 0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
	0xf9, 0x7a, 0x7b, 0x7c, 0x7d, 0x7e, 0x7f}

// addrDecodes is the inverse of addrCodes: byte value -> 6-bit address
// component, or 0xFF for bytes that never appear in the 12-bit code table.
var addrDecodes = buildAddrDecodes()

func buildAddrDecodes() [256]byte {
	var d [256]byte
	for i := range d {
		d[i] = 0xFF
	}
	for v, b := range addrCodes {
		d[b] = byte(v)
	}
	return d
}

// encodeAddr12 encodes a 0-4095 buffer address as the two-byte 12-bit code
// table form used for standard (<=4K) screen sizes.
func encodeAddr12(addr int) [2]byte {
	hi := (addr >> 6) & 0x3F
	lo := addr & 0x3F
	return [2]byte{addrCodes[hi], addrCodes[lo]}
}

// encodeAddr14 encodes an address using the 14-bit form: the low 6 bits of
// the high byte hold address bits 8-13, and the low byte is verbatim.
func encodeAddr14(addr int) [2]byte {
	hi := byte((addr >> 8) & 0x3F)
	lo := byte(addr & 0xFF)
	return [2]byte{hi, lo}
}

// is12BitByte reports whether b's top two bits match the pattern the
// 12-bit code table always produces (never 0b00 or 0b10), which is how a
// parser auto-detects which addressing convention the host is using by
// inspecting the top two bits of the high byte.
func is12BitByte(b byte) bool {
	top2 := b >> 6
	return top2 == 0b01 || top2 == 0b11
}

// decodeAddr decodes a two-byte buffer address, auto-detecting 12-bit vs.
// 14-bit encoding from the high byte. ok is false if the bytes cannot be
// decoded under either convention (e.g. a byte outside the 12-bit code
// table was seen while in 12-bit mode).
func decodeAddr(b0, b1 byte) (addr int, ok bool) {
	if is12BitByte(b0) {
		hi := addrDecodes[b0]
		lo := addrDecodes[b1]
		if hi == 0xFF || lo == 0xFF {
			return 0, false
		}
		return int(hi)<<6 | int(lo), true
	}
	return int(b0&0x3F)<<8 | int(b1), true
}

// encodeAddr encodes addr using 14-bit form if use14Bit is set or if it
// doesn't fit in 12 bits (i.e. addr >= 4096, which only occurs on screens
// larger than the standard model sizes), otherwise 12-bit form. This
// matches "the encoding is chosen by the host and honored by the client":
// when the client itself originates an address (building a reply), it
// passes use14Bit to mirror whichever convention the inbound stream used.
func encodeAddr(addr int, use14Bit bool) [2]byte {
	if use14Bit || addr >= 4096 {
		return encodeAddr14(addr)
	}
	return encodeAddr12(addr)
}
