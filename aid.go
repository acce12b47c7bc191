// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

// AID is a 3270 Attention Identifier: the single byte an outbound
// read-modified record carries to indicate which operator action produced
// it. The constant table is the one racingmars/go3270 uses on the host
// side of the same protocol, extended with SysReq and NoAID since a client
// must be able to emit the full action set rather than merely recognize it.
type AID byte

const (
	AIDNone   AID = 0x60
	AIDEnter  AID = 0x7D
	AIDClear  AID = 0x6D
	AIDPA1    AID = 0x6C
	AIDPA2    AID = 0x6E
	AIDPA3    AID = 0x6B
	AIDSysReq AID = 0xF0

	AIDPF1  AID = 0xF1
	AIDPF2  AID = 0xF2
	AIDPF3  AID = 0xF3
	AIDPF4  AID = 0xF4
	AIDPF5  AID = 0xF5
	AIDPF6  AID = 0xF6
	AIDPF7  AID = 0xF7
	AIDPF8  AID = 0xF8
	AIDPF9  AID = 0xF9
	AIDPF10 AID = 0x7A
	AIDPF11 AID = 0x7B
	AIDPF12 AID = 0x7C
	AIDPF13 AID = 0xC1
	AIDPF14 AID = 0xC2
	AIDPF15 AID = 0xC3
	AIDPF16 AID = 0xC4
	AIDPF17 AID = 0xC5
	AIDPF18 AID = 0xC6
	AIDPF19 AID = 0xC7
	AIDPF20 AID = 0xC8
	AIDPF21 AID = 0xC9
	AIDPF22 AID = 0x4A
	AIDPF23 AID = 0x4B
	AIDPF24 AID = 0x4C
)

// String returns a human-readable name for the AID, matching
// racingmars/go3270's AIDtoString helper.
func (a AID) String() string {
	switch a {
	case AIDNone:
		return "[none]"
	case AIDEnter:
		return "Enter"
	case AIDClear:
		return "Clear"
	case AIDPA1:
		return "PA1"
	case AIDPA2:
		return "PA2"
	case AIDPA3:
		return "PA3"
	case AIDSysReq:
		return "SysReq"
	case AIDPF1:
		return "PF1"
	case AIDPF2:
		return "PF2"
	case AIDPF3:
		return "PF3"
	case AIDPF4:
		return "PF4"
	case AIDPF5:
		return "PF5"
	case AIDPF6:
		return "PF6"
	case AIDPF7:
		return "PF7"
	case AIDPF8:
		return "PF8"
	case AIDPF9:
		return "PF9"
	case AIDPF10:
		return "PF10"
	case AIDPF11:
		return "PF11"
	case AIDPF12:
		return "PF12"
	case AIDPF13:
		return "PF13"
	case AIDPF14:
		return "PF14"
	case AIDPF15:
		return "PF15"
	case AIDPF16:
		return "PF16"
	case AIDPF17:
		return "PF17"
	case AIDPF18:
		return "PF18"
	case AIDPF19:
		return "PF19"
	case AIDPF20:
		return "PF20"
	case AIDPF21:
		return "PF21"
	case AIDPF22:
		return "PF22"
	case AIDPF23:
		return "PF23"
	case AIDPF24:
		return "PF24"
	default:
		return "[unknown]"
	}
}

// aidOnly reports whether aid's read-modified reply carries only the AID
// and cursor address, with no field data (Clear and the PA keys).
func aidOnly(aid AID) bool {
	return aid == AIDClear || aid == AIDPA1 || aid == AIDPA2 || aid == AIDPA3
}
