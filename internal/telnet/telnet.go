// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

// Package telnet implements the slice of RFC 854 (Telnet) and RFC 885
// (End-of-Record) that a TN3270 client needs: IAC escaping, option
// negotiation bookkeeping, and framing inbound bytes into IAC-EOR-delimited
// records.
package telnet

import (
	"bytes"
	"fmt"
)

// Telnet command bytes.
const (
	IAC  byte = 0xFF
	DONT byte = 0xFE
	DO   byte = 0xFD
	WONT byte = 0xFC
	WILL byte = 0xFB
	SB   byte = 0xFA
	SE   byte = 0xF0
	EOR  byte = 0xEF
)

// Option bytes relevant to TN3270/TN3270E negotiation.
const (
	OptBinary   byte = 0x00
	OptTermType byte = 0x18
	OptEOR      byte = 0x19
	OptTN3270E  byte = 0x28
)

const (
	termTypeIs   byte = 0x00
	termTypeSend byte = 0x01
)

// Escape doubles every IAC byte in data, the wire encoding for data that
// must not be mistaken for a Telnet command.
func Escape(data []byte) []byte {
	if !bytes.Contains(data, []byte{IAC}) {
		return data
	}
	out := make([]byte, 0, len(data)+4)
	for _, b := range data {
		out = append(out, b)
		if b == IAC {
			out = append(out, IAC)
		}
	}
	return out
}

// Unescape collapses doubled IAC bytes in data back to single bytes. data
// must not contain an unescaped IAC command sequence; those are stripped by
// the Framer before Unescape ever sees the payload.
func Unescape(data []byte) []byte {
	if !bytes.Contains(data, []byte{IAC}) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		out = append(out, data[i])
		if data[i] == IAC && i+1 < len(data) && data[i+1] == IAC {
			i++
		}
	}
	return out
}

// WrapRecord builds an IAC-escaped, IAC-EOR-terminated Telnet record from a
// raw 3270 data-stream payload.
func WrapRecord(payload []byte) []byte {
	out := Escape(payload)
	return append(out, IAC, EOR)
}

// Command builds a three-byte option negotiation command: IAC, the verb
// (WILL/WONT/DO/DONT), and the option.
func Command(verb, option byte) []byte {
	return []byte{IAC, verb, option}
}

// Subnegotiation builds an IAC SB ... IAC SE subnegotiation record around
// body, which is escaped first.
func Subnegotiation(option byte, body []byte) []byte {
	out := []byte{IAC, SB, option}
	out = append(out, Escape(body)...)
	out = append(out, IAC, SE)
	return out
}

// TermTypeIs builds the subnegotiation response to a TERMINAL-TYPE SEND
// request.
func TermTypeIs(name string) []byte {
	return Subnegotiation(OptTermType, append([]byte{termTypeIs}, []byte(name)...))
}

// OptionState tracks whether an option is enabled in each direction, the
// bookkeeping RFC 854 requires to suppress negotiation loops: a party must
// not reply to a request that would not change its current state.
type OptionState struct {
	// LocalEnabled is true once this party honors the option (WILL
	// agreed by a DO); RemoteEnabled is true once the peer does (DO
	// agreed by a WILL).
	LocalEnabled, RemoteEnabled bool

	// declinedLocal/declinedRemote record that this party has already
	// refused (WONT/DONT) an unsupported option, so a host that keeps
	// re-offering it doesn't get re-refused on every message.
	declinedLocal, declinedRemote bool
}

// supportedOptions is the closed set of options this client will ever
// agree to enable, local or remote. A WILL/DO for anything else is
// refused with WONT/DONT rather than silently accepted.
var supportedOptions = map[byte]bool{
	OptBinary:   true,
	OptTermType: true,
	OptEOR:      true,
	OptTN3270E:  true,
}

func isSupported(opt byte) bool { return supportedOptions[opt] }

// Negotiator tracks per-option state across a session and decides how to
// respond to incoming negotiation commands.
type Negotiator struct {
	options map[byte]*OptionState
}

// NewNegotiator returns an empty negotiator.
func NewNegotiator() *Negotiator {
	return &Negotiator{options: make(map[byte]*OptionState)}
}

func (n *Negotiator) state(opt byte) *OptionState {
	s, ok := n.options[opt]
	if !ok {
		s = &OptionState{}
		n.options[opt] = s
	}
	return s
}

// State returns the current negotiated state of opt.
func (n *Negotiator) State(opt byte) OptionState { return *n.state(opt) }

// Request returns the bytes to send to ask the remote side to enable
// option opt locally (local) and/or remotely (remote), used when the client initiates
// negotiation instead of reacting to the host.
func (n *Negotiator) Request(opt byte, local, remote bool) []byte {
	var out []byte
	if local {
		out = append(out, Command(WILL, opt)...)
	}
	if remote {
		out = append(out, Command(DO, opt)...)
	}
	return out
}

// Negotiate processes one incoming WILL/WONT/DO/DONT command and returns
// the reply to send, if any, updating internal state. It implements the
// standard loop-avoidance rule: only reply when the request would actually
// change local state. A DO/WILL for an option outside supportedOptions is
// always refused with WONT/DONT rather than agreed to.
func (n *Negotiator) Negotiate(verb, opt byte) ([]byte, error) {
	s := n.state(opt)
	switch verb {
	case DO:
		if !isSupported(opt) {
			if s.declinedLocal {
				return nil, nil
			}
			s.declinedLocal = true
			return Command(WONT, opt), nil
		}
		if s.LocalEnabled {
			return nil, nil
		}
		s.LocalEnabled = true
		return Command(WILL, opt), nil
	case DONT:
		if !s.LocalEnabled {
			return nil, nil
		}
		s.LocalEnabled = false
		return Command(WONT, opt), nil
	case WILL:
		if !isSupported(opt) {
			if s.declinedRemote {
				return nil, nil
			}
			s.declinedRemote = true
			return Command(DONT, opt), nil
		}
		if s.RemoteEnabled {
			return nil, nil
		}
		s.RemoteEnabled = true
		return Command(DO, opt), nil
	case WONT:
		if !s.RemoteEnabled {
			return nil, nil
		}
		s.RemoteEnabled = false
		return Command(DONT, opt), nil
	default:
		return nil, fmt.Errorf("telnet: not a negotiation verb %#02x", verb)
	}
}
