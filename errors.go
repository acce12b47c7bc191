// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned (wrapped in an *Error) when a strict
// coordinate operation is given a position outside the buffer.
var ErrOutOfBounds = errors.New("position out of bounds")

// errSessionClosed is wrapped in a NotConnected or Connection error once
// a Session's transport has been closed.
var errSessionClosed = errors.New("session closed")

func errUnknownKeyAction(a KeyAction) error {
	return fmt.Errorf("unknown key action %q", string(a))
}

// Kind classifies the failures a Session can surface, per the error kinds
// table in the protocol design: Connection, Negotiation, Protocol, the
// three Parse sub-kinds, NotConnected, and Timeout.
type Kind int

const (
	KindConnection Kind = iota
	KindNegotiation
	KindProtocol
	KindParseShortRecord
	KindParseBadAddress
	KindParseUnknownOrder
	KindNotConnected
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindNegotiation:
		return "negotiation"
	case KindProtocol:
		return "protocol"
	case KindParseShortRecord:
		return "short record"
	case KindParseBadAddress:
		return "bad address"
	case KindParseUnknownOrder:
		return "unknown order"
	case KindNotConnected:
		return "not connected"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the structured error type returned across the package boundary.
// It always carries the failing operation name and, when known, the remote
// endpoint, per the "user-visible failures always include the operation
// name and remote endpoint" propagation policy.
type Error struct {
	Kind Kind
	Op   string
	Host string
	Port int
	Err  error
}

func (e *Error) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("tn3270: %s: %s %s:%d: %v", e.Op, e.Kind, e.Host, e.Port, e.Err)
	}
	return fmt.Sprintf("tn3270: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func newConnErr(kind Kind, op, host string, port int, err error) *Error {
	return &Error{Kind: kind, Op: op, Host: host, Port: port, Err: err}
}
