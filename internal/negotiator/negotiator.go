// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

// Package negotiator drives the TN3270E device-type and functions
// subnegotiation state machine described in RFC 2355 section 4, and
// publishes broadcast-once readiness signals the session layer awaits
// during connect.
package negotiator

import (
	"bytes"
	"fmt"
	"sync"
)

// TN3270E subnegotiation sub-command bytes.
const (
	SubCmdConnect    byte = 0x00
	SubCmdSend       byte = 0x01
	SubCmdDeviceType byte = 0x02
	SubCmdFunctions  byte = 0x03
)

// The second-level sub-command bytes carried by DEVICE-TYPE and FUNCTIONS
// subnegotiation messages.
const (
	OpSend    byte = 0x01
	OpIs      byte = 0x02
	OpReject  byte = 0x03
	OpRequest byte = 0x07
)

// Function bits, RFC 2355 section 4.5.
const (
	FuncBindImage     uint8 = 1 << 0
	FuncDataStreamCtl uint8 = 1 << 1
	FuncResponses     uint8 = 1 << 2
	FuncSCSCtlCodes   uint8 = 1 << 3
	FuncSysReq        uint8 = 1 << 4
)

// CompletionMode selects whether negotiation-complete requires both
// device-type and functions to be known (Strict) or only one (Flexible).
type CompletionMode int

const (
	Strict CompletionMode = iota
	Flexible
)

// deviceDefaults maps an accepted device-type string to its default
// screen dimensions.
var deviceDefaults = map[string][2]int{
	"IBM-3278-2":   {24, 80},
	"IBM-3278-3":   {32, 80},
	"IBM-3278-4":   {43, 80},
	"IBM-3278-5":   {27, 132},
	"IBM-3279-2-E": {24, 80},
	"IBM-3279-3-E": {32, 80},
	"IBM-3279-4-E": {43, 80},
	"IBM-3279-5-E": {27, 132},
	"IBM-3287-1":   {24, 80},
	"IBM-DYNAMIC":  {24, 80},
}

// AcceptedDeviceTypes is the closed set of device-type strings the client
// will agree to.
var AcceptedDeviceTypes = []string{
	"IBM-3278-2", "IBM-3278-3", "IBM-3278-4", "IBM-3278-5",
	"IBM-3279-2-E", "IBM-3279-3-E", "IBM-3279-4-E", "IBM-3279-5-E",
	"IBM-3287-1", "IBM-DYNAMIC",
}

// broadcast is a once-closed channel used as a readiness signal: any
// number of goroutines can select on Chan() and all wake exactly once.
type broadcast struct {
	mu    sync.Mutex
	ch    chan struct{}
	fired bool
}

func newBroadcast() *broadcast {
	return &broadcast{ch: make(chan struct{})}
}

func (b *broadcast) fire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.fired {
		b.fired = true
		close(b.ch)
	}
}

func (b *broadcast) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fired = false
	b.ch = make(chan struct{})
}

func (b *broadcast) Chan() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch
}

func (b *broadcast) isSet() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fired
}

// State is a point-in-time snapshot of the negotiator, safe to read after
// it is returned (it shares no mutable state with the negotiator).
type State struct {
	TN3270EActive           bool
	DeviceType              string
	LUName                  string
	Rows, Cols              int
	NegotiatedFunctions     uint8
	LastNegotiatedFunctions uint8
	IsPrinterSession        bool
	DeviceTypeKnown         bool
	FunctionsKnown          bool
	NegotiationComplete     bool
}

// Negotiator is the TN3270E negotiation state machine. All mutating
// methods are safe to call from the receive loop while another goroutine
// awaits a readiness channel.
type Negotiator struct {
	mu sync.Mutex

	mode CompletionMode

	tn3270eActive bool
	deviceType    string
	luName        string
	rows, cols    int

	negotiatedFunctions     uint8
	lastNegotiatedFunctions uint8

	isPrinterSession bool

	deviceTypeKnown     *broadcast
	functionsKnown      *broadcast
	negotiationComplete *broadcast
}

// New returns a negotiator using the given completion policy.
func New(mode CompletionMode) *Negotiator {
	return &Negotiator{
		mode:                mode,
		deviceTypeKnown:     newBroadcast(),
		functionsKnown:      newBroadcast(),
		negotiationComplete: newBroadcast(),
	}
}

// DeviceTypeKnown returns a channel that closes once the device type has
// been negotiated.
func (n *Negotiator) DeviceTypeKnown() <-chan struct{} { return n.deviceTypeKnown.Chan() }

// FunctionsKnown returns a channel that closes once functions have been
// negotiated.
func (n *Negotiator) FunctionsKnown() <-chan struct{} { return n.functionsKnown.Chan() }

// NegotiationComplete returns a channel that closes once negotiation has
// reached completion under the configured policy.
func (n *Negotiator) NegotiationComplete() <-chan struct{} { return n.negotiationComplete.Chan() }

func (n *Negotiator) checkComplete() {
	var complete bool
	switch n.mode {
	case Strict:
		complete = n.deviceTypeKnown.isSet() && n.functionsKnown.isSet()
	case Flexible:
		complete = n.deviceTypeKnown.isSet() || n.functionsKnown.isSet()
	}
	if complete {
		n.negotiationComplete.fire()
	}
}

// HandleDeviceType processes one DEVICE-TYPE subnegotiation message body
// (the bytes between the sub-command byte already stripped by the caller
// and IAC SE). It returns the bytes to send back, if any.
func (n *Negotiator) HandleDeviceType(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("negotiator: empty device-type subnegotiation")
	}
	switch body[0] {
	case OpSend:
		// Host invites us to propose a device type; offer the first
		// entry of AcceptedDeviceTypes.
		return n.buildDeviceTypeIs(AcceptedDeviceTypes[0]), nil

	case OpRequest:
		proposed := string(body[1:])
		if !isAcceptedDeviceType(proposed) {
			return []byte{OpReject, 0x01}, nil // reason 0x01: device type unsupported
		}
		n.applyDeviceType(proposed, "")
		return n.buildDeviceTypeIs(proposed), nil

	case OpIs:
		// Host sends IS when it is *telling* us the type (e.g. following
		// our own REQUEST); the payload is <device-type> [0x01 <lu-name>].
		rest := body[1:]
		devType, lu := splitDeviceTypeIS(rest)
		n.applyDeviceType(devType, lu)
		return nil, nil

	default:
		return nil, fmt.Errorf("negotiator: unknown device-type sub-op %#02x", body[0])
	}
}

func splitDeviceTypeIS(rest []byte) (devType, lu string) {
	for i, b := range rest {
		if b == 0x01 { // separator byte marking the start of an LU name
			return string(rest[:i]), string(rest[i+1:])
		}
	}
	return string(rest), ""
}

func (n *Negotiator) buildDeviceTypeIs(devType string) []byte {
	out := []byte{OpIs}
	out = append(out, []byte(devType)...)
	return out
}

func isAcceptedDeviceType(s string) bool {
	for _, t := range AcceptedDeviceTypes {
		if t == s {
			return true
		}
	}
	return false
}

// applyDeviceType records the negotiated device type. Per the "first
// arrival wins" resolution, only the first message to arrive after a
// reset may set the type; a racing second message is ignored rather
// than silently overwriting already-published dimensions.
func (n *Negotiator) applyDeviceType(devType, lu string) {
	if n.deviceTypeKnown.isSet() {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.deviceType != "" {
		return
	}
	n.deviceType = devType
	n.luName = lu
	dims, ok := deviceDefaults[devType]
	if !ok {
		dims = [2]int{24, 80}
	}
	n.rows, n.cols = dims[0], dims[1]
	n.isPrinterSession = isPrinterDeviceType(devType)
	n.tn3270eActive = true
	n.deviceTypeKnown.fire()
	n.checkComplete()
}

func isPrinterDeviceType(devType string) bool {
	return devType == "IBM-3287-1" || (len(devType) >= 9 && devType[:9] == "IBM-3287-")
}

// HandleFunctions processes one FUNCTIONS subnegotiation message body,
// intersecting the requested and locally-supported bitmaps, and returns
// the reply bytes.
func (n *Negotiator) HandleFunctions(body []byte, locallySupported uint8) ([]byte, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("negotiator: empty functions subnegotiation")
	}
	switch body[0] {
	case OpRequest:
		offered := bitmapFromBytes(body[1:])
		agreed := offered & locallySupported
		n.applyFunctions(agreed)
		out := []byte{OpIs}
		out = append(out, bytesFromBitmap(agreed)...)
		return out, nil

	case OpIs:
		agreed := bitmapFromBytes(body[1:])
		n.applyFunctions(agreed)
		return nil, nil

	default:
		return nil, fmt.Errorf("negotiator: unknown functions sub-op %#02x", body[0])
	}
}

// bitmapFromBytes converts the wire form of a FUNCTIONS subnegotiation
// payload -- a list of one-byte function codes (0 = BIND-IMAGE, 1 =
// DATA-STREAM-CTL, ...) -- into the internal bit-set representation.
func bitmapFromBytes(b []byte) uint8 {
	var v uint8
	for _, code := range b {
		if code < 8 {
			v |= 1 << code
		}
	}
	return v
}

// bytesFromBitmap is the inverse of bitmapFromBytes: it expands a bit-set
// back into the wire list of function-code bytes.
func bytesFromBitmap(v uint8) []byte {
	var out []byte
	for code := uint8(0); code < 8; code++ {
		if v&(1<<code) != 0 {
			out = append(out, code)
		}
	}
	return out
}

func (n *Negotiator) applyFunctions(agreed uint8) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.negotiatedFunctions = agreed
	if agreed != 0 {
		n.lastNegotiatedFunctions = agreed
	}
	n.functionsKnown.fire()
	n.checkComplete()
}

// ResetNegotiationState clears device-type and functions knowledge for a
// fallback retry while preserving LastNegotiatedFunctions, per the
// "reset_negotiation_state" operation.
func (n *Negotiator) ResetNegotiationState() {
	n.mu.Lock()
	n.tn3270eActive = false
	n.deviceType = ""
	n.luName = ""
	n.negotiatedFunctions = 0
	n.isPrinterSession = false
	n.mu.Unlock()

	n.deviceTypeKnown.reset()
	n.functionsKnown.reset()
	n.negotiationComplete.reset()
}

// Snapshot returns a copy of the negotiator's current state.
func (n *Negotiator) Snapshot() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return State{
		TN3270EActive:           n.tn3270eActive,
		DeviceType:              n.deviceType,
		LUName:                  n.luName,
		Rows:                    n.rows,
		Cols:                    n.cols,
		NegotiatedFunctions:     n.negotiatedFunctions,
		LastNegotiatedFunctions: n.lastNegotiatedFunctions,
		IsPrinterSession:        n.isPrinterSession,
		DeviceTypeKnown:         n.deviceTypeKnown.isSet(),
		FunctionsKnown:          n.functionsKnown.isSet(),
		NegotiationComplete:     n.negotiationComplete.isSet(),
	}
}

// IAC/WILL/WONT/DONT and the EOR/TN3270E option bytes, duplicated from
// package telnet rather than imported: this heuristic only ever needs
// these four literal byte sequences, and keeping it a pure function of a
// byte slice (no telnet.Framer, no state) is what lets it stay total and
// idempotent over arbitrary captured traces.
const (
	traceIAC        byte = 0xFF
	traceWILL       byte = 0xFB
	traceWONT       byte = 0xFC
	traceDONT       byte = 0xFE
	traceOptEOR     byte = 0x19
	traceOptTN3270E byte = 0x28
)

// InferTN3270EFromTrace applies the heuristic used when a host never
// negotiates TN3270E explicitly but its data stream is unambiguously
// TN3270E-shaped: it returns true iff the trace contains IAC WILL EOR and
// contains no IAC WONT/DONT TN3270E. This is a last-resort fallback for
// offline tools deciding whether a historical trace was in TN3270E mode,
// never consulted when DO TN3270E was seen live.
func InferTN3270EFromTrace(b []byte) bool {
	willEOR := []byte{traceIAC, traceWILL, traceOptEOR}
	wontTN3270E := []byte{traceIAC, traceWONT, traceOptTN3270E}
	dontTN3270E := []byte{traceIAC, traceDONT, traceOptTN3270E}

	if !bytes.Contains(b, willEOR) {
		return false
	}
	return !bytes.Contains(b, wontTN3270E) && !bytes.Contains(b, dontTN3270E)
}
