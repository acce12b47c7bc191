// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

// Package header encodes and decodes the 5-byte TN3270E data header that
// RFC 2355 prepends to every record once the TN3270E function has been
// negotiated: a data type, two flag bytes, and a 2-byte sequence number.
package header

import "fmt"

// Data type byte values, RFC 2355 section 3.2.
const (
	ThreeTwoSeventyData byte = 0x00
	SCSData             byte = 0x01
	Response            byte = 0x02
	BindImage           byte = 0x03
	Unbind              byte = 0x04
	NVTData             byte = 0x05
	Request             byte = 0x06
	SSCPLUData          byte = 0x07
	PrintEOJ            byte = 0x08
)

// Response flag values, meaningful only when DataType is Response.
const (
	ResponseNone   byte = 0x00
	ResponseAlways byte = 0x01
	ResponseError  byte = 0x02
)

// Positive/negative response data-type values, used in the payload of a
// Response-type record.
const (
	PositiveResponse byte = 0x00
	NegativeResponse byte = 0x01
)

// Header is the 5-byte TN3270E record header: data type, request flag,
// response flag, and a 2-byte big-endian sequence number.
type Header struct {
	DataType     byte
	RequestFlag  byte
	ResponseFlag byte
	Seq          uint16
}

// Len is the wire size of a Header, always 5 bytes.
const Len = 5

// Split separates a TN3270E-framed record into its header and data, or
// returns an error if record is shorter than Len.
func Split(record []byte) (Header, []byte, error) {
	if len(record) < Len {
		return Header{}, nil, fmt.Errorf("tn3270e header: record too short (%d bytes)", len(record))
	}
	h := Header{
		DataType:     record[0],
		RequestFlag:  record[1],
		ResponseFlag: record[2],
		Seq:          uint16(record[3])<<8 | uint16(record[4]),
	}
	return h, record[Len:], nil
}

// Build prepends h's wire encoding to data, returning a new record.
func Build(h Header, data []byte) []byte {
	out := make([]byte, Len, Len+len(data))
	out[0] = h.DataType
	out[1] = h.RequestFlag
	out[2] = h.ResponseFlag
	out[3] = byte(h.Seq >> 8)
	out[4] = byte(h.Seq)
	return append(out, data...)
}

func (h Header) String() string {
	return fmt.Sprintf("type=%#02x req=%#02x resp=%#02x seq=%d",
		h.DataType, h.RequestFlag, h.ResponseFlag, h.Seq)
}
