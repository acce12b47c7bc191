// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import "fmt"

// Structured field IDs the client recognizes inside a Write Structured
// Field command.
const (
	sfReadPartition  byte = 0x01
	sfEraseReset     byte = 0x03
	sfSetReplyMode   byte = 0x09
	sfOutbound3270DS byte = 0x40
	sfQueryReply     byte = 0x81
)

// Read Partition subtypes (the first payload byte after the partition ID).
const (
	rpQuery     byte = 0x02
	rpQueryList byte = 0x03
)

// ReplyMode is the reply mode a host sets via a Set Reply Mode structured
// field. The parser records it; Writer builds the same replies in every
// mode.
type ReplyMode byte

const (
	ReplyModeField         ReplyMode = 0x00
	ReplyModeExtendedField ReplyMode = 0x01
	ReplyModeCharacter     ReplyMode = 0x02
)

// StructuredField is one decoded (length, ID, payload) record from a Write
// Structured Field command.
type StructuredField struct {
	ID      byte
	Payload []byte
}

// splitStructuredFields decodes a Write Structured Field command's body
// into its length-prefixed records. Each record is a 2-byte big-endian
// length (including the length field itself), an ID byte, and payload. A
// record whose declared length is exactly 2 has no room for an ID byte;
// it decodes to an empty, no-op record rather than a short-record error.
func splitStructuredFields(body []byte) ([]StructuredField, error) {
	var out []StructuredField
	i := 0
	for i < len(body) {
		if i+2 > len(body) {
			return nil, newErr(KindParseShortRecord, "splitStructuredFields", errShortRecord("length"))
		}
		length := int(body[i])<<8 | int(body[i+1])
		if length < 2 {
			return nil, newErr(KindParseShortRecord, "splitStructuredFields",
				fmt.Errorf("structured field length %d too short", length))
		}
		if i+length > len(body) {
			return nil, newErr(KindParseShortRecord, "splitStructuredFields", errShortRecord("payload"))
		}
		if length == 2 {
			// The length field alone, with no room for an ID byte: an
			// empty, no-op record rather than a short record.
			out = append(out, StructuredField{})
			i += length
			continue
		}
		id := body[i+2]
		payload := body[i+3 : i+length]
		out = append(out, StructuredField{ID: id, Payload: payload})
		i += length
	}
	return out, nil
}

// doWriteStructuredFields decodes and applies each structured field in a
// Write Structured Field command's body in order.
func (p *Parser) doWriteStructuredFields(body []byte) error {
	fields, err := splitStructuredFields(body)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if err := p.applyStructuredField(f); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) applyStructuredField(f StructuredField) error {
	switch f.ID {
	case 0x00:
		// The length-field-only record (declared length 2): nothing to
		// apply.
		return nil
	case sfEraseReset:
		p.buf.Clear()
		return nil
	case sfSetReplyMode:
		if len(f.Payload) >= 1 {
			p.replyMode = f.Payload[0]
		}
		return nil
	case sfOutbound3270DS:
		// An embedded 3270 data stream (WCC + orders), identical in
		// structure to a bare Write command's body.
		return p.doWrite(f.Payload)
	case sfReadPartition:
		// Recognized and otherwise ignored: no Query Reply is built or
		// sent for a Query or Query List request.
		return nil
	case sfQueryReply:
		// A Query Reply sent by the host to a client that initiated Read
		// Partition Query is not meaningful in this direction; ignore.
		return nil
	default:
		if p.Strict {
			return newErr(KindParseUnknownOrder, "applyStructuredField",
				fmt.Errorf("unknown structured field id %#02x", f.ID))
		}
		return nil
	}
}
