// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import (
	"fmt"
	"log/slog"
)

// 3270 command bytes. Each command has two equivalent encodings (the
// original and the newer one); both appear in the dispatch table.
const (
	cmdWrite            byte = 0x01
	cmdWriteAlt         byte = 0xF1
	cmdEraseWrite       byte = 0x05
	cmdEraseWriteAlt    byte = 0xF5
	cmdEraseWriteAltA   byte = 0x0D
	cmdEraseWriteAltAlt byte = 0x7E
	cmdReadBuffer       byte = 0x02
	cmdReadBufferAlt    byte = 0xF2
	cmdReadModified     byte = 0x06
	cmdReadModifiedAlt  byte = 0xF6
	cmdReadModifiedAll  byte = 0x0E
	cmdReadModAllAlt    byte = 0x6E
	cmdEraseAllUnprot   byte = 0x0F
	cmdEraseAllUnprAlt  byte = 0x6F
	cmdWriteSF          byte = 0x11
	cmdWriteSFAlt       byte = 0xF3
)

// Write Control Character bits.
const (
	wccReset          byte = 0x40
	wccKeyboardUnlock byte = 0x20
	wccAlarm          byte = 0x08
	wccPrintOperation byte = 0x04
	wccResetPartition byte = 0x02
)

// 3270 order bytes.
const (
	orderSBA byte = 0x11
	orderSF  byte = 0x1D
	orderSFE byte = 0x29
	orderSA  byte = 0x28
	orderMF  byte = 0x2C
	orderIC  byte = 0x13
	orderPT  byte = 0x05
	orderRA  byte = 0x3C
	orderEUA byte = 0x12
	orderGE  byte = 0x08
)

// ReadRequest identifies a command that asks the session to build and send
// a reply rather than mutate the buffer directly; the actual reply is
// built by the writer since it needs the current AID and cursor.
type ReadRequest int

const (
	ReadRequestNone ReadRequest = iota
	ReadRequestBuffer
	ReadRequestModified
	ReadRequestModifiedAll
)

// AltDimensions is called by the parser when it needs the BIND-declared
// alternate screen size for an Erase/Write Alternate command.
type AltDimensions func() (rows, cols int)

// Parser is the 3270 data-stream decoder. It holds a non-owning
// reference to the screen buffer it mutates; it never outlives the
// session that owns that buffer.
type Parser struct {
	buf    *ScreenBuffer
	cp     Codepage
	Strict bool
	AltDim AltDimensions
	Logger *slog.Logger

	replyMode    byte
	use14Bit     bool
	lastAttrMode bool // never set; always false
}

// NewParser returns a parser that mutates buf, decoding character data
// with cp.
func NewParser(buf *ScreenBuffer, cp Codepage) *Parser {
	return &Parser{buf: buf, cp: cp}
}

// Use14BitAddressing reports which convention the most recently parsed
// record used, so the writer can mirror it in replies.
func (p *Parser) Use14BitAddressing() bool { return p.use14Bit }

// Parse decodes one complete 3270 record (already de-framed by the Telnet
// and TN3270E layers) and applies it to the screen buffer. It returns the
// kind of read reply the caller must now build, if any.
func (p *Parser) Parse(record []byte) (ReadRequest, error) {
	if len(record) == 0 {
		return ReadRequestNone, newErr(KindParseShortRecord, "Parse", errShortRecord("command"))
	}

	cmd := record[0]
	body := record[1:]

	switch cmd {
	case cmdWrite, cmdWriteAlt:
		return ReadRequestNone, p.doWrite(body)
	case cmdEraseWrite, cmdEraseWriteAlt:
		p.buf.Clear()
		return ReadRequestNone, p.doWrite(body)
	case cmdEraseWriteAltA, cmdEraseWriteAltAlt:
		if p.AltDim != nil {
			if rows, cols := p.AltDim(); rows > 0 && cols > 0 {
				p.buf.Resize(rows, cols)
			}
		}
		p.buf.Clear()
		return ReadRequestNone, p.doWrite(body)
	case cmdReadBuffer, cmdReadBufferAlt:
		return ReadRequestBuffer, nil
	case cmdReadModified, cmdReadModifiedAlt:
		return ReadRequestModified, nil
	case cmdReadModifiedAll, cmdReadModAllAlt:
		return ReadRequestModifiedAll, nil
	case cmdEraseAllUnprot, cmdEraseAllUnprAlt:
		p.buf.eraseAllUnprotected()
		return ReadRequestNone, nil
	case cmdWriteSF, cmdWriteSFAlt:
		return ReadRequestNone, p.doWriteStructuredFields(body)
	default:
		return ReadRequestNone, newErr(KindParseUnknownOrder, "Parse",
			fmt.Errorf("unknown command byte %#02x", cmd))
	}
}

// doWrite applies a WCC byte followed by a stream of orders and data.
func (p *Parser) doWrite(body []byte) error {
	if len(body) == 0 {
		return newErr(KindParseShortRecord, "doWrite", errShortRecord("WCC"))
	}
	wcc := body[0]
	orders := body[1:]

	if wcc&wccReset != 0 {
		p.buf.resetAllMDT()
	}

	i := 0
	for i < len(orders) {
		b := orders[i]
		i++
		var err error
		i, err = p.applyOrder(b, orders, i)
		if err != nil {
			return err
		}
	}
	return nil
}

// applyOrder executes one order (or plain-data byte) starting at orders[i]
// (the byte after the opcode, b), returning the new cursor into orders.
func (p *Parser) applyOrder(b byte, orders []byte, i int) (int, error) {
	switch b {
	case orderSBA:
		addr, ni, ok := p.readAddr(orders, i)
		if !ok {
			return ni, newErr(KindParseShortRecord, "SBA", errShortRecord("address"))
		}
		row, col, err := p.posFromAddr(addr)
		if err != nil {
			return ni, err
		}
		if err := p.buf.SetPosition(row, col, true); err != nil {
			return ni, newErr(KindParseBadAddress, "SBA", err)
		}
		return ni, nil

	case orderSF:
		if i >= len(orders) {
			return i, newErr(KindParseShortRecord, "SF", errShortRecord("attribute"))
		}
		attr, _ := decodeFieldAttr(orders[i])
		p.buf.SetAttribute(attr, -1, -1)
		return i + 1, nil

	case orderSFE:
		if i >= len(orders) {
			return i, newErr(KindParseShortRecord, "SFE", errShortRecord("pair count"))
		}
		count := int(orders[i])
		i++
		row, col := p.buf.Cursor()
		p.buf.setAttributeAt(p.buf.pos(row, col), 0)
		for n := 0; n < count; n++ {
			if i+1 >= len(orders) {
				return i, newErr(KindParseShortRecord, "SFE", errShortRecord("attribute pair"))
			}
			kind, value := ExtAttrKind(orders[i]), orders[i+1]
			i += 2
			if kind == extAttrBasic {
				attr, _ := decodeFieldAttr(value)
				p.buf.setAttributeAt(p.buf.pos(row, col), attr)
			} else {
				p.buf.SetExtendedAttribute(row, col, kind, value)
			}
		}
		p.buf.advanceFrom(row, col)
		return i, nil

	case orderSA:
		if i+1 >= len(orders) {
			return i, newErr(KindParseShortRecord, "SA", errShortRecord("attribute pair"))
		}
		kind, value := ExtAttrKind(orders[i]), orders[i+1]
		row, col := p.buf.Cursor()
		p.buf.SetExtendedAttribute(row, col, kind, value)
		return i + 2, nil

	case orderMF:
		if i >= len(orders) {
			return i, newErr(KindParseShortRecord, "MF", errShortRecord("pair count"))
		}
		count := int(orders[i])
		i++
		row, col := p.buf.Cursor()
		for n := 0; n < count; n++ {
			if i+1 >= len(orders) {
				return i, newErr(KindParseShortRecord, "MF", errShortRecord("attribute pair"))
			}
			kind, value := ExtAttrKind(orders[i]), orders[i+1]
			i += 2
			p.buf.SetExtendedAttribute(row, col, kind, value)
		}
		return i, nil

	case orderIC:
		row, col := p.buf.Cursor()
		_ = p.buf.SetPosition(row, col, false)
		return i, nil

	case orderPT:
		p.buf.programTab()
		return i, nil

	case orderRA:
		addr, ni, ok := p.readAddr(orders, i)
		if !ok {
			return ni, newErr(KindParseShortRecord, "RA", errShortRecord("address"))
		}
		if ni >= len(orders) {
			return ni, newErr(KindParseShortRecord, "RA", errShortRecord("character"))
		}
		ch := orders[ni]
		ni++
		row, col, err := p.posFromAddr(addr)
		if err != nil {
			return ni, err
		}
		p.buf.repeatToAddress(ch, row, col)
		return ni, nil

	case orderEUA:
		addr, ni, ok := p.readAddr(orders, i)
		if !ok {
			return ni, newErr(KindParseShortRecord, "EUA", errShortRecord("address"))
		}
		row, col, err := p.posFromAddr(addr)
		if err != nil {
			return ni, err
		}
		from := p.buf.CursorAddr()
		to := row*p.buf.Cols() + col
		p.buf.eraseUnprotectedTo(from, to)
		_ = p.buf.SetPosition(row, col, false)
		return ni, nil

	case orderGE:
		if i >= len(orders) {
			return i, newErr(KindParseShortRecord, "GE", errShortRecord("character"))
		}
		p.buf.WriteChar(orders[i], -1, -1)
		return i + 1, nil

	default:
		// Plain data byte.
		p.buf.WriteChar(b, -1, -1)
		return i, nil
	}
}

// readAddr decodes a two-byte buffer address starting at orders[i].
func (p *Parser) readAddr(orders []byte, i int) (addr, newI int, ok bool) {
	if i+1 >= len(orders) {
		return 0, i, false
	}
	addr, decOK := decodeAddr(orders[i], orders[i+1])
	if !decOK {
		return 0, i + 2, false
	}
	p.use14Bit = !is12BitByte(orders[i])
	return addr, i + 2, true
}

func (p *Parser) posFromAddr(addr int) (row, col int, err error) {
	cols := p.buf.Cols()
	if cols == 0 || addr < 0 || addr >= p.buf.Rows()*cols {
		return 0, 0, newErr(KindParseBadAddress, "posFromAddr", ErrOutOfBounds)
	}
	return addr / cols, addr % cols, nil
}

func errShortRecord(what string) error {
	return fmt.Errorf("short record: missing %s", what)
}
