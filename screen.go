// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import "strings"

// FieldAttr is the decoded 6-bit basic attribute value carried by a field's
// start position: protected/unprotected, numeric/alphanumeric, the
// display-pair (normal/intensified/non-display), and the modified-data
// tag. It is the value before the addrCodes wire-code translation that SF
// and SFE write to the stream.
type FieldAttr byte

const (
	AttrProtected FieldAttr = 0x20
	AttrNumeric   FieldAttr = 0x10
	attrDisplayHi FieldAttr = 0x08
	attrDisplayLo FieldAttr = 0x04
	AttrMDT       FieldAttr = 0x01
)

// Protected reports whether the field rejects operator input.
func (a FieldAttr) Protected() bool { return a&AttrProtected != 0 }

// Numeric reports whether the field is numeric-only.
func (a FieldAttr) Numeric() bool { return a&AttrNumeric != 0 }

// Intensified reports whether the field is displayed at high intensity.
func (a FieldAttr) Intensified() bool { return a&(attrDisplayHi|attrDisplayLo) == attrDisplayHi }

// NonDisplay reports whether the field's content should never be shown
// (e.g. a password field).
func (a FieldAttr) NonDisplay() bool {
	return a&(attrDisplayHi|attrDisplayLo) == attrDisplayHi|attrDisplayLo
}

// MDT reports whether the field's modified-data tag is set.
func (a FieldAttr) MDT() bool { return a&AttrMDT != 0 }

// encodeFieldAttr runs the raw 6-bit attribute value through the same
// code table used for buffer addresses, producing the byte that appears
// on the wire and, when written, occupies that cell's position.
func encodeFieldAttr(a FieldAttr) byte { return addrCodes[byte(a)&0x3F] }

// decodeFieldAttr is the inverse of encodeFieldAttr.
func decodeFieldAttr(wire byte) (FieldAttr, bool) {
	v := addrDecodes[wire]
	if v == 0xFF {
		return 0, false
	}
	return FieldAttr(v), true
}

// ExtAttrKind identifies which extended attribute a Set Attribute (SA) or
// Start Field Extended (SFE) pair carries.
type ExtAttrKind byte

const (
	ExtHighlighting ExtAttrKind = 0x41
	ExtForeground   ExtAttrKind = 0x42
	ExtCharSet      ExtAttrKind = 0x43
	ExtBackground   ExtAttrKind = 0x45
	ExtTransparency ExtAttrKind = 0x46
	ExtValidation   ExtAttrKind = 0xC1
	ExtOutlining    ExtAttrKind = 0xC2

	// extAttrBasic marks an SFE attribute-type/value pair that carries a
	// basic (not extended) field attribute byte rather than one of the
	// ExtAttrKind values above.
	extAttrBasic ExtAttrKind = 0xC0
)

// ExtendedAttribute is the small record of extended attributes a screen
// position may carry. A zero value for any field means "not set" for that
// particular attribute; a position entirely absent from ScreenBuffer's
// sparse map means "inherit everything from the field."
type ExtendedAttribute struct {
	Foreground   byte
	Background   byte
	Highlighting byte
	CharSet      byte
	Outlining    byte
	Validation   byte
	Transparency byte
}

// set applies a single (kind, value) pair, as carried by one SA or SFE
// attribute-type/value pair.
func (e *ExtendedAttribute) set(kind ExtAttrKind, value byte) {
	switch kind {
	case ExtHighlighting:
		e.Highlighting = value
	case ExtForeground:
		e.Foreground = value
	case ExtCharSet:
		e.CharSet = value
	case ExtBackground:
		e.Background = value
	case ExtTransparency:
		e.Transparency = value
	case ExtValidation:
		e.Validation = value
	case ExtOutlining:
		e.Outlining = value
	}
}

// Cell is one position in the screen buffer: a character byte together
// with a flag and decoded value for when that position is a field-start
// attribute byte rather than ordinary content.
type Cell struct {
	Char   byte
	IsAttr bool
	Attr   FieldAttr
}

// Field is a half-open, contiguous range of the linearized buffer bounded
// by a field-start attribute byte at Start. Fields are derived by
// DetectFields, never constructed directly by callers.
type Field struct {
	Start    int
	End      int
	Attr     FieldAttr
	Extended ExtendedAttribute
	Content  []byte
}

// Protected reports whether the field rejects operator input.
func (f Field) Protected() bool { return f.Attr.Protected() }

// MDT reports whether the field's modified-data tag is set.
func (f Field) MDT() bool { return f.Attr.MDT() }

// ScreenBuffer is the in-memory 3270 display: a rectangular grid of
// character cells, a sparse extended-attribute map, a derived field list,
// and the cursor. It is single-owner (the Session); the parser and writer
// hold non-owning references to it.
type ScreenBuffer struct {
	rows, cols int
	cells      []Cell
	extended   map[int]ExtendedAttribute
	fields     []Field
	curRow     int
	curCol     int
	cp         Codepage
	insertMode bool
}

// ToggleInsertMode flips whether TypeChar inserts (shifting field content
// right) or overwrites at the cursor, the Insert key's effect.
func (b *ScreenBuffer) ToggleInsertMode() { b.insertMode = !b.insertMode }

// InsertMode reports the buffer's current insert/overwrite mode.
func (b *ScreenBuffer) InsertMode() bool { return b.insertMode }

// TypeChar enters one EBCDIC byte of operator input at the cursor,
// honoring InsertMode, and sets MDT on the field it lands in. Input into a
// protected field or outside any field is a no-op.
func (b *ScreenBuffer) TypeChar(c byte) {
	if b.insertMode {
		b.insertCharAtCursor(c)
		return
	}
	fields := b.DetectFields()
	cur := b.pos(b.curRow, b.curCol)
	for _, f := range fields {
		if f.Start < 0 || f.Protected() {
			continue
		}
		if cur > f.Start && cur < f.End {
			b.cells[cur] = Cell{Char: c}
			b.setMDT(f.Start, true)
			b.advance()
			return
		}
	}
}

// NewScreenBuffer constructs a buffer of the given dimensions. rows and
// cols must be positive; the model is otherwise parametric (not limited to
// the standard 24x80/32x80/43x80/24x132/32x132/43x132 models).
func NewScreenBuffer(rows, cols int, cp Codepage) *ScreenBuffer {
	b := &ScreenBuffer{rows: rows, cols: cols, cp: cp}
	b.cells = make([]Cell, rows*cols)
	b.Clear()
	return b
}

// Rows returns the buffer's row count.
func (b *ScreenBuffer) Rows() int { return b.rows }

// Cols returns the buffer's column count.
func (b *ScreenBuffer) Cols() int { return b.cols }

// Resize replaces the buffer's dimensions and clears it, used only when an
// Erase/Write Alternate command switches to BIND-declared alternate
// dimensions. It is not part of the public Session API: callers never
// resize a buffer directly.
func (b *ScreenBuffer) Resize(rows, cols int) {
	b.rows = rows
	b.cols = cols
	b.cells = make([]Cell, rows*cols)
	b.Clear()
}

// Clear resets every cell to EBCDIC space, drops all extended attributes
// and the field list, and homes the cursor.
func (b *ScreenBuffer) Clear() {
	for i := range b.cells {
		b.cells[i] = Cell{Char: 0x40}
	}
	b.extended = make(map[int]ExtendedAttribute)
	b.fields = nil
	b.curRow, b.curCol = 0, 0
}

func (b *ScreenBuffer) pos(row, col int) int { return row*b.cols + col }

// cellAt returns the cell at linear position p, used by the writer to dump
// the buffer for a Read Buffer reply.
func (b *ScreenBuffer) cellAt(p int) Cell { return b.cells[p] }

func (b *ScreenBuffer) inBounds(row, col int) bool {
	return row >= 0 && row < b.rows && col >= 0 && col < b.cols
}

// SetPosition moves the cursor to (row, col). When strict, an out-of-bounds
// position returns a BadAddress error instead of being clamped.
func (b *ScreenBuffer) SetPosition(row, col int, strict bool) error {
	if !b.inBounds(row, col) {
		if strict {
			return newErr(KindParseBadAddress, "SetPosition", ErrOutOfBounds)
		}
		row = clamp(row, 0, b.rows-1)
		col = clamp(col, 0, b.cols-1)
	}
	b.curRow, b.curCol = row, col
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Cursor returns the current cursor position.
func (b *ScreenBuffer) Cursor() (row, col int) { return b.curRow, b.curCol }

// CursorAddr returns the cursor position as a linear buffer address.
func (b *ScreenBuffer) CursorAddr() int { return b.pos(b.curRow, b.curCol) }

// advance moves the write position forward by one cell, wrapping past the
// right edge to the start of the next row, and past the last cell back to
// (0, 0).
func (b *ScreenBuffer) advance() {
	b.curCol++
	if b.curCol >= b.cols {
		b.curCol = 0
		b.curRow++
		if b.curRow >= b.rows {
			b.curRow = 0
		}
	}
}

// WriteChar writes one EBCDIC byte at (row, col), or at the cursor when row
// and col are both -1, advancing the write position with wrap afterward.
func (b *ScreenBuffer) WriteChar(c byte, row, col int) {
	if row < 0 || col < 0 {
		row, col = b.curRow, b.curCol
	}
	b.cells[b.pos(row, col)] = Cell{Char: c}
	b.curRow, b.curCol = row, col
	b.advance()
}

// SetAttribute writes a basic attribute byte at (row, col), creating a
// field boundary there. When row/col are -1, the cursor position is used.
func (b *ScreenBuffer) SetAttribute(attr FieldAttr, row, col int) {
	if row < 0 || col < 0 {
		row, col = b.curRow, b.curCol
	}
	b.cells[b.pos(row, col)] = Cell{Char: encodeFieldAttr(attr), IsAttr: true, Attr: attr}
	b.curRow, b.curCol = row, col
	b.advance()
}

// setAttributeAt writes a basic attribute byte at linear position p without
// moving the cursor, used when building up a field from an SFE order whose
// cursor advance happens once, after all its attribute pairs are applied.
func (b *ScreenBuffer) setAttributeAt(p int, attr FieldAttr) {
	b.cells[p] = Cell{Char: encodeFieldAttr(attr), IsAttr: true, Attr: attr}
}

// advanceFrom sets the cursor to (row, col) and advances it by one cell,
// used by orders that must leave the cursor just past a position they wrote
// without going through WriteChar or SetAttribute.
func (b *ScreenBuffer) advanceFrom(row, col int) {
	b.curRow, b.curCol = row, col
	b.advance()
}

// programTab moves the cursor to the first data position of the next field
// after the cursor, wrapping around the buffer. If no field-start cell
// exists, the cursor is left unchanged. Per the client's tab policy, this
// always advances to the next field start regardless of whether that field
// is protected.
func (b *ScreenBuffer) programTab() {
	n := len(b.cells)
	start := b.pos(b.curRow, b.curCol)
	for i := 1; i <= n; i++ {
		p := (start + i) % n
		if b.cells[p].IsAttr {
			target := (p + 1) % n
			b.curRow, b.curCol = target/b.cols, target%b.cols
			return
		}
	}
}

// repeatToAddress implements the Repeat to Address order: it fills cells
// from the current cursor position up to (not including) the target
// address with ch, wrapping past the end of the buffer, then leaves the
// cursor at the target. A target equal to the cursor fills the entire
// buffer once around.
func (b *ScreenBuffer) repeatToAddress(ch byte, targetRow, targetCol int) {
	n := len(b.cells)
	from := b.pos(b.curRow, b.curCol)
	to := b.pos(targetRow, targetCol)
	i := from
	for {
		b.cells[i] = Cell{Char: ch}
		i = (i + 1) % n
		if i == to {
			break
		}
		if i == from {
			break
		}
	}
	b.curRow, b.curCol = targetRow, targetCol
}

// SetExtendedAttribute updates the sparse extended-attribute map at (row,
// col) without creating a field (the SA order's behavior).
func (b *ScreenBuffer) SetExtendedAttribute(row, col int, kind ExtAttrKind, value byte) {
	p := b.pos(row, col)
	ea := b.extended[p]
	ea.set(kind, value)
	b.extended[p] = ea
}

// ExtendedAt returns the extended attribute at a linear position and
// whether one is present.
func (b *ScreenBuffer) ExtendedAt(p int) (ExtendedAttribute, bool) {
	ea, ok := b.extended[p]
	return ea, ok
}

// setMDT raises or clears the modified-data tag on the field-start cell at
// p, used by input actions and by WCC reset processing.
func (b *ScreenBuffer) setMDT(p int, set bool) {
	c := b.cells[p]
	if !c.IsAttr {
		return
	}
	if set {
		c.Attr |= AttrMDT
	} else {
		c.Attr &^= AttrMDT
	}
	c.Char = encodeFieldAttr(c.Attr)
	b.cells[p] = c
}

// resetAllMDT clears the modified-data tag on every field, the WCC Reset
// bit's effect.
func (b *ScreenBuffer) resetAllMDT() {
	for i, c := range b.cells {
		if c.IsAttr {
			b.setMDT(i, false)
		}
	}
}

// DetectFields linearly scans the buffer for field-start cells and
// rebuilds the field list. If the buffer has no field-start cells, the
// entire buffer is treated as one implicit unprotected field.
func (b *ScreenBuffer) DetectFields() []Field {
	var fields []Field
	var open *Field

	for p, c := range b.cells {
		if !c.IsAttr {
			continue
		}
		if open != nil {
			open.End = p
			open.Content = b.contentBytes(open.Start+1, open.End)
			fields = append(fields, *open)
		}
		ea := b.extended[p]
		open = &Field{Start: p, Attr: c.Attr, Extended: ea}
	}
	if open != nil {
		open.End = len(b.cells)
		open.Content = b.contentBytes(open.Start+1, open.End)
		fields = append(fields, *open)
	}
	if len(fields) == 0 {
		fields = []Field{{Start: -1, End: len(b.cells), Attr: 0,
			Content: b.contentBytes(0, len(b.cells))}}
	}

	b.fields = fields
	return fields
}

// Fields returns the field list as of the last DetectFields call.
func (b *ScreenBuffer) Fields() []Field { return b.fields }

func (b *ScreenBuffer) contentBytes(start, end int) []byte {
	if start >= end {
		return nil
	}
	out := make([]byte, 0, end-start)
	for i := start; i < end; i++ {
		c := b.cells[i]
		if c.IsAttr {
			out = append(out, 0x40)
			continue
		}
		out = append(out, c.Char)
	}
	return out
}

// ReadModified returns (start position, content bytes) for every field
// whose modified-data tag is set, recomputing the field list first since
// fields are derived, not authoritative.
func (b *ScreenBuffer) ReadModified() []ModifiedField {
	fields := b.DetectFields()
	var out []ModifiedField
	for _, f := range fields {
		if f.Start < 0 || !f.MDT() {
			continue
		}
		out = append(out, ModifiedField{Start: f.Start + 1, Content: f.Content})
	}
	return out
}

// ModifiedField is one entry of a read-modified reply: the buffer address
// of the field's first data position and its current content.
type ModifiedField struct {
	Start   int
	Content []byte
}

// AsciiBuffer renders the buffer to a newline-separated Unicode string.
// Field-attribute positions render as spaces. When showCursor is true, the
// current cursor cell is rendered with a cursor glyph instead of its
// actual content.
func (b *ScreenBuffer) AsciiBuffer(showCursor bool) string {
	var sb strings.Builder
	for row := 0; row < b.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := 0; col < b.cols; col++ {
			p := b.pos(row, col)
			if showCursor && row == b.curRow && col == b.curCol {
				sb.WriteByte('_')
				continue
			}
			c := b.cells[p]
			if c.IsAttr {
				sb.WriteByte(' ')
				continue
			}
			s, _ := b.cp.Decode([]byte{c.Char})
			sb.WriteString(s)
		}
	}
	return sb.String()
}

// eraseUnprotectedTo clears unprotected cells from the cursor position up
// to (not including) target, honoring buffer wrap. Field MDT bits are left
// unchanged.
func (b *ScreenBuffer) eraseUnprotectedTo(from, target int) {
	n := len(b.cells)
	fields := b.DetectFields()
	protectedAt := make([]bool, n)
	for _, f := range fields {
		if !f.Protected() {
			continue
		}
		for i := f.Start + 1; i < f.End && i < n; i++ {
			protectedAt[i] = true
		}
	}
	for i := from; i != target; i = (i + 1) % n {
		if !protectedAt[i] && !b.cells[i].IsAttr {
			b.cells[i] = Cell{Char: 0x00}
		}
	}
}

// moveCursor moves the cursor by (dRow, dCol), wrapping at the buffer
// edges, the behavior backing the Up/Down/Left/Right key actions.
func (b *ScreenBuffer) moveCursor(dRow, dCol int) {
	n := len(b.cells)
	p := b.pos(b.curRow, b.curCol)
	p = ((p+dRow*b.cols+dCol)%n + n) % n
	b.curRow, b.curCol = p/b.cols, p%b.cols
}

// tabToField moves the cursor to the next (forward=true) or previous
// (forward=false) unprotected field's first data position, wrapping
// around the buffer. If there is no unprotected field, the cursor is
// unchanged.
func (b *ScreenBuffer) tabToField(forward bool) {
	fields := b.DetectFields()
	if len(fields) == 0 {
		return
	}
	cur := b.pos(b.curRow, b.curCol)
	best := -1
	bestDist := -1
	for _, f := range fields {
		if f.Protected() || f.Start < 0 {
			continue
		}
		dataPos := f.Start + 1
		var dist int
		if forward {
			dist = ((dataPos - cur) + len(b.cells)) % len(b.cells)
			if dataPos == cur {
				dist = len(b.cells)
			}
		} else {
			dist = ((cur - dataPos) + len(b.cells)) % len(b.cells)
			if dataPos == cur {
				dist = len(b.cells)
			}
		}
		if best == -1 || dist < bestDist {
			best, bestDist = dataPos, dist
		}
	}
	if best >= 0 {
		b.curRow, b.curCol = best/b.cols, best%b.cols
	}
}

// eraseFromCursorToFieldEnd clears the unprotected field content from the
// cursor to the end of its field (EraseEOF) and sets that field's MDT.
func (b *ScreenBuffer) eraseFromCursorToFieldEnd() {
	fields := b.DetectFields()
	cur := b.pos(b.curRow, b.curCol)
	for _, f := range fields {
		if f.Start < 0 || f.Protected() {
			continue
		}
		if cur > f.Start && cur < f.End {
			for i := cur; i < f.End; i++ {
				b.cells[i] = Cell{Char: 0x00}
			}
			b.setMDT(f.Start, true)
			return
		}
	}
}

// insertCharAtCursor writes c at the cursor, shifting the rest of the
// current field right by one and dropping the field's last character,
// then sets the field's MDT (the Insert-mode character-entry behavior).
func (b *ScreenBuffer) insertCharAtCursor(c byte) {
	fields := b.DetectFields()
	cur := b.pos(b.curRow, b.curCol)
	for _, f := range fields {
		if f.Start < 0 || f.Protected() {
			continue
		}
		if cur > f.Start && cur < f.End {
			for i := f.End - 1; i > cur; i-- {
				b.cells[i] = b.cells[i-1]
			}
			b.cells[cur] = Cell{Char: c}
			b.setMDT(f.Start, true)
			b.advance()
			return
		}
	}
}

// deleteCharAtCursor removes the character at the cursor, shifting the
// rest of the current field left by one and padding the field's last
// position with a null, then sets the field's MDT.
func (b *ScreenBuffer) deleteCharAtCursor() {
	fields := b.DetectFields()
	cur := b.pos(b.curRow, b.curCol)
	for _, f := range fields {
		if f.Start < 0 || f.Protected() {
			continue
		}
		if cur > f.Start && cur < f.End {
			for i := cur; i < f.End-1; i++ {
				b.cells[i] = b.cells[i+1]
			}
			b.cells[f.End-1] = Cell{Char: 0x00}
			b.setMDT(f.Start, true)
			return
		}
	}
}

// eraseAllUnprotected clears unprotected, non-attribute cells across the
// whole buffer and resets their field's MDT bit (the Erase All Unprotected
// command).
func (b *ScreenBuffer) eraseAllUnprotected() {
	fields := b.DetectFields()
	for _, f := range fields {
		if f.Protected() {
			continue
		}
		for i := f.Start + 1; i < f.End; i++ {
			b.cells[i] = Cell{Char: 0x00}
		}
		if f.Start >= 0 {
			b.setMDT(f.Start, false)
		}
	}
}

