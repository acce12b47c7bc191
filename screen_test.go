// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBuffer returns a small buffer sized so that a handful of fields
// fit on one row, keeping field-content assertions exact rather than
// padded out with trailing space bytes from an unbounded final field.
func newTestBuffer() *ScreenBuffer {
	return NewScreenBuffer(2, 10, NewCodepage(CompatDefault))
}

func TestScreenBufferClearFillsSpaces(t *testing.T) {
	b := newTestBuffer()
	row, col := b.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)
	assert.Equal(t, byte(0x40), b.cellAt(0).Char)
}

func TestSetPositionStrictRejectsOutOfBounds(t *testing.T) {
	b := newTestBuffer()
	err := b.SetPosition(100, 0, true)
	require.Error(t, err)

	err = b.SetPosition(100, 0, false)
	require.NoError(t, err)
	row, col := b.Cursor()
	assert.Equal(t, 1, row) // clamped to the last row
	assert.Equal(t, 0, col)
}

func TestWriteCharAdvancesAndWraps(t *testing.T) {
	b := newTestBuffer()
	require.NoError(t, b.SetPosition(0, 9, true))
	b.WriteChar(0xC8, -1, -1)
	row, col := b.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, col)
}

func TestSetAttributeCreatesFieldBoundary(t *testing.T) {
	b := newTestBuffer()
	require.NoError(t, b.SetPosition(0, 0, true))
	b.SetAttribute(AttrProtected, -1, -1) // field start at (0,0)
	b.WriteChar(0xC8, -1, -1)
	b.WriteChar(0xC5, -1, -1)
	b.SetAttribute(0, 0, 3) // second field bounds the first field's end

	fields := b.DetectFields()
	require.Len(t, fields, 2)
	assert.True(t, fields[0].Protected())
	assert.Equal(t, []byte{0xC8, 0xC5}, fields[0].Content)
}

func TestReadModifiedOnlyReturnsMDTFields(t *testing.T) {
	b := newTestBuffer()
	b.SetAttribute(0, 0, 0) // unprotected field at (0,0), cursor lands at (0,1)
	b.SetAttribute(0, 0, 5) // second unprotected field at (0,5), cursor lands at (0,6)

	b.TypeChar(0xC8) // types into the field the cursor is currently in (the second one)

	modified := b.ReadModified()
	require.Len(t, modified, 1)
	assert.Equal(t, 6, modified[0].Start) // one past the modified field's start attribute
}

func TestTypeCharSetsMDTAndRespectsProtection(t *testing.T) {
	b := newTestBuffer()
	b.SetAttribute(AttrProtected, 0, 0)
	require.NoError(t, b.SetPosition(0, 1, true))
	b.TypeChar(0xC8) // protected field: no-op

	fields := b.DetectFields()
	require.Len(t, fields, 1)
	assert.False(t, fields[0].MDT())
}

func TestInsertModeShiftsFieldRight(t *testing.T) {
	b := newTestBuffer()
	b.SetAttribute(0, 0, 0)
	for _, c := range []byte{0xC1, 0xC2, 0xC3} { // A B C at cols 1-3
		b.WriteChar(c, -1, -1)
	}
	b.SetAttribute(AttrProtected, 0, 4) // bounds the first field's end at col 4
	require.NoError(t, b.SetPosition(0, 1, true))
	b.ToggleInsertMode()
	assert.True(t, b.InsertMode())
	b.TypeChar(0xC9) // I, inserted before A; C is dropped off the field's end

	fields := b.DetectFields()
	require.Len(t, fields, 2)
	assert.Equal(t, []byte{0xC9, 0xC1, 0xC2}, fields[0].Content)
}

func TestDeleteCharShiftsFieldLeft(t *testing.T) {
	b := newTestBuffer()
	b.SetAttribute(0, 0, 0)
	for _, c := range []byte{0xC1, 0xC2, 0xC3} { // A B C at cols 1-3
		b.WriteChar(c, -1, -1)
	}
	b.SetAttribute(AttrProtected, 0, 4)
	require.NoError(t, b.SetPosition(0, 1, true)) // cursor on A
	b.deleteCharAtCursor()

	fields := b.DetectFields()
	require.Len(t, fields, 2)
	assert.Equal(t, []byte{0xC2, 0xC3, 0x00}, fields[0].Content)
}

func TestProgramTabAdvancesRegardlessOfProtection(t *testing.T) {
	b := newTestBuffer()
	b.SetAttribute(AttrProtected, 0, 0)
	b.SetAttribute(0, 0, 5)
	require.NoError(t, b.SetPosition(0, 0, true))

	b.programTab()
	row, col := b.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 6, col) // data position just past the field-start at col 5
}

func TestTabToFieldSkipsProtectedFields(t *testing.T) {
	b := newTestBuffer()
	b.SetAttribute(AttrProtected, 0, 0)
	b.SetAttribute(0, 0, 5) // unprotected
	require.NoError(t, b.SetPosition(0, 0, true))

	b.tabToField(true)
	row, col := b.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 6, col)
}

func TestRepeatToAddressFillsRangeAndWraps(t *testing.T) {
	b := newTestBuffer()
	require.NoError(t, b.SetPosition(0, 8, true))
	b.repeatToAddress(0xC1, 1, 0) // fill from (0,8) wrapping to (1,0)
	assert.Equal(t, byte(0xC1), b.cellAt(b.pos(0, 8)).Char)
	assert.Equal(t, byte(0xC1), b.cellAt(b.pos(0, 9)).Char)
	row, col := b.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, col)
}

func TestRepeatToAddressFullWrapWhenTargetEqualsCursor(t *testing.T) {
	b := newTestBuffer()
	require.NoError(t, b.SetPosition(0, 0, true))
	b.repeatToAddress(0xC1, 0, 0)
	for i := 0; i < b.Rows()*b.Cols(); i++ {
		require.Equal(t, byte(0xC1), b.cellAt(i).Char, "cell %d", i)
	}
}

func TestEraseAllUnprotectedLeavesProtectedFieldsAlone(t *testing.T) {
	b := newTestBuffer()
	b.SetAttribute(AttrProtected, 0, 0)
	b.WriteChar(0xC8, -1, -1)
	b.SetAttribute(0, 0, 5)
	b.WriteChar(0xC8, -1, -1)
	b.SetAttribute(AttrProtected, 0, 9) // bounds the unprotected field's end

	b.eraseAllUnprotected()
	fields := b.DetectFields()
	require.Len(t, fields, 3)
	assert.Equal(t, []byte{0xC8, 0x40, 0x40, 0x40}, fields[0].Content) // protected, untouched
	assert.Equal(t, []byte{0x00, 0x00, 0x00}, fields[1].Content)      // unprotected, erased
}

func TestAsciiBufferRendersFieldAttributesAsSpace(t *testing.T) {
	b := newTestBuffer()
	b.SetAttribute(0, 0, 0)
	b.WriteChar(0xC8, -1, -1)
	out := b.AsciiBuffer(false)
	assert.Equal(t, byte(' '), out[0])
	assert.Equal(t, byte('H'), out[1])
}
