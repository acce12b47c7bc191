// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAidForAIDProducingActions(t *testing.T) {
	aid, ok := aidFor(KeyEnter)
	require.True(t, ok)
	assert.Equal(t, AIDEnter, aid)

	aid, ok = aidFor(KeyClear)
	require.True(t, ok)
	assert.Equal(t, AIDClear, aid)

	aid, ok = aidFor(KeySysReq)
	require.True(t, ok)
	assert.Equal(t, AIDSysReq, aid)

	aid, ok = aidFor(PFKey(13))
	require.True(t, ok)
	assert.Equal(t, AIDPF13, aid)

	aid, ok = aidFor(KeyPA2)
	require.True(t, ok)
	assert.Equal(t, AIDPA2, aid)
}

func TestAidForNonAIDActionReturnsFalse(t *testing.T) {
	_, ok := aidFor(KeyTab)
	assert.False(t, ok)

	_, ok = aidFor(KeyAction("NotARealKey"))
	assert.False(t, ok)
}

func TestPFKeyFormatsActionName(t *testing.T) {
	assert.Equal(t, KeyAction("PF7"), PFKey(7))
	assert.Equal(t, KeyAction("PF24"), PFKey(24))
}

func TestIsLocalMutationClassifiesActions(t *testing.T) {
	for _, a := range []KeyAction{
		KeyTab, KeyBackTab, KeyHome, KeyNewLine, KeyUp, KeyDown, KeyLeft,
		KeyRight, KeyErase, KeyEraseEOF, KeyEraseInput, KeyInsert, KeyDelete,
	} {
		assert.True(t, isLocalMutation(a), "%s should be local", a)
	}
	for _, a := range []KeyAction{KeyEnter, KeyClear, KeyPA1, KeySysReq, PFKey(1)} {
		assert.False(t, isLocalMutation(a), "%s should not be local", a)
	}
}

func TestApplyLocalKeyTabMovesToNextUnprotectedField(t *testing.T) {
	buf := newTestBuffer()
	buf.SetAttribute(AttrProtected, 0, 0)
	buf.SetAttribute(0, 0, 5)
	require.NoError(t, buf.SetPosition(0, 0, true))

	applyLocalKey(buf, KeyTab)
	row, col := buf.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 6, col)
}

func TestApplyLocalKeyHomeGoesToFirstUnprotectedField(t *testing.T) {
	buf := newTestBuffer()
	buf.SetAttribute(AttrProtected, 0, 0)
	buf.SetAttribute(0, 0, 3)
	require.NoError(t, buf.SetPosition(1, 5, true))

	applyLocalKey(buf, KeyHome)
	row, col := buf.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 4, col)
}

func TestApplyLocalKeyArrowsMoveCursorWithWrap(t *testing.T) {
	buf := newTestBuffer()
	require.NoError(t, buf.SetPosition(0, 0, true))
	applyLocalKey(buf, KeyUp)
	row, col := buf.Cursor()
	assert.Equal(t, 1, row) // wraps to the last row
	assert.Equal(t, 0, col)

	require.NoError(t, buf.SetPosition(0, 9, true))
	applyLocalKey(buf, KeyRight)
	row, col = buf.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, col)
}

func TestApplyLocalKeyEraseEOFClearsToFieldEnd(t *testing.T) {
	buf := newTestBuffer()
	buf.SetAttribute(0, 0, 0)
	buf.WriteChar(0xC1, -1, -1)
	buf.WriteChar(0xC2, -1, -1)
	require.NoError(t, buf.SetPosition(0, 1, true))

	applyLocalKey(buf, KeyEraseEOF)
	assert.Equal(t, byte(0x00), buf.cellAt(1).Char)
	assert.Equal(t, byte(0x00), buf.cellAt(2).Char)
	fields := buf.DetectFields()
	require.Len(t, fields, 1)
	assert.True(t, fields[0].MDT())
}

func TestApplyLocalKeyInsertTogglesMode(t *testing.T) {
	buf := newTestBuffer()
	assert.False(t, buf.InsertMode())
	applyLocalKey(buf, KeyInsert)
	assert.True(t, buf.InsertMode())
}

func TestApplyLocalKeyEraseInputClearsAllUnprotectedFields(t *testing.T) {
	buf := newTestBuffer()
	buf.SetAttribute(AttrProtected, 0, 0)
	buf.WriteChar(0xC8, -1, -1)
	buf.SetAttribute(0, 0, 5)
	buf.WriteChar(0xC8, -1, -1)

	applyLocalKey(buf, KeyEraseInput)
	fields := buf.DetectFields()
	require.Len(t, fields, 2)
	assert.Equal(t, byte(0xC8), fields[0].Content[0]) // protected, untouched
	assert.Equal(t, byte(0x00), fields[1].Content[0]) // unprotected, erased
}
