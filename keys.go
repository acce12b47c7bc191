// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import "fmt"

// KeyAction is one of the closed set of action names send_key accepts.
// Each either produces an AID reply or mutates the local buffer and sets
// MDT on the field it touched.
type KeyAction string

const (
	KeyEnter      KeyAction = "Enter"
	KeyClear      KeyAction = "Clear"
	KeyPA1        KeyAction = "PA1"
	KeyPA2        KeyAction = "PA2"
	KeyPA3        KeyAction = "PA3"
	KeySysReq     KeyAction = "SysReq"
	KeyTab        KeyAction = "Tab"
	KeyBackTab    KeyAction = "BackTab"
	KeyHome       KeyAction = "Home"
	KeyNewLine    KeyAction = "NewLine"
	KeyUp         KeyAction = "Up"
	KeyDown       KeyAction = "Down"
	KeyLeft       KeyAction = "Left"
	KeyRight      KeyAction = "Right"
	KeyErase      KeyAction = "Erase"
	KeyEraseEOF   KeyAction = "EraseEOF"
	KeyEraseInput KeyAction = "EraseInput"
	KeyInsert     KeyAction = "Insert"
	KeyDelete     KeyAction = "Delete"
)

// PFKey returns the action name for PF1 through PF24.
func PFKey(n int) KeyAction { return KeyAction(fmt.Sprintf("PF%d", n)) }

// pfAIDs maps "PF1".."PF24" to their AID byte, taken from the AIDPFn
// constant table rather than duplicated here.
var pfAIDs = map[KeyAction]AID{
	PFKey(1): AIDPF1, PFKey(2): AIDPF2, PFKey(3): AIDPF3, PFKey(4): AIDPF4,
	PFKey(5): AIDPF5, PFKey(6): AIDPF6, PFKey(7): AIDPF7, PFKey(8): AIDPF8,
	PFKey(9): AIDPF9, PFKey(10): AIDPF10, PFKey(11): AIDPF11, PFKey(12): AIDPF12,
	PFKey(13): AIDPF13, PFKey(14): AIDPF14, PFKey(15): AIDPF15, PFKey(16): AIDPF16,
	PFKey(17): AIDPF17, PFKey(18): AIDPF18, PFKey(19): AIDPF19, PFKey(20): AIDPF20,
	PFKey(21): AIDPF21, PFKey(22): AIDPF22, PFKey(23): AIDPF23, PFKey(24): AIDPF24,
}

var paAIDs = map[KeyAction]AID{
	KeyPA1: AIDPA1, KeyPA2: AIDPA2, KeyPA3: AIDPA3,
}

// aidFor returns the AID byte an action produces, and whether the action
// is AID-producing at all (as opposed to a local buffer mutation).
func aidFor(a KeyAction) (AID, bool) {
	switch a {
	case KeyEnter:
		return AIDEnter, true
	case KeyClear:
		return AIDClear, true
	case KeySysReq:
		return AIDSysReq, true
	}
	if aid, ok := pfAIDs[a]; ok {
		return aid, true
	}
	if aid, ok := paAIDs[a]; ok {
		return aid, true
	}
	return 0, false
}

// isLocalMutation reports whether a is handled entirely locally (cursor
// movement, character editing) without ever touching the wire.
func isLocalMutation(a KeyAction) bool {
	switch a {
	case KeyTab, KeyBackTab, KeyHome, KeyNewLine, KeyUp, KeyDown, KeyLeft,
		KeyRight, KeyErase, KeyEraseEOF, KeyEraseInput, KeyInsert, KeyDelete:
		return true
	}
	return false
}

// applyLocalKey performs a locally-mutating key action's effect on buf.
func applyLocalKey(buf *ScreenBuffer, a KeyAction) {
	switch a {
	case KeyTab:
		buf.tabToField(true)
	case KeyBackTab:
		buf.tabToField(false)
	case KeyHome:
		_ = buf.SetPosition(0, 0, false)
		buf.tabToField(true)
	case KeyNewLine:
		row, _ := buf.Cursor()
		_ = buf.SetPosition(row+1, 0, false)
		buf.tabToField(true)
	case KeyUp:
		buf.moveCursor(-1, 0)
	case KeyDown:
		buf.moveCursor(1, 0)
	case KeyLeft:
		buf.moveCursor(0, -1)
	case KeyRight:
		buf.moveCursor(0, 1)
	case KeyErase:
		buf.moveCursor(0, -1)
		buf.deleteCharAtCursor()
	case KeyEraseEOF:
		buf.eraseFromCursorToFieldEnd()
	case KeyEraseInput:
		buf.eraseAllUnprotected()
	case KeyInsert:
		buf.ToggleInsertMode()
	case KeyDelete:
		buf.deleteCharAtCursor()
	}
}
