// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package negotiator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleDeviceTypeSendOffersFirstAcceptedType(t *testing.T) {
	n := New(Strict)
	reply, err := n.HandleDeviceType([]byte{OpSend})
	require.NoError(t, err)
	assert.Equal(t, OpIs, reply[0])
	assert.Equal(t, AcceptedDeviceTypes[0], string(reply[1:]))
}

func TestHandleDeviceTypeRequestRejectsUnsupportedType(t *testing.T) {
	n := New(Strict)
	reply, err := n.HandleDeviceType(append([]byte{OpRequest}, []byte("IBM-9999-X")...))
	require.NoError(t, err)
	assert.Equal(t, []byte{OpReject, 0x01}, reply)

	snap := n.Snapshot()
	assert.False(t, snap.DeviceTypeKnown)
}

func TestHandleDeviceTypeRequestAcceptsSupportedType(t *testing.T) {
	n := New(Strict)
	reply, err := n.HandleDeviceType(append([]byte{OpRequest}, []byte("IBM-3278-2")...))
	require.NoError(t, err)
	assert.Equal(t, OpIs, reply[0])
	assert.Equal(t, "IBM-3278-2", string(reply[1:]))

	snap := n.Snapshot()
	assert.True(t, snap.DeviceTypeKnown)
	assert.Equal(t, "IBM-3278-2", snap.DeviceType)
	assert.Equal(t, 24, snap.Rows)
	assert.Equal(t, 80, snap.Cols)
	assert.False(t, snap.IsPrinterSession)
}

func TestHandleDeviceTypeISWithLUNameSplitsCorrectly(t *testing.T) {
	n := New(Strict)
	body := append([]byte{OpIs}, append([]byte("IBM-3279-3-E\x01"), []byte("LUPOOL1")...)...)
	reply, err := n.HandleDeviceType(body)
	require.NoError(t, err)
	assert.Nil(t, reply)

	snap := n.Snapshot()
	assert.Equal(t, "IBM-3279-3-E", snap.DeviceType)
	assert.Equal(t, "LUPOOL1", snap.LUName)
	assert.Equal(t, 32, snap.Rows)
	assert.Equal(t, 80, snap.Cols)
}

func TestHandleDeviceTypePrinterSessionDetected(t *testing.T) {
	n := New(Strict)
	_, err := n.HandleDeviceType(append([]byte{OpIs}, []byte("IBM-3287-1")...))
	require.NoError(t, err)
	assert.True(t, n.Snapshot().IsPrinterSession)
}

func TestHandleDeviceTypeEmptyBodyIsError(t *testing.T) {
	n := New(Strict)
	_, err := n.HandleDeviceType(nil)
	require.Error(t, err)
}

func TestHandleDeviceTypeFirstArrivalWinsOverRacingSecond(t *testing.T) {
	n := New(Strict)
	_, err := n.HandleDeviceType(append([]byte{OpIs}, []byte("IBM-3278-2")...))
	require.NoError(t, err)

	// A second DEVICE-TYPE IS racing in after the first must not overwrite
	// the already-published dimensions.
	_, err = n.HandleDeviceType(append([]byte{OpIs}, []byte("IBM-3278-5")...))
	require.NoError(t, err)

	snap := n.Snapshot()
	assert.Equal(t, "IBM-3278-2", snap.DeviceType)
	assert.Equal(t, 24, snap.Rows)
	assert.Equal(t, 80, snap.Cols)
}

func TestResetNegotiationStateAllowsRenegotiation(t *testing.T) {
	n := New(Strict)
	_, err := n.HandleDeviceType(append([]byte{OpIs}, []byte("IBM-3278-2")...))
	require.NoError(t, err)

	n.ResetNegotiationState()
	assert.False(t, n.Snapshot().DeviceTypeKnown)

	_, err = n.HandleDeviceType(append([]byte{OpIs}, []byte("IBM-3278-5")...))
	require.NoError(t, err)
	snap := n.Snapshot()
	assert.Equal(t, "IBM-3278-5", snap.DeviceType)
	assert.Equal(t, 27, snap.Rows)
	assert.Equal(t, 132, snap.Cols)
}

func TestHandleFunctionsRequestIntersectsWithLocalSupport(t *testing.T) {
	n := New(Strict)
	offered := []byte{0, 1, 2, 4} // BIND-IMAGE, DATA-STREAM-CTL, RESPONSES, SYSREQ
	local := FuncBindImage | FuncDataStreamCtl | FuncSCSCtlCodes

	reply, err := n.HandleFunctions(append([]byte{OpRequest}, offered...), local)
	require.NoError(t, err)
	require.Equal(t, OpIs, reply[0])

	agreed := bitmapFromBytes(reply[1:])
	assert.Equal(t, FuncBindImage|FuncDataStreamCtl, agreed)

	snap := n.Snapshot()
	assert.Equal(t, agreed, snap.NegotiatedFunctions)
	assert.True(t, snap.FunctionsKnown)
}

func TestHandleFunctionsISAppliesWithoutReply(t *testing.T) {
	n := New(Strict)
	reply, err := n.HandleFunctions([]byte{OpIs, 0, 3}, 0xFF)
	require.NoError(t, err)
	assert.Nil(t, reply)

	snap := n.Snapshot()
	assert.Equal(t, FuncBindImage|FuncSCSCtlCodes, snap.NegotiatedFunctions)
}

func TestHandleFunctionsEmptyBodyIsError(t *testing.T) {
	n := New(Strict)
	_, err := n.HandleFunctions(nil, 0xFF)
	require.Error(t, err)
}

func TestApplyFunctionsPreservesLastNegotiatedOnEmptyAgreement(t *testing.T) {
	n := New(Strict)
	_, err := n.HandleFunctions([]byte{OpIs, 0, 1}, 0xFF)
	require.NoError(t, err)
	require.Equal(t, FuncBindImage|FuncDataStreamCtl, n.Snapshot().LastNegotiatedFunctions)

	// A later negotiation with zero agreed functions should not clobber the
	// last-known-good set.
	_, err = n.HandleFunctions([]byte{OpIs}, 0xFF)
	require.NoError(t, err)
	snap := n.Snapshot()
	assert.Equal(t, uint8(0), snap.NegotiatedFunctions)
	assert.Equal(t, FuncBindImage|FuncDataStreamCtl, snap.LastNegotiatedFunctions)
}

func TestBitmapRoundTripsThroughWireByteList(t *testing.T) {
	for _, v := range []uint8{0, FuncBindImage, FuncResponses | FuncSysReq, 0xFF & 0x1F} {
		wire := bytesFromBitmap(v)
		for _, code := range wire {
			assert.Less(t, code, uint8(8))
		}
		assert.Equal(t, v, bitmapFromBytes(wire))
	}
}

func TestCompletionStrictRequiresBothDeviceTypeAndFunctions(t *testing.T) {
	n := New(Strict)
	select {
	case <-n.NegotiationComplete():
		t.Fatal("should not be complete yet")
	default:
	}

	_, err := n.HandleDeviceType(append([]byte{OpIs}, []byte("IBM-3278-2")...))
	require.NoError(t, err)
	select {
	case <-n.NegotiationComplete():
		t.Fatal("should not be complete with only device type known")
	default:
	}

	_, err = n.HandleFunctions([]byte{OpIs}, 0xFF)
	require.NoError(t, err)
	select {
	case <-n.NegotiationComplete():
	default:
		t.Fatal("should be complete once both are known")
	}
}

func TestCompletionFlexibleRequiresEitherSignal(t *testing.T) {
	n := New(Flexible)
	_, err := n.HandleDeviceType(append([]byte{OpIs}, []byte("IBM-3278-2")...))
	require.NoError(t, err)
	select {
	case <-n.NegotiationComplete():
	default:
		t.Fatal("flexible mode should be complete once device type alone is known")
	}
}

func TestInferTN3270EFromTraceAcceptsWillEORWithoutTN3270ERefusal(t *testing.T) {
	trace := []byte{0xFF, 0xFB, 0x19} // IAC WILL EOR
	assert.True(t, InferTN3270EFromTrace(trace))
}

func TestInferTN3270EFromTraceRejectsTraceWithoutWillEOR(t *testing.T) {
	trace := []byte{0xFF, 0xFB, 0x00} // IAC WILL BINARY, no EOR anywhere
	assert.False(t, InferTN3270EFromTrace(trace))
}

func TestInferTN3270EFromTraceRejectsWontTN3270EEvenWithWillEOR(t *testing.T) {
	trace := []byte{0xFF, 0xFB, 0x19, 0xFF, 0xFC, 0x28} // IAC WILL EOR, IAC WONT TN3270E
	assert.False(t, InferTN3270EFromTrace(trace))
}

func TestInferTN3270EFromTraceRejectsDontTN3270EEvenWithWillEOR(t *testing.T) {
	trace := []byte{0xFF, 0xFB, 0x19, 0xFF, 0xFE, 0x28} // IAC WILL EOR, IAC DONT TN3270E
	assert.False(t, InferTN3270EFromTrace(trace))
}

func TestInferTN3270EFromTraceIsTotalOverEmptyAndShortInput(t *testing.T) {
	assert.False(t, InferTN3270EFromTrace(nil))
	assert.False(t, InferTN3270EFromTrace([]byte{0xFF, 0xFB}))
}
