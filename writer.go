// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

// Writer builds outbound 3270 data-stream records: Read Modified and Read
// Buffer replies, and the AID-only replies (AID and cursor address) Clear
// and the PA keys send.
// It never touches the network or the Telnet/TN3270E framing layers; those
// are the session's job.
type Writer struct {
	buf      *ScreenBuffer
	use14Bit bool
}

// NewWriter returns a writer over buf. use14Bit should mirror whichever
// addressing convention the most recently parsed inbound record used,
// reported by Parser.Use14BitAddressing.
func NewWriter(buf *ScreenBuffer, use14Bit bool) *Writer {
	return &Writer{buf: buf, use14Bit: use14Bit}
}

// AIDOnly builds the reply sent for Clear and the PA keys: the AID and
// the encoded cursor address, with no field content.
func (w *Writer) AIDOnly(aid AID) []byte {
	ca := encodeAddr(w.buf.CursorAddr(), w.use14Bit)
	return []byte{byte(aid), ca[0], ca[1]}
}

// ReadModifiedReply builds the reply to an operator action that reads
// modified fields: Enter, PF keys, and a host's Read Modified command. It
// is AID, then the encoded cursor address, then one SBA-prefixed run of
// content per modified field.
func (w *Writer) ReadModifiedReply(aid AID) []byte {
	out := []byte{byte(aid)}
	curAddr := w.buf.CursorAddr()
	ca := encodeAddr(curAddr, w.use14Bit)
	out = append(out, ca[0], ca[1])

	for _, mf := range w.buf.ReadModified() {
		sba := encodeAddr(mf.Start, w.use14Bit)
		out = append(out, orderSBA, sba[0], sba[1])
		out = append(out, mf.Content...)
	}
	return out
}

// ReadModifiedAllReply builds the reply to a Read Modified All command:
// identical to ReadModifiedReply except every field is included regardless
// of its modified-data tag.
func (w *Writer) ReadModifiedAllReply(aid AID) []byte {
	out := []byte{byte(aid)}
	curAddr := w.buf.CursorAddr()
	ca := encodeAddr(curAddr, w.use14Bit)
	out = append(out, ca[0], ca[1])

	for _, f := range w.buf.DetectFields() {
		if f.Start < 0 {
			continue
		}
		sba := encodeAddr(f.Start+1, w.use14Bit)
		out = append(out, orderSBA, sba[0], sba[1])
		out = append(out, f.Content...)
	}
	return out
}

// ReadBufferReply builds the reply to a Read Buffer command: AID, cursor
// address, then the entire buffer contents linearly, with an SF order
// emitted at every field-start position instead of raw attribute bytes.
func (w *Writer) ReadBufferReply(aid AID) []byte {
	out := []byte{byte(aid)}
	curAddr := w.buf.CursorAddr()
	ca := encodeAddr(curAddr, w.use14Bit)
	out = append(out, ca[0], ca[1])

	rows, cols := w.buf.Rows(), w.buf.Cols()
	for p := 0; p < rows*cols; p++ {
		cell := w.buf.cellAt(p)
		if cell.IsAttr {
			out = append(out, orderSF, encodeFieldAttr(cell.Attr))
			continue
		}
		out = append(out, cell.Char)
	}
	return out
}
