package brec

import "bytes"

// maxChunkSize is the largest payload a subrecord's own 16-bit size field
// can describe. Larger payloads are preceded by an XXXX chunk carrying the
// real size.
const maxChunkSize = 0xFFFF

// Writer is the output sink for one record's subrecord stream. Elements
// append whole chunks; the writer owns the framing.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty sink.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteChunk appends one complete subrecord: signature, size field,
// payload. Payloads over 64 KiB get the XXXX treatment automatically.
func (w *Writer) WriteChunk(sig Signature, payload []byte) {
	if len(payload) > maxChunkSize {
		var real [4]byte
		wire.PutUint32(real[:], uint32(len(payload)))
		w.writeHeader(SigOversize, 4)
		w.buf.Write(real[:])
		w.writeHeader(sig, 0)
		w.buf.Write(payload)
		return
	}
	w.writeHeader(sig, len(payload))
	w.buf.Write(payload)
}

func (w *Writer) writeHeader(sig Signature, size int) {
	var hdr [6]byte
	copy(hdr[:4], sig[:])
	wire.PutUint16(hdr[4:], uint16(size))
	w.buf.Write(hdr[:])
}

// Len returns the byte count written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns the accumulated subrecord stream.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }
