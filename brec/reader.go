package brec

import "fmt"

// Reader is a cursor over one record's subrecord stream (or a whole file's
// chunk sequence). It owns the position and remaining length; elements
// consume exactly the payloads they are handed.
type Reader struct {
	name string // debug label, usually the file name
	data []byte
	off  int

	// Pending size override from an XXXX chunk: the next subrecord's own
	// size field is zero and this carries the real 32-bit size.
	oversize    int
	hasOversize bool
}

// NewReader creates a cursor over data. The name labels errors.
func NewReader(name string, data []byte) *Reader {
	return &Reader{name: name, data: data}
}

// Name returns the cursor's debug label.
func (r *Reader) Name() string { return r.name }

// Offset returns the current byte position.
func (r *Reader) Offset() int64 { return int64(r.off) }

// Remaining returns the unread byte count.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Read consumes and returns the next n bytes.
func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, r.formatErr(Signature{}, fmt.Sprintf(
			"truncated chunk: want %d bytes, have %d", n, r.Remaining()))
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Peek returns the next n bytes without consuming them. Lookahead
// deciders use this to read a decision key out of the chunk they are
// about to dispatch.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, r.formatErr(Signature{}, fmt.Sprintf(
			"truncated lookahead: want %d bytes, have %d", n, r.Remaining()))
	}
	return r.data[r.off : r.off+n], nil
}

// Skip discards the next n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.Read(n)
	return err
}

// NextChunk reads the next subrecord header: a 4-byte signature and a
// 16-bit size. An XXXX chunk is consumed transparently; its 32-bit
// payload replaces the zero size field of the subrecord that follows.
func (r *Reader) NextChunk() (Signature, int, error) {
	hdr, err := r.Read(6)
	if err != nil {
		return Signature{}, 0, err
	}
	sig := Signature{hdr[0], hdr[1], hdr[2], hdr[3]}
	size := int(wire.Uint16(hdr[4:]))

	if sig == SigOversize {
		if size != 4 {
			return Signature{}, 0, r.formatErr(sig, fmt.Sprintf(
				"oversize chunk has size %d, want 4", size))
		}
		payload, err := r.Read(4)
		if err != nil {
			return Signature{}, 0, err
		}
		r.oversize = int(wire.Uint32(payload))
		r.hasOversize = true
		return r.NextChunk()
	}

	if r.hasOversize {
		if size != 0 {
			return Signature{}, 0, r.formatErr(sig, fmt.Sprintf(
				"chunk after oversize marker has nonzero size %d", size))
		}
		size = r.oversize
		r.hasOversize = false
	}

	if size > r.Remaining() {
		return Signature{}, 0, r.formatErr(sig, fmt.Sprintf(
			"chunk size %d exceeds remaining %d bytes", size, r.Remaining()))
	}
	return sig, size, nil
}

func (r *Reader) formatErr(sig Signature, reason string) error {
	if r.name != "" {
		reason = r.name + ": " + reason
	}
	return &FormatError{Sig: sig, Offset: int64(r.off), Reason: reason}
}
