package brec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// RecordHeaderSize is the fixed on-disk size of a record header.
const RecordHeaderSize = 24

// RecordFlagDefs names the record header flag bits shared by record types.
var RecordFlagDefs = NewFlagDefs().
	WithFlagAt("esm", 0).
	WithFlagAt("deleted", 5).
	WithFlagAt("ignored", 12).
	WithFlagAt("compressed", 18)

// RecordHeader is the fixed prefix of every record chunk.
type RecordHeader struct {
	Sig         Signature
	DataSize    uint32
	Flags       Flags
	FormID      FormID
	VCInfo      uint32
	FormVersion uint16
	VCVersion   uint16
}

// ReadRecordHeader reads one record header off the cursor.
func ReadRecordHeader(r *Reader) (RecordHeader, error) {
	b, err := r.Read(RecordHeaderSize)
	if err != nil {
		return RecordHeader{}, err
	}
	return RecordHeader{
		Sig:         Signature{b[0], b[1], b[2], b[3]},
		DataSize:    wire.Uint32(b[4:]),
		Flags:       NewFlags(RecordFlagDefs, wire.Uint32(b[8:])),
		FormID:      FromShort(wire.Uint32(b[12:])),
		VCInfo:      wire.Uint32(b[16:]),
		FormVersion: wire.Uint16(b[20:]),
		VCVersion:   wire.Uint16(b[22:]),
	}, nil
}

// appendTo serializes the header. The form id must already be packed
// relative to the output masters; DumpRecord handles that.
func (h RecordHeader) appendTo(buf *bytes.Buffer, short uint32) {
	var b [RecordHeaderSize]byte
	copy(b[:4], h.Sig[:])
	wire.PutUint32(b[4:], h.DataSize)
	wire.PutUint32(b[8:], h.Flags.Bits())
	wire.PutUint32(b[12:], short)
	wire.PutUint32(b[16:], h.VCInfo)
	wire.PutUint16(b[20:], h.FormVersion)
	wire.PutUint16(b[22:], h.VCVersion)
	buf.Write(b[:])
}

// RecordSchema is the root of one record type's element tree, built once
// and immutable afterwards. Construction resolves the signature routing
// table and rejects sibling collisions up front.
type RecordSchema struct {
	sig      Signature
	elements []Element
	loaders  map[Signature]Element
}

// NewRecordSchema composes a record type from its elements.
func NewRecordSchema(sig Signature, elements ...Element) (*RecordSchema, error) {
	loaders := make(map[Signature]Element)
	for _, el := range elements {
		if err := el.GetLoaders(loaders); err != nil {
			return nil, fmt.Errorf("%s: %w", sig, err)
		}
	}
	return &RecordSchema{sig: sig, elements: elements, loaders: loaders}, nil
}

// Signature returns the record type's tag.
func (s *RecordSchema) Signature() Signature { return s.sig }

// SetDefault applies every element's defaults to rec.
func (s *RecordSchema) SetDefault(rec *Record) {
	for _, el := range s.elements {
		el.SetDefault(rec)
	}
}

// Slots returns every attribute the schema can populate.
func (s *RecordSchema) Slots() []string {
	var slots []string
	for _, el := range s.elements {
		slots = append(slots, el.Slots()...)
	}
	return slots
}

// LoadBody reads signature-tagged chunks off r until it is exhausted,
// dispatching each to its owning element. An unknown signature is a hard
// error: either the schema is incomplete or the data is corrupt.
func (s *RecordSchema) LoadBody(rec *Record, r *Reader, ctx *Context) error {
	for r.Remaining() > 0 {
		sig, size, err := r.NextChunk()
		if err != nil {
			return err
		}
		el, ok := s.loaders[sig]
		if !ok {
			return &FormatError{Sig: sig, Offset: r.Offset(),
				Reason: fmt.Sprintf("unknown subrecord in %s record", s.sig)}
		}
		if err := el.Load(rec, r, sig, size, ctx); err != nil {
			return err
		}
	}
	return nil
}

// DumpBody writes the record's subrecords in canonical schema order.
func (s *RecordSchema) DumpBody(rec *Record, w *Writer, ctx *Context) error {
	for _, el := range s.elements {
		if err := el.Dump(rec, w, ctx); err != nil {
			return err
		}
	}
	return nil
}

// MapFids applies fn to every form id of the record body.
func (s *RecordSchema) MapFids(rec *Record, fn FidMapper) {
	for _, el := range s.elements {
		el.MapFids(rec, fn)
	}
}

// LoadRecord reads one whole record — header plus payload — off the
// cursor and returns the populated record. Compressed payloads (header
// flag bit 18) are inflated transparently.
func LoadRecord(schema *RecordSchema, r *Reader, ctx *Context) (*Record, error) {
	hdr, err := ReadRecordHeader(r)
	if err != nil {
		return nil, err
	}
	if hdr.Sig != schema.sig {
		return nil, &FormatError{Sig: hdr.Sig, Offset: r.Offset(), Reason: fmt.Sprintf(
			"record signature does not match schema %s", schema.sig)}
	}
	payload, err := r.Read(int(hdr.DataSize))
	if err != nil {
		return nil, err
	}
	if hdr.Flags.Has("compressed") {
		payload, err = inflateRecord(payload)
		if err != nil {
			return nil, &FormatError{Sig: hdr.Sig, Offset: r.Offset(),
				Reason: fmt.Sprintf("inflating compressed record: %v", err)}
		}
	}
	rec := NewRecord()
	rec.Header = hdr
	schema.SetDefault(rec)
	body := NewReader(r.Name(), payload)
	if err := schema.LoadBody(rec, body, ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// DumpRecord serializes the record back to bytes: canonical subrecord
// order, recomputed counters, sorted collections, recomputed data size.
// The compressed flag on the header controls deflation of the payload.
func DumpRecord(schema *RecordSchema, rec *Record, ctx *Context) ([]byte, error) {
	w := NewWriter()
	if err := schema.DumpBody(rec, w, ctx); err != nil {
		return nil, err
	}
	payload := w.Bytes()
	if rec.Header.Flags.Has("compressed") {
		payload = deflateRecord(payload)
	}
	short, err := rec.Header.FormID.ToShort(ctx)
	if err != nil {
		return nil, err
	}
	hdr := rec.Header
	hdr.Sig = schema.sig
	hdr.DataSize = uint32(len(payload))
	var buf bytes.Buffer
	buf.Grow(RecordHeaderSize + len(payload))
	hdr.appendTo(&buf, short)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Remap applies fn to every form id reachable from the record, the header
// id included. Passing (FormID).Resolve over a load context turns a
// freshly loaded record's references long; a collector fn just records
// what it sees.
func Remap(schema *RecordSchema, rec *Record, fn FidMapper) {
	rec.Header.FormID = fn(rec.Header.FormID)
	schema.MapFids(rec, fn)
}

// inflateRecord decodes a compressed record payload: a 32-bit
// decompressed size followed by a zlib stream.
func inflateRecord(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("payload too short for size prefix")
	}
	want := wire.Uint32(payload)
	zr, err := zlib.NewReader(bytes.NewReader(payload[4:]))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, want)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

// deflateRecord is the inverse of inflateRecord.
func deflateRecord(payload []byte) []byte {
	var buf bytes.Buffer
	var size [4]byte
	wire.PutUint32(size[:], uint32(len(payload)))
	buf.Write(size[:])
	zw := zlib.NewWriter(&buf)
	zw.Write(payload)
	zw.Close()
	return buf.Bytes()
}
