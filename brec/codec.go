package brec

import (
	"bytes"
	"encoding/binary"
	"math"
)

// All multi-byte values in the container format are little-endian.
var wire = binary.LittleEndian

// Decoder turns raw fixed-length string bytes (already NUL-trimmed) into
// text. The default treats bytes as Latin-1, which round-trips any input;
// callers with localized plugins can install a codepage-aware decoder.
type Decoder func([]byte) string

// Encoder is the inverse of Decoder.
type Encoder func(string) []byte

// DefaultDecoder decodes each byte as its Unicode code point.
func DefaultDecoder(b []byte) string {
	out := make([]rune, len(b))
	for i, c := range b {
		out[i] = rune(c)
	}
	return string(out)
}

// DefaultEncoder encodes code points below 0x100 as single bytes and
// replaces anything wider with '?'.
func DefaultEncoder(s string) []byte {
	var out []byte
	for _, r := range s {
		if r < 0x100 {
			out = append(out, byte(r))
		} else {
			out = append(out, '?')
		}
	}
	return out
}

// trimNul cuts b at the first NUL, the fixed-string convention.
func trimNul(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

// fieldKind enumerates the scalar shapes a struct field can take. The
// closed set keeps field dispatch a flat switch instead of a method set
// per width.
type fieldKind uint8

const (
	fieldU8 fieldKind = iota
	fieldU16
	fieldU32
	fieldS8
	fieldS16
	fieldS32
	fieldF32
	fieldFid
	fieldFlags8
	fieldFlags16
	fieldFlags32
	fieldBytes
	fieldString
)

// FieldSpec describes one slot of a fixed-layout struct subrecord: its
// wire shape, the record attribute it populates, and the default used for
// truncated legacy layouts and optional-struct comparisons.
type FieldSpec struct {
	kind fieldKind
	attr string
	size int // fieldBytes / fieldString only
	def  any
	defs *FlagDefs // fieldFlags* only
}

// U8 declares an unsigned 8-bit field.
func U8(attr string) FieldSpec { return FieldSpec{kind: fieldU8, attr: attr, def: uint32(0)} }

// U16 declares an unsigned 16-bit field.
func U16(attr string) FieldSpec { return FieldSpec{kind: fieldU16, attr: attr, def: uint32(0)} }

// U32 declares an unsigned 32-bit field.
func U32(attr string) FieldSpec { return FieldSpec{kind: fieldU32, attr: attr, def: uint32(0)} }

// S8 declares a signed 8-bit field.
func S8(attr string) FieldSpec { return FieldSpec{kind: fieldS8, attr: attr, def: int32(0)} }

// S16 declares a signed 16-bit field.
func S16(attr string) FieldSpec { return FieldSpec{kind: fieldS16, attr: attr, def: int32(0)} }

// S32 declares a signed 32-bit field.
func S32(attr string) FieldSpec { return FieldSpec{kind: fieldS32, attr: attr, def: int32(0)} }

// F32 declares a 32-bit float field.
func F32(attr string) FieldSpec { return FieldSpec{kind: fieldF32, attr: attr, def: float32(0)} }

// FidField declares a form id field. Its truncation default is the zero
// fid, the header record.
func FidField(attr string) FieldSpec {
	return FieldSpec{kind: fieldFid, attr: attr, def: ZeroFid()}
}

// BytesField declares n raw bytes, typically unused padding carried
// through verbatim.
func BytesField(attr string, n int) FieldSpec {
	return FieldSpec{kind: fieldBytes, attr: attr, size: n, def: make([]byte, n)}
}

// StringField declares a fixed-length, NUL-padded string field.
func StringField(attr string, n int) FieldSpec {
	return FieldSpec{kind: fieldString, attr: attr, size: n, def: ""}
}

// Flags8Field declares an 8-bit flags field.
func Flags8Field(attr string, defs *FlagDefs) FieldSpec {
	return FieldSpec{kind: fieldFlags8, attr: attr, defs: defs, def: NewFlags(defs, 0)}
}

// Flags16Field declares a 16-bit flags field.
func Flags16Field(attr string, defs *FlagDefs) FieldSpec {
	return FieldSpec{kind: fieldFlags16, attr: attr, defs: defs, def: NewFlags(defs, 0)}
}

// Flags32Field declares a 32-bit flags field.
func Flags32Field(attr string, defs *FlagDefs) FieldSpec {
	return FieldSpec{kind: fieldFlags32, attr: attr, defs: defs, def: NewFlags(defs, 0)}
}

// WithDefault overrides the field's truncation/optional default.
func (f FieldSpec) WithDefault(v any) FieldSpec {
	f.def = v
	return f
}

// width returns the field's fixed wire size.
func (f FieldSpec) width() int {
	switch f.kind {
	case fieldU8, fieldS8, fieldFlags8:
		return 1
	case fieldU16, fieldS16, fieldFlags16:
		return 2
	case fieldBytes, fieldString:
		return f.size
	default:
		return 4
	}
}

// read decodes the field from b, which holds at least width() bytes.
func (f FieldSpec) read(b []byte) any {
	switch f.kind {
	case fieldU8:
		return uint32(b[0])
	case fieldU16:
		return uint32(wire.Uint16(b))
	case fieldU32:
		return wire.Uint32(b)
	case fieldS8:
		return int32(int8(b[0]))
	case fieldS16:
		return int32(int16(wire.Uint16(b)))
	case fieldS32:
		return int32(wire.Uint32(b))
	case fieldF32:
		return math.Float32frombits(wire.Uint32(b))
	case fieldFid:
		return FromShort(wire.Uint32(b))
	case fieldFlags8:
		return NewFlags(f.defs, uint32(b[0]))
	case fieldFlags16:
		return NewFlags(f.defs, uint32(wire.Uint16(b)))
	case fieldFlags32:
		return NewFlags(f.defs, wire.Uint32(b))
	case fieldBytes:
		out := make([]byte, f.size)
		copy(out, b[:f.size])
		return out
	case fieldString:
		return DefaultDecoder(trimNul(b[:f.size]))
	}
	return nil
}

// write encodes v into buf. Form id fields need the dump context to pack
// their short form.
func (f FieldSpec) write(buf *bytes.Buffer, v any, ctx *Context) error {
	switch f.kind {
	case fieldU8:
		buf.WriteByte(byte(asUint(v)))
	case fieldU16:
		var tmp [2]byte
		wire.PutUint16(tmp[:], uint16(asUint(v)))
		buf.Write(tmp[:])
	case fieldU32:
		var tmp [4]byte
		wire.PutUint32(tmp[:], asUint(v))
		buf.Write(tmp[:])
	case fieldS8:
		buf.WriteByte(byte(int8(asInt(v))))
	case fieldS16:
		var tmp [2]byte
		wire.PutUint16(tmp[:], uint16(int16(asInt(v))))
		buf.Write(tmp[:])
	case fieldS32:
		var tmp [4]byte
		wire.PutUint32(tmp[:], uint32(asInt(v)))
		buf.Write(tmp[:])
	case fieldF32:
		var tmp [4]byte
		fv, _ := v.(float32)
		wire.PutUint32(tmp[:], math.Float32bits(fv))
		buf.Write(tmp[:])
	case fieldFid:
		fid, _ := v.(FormID)
		short, err := fid.ToShort(ctx)
		if err != nil {
			return err
		}
		var tmp [4]byte
		wire.PutUint32(tmp[:], short)
		buf.Write(tmp[:])
	case fieldFlags8:
		buf.WriteByte(byte(asFlags(f.defs, v).Bits()))
	case fieldFlags16:
		var tmp [2]byte
		wire.PutUint16(tmp[:], uint16(asFlags(f.defs, v).Bits()))
		buf.Write(tmp[:])
	case fieldFlags32:
		var tmp [4]byte
		wire.PutUint32(tmp[:], asFlags(f.defs, v).Bits())
		buf.Write(tmp[:])
	case fieldBytes:
		b, _ := v.([]byte)
		out := make([]byte, f.size)
		copy(out, b)
		buf.Write(out)
	case fieldString:
		s, _ := v.(string)
		out := make([]byte, f.size)
		copy(out, DefaultEncoder(s))
		buf.Write(out)
	}
	return nil
}

// equal compares a field value against another, for optional-struct
// default elision.
func (f FieldSpec) equal(a, b any) bool {
	switch f.kind {
	case fieldFid:
		av, aok := a.(FormID)
		bv, bok := b.(FormID)
		return aok && bok && av.Eq(bv)
	case fieldBytes:
		av, _ := a.([]byte)
		bv, _ := b.([]byte)
		return bytes.Equal(av, bv)
	case fieldFlags8, fieldFlags16, fieldFlags32:
		return asFlags(f.defs, a).Bits() == asFlags(f.defs, b).Bits()
	default:
		return a == b
	}
}

// newPackBuffer returns a buffer pre-grown to the specs' total width.
func newPackBuffer(specs []FieldSpec) *bytes.Buffer {
	n := 0
	for _, s := range specs {
		n += s.width()
	}
	buf := &bytes.Buffer{}
	buf.Grow(n)
	return buf
}

func asUint(v any) uint32 {
	switch n := v.(type) {
	case uint32:
		return n
	case int:
		return uint32(n)
	case int32:
		return uint32(n)
	case uint8:
		return uint32(n)
	case uint16:
		return uint32(n)
	}
	return 0
}

func asInt(v any) int32 {
	switch n := v.(type) {
	case int32:
		return n
	case int:
		return int32(n)
	case uint32:
		return int32(n)
	}
	return 0
}

func asFlags(defs *FlagDefs, v any) Flags {
	switch fv := v.(type) {
	case Flags:
		return fv
	case uint32:
		return NewFlags(defs, fv)
	}
	return NewFlags(defs, 0)
}
