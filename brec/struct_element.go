package brec

import "sort"

// StructElement is a fixed-layout subrecord: an ordered field list read in
// one pass. Truncated legacy layouts — shorter prefixes of the same field
// list, left behind by older format revisions — load into the same
// attribute model with the missing tail defaulted; dump always emits the
// full current layout.
type StructElement struct {
	sig      Signature
	fields   []FieldSpec
	optional bool

	// Accepted chunk size -> number of leading fields in that layout.
	// Always contains the full layout; Truncated adds prefixes.
	layouts map[int]int
}

// Struct declares a required fixed-layout subrecord.
func Struct(sig Signature, fields ...FieldSpec) *StructElement {
	full := 0
	for _, f := range fields {
		full += f.width()
	}
	return &StructElement{
		sig:     sig,
		fields:  fields,
		layouts: map[int]int{full: len(fields)},
	}
}

// OptStruct declares a struct subrecord that is omitted on dump when every
// field still holds its default.
func OptStruct(sig Signature, fields ...FieldSpec) *StructElement {
	s := Struct(sig, fields...)
	s.optional = true
	return s
}

// Truncated registers legacy layouts as prefixes of the field list: each
// count is the number of leading fields an older revision wrote. A chunk
// whose size matches none of the registered layouts fails with a
// SizeError naming the accepted sizes.
func (s *StructElement) Truncated(fieldCounts ...int) *StructElement {
	for _, n := range fieldCounts {
		size := 0
		for _, f := range s.fields[:n] {
			size += f.width()
		}
		s.layouts[size] = n
	}
	return s
}

// Optional marks the struct as omitted-when-default on dump.
func (s *StructElement) Optional() *StructElement {
	s.optional = true
	return s
}

func (s *StructElement) GetLoaders(loaders map[Signature]Element) error {
	return registerLoader(loaders, s.sig, s)
}

func (s *StructElement) SetDefault(rec *Record) {
	for _, f := range s.fields {
		rec.Set(f.attr, f.defaultValue())
	}
}

func (s *StructElement) Load(rec *Record, r *Reader, sig Signature, size int, _ *Context) error {
	n, ok := s.layouts[size]
	if !ok {
		return &SizeError{Sig: sig, Accepted: s.acceptedSizes(), Actual: size}
	}
	payload, err := r.Read(size)
	if err != nil {
		return err
	}
	off := 0
	for _, f := range s.fields[:n] {
		rec.Set(f.attr, f.read(payload[off:]))
		off += f.width()
	}
	// Tail fields of a truncated layout keep their declared defaults.
	for _, f := range s.fields[n:] {
		rec.Set(f.attr, f.defaultValue())
	}
	return nil
}

func (s *StructElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	values := make([]any, len(s.fields))
	allDefault := true
	for i, f := range s.fields {
		v := rec.Get(f.attr)
		if v == nil {
			v = f.defaultValue()
		}
		if allDefault && !f.equal(v, f.def) {
			allDefault = false
		}
		values[i] = v
	}
	if s.optional && allDefault {
		return nil
	}
	payload, err := packFields(s.fields, values, ctx)
	if err != nil {
		return err
	}
	w.WriteChunk(s.sig, payload)
	return nil
}

func (s *StructElement) MapFids(rec *Record, fn FidMapper) {
	for _, f := range s.fields {
		if f.kind != fieldFid {
			continue
		}
		if fid, ok := rec.Get(f.attr).(FormID); ok {
			rec.Set(f.attr, fn(fid))
		}
	}
}

func (s *StructElement) Slots() []string {
	slots := make([]string, len(s.fields))
	for i, f := range s.fields {
		slots[i] = f.attr
	}
	return slots
}

// loadFull decodes one full-layout instance from payload. Used for array
// elements, which never truncate.
func (s *StructElement) loadFull(rec *Record, payload []byte) {
	off := 0
	for _, f := range s.fields {
		rec.Set(f.attr, f.read(payload[off:]))
		off += f.width()
	}
}

// payloadFor packs the full layout from rec's values, defaults filling
// any unset attribute.
func (s *StructElement) payloadFor(rec *Record, ctx *Context) ([]byte, error) {
	values := make([]any, len(s.fields))
	for i, f := range s.fields {
		v := rec.Get(f.attr)
		if v == nil {
			v = f.defaultValue()
		}
		values[i] = v
	}
	return packFields(s.fields, values, ctx)
}

func (s *StructElement) acceptedSizes() []int {
	sizes := make([]int, 0, len(s.layouts))
	for size := range s.layouts {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	return sizes
}

// elemSize returns the full layout's byte width, for array embedding.
func (s *StructElement) elemSize() int {
	full := 0
	for _, f := range s.fields {
		full += f.width()
	}
	return full
}

// defaultValue returns a fresh copy of the field default. Mutable kinds
// (raw bytes) are copied so records never share backing storage.
func (f FieldSpec) defaultValue() any {
	if b, ok := f.def.([]byte); ok {
		out := make([]byte, len(b))
		copy(out, b)
		return out
	}
	return f.def
}
