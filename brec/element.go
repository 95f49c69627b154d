package brec

import "fmt"

// FidMapper rewrites one form id reference. A remap pass applies it to
// every reference reachable from a schema; translating between master
// tables and merely collecting references are both expressed this way.
type FidMapper func(FormID) FormID

// Element is a node in a record schema tree. A schema is built once and
// never mutated; all per-record state lives on the Record.
type Element interface {
	// GetLoaders registers the element under every signature it can
	// consume. Two sibling elements claiming the same signature is a
	// schema-construction error.
	GetLoaders(loaders map[Signature]Element) error

	// SetDefault establishes fresh zero values for the element's
	// attributes on a new record, before any load.
	SetDefault(rec *Record)

	// Load consumes exactly size bytes of the chunk tagged sig from r and
	// sets the element's attributes on rec.
	Load(rec *Record, r *Reader, sig Signature, size int, ctx *Context) error

	// Dump writes zero or more complete chunks computed from rec's
	// current attribute values. Writing nothing is legitimate: optional
	// subrecords elide their don't-bother-persisting defaults.
	Dump(rec *Record, w *Writer, ctx *Context) error

	// MapFids applies fn to every form id reachable from this element.
	MapFids(rec *Record, fn FidMapper)

	// Slots returns every attribute name the element can set.
	Slots() []string
}

// Record is the mutable attribute bag one load populates and one dump
// consumes. Schemas assign attributes dynamically, so values are typed at
// the accessor rather than the struct.
type Record struct {
	Header RecordHeader
	attrs  map[string]any
}

// NewRecord returns an empty record. LoadRecord applies schema defaults;
// callers constructing records by hand should do the same via
// (*RecordSchema).SetDefault.
func NewRecord() *Record {
	return &Record{attrs: make(map[string]any)}
}

// Set stores an attribute value.
func (r *Record) Set(attr string, v any) { r.attrs[attr] = v }

// Get returns an attribute value, nil if never set.
func (r *Record) Get(attr string) any { return r.attrs[attr] }

// Has reports whether the attribute holds a non-nil value.
func (r *Record) Has(attr string) bool { return r.attrs[attr] != nil }

// Uint returns an unsigned scalar attribute.
func (r *Record) Uint(attr string) uint32 { return asUint(r.attrs[attr]) }

// Int returns a signed scalar attribute.
func (r *Record) Int(attr string) int32 { return asInt(r.attrs[attr]) }

// Float returns a float attribute.
func (r *Record) Float(attr string) float32 {
	f, _ := r.attrs[attr].(float32)
	return f
}

// Str returns a string attribute.
func (r *Record) Str(attr string) string {
	s, _ := r.attrs[attr].(string)
	return s
}

// Fid returns a form id attribute; the zero fid if unset.
func (r *Record) Fid(attr string) FormID {
	f, _ := r.attrs[attr].(FormID)
	return f
}

// Flags returns a flags attribute.
func (r *Record) Flags(attr string) Flags {
	f, _ := r.attrs[attr].(Flags)
	return f
}

// Bytes returns a raw bytes attribute.
func (r *Record) Bytes(attr string) []byte {
	b, _ := r.attrs[attr].([]byte)
	return b
}

// Sub returns a nested group record, nil if absent.
func (r *Record) Sub(attr string) *Record {
	s, _ := r.attrs[attr].(*Record)
	return s
}

// List returns a repeated-group attribute.
func (r *Record) List(attr string) []*Record {
	l, _ := r.attrs[attr].([]*Record)
	return l
}

// Fids returns a form id list attribute.
func (r *Record) Fids(attr string) []FormID {
	l, _ := r.attrs[attr].([]FormID)
	return l
}

// registerLoader claims sig for el, rejecting sibling collisions.
func registerLoader(loaders map[Signature]Element, sig Signature, el Element) error {
	if _, dup := loaders[sig]; dup {
		return fmt.Errorf("brec: signature %s claimed by two sibling elements", sig)
	}
	loaders[sig] = el
	return nil
}

// ------------------------------------------------------------
// Leaf elements
// ------------------------------------------------------------

// baseElement stores a chunk's payload verbatim. The escape hatch for
// subrecords the schema does not interpret.
type baseElement struct {
	sig  Signature
	attr string
}

// Base declares a subrecord kept as raw bytes.
func Base(sig Signature, attr string) Element {
	return &baseElement{sig: sig, attr: attr}
}

func (e *baseElement) GetLoaders(loaders map[Signature]Element) error {
	return registerLoader(loaders, e.sig, e)
}

func (e *baseElement) SetDefault(rec *Record) { rec.Set(e.attr, nil) }

func (e *baseElement) Load(rec *Record, r *Reader, _ Signature, size int, _ *Context) error {
	payload, err := r.Read(size)
	if err != nil {
		return err
	}
	out := make([]byte, size)
	copy(out, payload)
	rec.Set(e.attr, out)
	return nil
}

func (e *baseElement) Dump(rec *Record, w *Writer, _ *Context) error {
	if b, ok := rec.Get(e.attr).([]byte); ok {
		w.WriteChunk(e.sig, b)
	}
	return nil
}

func (e *baseElement) MapFids(*Record, FidMapper) {}

func (e *baseElement) Slots() []string { return []string{e.attr} }

// nullElement discards chunks. The explicit catch-all for signatures the
// schema knows about but never persists.
type nullElement struct {
	sigs []Signature
}

// Null declares signatures to consume and discard.
func Null(sigs ...Signature) Element {
	return &nullElement{sigs: sigs}
}

func (e *nullElement) GetLoaders(loaders map[Signature]Element) error {
	for _, sig := range e.sigs {
		if err := registerLoader(loaders, sig, e); err != nil {
			return err
		}
	}
	return nil
}

func (e *nullElement) SetDefault(*Record) {}

func (e *nullElement) Load(_ *Record, r *Reader, _ Signature, size int, _ *Context) error {
	return r.Skip(size)
}

func (e *nullElement) Dump(*Record, *Writer, *Context) error { return nil }

func (e *nullElement) MapFids(*Record, FidMapper) {}

func (e *nullElement) Slots() []string { return nil }

// readOnlyElement loads like its target but never dumps. Used inside
// unions whose losing branch must swallow legacy data without
// re-persisting it.
type readOnlyElement struct {
	Element
}

// ReadOnly wraps an element so it loads normally and dumps nothing.
func ReadOnly(el Element) Element {
	return &readOnlyElement{Element: el}
}

func (e *readOnlyElement) Dump(*Record, *Writer, *Context) error { return nil }

// scalarElement is a one-field subrecord: a single integer, float or
// flags value in its own chunk.
type scalarElement struct {
	sig   Signature
	field FieldSpec
}

// UInt8 declares a one-byte unsigned subrecord.
func UInt8(sig Signature, attr string) Element {
	return &scalarElement{sig: sig, field: U8(attr)}
}

// UInt16 declares a two-byte unsigned subrecord.
func UInt16(sig Signature, attr string) Element {
	return &scalarElement{sig: sig, field: U16(attr)}
}

// UInt32 declares a four-byte unsigned subrecord.
func UInt32(sig Signature, attr string) Element {
	return &scalarElement{sig: sig, field: U32(attr)}
}

// SInt8 declares a one-byte signed subrecord.
func SInt8(sig Signature, attr string) Element {
	return &scalarElement{sig: sig, field: S8(attr)}
}

// SInt16 declares a two-byte signed subrecord.
func SInt16(sig Signature, attr string) Element {
	return &scalarElement{sig: sig, field: S16(attr)}
}

// SInt32 declares a four-byte signed subrecord.
func SInt32(sig Signature, attr string) Element {
	return &scalarElement{sig: sig, field: S32(attr)}
}

// Float32 declares a four-byte float subrecord.
func Float32(sig Signature, attr string) Element {
	return &scalarElement{sig: sig, field: F32(attr)}
}

// FixedString declares a fixed-width, NUL-padded string subrecord. The
// chunk is always exactly n bytes; loading trims at the first NUL.
func FixedString(sig Signature, attr string, n int) Element {
	return &scalarElement{sig: sig, field: StringField(attr, n)}
}

// UInt8Flags declares a one-byte flags subrecord.
func UInt8Flags(sig Signature, attr string, defs *FlagDefs) Element {
	return &scalarElement{sig: sig, field: Flags8Field(attr, defs)}
}

// UInt16Flags declares a two-byte flags subrecord.
func UInt16Flags(sig Signature, attr string, defs *FlagDefs) Element {
	return &scalarElement{sig: sig, field: Flags16Field(attr, defs)}
}

// UInt32Flags declares a four-byte flags subrecord.
func UInt32Flags(sig Signature, attr string, defs *FlagDefs) Element {
	return &scalarElement{sig: sig, field: Flags32Field(attr, defs)}
}

func (e *scalarElement) GetLoaders(loaders map[Signature]Element) error {
	return registerLoader(loaders, e.sig, e)
}

func (e *scalarElement) SetDefault(rec *Record) {
	rec.Set(e.field.attr, e.field.def)
}

func (e *scalarElement) Load(rec *Record, r *Reader, sig Signature, size int, _ *Context) error {
	if size != e.field.width() {
		return &SizeError{Sig: sig, Accepted: []int{e.field.width()}, Actual: size}
	}
	payload, err := r.Read(size)
	if err != nil {
		return err
	}
	rec.Set(e.field.attr, e.field.read(payload))
	return nil
}

func (e *scalarElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	v := rec.Get(e.field.attr)
	if v == nil {
		v = e.field.def
	}
	payload, err := packFields([]FieldSpec{e.field}, []any{v}, ctx)
	if err != nil {
		return err
	}
	w.WriteChunk(e.sig, payload)
	return nil
}

func (e *scalarElement) MapFids(*Record, FidMapper) {}

func (e *scalarElement) Slots() []string { return []string{e.field.attr} }

// stringElement is a variable-length, NUL-terminated string subrecord.
type stringElement struct {
	sig  Signature
	attr string
}

// String declares a string subrecord. An unset attribute dumps nothing.
func String(sig Signature, attr string) Element {
	return &stringElement{sig: sig, attr: attr}
}

// LString declares a possibly-localized string subrecord. Localization
// tables live above this layer, so it behaves exactly like String here.
func LString(sig Signature, attr string) Element {
	return &stringElement{sig: sig, attr: attr}
}

func (e *stringElement) GetLoaders(loaders map[Signature]Element) error {
	return registerLoader(loaders, e.sig, e)
}

func (e *stringElement) SetDefault(rec *Record) { rec.Set(e.attr, nil) }

func (e *stringElement) Load(rec *Record, r *Reader, _ Signature, size int, _ *Context) error {
	payload, err := r.Read(size)
	if err != nil {
		return err
	}
	rec.Set(e.attr, DefaultDecoder(trimNul(payload)))
	return nil
}

func (e *stringElement) Dump(rec *Record, w *Writer, _ *Context) error {
	s, ok := rec.Get(e.attr).(string)
	if !ok {
		return nil
	}
	w.WriteChunk(e.sig, append(DefaultEncoder(s), 0))
	return nil
}

func (e *stringElement) MapFids(*Record, FidMapper) {}

func (e *stringElement) Slots() []string { return []string{e.attr} }

// stringsElement is a NUL-separated string list in one chunk.
type stringsElement struct {
	sig  Signature
	attr string
}

// Strings declares a subrecord holding a NUL-separated list of strings.
func Strings(sig Signature, attr string) Element {
	return &stringsElement{sig: sig, attr: attr}
}

func (e *stringsElement) GetLoaders(loaders map[Signature]Element) error {
	return registerLoader(loaders, e.sig, e)
}

func (e *stringsElement) SetDefault(rec *Record) { rec.Set(e.attr, []string(nil)) }

func (e *stringsElement) Load(rec *Record, r *Reader, _ Signature, size int, _ *Context) error {
	payload, err := r.Read(size)
	if err != nil {
		return err
	}
	var out []string
	start := 0
	for i, c := range payload {
		if c == 0 {
			out = append(out, DefaultDecoder(payload[start:i]))
			start = i + 1
		}
	}
	if start < len(payload) {
		out = append(out, DefaultDecoder(payload[start:]))
	}
	rec.Set(e.attr, out)
	return nil
}

func (e *stringsElement) Dump(rec *Record, w *Writer, _ *Context) error {
	list, _ := rec.Get(e.attr).([]string)
	if len(list) == 0 {
		return nil
	}
	var payload []byte
	for _, s := range list {
		payload = append(payload, DefaultEncoder(s)...)
		payload = append(payload, 0)
	}
	w.WriteChunk(e.sig, payload)
	return nil
}

func (e *stringsElement) MapFids(*Record, FidMapper) {}

func (e *stringsElement) Slots() []string { return []string{e.attr} }

// fidElement is a single form id reference subrecord.
type fidElement struct {
	sig  Signature
	attr string
}

// Fid declares a subrecord holding one form id. An unset attribute dumps
// nothing; the None sentinel is rejected.
func Fid(sig Signature, attr string) Element {
	return &fidElement{sig: sig, attr: attr}
}

func (e *fidElement) GetLoaders(loaders map[Signature]Element) error {
	return registerLoader(loaders, e.sig, e)
}

func (e *fidElement) SetDefault(rec *Record) { rec.Set(e.attr, nil) }

func (e *fidElement) Load(rec *Record, r *Reader, sig Signature, size int, _ *Context) error {
	if size != 4 {
		return &SizeError{Sig: sig, Accepted: []int{4}, Actual: size}
	}
	payload, err := r.Read(4)
	if err != nil {
		return err
	}
	rec.Set(e.attr, FromShort(wire.Uint32(payload)))
	return nil
}

func (e *fidElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	fid, ok := rec.Get(e.attr).(FormID)
	if !ok {
		return nil
	}
	short, err := fid.ToShort(ctx)
	if err != nil {
		return err
	}
	var payload [4]byte
	wire.PutUint32(payload[:], short)
	w.WriteChunk(e.sig, payload[:])
	return nil
}

func (e *fidElement) MapFids(rec *Record, fn FidMapper) {
	if fid, ok := rec.Get(e.attr).(FormID); ok {
		rec.Set(e.attr, fn(fid))
	}
}

func (e *fidElement) Slots() []string { return []string{e.attr} }

// packFields encodes values through specs into one payload.
func packFields(specs []FieldSpec, values []any, ctx *Context) ([]byte, error) {
	buf := newPackBuffer(specs)
	for i, spec := range specs {
		if err := spec.write(buf, values[i], ctx); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
