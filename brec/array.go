package brec

import (
	"fmt"
	"sort"
)

// ArrayElement is a counted array in a single chunk: the payload is N
// back-to-back instances of a fixed struct layout, N derived from the
// chunk length.
type ArrayElement struct {
	attr string
	elem *StructElement
}

// Array declares an array subrecord whose elements follow the given
// struct layout. The struct's signature tags the whole array chunk.
func Array(attr string, elem *StructElement) *ArrayElement {
	return &ArrayElement{attr: attr, elem: elem}
}

func (e *ArrayElement) GetLoaders(loaders map[Signature]Element) error {
	return registerLoader(loaders, e.elem.sig, e)
}

func (e *ArrayElement) SetDefault(rec *Record) {
	rec.Set(e.attr, []*Record(nil))
}

func (e *ArrayElement) Load(rec *Record, r *Reader, sig Signature, size int, _ *Context) error {
	elemSize := e.elem.elemSize()
	if elemSize == 0 || size%elemSize != 0 {
		return &FormatError{Sig: sig, Offset: r.Offset(), Reason: fmt.Sprintf(
			"array chunk size %d is not a multiple of element size %d", size, elemSize)}
	}
	payload, err := r.Read(size)
	if err != nil {
		return err
	}
	list := make([]*Record, 0, size/elemSize)
	for off := 0; off < size; off += elemSize {
		sub := NewRecord()
		e.elem.loadFull(sub, payload[off:off+elemSize])
		list = append(list, sub)
	}
	rec.Set(e.attr, list)
	return nil
}

func (e *ArrayElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	list := rec.List(e.attr)
	if len(list) == 0 {
		return nil
	}
	var payload []byte
	for _, sub := range list {
		b, err := e.elem.payloadFor(sub, ctx)
		if err != nil {
			return err
		}
		payload = append(payload, b...)
	}
	w.WriteChunk(e.elem.sig, payload)
	return nil
}

func (e *ArrayElement) MapFids(rec *Record, fn FidMapper) {
	for _, sub := range rec.List(e.attr) {
		e.elem.MapFids(sub, fn)
	}
}

func (e *ArrayElement) Slots() []string { return []string{e.attr} }

func (e *ArrayElement) collectionAttr() string { return e.attr }

// fidArrayElement is a single chunk holding N packed form ids.
type fidArrayElement struct {
	sig  Signature
	attr string
}

// FidArray declares a subrecord holding a list of form ids in one chunk,
// the keyword-list shape.
func FidArray(sig Signature, attr string) Element {
	return &fidArrayElement{sig: sig, attr: attr}
}

func (e *fidArrayElement) GetLoaders(loaders map[Signature]Element) error {
	return registerLoader(loaders, e.sig, e)
}

func (e *fidArrayElement) SetDefault(rec *Record) {
	rec.Set(e.attr, []FormID(nil))
}

func (e *fidArrayElement) Load(rec *Record, r *Reader, sig Signature, size int, _ *Context) error {
	if size%4 != 0 {
		return &FormatError{Sig: sig, Offset: r.Offset(), Reason: fmt.Sprintf(
			"form id array chunk size %d is not a multiple of 4", size)}
	}
	payload, err := r.Read(size)
	if err != nil {
		return err
	}
	list := make([]FormID, 0, size/4)
	for off := 0; off < size; off += 4 {
		list = append(list, FromShort(wire.Uint32(payload[off:])))
	}
	rec.Set(e.attr, list)
	return nil
}

func (e *fidArrayElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	list := rec.Fids(e.attr)
	if len(list) == 0 {
		return nil
	}
	payload := make([]byte, 0, len(list)*4)
	for _, fid := range list {
		short, err := fid.ToShort(ctx)
		if err != nil {
			return err
		}
		var tmp [4]byte
		wire.PutUint32(tmp[:], short)
		payload = append(payload, tmp[:]...)
	}
	w.WriteChunk(e.sig, payload)
	return nil
}

func (e *fidArrayElement) MapFids(rec *Record, fn FidMapper) {
	list := rec.Fids(e.attr)
	for i, fid := range list {
		list[i] = fn(fid)
	}
}

func (e *fidArrayElement) Slots() []string { return []string{e.attr} }

func (e *fidArrayElement) collectionAttr() string { return e.attr }

// fidsElement collects repeated single-fid chunks, one form id each.
type fidsElement struct {
	sig  Signature
	attr string
}

// Fids declares a repeated subrecord of one form id per chunk, appending
// to a list attribute.
func Fids(sig Signature, attr string) Element {
	return &fidsElement{sig: sig, attr: attr}
}

func (e *fidsElement) GetLoaders(loaders map[Signature]Element) error {
	return registerLoader(loaders, e.sig, e)
}

func (e *fidsElement) SetDefault(rec *Record) {
	rec.Set(e.attr, []FormID(nil))
}

func (e *fidsElement) Load(rec *Record, r *Reader, sig Signature, size int, _ *Context) error {
	if size != 4 {
		return &SizeError{Sig: sig, Accepted: []int{4}, Actual: size}
	}
	payload, err := r.Read(4)
	if err != nil {
		return err
	}
	rec.Set(e.attr, append(rec.Fids(e.attr), FromShort(wire.Uint32(payload))))
	return nil
}

func (e *fidsElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	for _, fid := range rec.Fids(e.attr) {
		short, err := fid.ToShort(ctx)
		if err != nil {
			return err
		}
		var payload [4]byte
		wire.PutUint32(payload[:], short)
		w.WriteChunk(e.sig, payload[:])
	}
	return nil
}

func (e *fidsElement) MapFids(rec *Record, fn FidMapper) {
	list := rec.Fids(e.attr)
	for i, fid := range list {
		list[i] = fn(fid)
	}
}

func (e *fidsElement) Slots() []string { return []string{e.attr} }

func (e *fidsElement) collectionAttr() string { return e.attr }

// counterElement tracks a sibling collection's length on disk. The stored
// value is never trusted: load reads past it, dump recomputes from the
// live collection and omits the chunk entirely when the collection is
// empty.
type counterElement struct {
	sig    Signature
	attr   string
	counts string
}

// Counter declares a 32-bit counter subrecord paired with the collection
// at counts.
func Counter(sig Signature, attr, counts string) Element {
	return &counterElement{sig: sig, attr: attr, counts: counts}
}

func (e *counterElement) GetLoaders(loaders map[Signature]Element) error {
	return registerLoader(loaders, e.sig, e)
}

func (e *counterElement) SetDefault(rec *Record) {
	rec.Set(e.attr, uint32(0))
}

func (e *counterElement) Load(_ *Record, r *Reader, sig Signature, size int, _ *Context) error {
	if size != 4 {
		return &SizeError{Sig: sig, Accepted: []int{4}, Actual: size}
	}
	// Discard: the real count is however many elements actually parse.
	return r.Skip(size)
}

func (e *counterElement) Dump(rec *Record, w *Writer, _ *Context) error {
	n := collectionLen(rec.Get(e.counts))
	rec.Set(e.attr, uint32(n))
	if n == 0 {
		return nil
	}
	var payload [4]byte
	wire.PutUint32(payload[:], uint32(n))
	w.WriteChunk(e.sig, payload[:])
	return nil
}

func (e *counterElement) MapFids(*Record, FidMapper) {}

func (e *counterElement) Slots() []string { return []string{e.attr} }

func collectionLen(v any) int {
	switch list := v.(type) {
	case []*Record:
		return len(list)
	case []FormID:
		return len(list)
	case []string:
		return len(list)
	}
	return 0
}

// sortable is implemented by every element whose value is a list the
// Sorted wrapper can reorder.
type sortable interface {
	Element
	collectionAttr() string
}

// sortedElement canonicalizes a collection's dump order. Load order is
// whatever the file had; the stable sort happens only at dump time, so
// dumps of semantically equal data are byte-identical regardless of input
// order.
type sortedElement struct {
	inner     sortable
	attr      string
	sortAttrs []string
}

// Sorted wraps a collection element with a dump-time ordering: elements
// compare by the given attribute tuple, ties broken by input order. For
// form id collections the attribute list is empty and the ids themselves
// are the key.
func Sorted(inner Element, sortAttrs ...string) Element {
	coll, ok := inner.(sortable)
	if !ok {
		panic(fmt.Sprintf("brec: Sorted wraps collections only, got %T", inner))
	}
	return &sortedElement{inner: coll, attr: coll.collectionAttr(), sortAttrs: sortAttrs}
}

func (e *sortedElement) GetLoaders(loaders map[Signature]Element) error {
	return e.inner.GetLoaders(loaders)
}

func (e *sortedElement) SetDefault(rec *Record) { e.inner.SetDefault(rec) }

func (e *sortedElement) Load(rec *Record, r *Reader, sig Signature, size int, ctx *Context) error {
	return e.inner.Load(rec, r, sig, size, ctx)
}

func (e *sortedElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	switch list := rec.Get(e.attr).(type) {
	case []*Record:
		sort.SliceStable(list, func(i, j int) bool {
			return e.lessRecords(list[i], list[j], ctx)
		})
	case []FormID:
		sort.SliceStable(list, func(i, j int) bool {
			return Less(list[i], list[j], ctx)
		})
	}
	return e.inner.Dump(rec, w, ctx)
}

func (e *sortedElement) MapFids(rec *Record, fn FidMapper) {
	e.inner.MapFids(rec, fn)
}

func (e *sortedElement) Slots() []string { return e.inner.Slots() }

func (e *sortedElement) lessRecords(a, b *Record, ctx *Context) bool {
	for _, attr := range e.sortAttrs {
		av, bv := a.Get(attr), b.Get(attr)
		if equalValue(av, bv) {
			continue
		}
		return lessValue(av, bv, ctx)
	}
	return false
}

// lessValue orders two sort-key values of the same kind. Missing values
// and the None sentinel sort after everything real, which is what lets
// optional key attributes participate in sorting at all.
func lessValue(a, b any, ctx *Context) bool {
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	switch av := a.(type) {
	case uint32:
		bv, ok := b.(uint32)
		return ok && av < bv
	case int32:
		bv, ok := b.(int32)
		return ok && av < bv
	case float32:
		bv, ok := b.(float32)
		return ok && av < bv
	case string:
		bv, ok := b.(string)
		return ok && av < bv
	case FormID:
		bv, ok := b.(FormID)
		return ok && Less(av, bv, ctx)
	}
	return false
}

func equalValue(a, b any) bool {
	if af, aok := a.(FormID); aok {
		bf, bok := b.(FormID)
		return bok && af.Eq(bf)
	}
	return a == b
}
