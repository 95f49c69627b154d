package brec

import "fmt"

// Decider computes the key that selects a union case. The same key must be
// derivable at load time (possibly by peeking the undecided chunk) and at
// dump time (from record state alone) — the union never persists the key
// itself.
type Decider interface {
	// Decide computes the key from current record state. Used on the dump
	// and remap paths, and at load by deciders whose key was set by an
	// earlier sibling.
	Decide(rec *Record, ctx *Context) (any, error)

	// DecideAtLoad computes the key while the chunk is still unread. The
	// cursor must not be consumed: implementations peek.
	DecideAtLoad(rec *Record, r *Reader, sig Signature, size int, ctx *Context) (any, error)
}

// AttrValDecider keys on an attribute a sibling element loaded earlier in
// the same record.
type AttrValDecider struct {
	Attr string
}

func (d AttrValDecider) Decide(rec *Record, _ *Context) (any, error) {
	return normalizeKey(rec.Get(d.Attr)), nil
}

func (d AttrValDecider) DecideAtLoad(rec *Record, _ *Reader, _ Signature, _ int, ctx *Context) (any, error) {
	return d.Decide(rec, ctx)
}

// PartialLoadDecider keys on a value inside the chunk being decided. At
// load it peeks the prefix layout without consuming the cursor, then the
// whole chunk (peeked prefix included) goes to the winning case. At dump
// the deciding attribute is already on the record, set by whichever case
// loaded it.
type PartialLoadDecider struct {
	Prefix []FieldSpec // leading fields of every case's layout
	Attr   string      // which prefix field carries the key
}

func (d PartialLoadDecider) Decide(rec *Record, _ *Context) (any, error) {
	return normalizeKey(rec.Get(d.Attr)), nil
}

func (d PartialLoadDecider) DecideAtLoad(_ *Record, r *Reader, sig Signature, size int, _ *Context) (any, error) {
	want := 0
	for _, f := range d.Prefix {
		want += f.width()
	}
	if size < want {
		return nil, &SizeError{Sig: sig, Accepted: []int{want}, Actual: size}
	}
	prefix, err := r.Peek(want)
	if err != nil {
		return nil, err
	}
	off := 0
	for _, f := range d.Prefix {
		if f.attr == d.Attr {
			return normalizeKey(f.read(prefix[off:])), nil
		}
		off += f.width()
	}
	return nil, fmt.Errorf("brec: partial-load decider: no prefix field named %q", d.Attr)
}

// FlagDecider keys on named bits of a flags attribute; the key is true
// when every named bit is set.
type FlagDecider struct {
	Attr  string
	Names []string
}

func (d FlagDecider) Decide(rec *Record, _ *Context) (any, error) {
	flags := rec.Flags(d.Attr)
	for _, n := range d.Names {
		if !flags.Has(n) {
			return false, nil
		}
	}
	return true, nil
}

func (d FlagDecider) DecideAtLoad(rec *Record, _ *Reader, _ Signature, _ int, ctx *Context) (any, error) {
	return d.Decide(rec, ctx)
}

// SaveDecider keys on whether the session's file is a save rather than a
// plugin.
type SaveDecider struct{}

func (SaveDecider) Decide(_ *Record, ctx *Context) (any, error) {
	return ctx.IsSave(), nil
}

func (d SaveDecider) DecideAtLoad(rec *Record, _ *Reader, _ Signature, _ int, ctx *Context) (any, error) {
	return d.Decide(rec, ctx)
}

// UnionCase pairs a decision key with the element that governs it.
type UnionCase struct {
	key any
	el  Element
}

// Case builds a union case.
func Case(key any, el Element) UnionCase {
	return UnionCase{key: normalizeKey(key), el: el}
}

// UnionElement dispatches a signature occurrence to one of several
// alternative layouts at runtime. For families with many keys (the
// per-function-index condition layouts being the canonical case) build
// the case list once from a table at schema-construction time; the lookup
// here is a flat map, never nested unions.
type UnionElement struct {
	decider  Decider
	cases    []UnionCase
	mapping  map[any]Element
	fallback Element
}

// UnionOf builds a union over the given cases.
func UnionOf(decider Decider, cases ...UnionCase) *UnionElement {
	u := &UnionElement{
		decider: decider,
		cases:   cases,
		mapping: make(map[any]Element, len(cases)),
	}
	for _, c := range cases {
		u.mapping[c.key] = c.el
	}
	return u
}

// WithFallback supplies the element used when the key matches no case.
// Without one, an unresolvable key is a FormatError.
func (u *UnionElement) WithFallback(el Element) *UnionElement {
	u.fallback = el
	return u
}

func (u *UnionElement) GetLoaders(loaders map[Signature]Element) error {
	// The cases typically share signatures, so collect their combined set
	// first and claim each once, as the union itself.
	inner := make(map[Signature]Element)
	for _, c := range u.cases {
		childLoaders := make(map[Signature]Element)
		if err := c.el.GetLoaders(childLoaders); err != nil {
			return err
		}
		for sig := range childLoaders {
			inner[sig] = u
		}
	}
	if u.fallback != nil {
		childLoaders := make(map[Signature]Element)
		if err := u.fallback.GetLoaders(childLoaders); err != nil {
			return err
		}
		for sig := range childLoaders {
			inner[sig] = u
		}
	}
	for sig := range inner {
		if err := registerLoader(loaders, sig, u); err != nil {
			return err
		}
	}
	return nil
}

// SetDefault applies the first case's defaults; all cases of a
// well-formed union populate the same slots.
func (u *UnionElement) SetDefault(rec *Record) {
	if len(u.cases) > 0 {
		u.cases[0].el.SetDefault(rec)
	} else if u.fallback != nil {
		u.fallback.SetDefault(rec)
	}
}

func (u *UnionElement) Load(rec *Record, r *Reader, sig Signature, size int, ctx *Context) error {
	key, err := u.decider.DecideAtLoad(rec, r, sig, size, ctx)
	if err != nil {
		return err
	}
	el, err := u.elementFor(key, sig, r.Offset())
	if err != nil {
		return err
	}
	return el.Load(rec, r, sig, size, ctx)
}

func (u *UnionElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	key, err := u.decider.Decide(rec, ctx)
	if err != nil {
		return err
	}
	el, err := u.elementFor(key, Signature{}, -1)
	if err != nil {
		return err
	}
	return el.Dump(rec, w, ctx)
}

func (u *UnionElement) MapFids(rec *Record, fn FidMapper) {
	key, err := u.decider.Decide(rec, nil)
	if err != nil {
		return
	}
	if el, err := u.elementFor(key, Signature{}, -1); err == nil {
		el.MapFids(rec, fn)
	}
}

func (u *UnionElement) Slots() []string {
	seen := make(map[string]bool)
	var slots []string
	add := func(el Element) {
		for _, s := range el.Slots() {
			if !seen[s] {
				seen[s] = true
				slots = append(slots, s)
			}
		}
	}
	for _, c := range u.cases {
		add(c.el)
	}
	if u.fallback != nil {
		add(u.fallback)
	}
	return slots
}

func (u *UnionElement) elementFor(key any, sig Signature, offset int64) (Element, error) {
	if el, ok := u.mapping[normalizeKey(key)]; ok {
		return el, nil
	}
	if u.fallback != nil {
		return u.fallback, nil
	}
	return nil, &FormatError{Sig: sig, Offset: offset, Reason: fmt.Sprintf(
		"union key %v matches no case and no fallback is declared", key)}
}

// normalizeKey folds every integer width to int64 so case keys written as
// literals match values read off the wire.
func normalizeKey(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return v
	}
}
