package brec

// sequentialElement runs children in declared order. Each child claims its
// own signatures directly, so loading routes past the sequential; it only
// matters for defaults, dump order and traversal.
type sequentialElement struct {
	children []Element
}

// Sequential composes elements that always appear together.
func Sequential(children ...Element) Element {
	return &sequentialElement{children: children}
}

func (e *sequentialElement) GetLoaders(loaders map[Signature]Element) error {
	for _, c := range e.children {
		if err := c.GetLoaders(loaders); err != nil {
			return err
		}
	}
	return nil
}

func (e *sequentialElement) SetDefault(rec *Record) {
	for _, c := range e.children {
		c.SetDefault(rec)
	}
}

func (e *sequentialElement) Load(_ *Record, _ *Reader, sig Signature, _ int, _ *Context) error {
	// Children register themselves; a chunk routed here is a schema bug.
	return &FormatError{Sig: sig, Offset: -1,
		Reason: "chunk dispatched to a sequential composite"}
}

func (e *sequentialElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	for _, c := range e.children {
		if err := c.Dump(rec, w, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *sequentialElement) MapFids(rec *Record, fn FidMapper) {
	for _, c := range e.children {
		c.MapFids(rec, fn)
	}
}

func (e *sequentialElement) Slots() []string {
	var slots []string
	for _, c := range e.children {
		slots = append(slots, c.Slots()...)
	}
	return slots
}

// GroupElement nests its children's attributes in a sub-record under one
// attribute, so related subrecords travel as a unit.
type GroupElement struct {
	attr     string
	children []Element
	inner    map[Signature]Element
}

// Group declares a nested sub-record populated from the children's chunks.
func Group(attr string, children ...Element) *GroupElement {
	return &GroupElement{attr: attr, children: children}
}

func (e *GroupElement) innerLoaders() (map[Signature]Element, error) {
	if e.inner == nil {
		inner := make(map[Signature]Element)
		for _, c := range e.children {
			if err := c.GetLoaders(inner); err != nil {
				return nil, err
			}
		}
		e.inner = inner
	}
	return e.inner, nil
}

func (e *GroupElement) GetLoaders(loaders map[Signature]Element) error {
	inner, err := e.innerLoaders()
	if err != nil {
		return err
	}
	for sig := range inner {
		if err := registerLoader(loaders, sig, e); err != nil {
			return err
		}
	}
	return nil
}

func (e *GroupElement) SetDefault(rec *Record) {
	rec.Set(e.attr, nil)
}

// newTarget builds a fresh sub-record with the children's defaults. Always
// a new value: group defaults are never shared between records.
func (e *GroupElement) newTarget() *Record {
	sub := NewRecord()
	for _, c := range e.children {
		c.SetDefault(sub)
	}
	return sub
}

func (e *GroupElement) Load(rec *Record, r *Reader, sig Signature, size int, ctx *Context) error {
	sub := rec.Sub(e.attr)
	if sub == nil {
		sub = e.newTarget()
		rec.Set(e.attr, sub)
	}
	return e.loadInto(sub, r, sig, size, ctx)
}

func (e *GroupElement) loadInto(sub *Record, r *Reader, sig Signature, size int, ctx *Context) error {
	inner, err := e.innerLoaders()
	if err != nil {
		return err
	}
	el, ok := inner[sig]
	if !ok {
		return &FormatError{Sig: sig, Offset: r.Offset(),
			Reason: "signature not part of this group"}
	}
	return el.Load(sub, r, sig, size, ctx)
}

func (e *GroupElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	sub := rec.Sub(e.attr)
	if sub == nil {
		return nil
	}
	for _, c := range e.children {
		if err := c.Dump(sub, w, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *GroupElement) MapFids(rec *Record, fn FidMapper) {
	if sub := rec.Sub(e.attr); sub != nil {
		for _, c := range e.children {
			c.MapFids(sub, fn)
		}
	}
}

func (e *GroupElement) Slots() []string { return []string{e.attr} }

// GroupsElement is a repeated group: an ordered list of homogeneous
// sub-records, each populated from a contiguous chunk run. A new instance
// starts when a signature of the first child shows up again; any chunk
// not belonging to the group at all ends the run (it simply routes
// elsewhere at the level above).
type GroupsElement struct {
	GroupElement
	initSigs map[Signature]bool
}

// Groups declares a repeated group under one list attribute.
func Groups(attr string, children ...Element) *GroupsElement {
	return &GroupsElement{GroupElement: GroupElement{attr: attr, children: children}}
}

func (e *GroupsElement) startSigs() (map[Signature]bool, error) {
	if e.initSigs == nil {
		first := make(map[Signature]Element)
		if len(e.children) > 0 {
			if err := e.children[0].GetLoaders(first); err != nil {
				return nil, err
			}
		}
		sigs := make(map[Signature]bool, len(first))
		for sig := range first {
			sigs[sig] = true
		}
		e.initSigs = sigs
	}
	return e.initSigs, nil
}

func (e *GroupsElement) GetLoaders(loaders map[Signature]Element) error {
	inner, err := e.innerLoaders()
	if err != nil {
		return err
	}
	if _, err := e.startSigs(); err != nil {
		return err
	}
	for sig := range inner {
		if err := registerLoader(loaders, sig, e); err != nil {
			return err
		}
	}
	return nil
}

func (e *GroupsElement) SetDefault(rec *Record) {
	rec.Set(e.attr, []*Record(nil))
}

func (e *GroupsElement) Load(rec *Record, r *Reader, sig Signature, size int, ctx *Context) error {
	list := rec.List(e.attr)
	start, err := e.startSigs()
	if err != nil {
		return err
	}
	if len(list) == 0 || start[sig] {
		list = append(list, e.newTarget())
		rec.Set(e.attr, list)
	}
	return e.loadInto(list[len(list)-1], r, sig, size, ctx)
}

func (e *GroupsElement) Dump(rec *Record, w *Writer, ctx *Context) error {
	for _, sub := range rec.List(e.attr) {
		for _, c := range e.children {
			if err := c.Dump(sub, w, ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *GroupsElement) MapFids(rec *Record, fn FidMapper) {
	for _, sub := range rec.List(e.attr) {
		for _, c := range e.children {
			c.MapFids(sub, fn)
		}
	}
}

func (e *GroupsElement) Slots() []string { return []string{e.attr} }

// collectionAttr marks elements whose value is a sortable list.
func (e *GroupsElement) collectionAttr() string { return e.attr }
