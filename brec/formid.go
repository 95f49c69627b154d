package brec

import "fmt"

// FormID is an immutable cross-file object reference. The short form is
// the packed on-disk integer: the high byte indexes the owning file in the
// master table, the low 24 bits are the object index. The long form,
// (master name, object index), is the only file-independent identity and
// the one hashing and ordering are defined on.
//
// A FormID freshly read from disk carries only its short form; widening it
// needs the load session's master table. A FormID built from a long form
// carries that identity directly and is narrowed against the dump
// session's table when written.
type FormID struct {
	short   uint32
	master  string
	hasLong bool
	none    bool
}

// FromShort wraps a packed on-disk form id.
func FromShort(v uint32) FormID {
	return FormID{short: v}
}

// FromLong builds a FormID from its stable (master, object index)
// identity. The index must fit in 24 bits.
func FromLong(master string, index uint32) FormID {
	return FormID{short: index & 0x00FFFFFF, master: master, hasLong: true}
}

// FromObjectID packs a mod index and object index into a short form id.
func FromObjectID(modIndex uint8, objectIndex uint32) FormID {
	return FormID{short: uint32(modIndex)<<24 | objectIndex&0x00FFFFFF}
}

// NoneFid returns the sorts-always-last sentinel. It is not a real
// reference: it is legal only as a sort-key fallback or a missing-value
// default, compares greater than every real id and equal only to itself,
// and narrowing it for output is ErrState.
func NoneFid() FormID {
	return FormID{none: true}
}

// ZeroFid is the form id of the file's own header record. It widens to
// object 0 of the session's header master.
func ZeroFid() FormID {
	return FormID{}
}

// IsNone reports whether f is the sorts-last sentinel.
func (f FormID) IsNone() bool { return f.none }

// IsNull reports whether the object index is zero. The mod index is
// deliberately ignored: 0x01000000 is as null as 0x00000000.
func (f FormID) IsNull() bool {
	return !f.none && f.short&0x00FFFFFF == 0
}

// ObjectIndex returns the low 24 bits.
func (f FormID) ObjectIndex() uint32 { return f.short & 0x00FFFFFF }

// ModIndex returns the high byte of the short form. Only meaningful for
// ids that were read from disk, not ones built with FromLong.
func (f FormID) ModIndex() uint8 { return uint8(f.short >> 24) }

// ToLong widens f to its (master, object index) identity using the load
// session's master table. Mod indices past the end of the table clamp to
// the last entry, the loading file itself.
func (f FormID) ToLong(ctx *Context) (string, uint32, error) {
	if f.none {
		return "", 0, stateErr("None form id has no long form")
	}
	if f.hasLong {
		return f.master, f.ObjectIndex(), nil
	}
	if !ctx.isLoad() {
		return "", 0, stateErr("form id %s widened outside a load context", f)
	}
	if f.short == 0 {
		return ctx.header, 0, nil
	}
	idx := int(f.ModIndex())
	if idx >= len(ctx.masters) {
		idx = len(ctx.masters) - 1
	}
	if idx < 0 {
		return "", 0, stateErr("load context has an empty master table")
	}
	return ctx.masters[idx], f.ObjectIndex(), nil
}

// ToShort narrows f to the packed integer to write, using the dump
// session's master table. Narrowing the None sentinel is ErrState: it is
// never a legal value for a real reference slot.
func (f FormID) ToShort(ctx *Context) (uint32, error) {
	if f.none {
		return 0, stateErr("None form id dumped through a reference slot")
	}
	if !ctx.isDump() {
		return 0, stateErr("form id %s narrowed outside a dump context", f)
	}
	if !f.hasLong {
		// Packed relative to the output masters already, e.g. set by a
		// remap pass or constructed with FromObjectID.
		return f.short, nil
	}
	idx, ok := ctx.index[f.master]
	if !ok {
		return 0, &FormatError{Offset: -1, Reason: fmt.Sprintf(
			"form id %s: %q is not in the output master table", f, f.master)}
	}
	return uint32(idx)<<24 | f.ObjectIndex(), nil
}

// Resolve returns a copy of f carrying its long form, widened under ctx.
// Typically applied to every reference of a freshly loaded record so the
// load context can be discarded.
func (f FormID) Resolve(ctx *Context) (FormID, error) {
	if f.none {
		return f, nil
	}
	master, index, err := f.ToLong(ctx)
	if err != nil {
		return f, err
	}
	return FromLong(master, index), nil
}

// Eq reports identity. Two ids carrying long forms compare by long form;
// otherwise the comparison falls back to the raw short value.
func (f FormID) Eq(other FormID) bool {
	if f.none || other.none {
		return f.none == other.none
	}
	if f.hasLong && other.hasLong {
		return f.master == other.master && f.ObjectIndex() == other.ObjectIndex()
	}
	if f.hasLong != other.hasLong {
		return false
	}
	return f.short == other.short
}

// Less orders form ids. Under an active dump context ids compare by their
// output short form, preserving the on-disk ordering the engine expects;
// otherwise they compare by long form, which is stable across files. The
// None sentinel sorts after everything.
func Less(a, b FormID, ctx *Context) bool {
	if a.none || b.none {
		return !a.none && b.none
	}
	if ctx.isDump() {
		as, aerr := a.ToShort(ctx)
		bs, berr := b.ToShort(ctx)
		if aerr == nil && berr == nil {
			return as < bs
		}
	}
	am, ai := a.longKey()
	bm, bi := b.longKey()
	if am != bm {
		return am < bm
	}
	return ai < bi
}

// longKey returns the best available ordering key without a context:
// the long form when present, else the raw short value namespaced under
// the empty master name.
func (f FormID) longKey() (string, uint32) {
	if f.hasLong {
		return f.master, f.ObjectIndex()
	}
	return "", f.short
}

func (f FormID) String() string {
	if f.none {
		return "NONE"
	}
	if f.hasLong {
		return fmt.Sprintf("(%s, %06X)", f.master, f.ObjectIndex())
	}
	return fmt.Sprintf("%08X", f.short)
}
