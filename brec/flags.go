package brec

import (
	"sort"
	"strings"
)

// FlagDefs names the bits of a flags field. Definitions are built once at
// schema-construction time and shared by every Flags value of that field.
type FlagDefs struct {
	bits  map[string]uint   // name -> bit index
	pairs map[uint]uint     // setting bit k also sets pairs[k]
	masks map[string]uint32 // derived booleans over multi-bit masks
}

// NewFlagDefs names bits by position; empty strings skip a bit.
func NewFlagDefs(names ...string) *FlagDefs {
	d := &FlagDefs{
		bits:  make(map[string]uint, len(names)),
		pairs: make(map[uint]uint),
		masks: make(map[string]uint32),
	}
	for i, n := range names {
		if n != "" {
			d.bits[n] = uint(i)
		}
	}
	return d
}

// WithFlagAt names a single bit at an explicit index, for sparse layouts.
func (d *FlagDefs) WithFlagAt(name string, bit uint) *FlagDefs {
	d.bits[name] = bit
	return d
}

// WithPaired links two named bits: setting or clearing the first does the
// same to the second. The spell "immune to silence" flag is the classic
// case, it activates bits 1 and 3 together.
func (d *FlagDefs) WithPaired(name, partner string) *FlagDefs {
	d.pairs[d.bits[name]] = d.bits[partner]
	return d
}

// WithMask defines a derived boolean that reads true only when every bit
// of mask is set, and whose setter writes the whole mask.
func (d *FlagDefs) WithMask(name string, mask uint32) *FlagDefs {
	d.masks[name] = mask
	return d
}

// Names returns the defined bit names, ordered by bit index.
func (d *FlagDefs) Names() []string {
	names := make([]string, 0, len(d.bits))
	for n := range d.bits {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return d.bits[names[i]] < d.bits[names[j]]
	})
	return names
}

// Flags is a bitfield addressed through its FlagDefs. The zero value of
// the backing integer is the dump default for every flags field.
type Flags struct {
	defs *FlagDefs
	bits uint32
}

// NewFlags wraps a raw field value with its definitions.
func NewFlags(defs *FlagDefs, bits uint32) Flags {
	return Flags{defs: defs, bits: bits}
}

// Bits returns the raw backing integer.
func (f Flags) Bits() uint32 { return f.bits }

// Has reports whether the named bit is set. For mask-derived names it
// reports whether the full mask is set.
func (f Flags) Has(name string) bool {
	if f.defs != nil {
		if mask, ok := f.defs.masks[name]; ok {
			return f.bits&mask == mask
		}
		if bit, ok := f.defs.bits[name]; ok {
			return f.bits&(1<<bit) != 0
		}
	}
	return false
}

// With returns a copy with the named bit set or cleared, applying any
// paired-bit linkage and mask definitions.
func (f Flags) With(name string, on bool) Flags {
	if f.defs == nil {
		return f
	}
	if mask, ok := f.defs.masks[name]; ok {
		if on {
			f.bits |= mask
		} else {
			f.bits &^= mask
		}
		return f
	}
	bit, ok := f.defs.bits[name]
	if !ok {
		return f
	}
	f.setBit(&f.bits, bit, on)
	if partner, ok := f.defs.pairs[bit]; ok {
		f.setBit(&f.bits, partner, on)
	}
	return f
}

func (Flags) setBit(bits *uint32, bit uint, on bool) {
	if on {
		*bits |= 1 << bit
	} else {
		*bits &^= 1 << bit
	}
}

// SetNames returns the names of all set bits, ordered by bit index.
func (f Flags) SetNames() []string {
	if f.defs == nil {
		return nil
	}
	var set []string
	for _, n := range f.defs.Names() {
		if f.bits&(1<<f.defs.bits[n]) != 0 {
			set = append(set, n)
		}
	}
	return set
}

func (f Flags) String() string {
	if s := f.SetNames(); len(s) > 0 {
		return strings.Join(s, "|")
	}
	return "0"
}
