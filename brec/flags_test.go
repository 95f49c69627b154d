package brec

import (
	"reflect"
	"testing"
)

func TestFlags_NamedBits(t *testing.T) {
	defs := NewFlagDefs("noAutoCalc", "immuneToSilence", "", "startSpell")

	f := NewFlags(defs, 0).With("noAutoCalc", true)
	if !f.Has("noAutoCalc") || f.Bits() != 0b0001 {
		t.Errorf("With(noAutoCalc) = %04b", f.Bits())
	}
	f = f.With("noAutoCalc", false)
	if f.Bits() != 0 {
		t.Errorf("clearing noAutoCalc left bits %04b", f.Bits())
	}
	if f.Has("unknown") {
		t.Error("undefined name must read false")
	}
}

func TestFlags_PairedBits(t *testing.T) {
	defs := NewFlagDefs("noAutoCalc", "immuneToSilence", "areaEffectIgnoresLOS", "startSpell").
		WithPaired("immuneToSilence", "startSpell")

	f := NewFlags(defs, 0).With("immuneToSilence", true)
	if !f.Has("immuneToSilence") || !f.Has("startSpell") {
		t.Errorf("setting the paired bit must set its partner, bits %04b", f.Bits())
	}
	f = f.With("immuneToSilence", false)
	if f.Has("immuneToSilence") || f.Has("startSpell") {
		t.Errorf("clearing the paired bit must clear its partner, bits %04b", f.Bits())
	}
}

func TestFlags_Masks(t *testing.T) {
	defs := NewFlagDefs("a", "b", "c").WithMask("fog", 0b110)

	f := NewFlags(defs, 0b010)
	if f.Has("fog") {
		t.Error("partial mask must read false")
	}
	f = f.With("fog", true)
	if !f.Has("fog") || f.Bits() != 0b110 {
		t.Errorf("setting a mask name must set every mask bit, got %03b", f.Bits())
	}
	f = f.With("fog", false)
	if f.Bits() != 0 {
		t.Errorf("clearing a mask name must clear every mask bit, got %03b", f.Bits())
	}
}

func TestFlags_SetNames(t *testing.T) {
	defs := NewFlagDefs("esm", "", "", "", "", "deleted").WithFlagAt("compressed", 18)

	f := NewFlags(defs, 1<<0|1<<18)
	want := []string{"esm", "compressed"}
	if got := f.SetNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("SetNames() = %v, want %v", got, want)
	}
	if s := f.String(); s != "esm|compressed" {
		t.Errorf("String() = %q", s)
	}
	if s := NewFlags(defs, 0).String(); s != "0" {
		t.Errorf("empty String() = %q", s)
	}
}
