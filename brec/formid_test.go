package brec

import (
	"errors"
	"testing"
)

func TestFormID_ToLong(t *testing.T) {
	ctx := NewLoadContext([]string{"Foo.esm", "Bar.esp"})

	tests := []struct {
		name       string
		fid        FormID
		wantMaster string
		wantIndex  uint32
	}{
		{"second master", FromShort(0x01000003), "Bar.esp", 3},
		{"first master", FromShort(0x00000800), "Foo.esm", 0x800},
		{"index overflow clamps to last", FromShort(0x7F000010), "Bar.esp", 0x10},
		{"zero fid resolves to header master", ZeroFid(), "Foo.esm", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			master, index, err := tt.fid.ToLong(ctx)
			if err != nil {
				t.Fatalf("ToLong failed: %v", err)
			}
			if master != tt.wantMaster || index != tt.wantIndex {
				t.Errorf("got (%s, %X), want (%s, %X)",
					master, index, tt.wantMaster, tt.wantIndex)
			}
		})
	}
}

func TestFormID_ToLongStateErrors(t *testing.T) {
	if _, _, err := FromShort(0x01000003).ToLong(nil); !errors.Is(err, ErrState) {
		t.Errorf("ToLong with nil context: got %v, want ErrState", err)
	}
	dumpCtx := NewDumpContext([]string{"Foo.esm"})
	if _, _, err := FromShort(0x01000003).ToLong(dumpCtx); !errors.Is(err, ErrState) {
		t.Errorf("ToLong with dump context: got %v, want ErrState", err)
	}
	if _, _, err := NoneFid().ToLong(NewLoadContext([]string{"Foo.esm"})); !errors.Is(err, ErrState) {
		t.Errorf("ToLong on None sentinel: got %v, want ErrState", err)
	}
}

func TestFormID_ToShort(t *testing.T) {
	ctx := NewDumpContext([]string{"Foo.esm", "Bar.esp"})

	short, err := FromLong("Bar.esp", 3).ToShort(ctx)
	if err != nil {
		t.Fatalf("ToShort failed: %v", err)
	}
	if short != 0x01000003 {
		t.Errorf("got %08X, want 01000003", short)
	}

	// Short-form ids pass through unmapped.
	short, err = FromShort(0x00000042).ToShort(ctx)
	if err != nil {
		t.Fatalf("ToShort failed: %v", err)
	}
	if short != 0x42 {
		t.Errorf("got %08X, want 00000042", short)
	}

	if _, err := NoneFid().ToShort(ctx); !errors.Is(err, ErrState) {
		t.Errorf("ToShort on None sentinel: got %v, want ErrState", err)
	}
	if _, err := FromLong("Foo.esm", 1).ToShort(nil); !errors.Is(err, ErrState) {
		t.Errorf("ToShort with nil context: got %v, want ErrState", err)
	}

	var formatErr *FormatError
	if _, err := FromLong("Missing.esp", 1).ToShort(ctx); !errors.As(err, &formatErr) {
		t.Errorf("ToShort with unknown master: got %v, want FormatError", err)
	}
}

func TestFormID_IsNull(t *testing.T) {
	tests := []struct {
		fid  FormID
		want bool
	}{
		{FromShort(0), true},
		{FromShort(0x01000000), true}, // mod index alone does not make it real
		{FromShort(0x01000001), false},
		{NoneFid(), false},
	}
	for _, tt := range tests {
		if got := tt.fid.IsNull(); got != tt.want {
			t.Errorf("IsNull(%s) = %v, want %v", tt.fid, got, tt.want)
		}
	}
}

func TestFormID_Ordering(t *testing.T) {
	a := FromLong("A.esp", 1)
	z := FromLong("Z.esm", 5)

	// No context: stable long-form ordering, master name first.
	if !Less(a, z, nil) || Less(z, a, nil) {
		t.Error("long-form ordering should put A.esp before Z.esm")
	}

	// Dump context: short-form ordering, master table position first.
	ctx := NewDumpContext([]string{"Z.esm", "A.esp"})
	if !Less(z, a, ctx) || Less(a, z, ctx) {
		t.Error("dump-context ordering should follow master table positions")
	}
}

func TestFormID_NoneSortsLast(t *testing.T) {
	none := NoneFid()
	real := FromLong("Foo.esm", 1)

	if Less(none, real, nil) {
		t.Error("None must not sort before a real id")
	}
	if !Less(real, none, nil) {
		t.Error("every real id must sort before None")
	}
	if Less(none, NoneFid(), nil) {
		t.Error("None must not sort before itself")
	}
	if !none.Eq(NoneFid()) {
		t.Error("None must equal itself")
	}
	if none.Eq(real) || real.Eq(none) {
		t.Error("None must not equal a real id")
	}
}

func TestFormID_Resolve(t *testing.T) {
	ctx := NewLoadContext([]string{"Foo.esm", "Bar.esp"})
	resolved, err := FromShort(0x01000003).Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !resolved.Eq(FromLong("Bar.esp", 3)) {
		t.Errorf("got %s, want (Bar.esp, 000003)", resolved)
	}

	// Resolve is a no-op on the sentinel.
	if got, err := NoneFid().Resolve(ctx); err != nil || !got.IsNone() {
		t.Errorf("Resolve(None) = %s, %v", got, err)
	}
}
