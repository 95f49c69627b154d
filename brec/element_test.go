package brec

import (
	"bytes"
	"testing"
)

func TestScalarElements(t *testing.T) {
	tests := []struct {
		name    string
		el      Element
		payload []byte
		check   func(t *testing.T, rec *Record)
	}{
		{"uint8", UInt8(Sig("ANAM"), "v"), []byte{0xFE},
			func(t *testing.T, rec *Record) {
				if rec.Uint("v") != 0xFE {
					t.Errorf("v = %d", rec.Uint("v"))
				}
			}},
		{"sint8 sign extends", SInt8(Sig("ANAM"), "v"), []byte{0xFF},
			func(t *testing.T, rec *Record) {
				if rec.Int("v") != -1 {
					t.Errorf("v = %d", rec.Int("v"))
				}
			}},
		{"sint16 sign extends", SInt16(Sig("ANAM"), "v"), []byte{0xFE, 0xFF},
			func(t *testing.T, rec *Record) {
				if rec.Int("v") != -2 {
					t.Errorf("v = %d", rec.Int("v"))
				}
			}},
		{"uint16", UInt16(Sig("ANAM"), "v"), []byte{0x34, 0x12},
			func(t *testing.T, rec *Record) {
				if rec.Uint("v") != 0x1234 {
					t.Errorf("v = %04X", rec.Uint("v"))
				}
			}},
		{"fixed string trims", FixedString(Sig("ANAM"), "v", 4), []byte("ab\x00\x00"),
			func(t *testing.T, rec *Record) {
				if rec.Str("v") != "ab" {
					t.Errorf("v = %q", rec.Str("v"))
				}
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := mustSchema(t, Sig("TEST"), tt.el)
			w := NewWriter()
			w.WriteChunk(Sig("ANAM"), tt.payload)
			rec := loadBody(t, schema, w.Bytes(), nil)
			tt.check(t, rec)

			// Scalars re-emit their exact wire form.
			if out := dumpBody(t, schema, rec, nil); !bytes.Equal(out, w.Bytes()) {
				t.Errorf("round-trip: got %x, want %x", out, w.Bytes())
			}
		})
	}
}

func TestScalar_WrongSize(t *testing.T) {
	schema := mustSchema(t, Sig("TEST"), UInt16(Sig("ANAM"), "v"))
	w := NewWriter()
	w.WriteChunk(Sig("ANAM"), []byte{1, 2, 3})

	rec := NewRecord()
	schema.SetDefault(rec)
	if err := schema.LoadBody(rec, NewReader("test", w.Bytes()), nil); err == nil {
		t.Fatal("oversized scalar chunk must fail")
	}
}

func TestBaseAndNull(t *testing.T) {
	schema := mustSchema(t, Sig("TEST"),
		Base(Sig("MODT"), "model_data"),
		Null(Sig("OFST"), Sig("DELE")),
	)

	w := NewWriter()
	w.WriteChunk(Sig("OFST"), []byte{1, 2, 3})
	w.WriteChunk(Sig("MODT"), []byte{0xAA, 0xBB})
	w.WriteChunk(Sig("DELE"), nil)

	rec := loadBody(t, schema, w.Bytes(), nil)
	if !bytes.Equal(rec.Bytes("model_data"), []byte{0xAA, 0xBB}) {
		t.Errorf("model_data = %x", rec.Bytes("model_data"))
	}

	// Discarded chunks never come back; raw chunks do, verbatim.
	out := dumpBody(t, schema, rec, nil)
	want := NewWriter()
	want.WriteChunk(Sig("MODT"), []byte{0xAA, 0xBB})
	if !bytes.Equal(out, want.Bytes()) {
		t.Errorf("dump = %x, want only the MODT chunk", out)
	}
}

func TestReadOnly_NeverDumps(t *testing.T) {
	schema := mustSchema(t, Sig("TEST"),
		ReadOnly(UInt32(Sig("XCNT"), "legacy_count")),
	)

	w := NewWriter()
	w.WriteChunk(Sig("XCNT"), []byte{5, 0, 0, 0})

	rec := loadBody(t, schema, w.Bytes(), nil)
	if rec.Uint("legacy_count") != 5 {
		t.Errorf("legacy_count = %d, read-only must still load", rec.Uint("legacy_count"))
	}
	if out := dumpBody(t, schema, rec, nil); len(out) != 0 {
		t.Errorf("read-only element dumped %d bytes", len(out))
	}
}

func TestStrings_NulSeparatedList(t *testing.T) {
	schema := mustSchema(t, Sig("TEST"), Strings(Sig("KWDA"), "tags"))

	w := NewWriter()
	w.WriteChunk(Sig("KWDA"), []byte("one\x00two\x00"))

	rec := loadBody(t, schema, w.Bytes(), nil)
	tags, _ := rec.Get("tags").([]string)
	if len(tags) != 2 || tags[0] != "one" || tags[1] != "two" {
		t.Errorf("tags = %v", tags)
	}
	if out := dumpBody(t, schema, rec, nil); !bytes.Equal(out, w.Bytes()) {
		t.Error("string list did not round-trip byte-identically")
	}
}

func TestString_UnsetDumpsNothing(t *testing.T) {
	schema := mustSchema(t, Sig("TEST"), String(Sig("EDID"), "edid"))
	rec := NewRecord()
	schema.SetDefault(rec)
	if out := dumpBody(t, schema, rec, nil); len(out) != 0 {
		t.Errorf("unset string dumped %d bytes", len(out))
	}
}
