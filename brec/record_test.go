package brec

import (
	"bytes"
	"errors"
	"testing"
)

func ammoSchema(t *testing.T) *RecordSchema {
	return mustSchema(t, Sig("AMMO"),
		String(Sig("EDID"), "edid"),
		Struct(Sig("DATA"),
			U32("value"),
			F32("weight"),
			FidField("projectile"),
		),
		Fid(Sig("SCRI"), "script"),
		Sequential(
			Counter(Sig("KSIZ"), "keyword_count", "keywords"),
			Sorted(FidArray(Sig("KWDA"), "keywords")),
		),
	)
}

func ammoRecord(t *testing.T, schema *RecordSchema) *Record {
	t.Helper()
	rec := NewRecord()
	schema.SetDefault(rec)
	rec.Header = RecordHeader{
		Sig:         Sig("AMMO"),
		Flags:       NewFlags(RecordFlagDefs, 0),
		FormID:      FromShort(0x01000DD2),
		FormVersion: 44,
	}
	rec.Set("edid", "IronArrow")
	rec.Set("value", uint32(5))
	rec.Set("weight", float32(0.1))
	rec.Set("projectile", FromShort(0x00000C99))
	rec.Set("script", FromLong("Bar.esp", 0x123))
	rec.Set("keywords", []FormID{FromShort(2), FromShort(1)})
	return rec
}

func TestRecord_RoundTrip(t *testing.T) {
	schema := ammoSchema(t)
	rec := ammoRecord(t, schema)
	masters := []string{"Foo.esm", "Bar.esp"}

	raw, err := DumpRecord(schema, rec, NewDumpContext(masters))
	if err != nil {
		t.Fatalf("DumpRecord failed: %v", err)
	}

	loaded, err := LoadRecord(schema, NewReader("test.esp", raw), NewLoadContext(masters))
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}

	if loaded.Header.Sig != Sig("AMMO") || loaded.Header.FormVersion != 44 {
		t.Errorf("header = %+v", loaded.Header)
	}
	if int(loaded.Header.DataSize) != len(raw)-RecordHeaderSize {
		t.Errorf("DataSize %d does not cover the %d payload bytes",
			loaded.Header.DataSize, len(raw)-RecordHeaderSize)
	}
	if loaded.Str("edid") != "IronArrow" || loaded.Uint("value") != 5 {
		t.Errorf("edid=%q value=%d", loaded.Str("edid"), loaded.Uint("value"))
	}
	if loaded.Float("weight") != 0.1 {
		t.Errorf("weight = %v", loaded.Float("weight"))
	}
	// The long-form reference narrowed against the output masters.
	if !loaded.Fid("script").Eq(FromShort(0x01000123)) {
		t.Errorf("script = %s", loaded.Fid("script"))
	}
	// The keyword list was sorted on the way out.
	kw := loaded.Fids("keywords")
	if len(kw) != 2 || !kw[0].Eq(FromShort(1)) || !kw[1].Eq(FromShort(2)) {
		t.Errorf("keywords = %v", kw)
	}

	// A second dump of the loaded record is byte-identical.
	again, err := DumpRecord(schema, loaded, NewDumpContext(masters))
	if err != nil {
		t.Fatalf("second DumpRecord failed: %v", err)
	}
	if !bytes.Equal(raw, again) {
		t.Error("dump-load-dump is not idempotent")
	}
}

func TestRecord_Compressed(t *testing.T) {
	schema := ammoSchema(t)
	rec := ammoRecord(t, schema)
	rec.Header.Flags = rec.Header.Flags.With("compressed", true)
	masters := []string{"Foo.esm", "Bar.esp"}

	raw, err := DumpRecord(schema, rec, NewDumpContext(masters))
	if err != nil {
		t.Fatalf("DumpRecord failed: %v", err)
	}
	if wire.Uint32(raw[8:])&(1<<18) == 0 {
		t.Fatal("compressed flag bit missing from the dumped header")
	}

	loaded, err := LoadRecord(schema, NewReader("test.esp", raw), NewLoadContext(masters))
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if loaded.Str("edid") != "IronArrow" || loaded.Uint("value") != 5 {
		t.Errorf("compressed payload did not survive: edid=%q value=%d",
			loaded.Str("edid"), loaded.Uint("value"))
	}
	if !loaded.Header.Flags.Has("compressed") {
		t.Error("loaded header lost the compressed flag")
	}
}

func TestRecord_UnknownSubrecord(t *testing.T) {
	schema := ammoSchema(t)
	w := NewWriter()
	w.WriteChunk(Sig("ZZZZ"), []byte{1, 2})

	rec := NewRecord()
	schema.SetDefault(rec)
	err := schema.LoadBody(rec, NewReader("test", w.Bytes()), nil)

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("got %v, want FormatError", err)
	}
	if formatErr.Sig != Sig("ZZZZ") {
		t.Errorf("error names %s, want the offending ZZZZ", formatErr.Sig)
	}
}

func TestRecord_SignatureMismatch(t *testing.T) {
	schema := ammoSchema(t)
	rec := ammoRecord(t, schema)
	masters := []string{"Foo.esm", "Bar.esp"}

	raw, err := DumpRecord(schema, rec, NewDumpContext(masters))
	if err != nil {
		t.Fatal(err)
	}

	other := mustSchema(t, Sig("WEAP"), String(Sig("EDID"), "edid"))
	var formatErr *FormatError
	if _, err := LoadRecord(other, NewReader("test.esp", raw), NewLoadContext(masters)); !errors.As(err, &formatErr) {
		t.Fatalf("got %v, want FormatError", err)
	}
}

func TestRecord_NoneFidRejectedOnDump(t *testing.T) {
	schema := ammoSchema(t)
	rec := ammoRecord(t, schema)
	rec.Set("script", NoneFid())

	_, err := DumpRecord(schema, rec, NewDumpContext([]string{"Foo.esm", "Bar.esp"}))
	if !errors.Is(err, ErrState) {
		t.Errorf("dumping the None sentinel through a reference slot: got %v, want ErrState", err)
	}
}

func TestRecord_Remap(t *testing.T) {
	schema := ammoSchema(t)
	rec := ammoRecord(t, schema)
	oldMasters := []string{"Foo.esm", "Bar.esp"}

	raw, err := DumpRecord(schema, rec, NewDumpContext(oldMasters))
	if err != nil {
		t.Fatal(err)
	}
	loadCtx := NewLoadContext(oldMasters)
	loaded, err := LoadRecord(schema, NewReader("test.esp", raw), loadCtx)
	if err != nil {
		t.Fatal(err)
	}

	// Widen every reference so the load context can be dropped.
	Remap(schema, loaded, func(f FormID) FormID {
		resolved, err := f.Resolve(loadCtx)
		if err != nil {
			t.Fatalf("Resolve(%s) failed: %v", f, err)
		}
		return resolved
	})
	if !loaded.Header.FormID.Eq(FromLong("Bar.esp", 0xDD2)) {
		t.Errorf("header fid = %s", loaded.Header.FormID)
	}
	if !loaded.Fid("script").Eq(FromLong("Bar.esp", 0x123)) {
		t.Errorf("script = %s", loaded.Fid("script"))
	}
	if !loaded.Fid("projectile").Eq(FromLong("Foo.esm", 0xC99)) {
		t.Errorf("projectile = %s", loaded.Fid("projectile"))
	}

	// Narrowing against a reordered master table repacks every short form.
	newMasters := []string{"Bar.esp", "Foo.esm"}
	out, err := DumpRecord(schema, loaded, NewDumpContext(newMasters))
	if err != nil {
		t.Fatalf("DumpRecord after remap failed: %v", err)
	}
	if got := wire.Uint32(out[12:]); got != 0x00000DD2 {
		t.Errorf("header fid repacked to %08X, want 00000DD2", got)
	}
}

func TestWalkFile(t *testing.T) {
	masters := []string{"Foo.esm", "Bar.esp"}

	headerSchema := mustSchema(t, Sig("TES4"), String(Sig("CNAM"), "author"))
	headerRec := NewRecord()
	headerSchema.SetDefault(headerRec)
	headerRec.Header = RecordHeader{Sig: Sig("TES4"), Flags: NewFlags(RecordFlagDefs, 0)}
	headerRec.Set("author", "someone")
	headerRaw, err := DumpRecord(headerSchema, headerRec, NewDumpContext(masters))
	if err != nil {
		t.Fatal(err)
	}

	schema := ammoSchema(t)
	ammoRaw, err := DumpRecord(schema, ammoRecord(t, schema), NewDumpContext(masters))
	if err != nil {
		t.Fatal(err)
	}

	var file bytes.Buffer
	file.Write(headerRaw)
	var gh [GroupHeaderSize]byte
	copy(gh[:4], SigGroup[:])
	wire.PutUint32(gh[4:], uint32(GroupHeaderSize+len(ammoRaw)))
	copy(gh[8:12], "AMMO")
	wire.PutUint32(gh[12:], uint32(GroupTop))
	file.Write(gh[:])
	file.Write(ammoRaw)

	var seen []Signature
	err = WalkFile("test.esp", file.Bytes(), func(hdr RecordHeader, payload []byte) error {
		if int(hdr.DataSize) != len(payload) {
			t.Errorf("%s: payload %d bytes, header says %d", hdr.Sig, len(payload), hdr.DataSize)
		}
		seen = append(seen, hdr.Sig)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkFile failed: %v", err)
	}
	if len(seen) != 2 || seen[0] != Sig("TES4") || seen[1] != Sig("AMMO") {
		t.Errorf("walked %v, want [TES4 AMMO]", seen)
	}
}
