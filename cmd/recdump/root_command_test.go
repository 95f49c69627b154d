package main

import (
	"strings"
	"testing"

	"github.com/clayne/brec/brec"
)

func headerFixture(t *testing.T) []byte {
	t.Helper()
	rec := brec.NewRecord()
	fileHeaderSchema.SetDefault(rec)
	rec.Header = brec.RecordHeader{
		Sig:   brec.Sig("TES4"),
		Flags: brec.NewFlags(brec.RecordFlagDefs, 0),
	}
	rec.Set("version", float32(1.0))
	rec.Set("num_records", uint32(12))
	rec.Set("author", "someone")

	master := brec.NewRecord()
	master.Set("name", "Foo.esm")
	master.Set("size", make([]byte, 8))
	rec.Set("masters", []*brec.Record{master})

	raw, err := brec.DumpRecord(fileHeaderSchema, rec, brec.NewDumpContext([]string{"out.esp"}))
	if err != nil {
		t.Fatalf("building header fixture: %v", err)
	}
	return raw
}

func TestHeaderSchemaRoundTrip(t *testing.T) {
	raw := headerFixture(t)

	loaded, err := brec.LoadRecord(fileHeaderSchema, brec.NewReader("out.esp", raw),
		brec.NewLoadContext([]string{"out.esp"}))
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if loaded.Uint("num_records") != 12 || loaded.Str("author") != "someone" {
		t.Errorf("num_records=%d author=%q", loaded.Uint("num_records"), loaded.Str("author"))
	}
	masters := loaded.List("masters")
	if len(masters) != 1 || masters[0].Str("name") != "Foo.esm" {
		t.Errorf("masters = %v", masters)
	}
}

func TestCountRecords(t *testing.T) {
	raw := headerFixture(t)

	counts, err := countRecords("out.esp", raw)
	if err != nil {
		t.Fatalf("countRecords failed: %v", err)
	}
	if len(counts) != 1 || counts[0].sig != brec.Sig("TES4") || counts[0].records != 1 {
		t.Fatalf("counts = %+v", counts)
	}
	if counts[0].bytes != len(raw) {
		t.Errorf("counted %d bytes, file has %d", counts[0].bytes, len(raw))
	}

	out := renderCounts(counts)
	if !strings.Contains(out, "TES4") || !strings.Contains(out, "RECORDS") {
		t.Errorf("rendered table missing expected cells:\n%s", out)
	}
}
