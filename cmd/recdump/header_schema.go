package main

import "github.com/clayne/brec/brec"

// fileHeaderSchema describes the TES4 file header record: format version,
// record inventory hints, authorship strings and the master file table.
var fileHeaderSchema = mustSchema(brec.NewRecordSchema(brec.Sig("TES4"),
	brec.Struct(brec.Sig("HEDR"),
		brec.F32("version"),
		brec.U32("num_records"),
		brec.U32("next_object_id"),
	),
	brec.String(brec.Sig("CNAM"), "author"),
	brec.String(brec.Sig("SNAM"), "description"),
	brec.Groups("masters",
		brec.String(brec.Sig("MAST"), "name"),
		brec.Base(brec.Sig("DATA"), "size"),
	),
	brec.Null(brec.Sig("INTV"), brec.Sig("INCC"), brec.Sig("ONAM"), brec.Sig("OFST"), brec.Sig("DELE")),
))

func mustSchema(s *brec.RecordSchema, err error) *brec.RecordSchema {
	if err != nil {
		panic(err)
	}
	return s
}
