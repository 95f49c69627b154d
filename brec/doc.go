// Package brec implements a declarative codec for signature-tagged binary
// record files, the chunked container format used by Bethesda-style game
// plugins.
//
// A file is a header record followed by groups; a record is a chunk whose
// payload is a run of subrecord chunks. Every chunk is a 4-byte signature,
// a length field, and exactly length bytes of payload.
//
// Record layouts are described once, as a tree of Elements:
//
//	schema, _ := NewRecordSchema(Sig("AMMO"),
//	    String(Sig("EDID"), "eid"),
//	    Struct(Sig("DATA"),
//	        FidField("projectile"),
//	        F32("ammo_weight"),
//	        U32("ammo_value"),
//	    ).Truncated(2),
//	)
//
// The same tree drives both directions: Load populates a Record's
// attributes from bytes, Dump serializes them back to canonical, byte-stable
// output (sorted collections, recomputed counters, full-size structs for
// legacy truncated layouts).
//
// # Form identifiers
//
// Cross-file references are FormID values. On disk they are packed 32-bit
// integers whose high byte indexes the file's master list; in memory the
// stable identity is the long form (master name, object index). Conversion
// in either direction requires a Context built for the current load or dump
// session; there is no global resolver state.
//
// # Unions
//
// Subrecords whose layout depends on runtime state are described with
// UnionOf plus a Decider: a previously loaded attribute, a peeked prefix of
// the chunk itself, a named flag, or the save-vs-plugin file kind.
//
// # Errors
//
// Malformed input surfaces as *FormatError or *SizeError and is fatal for
// the record being loaded. Misuse of the API (resolving a FormID with no
// context, dumping the None sentinel through a real reference slot) is
// ErrState.
package brec
