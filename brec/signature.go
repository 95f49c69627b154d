package brec

import "fmt"

// Signature is the fixed 4-byte tag identifying a chunk type. It routes a
// chunk to exactly one Element at each nesting level.
type Signature [4]byte

// Sig builds a Signature from a 4-character string. It panics on any other
// length: signatures only ever appear in schema declarations, so a bad one
// is a programmer error, not input data.
func Sig(s string) Signature {
	if len(s) != 4 {
		panic(fmt.Sprintf("brec: signature must be 4 bytes, got %q", s))
	}
	return Signature{s[0], s[1], s[2], s[3]}
}

// SigFromBytes reads a Signature from the first 4 bytes of b.
func SigFromBytes(b []byte) (Signature, error) {
	if len(b) < 4 {
		return Signature{}, &FormatError{Reason: "truncated signature"}
	}
	return Signature{b[0], b[1], b[2], b[3]}, nil
}

// String returns the tag as text, with non-printable bytes hex-escaped.
func (s Signature) String() string {
	for _, c := range s {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("%02X%02X%02X%02X", s[0], s[1], s[2], s[3])
		}
	}
	return string(s[:])
}

// IsZero reports whether s is the zero signature.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// Well-known signatures of the container format itself.
var (
	// SigGroup tags group chunks, which nest records and other groups.
	SigGroup = Sig("GRUP")
	// SigOversize tags the chunk that carries the real 32-bit size of the
	// following subrecord, whose own size field is then zero.
	SigOversize = Sig("XXXX")
)
