package brec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrState is returned for caller-side ordering bugs: FormID resolution
// with no active context, a context used in the wrong direction, or the
// None sentinel dumped through a real reference slot. It never indicates
// bad input data.
var ErrState = errors.New("brec: state error")

// FormatError reports malformed chunk data: an unknown signature, a
// truncated payload, or a union key that matches no case. It is fatal for
// the record being loaded; callers at file granularity are expected to
// skip and report the file.
type FormatError struct {
	Sig    Signature // offending chunk, zero if not chunk-specific
	Offset int64     // byte offset in the input, -1 if unknown
	Reason string
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("brec: ")
	b.WriteString(e.Reason)
	if !e.Sig.IsZero() {
		fmt.Fprintf(&b, " [%s]", e.Sig)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset 0x%X", e.Offset)
	}
	return b.String()
}

// SizeError reports a struct chunk whose length matches none of its
// accepted layouts.
type SizeError struct {
	Sig      Signature
	Accepted []int
	Actual   int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("brec: %s: expected chunk of size %v, got %d",
		e.Sig, e.Accepted, e.Actual)
}

func stateErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}
