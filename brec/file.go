package brec

import "fmt"

// GroupHeaderSize is the fixed on-disk size of a group header.
const GroupHeaderSize = 24

// Group type values of the container format.
const (
	GroupTop int32 = iota
	GroupWorldChildren
	GroupInteriorCellBlock
	GroupInteriorCellSubBlock
	GroupExteriorCellBlock
	GroupExteriorCellSubBlock
	GroupCellChildren
	GroupTopicChildren
	GroupCellPersistentChildren
	GroupCellTemporaryChildren
	GroupCellVisibleDistantChildren
)

var groupTypeNames = map[int32]string{
	GroupTop:                        "Top",
	GroupWorldChildren:              "World Children",
	GroupInteriorCellBlock:          "Interior Cell Block",
	GroupInteriorCellSubBlock:       "Interior Cell Sub-Block",
	GroupExteriorCellBlock:          "Exterior Cell Block",
	GroupExteriorCellSubBlock:       "Exterior Cell Sub-Block",
	GroupCellChildren:               "Cell Children",
	GroupTopicChildren:              "Topic Children",
	GroupCellPersistentChildren:     "Cell Persistent Children",
	GroupCellTemporaryChildren:      "Cell Temporary Children",
	GroupCellVisibleDistantChildren: "Cell Visible Distant Children",
}

// GroupHeader is the fixed prefix of a GRUP chunk. Unlike records, the
// size field covers the header itself.
type GroupHeader struct {
	Size      uint32
	Label     [4]byte
	GroupType int32
	Stamp     uint32
	Version   uint32
}

// ReadGroupHeader reads one group header off the cursor.
func ReadGroupHeader(r *Reader) (GroupHeader, error) {
	b, err := r.Read(GroupHeaderSize)
	if err != nil {
		return GroupHeader{}, err
	}
	if sig := (Signature{b[0], b[1], b[2], b[3]}); sig != SigGroup {
		return GroupHeader{}, &FormatError{Sig: sig, Offset: r.Offset(),
			Reason: "expected group chunk"}
	}
	return GroupHeader{
		Size:      wire.Uint32(b[4:]),
		Label:     [4]byte{b[8], b[9], b[10], b[11]},
		GroupType: int32(wire.Uint32(b[12:])),
		Stamp:     wire.Uint32(b[16:]),
		Version:   wire.Uint32(b[20:]),
	}, nil
}

// TypeName returns the human-readable group kind.
func (h GroupHeader) TypeName() string {
	if n, ok := groupTypeNames[h.GroupType]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(%d)", h.GroupType)
}

// LabelSig returns the label reinterpreted as a record signature, which
// is what it holds for top groups.
func (h GroupHeader) LabelSig() Signature {
	return Signature(h.Label)
}

// WalkFile iterates every record frame in a file image: the header
// record, then the group tree, groups traversed recursively. fn receives
// each record's header and raw (possibly compressed) payload. Framing
// errors abort the walk; fn's own errors do too, so callers wanting
// skip-and-report behavior handle that inside fn.
func WalkFile(name string, data []byte, fn func(RecordHeader, []byte) error) error {
	r := NewReader(name, data)
	for r.Remaining() > 0 {
		peeked, err := r.Peek(4)
		if err != nil {
			return err
		}
		sig, _ := SigFromBytes(peeked)
		if sig == SigGroup {
			gh, err := ReadGroupHeader(r)
			if err != nil {
				return err
			}
			if int(gh.Size) < GroupHeaderSize {
				return &FormatError{Sig: SigGroup, Offset: r.Offset(), Reason: fmt.Sprintf(
					"group size %d smaller than its header", gh.Size)}
			}
			inner, err := r.Read(int(gh.Size) - GroupHeaderSize)
			if err != nil {
				return err
			}
			if err := WalkFile(name, inner, fn); err != nil {
				return err
			}
			continue
		}
		hdr, err := ReadRecordHeader(r)
		if err != nil {
			return err
		}
		payload, err := r.Read(int(hdr.DataSize))
		if err != nil {
			return err
		}
		if err := fn(hdr, payload); err != nil {
			return err
		}
	}
	return nil
}
