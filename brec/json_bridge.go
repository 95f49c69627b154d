package brec

import (
	"encoding/hex"
	"sort"

	json "github.com/goccy/go-json"
)

// MarshalRecord renders a loaded record as a JSON document for tooling:
// inspectors, diffs, test fixtures. Form ids render as their string form
// (long when resolved), flags as the list of set bit names, raw bytes as
// hex. The output is not a wire format and never round-trips.
func MarshalRecord(schema *RecordSchema, rec *Record) ([]byte, error) {
	doc := map[string]any{
		"record":       schema.Signature().String(),
		"form_id":      rec.Header.FormID.String(),
		"flags":        rec.Header.Flags.SetNames(),
		"form_version": rec.Header.FormVersion,
	}
	attrs := make(map[string]any)
	for _, slot := range schema.Slots() {
		if v := rec.Get(slot); v != nil {
			attrs[slot] = jsonValue(v)
		}
	}
	doc["attributes"] = attrs
	return json.MarshalIndent(doc, "", "  ")
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case FormID:
		return val.String()
	case Flags:
		return val.SetNames()
	case []byte:
		return hex.EncodeToString(val)
	case []FormID:
		out := make([]any, len(val))
		for i, fid := range val {
			out[i] = fid.String()
		}
		return out
	case *Record:
		return subRecordJSON(val)
	case []*Record:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = subRecordJSON(sub)
		}
		return out
	default:
		return v
	}
}

func subRecordJSON(sub *Record) map[string]any {
	out := make(map[string]any, len(sub.attrs))
	keys := make([]string, 0, len(sub.attrs))
	for k := range sub.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := sub.attrs[k]; v != nil {
			out[k] = jsonValue(v)
		}
	}
	return out
}
