package brec

import (
	"testing"

	json "github.com/goccy/go-json"
)

func TestMarshalRecord(t *testing.T) {
	schema := ammoSchema(t)
	rec := ammoRecord(t, schema)

	out, err := MarshalRecord(schema, rec)
	if err != nil {
		t.Fatalf("MarshalRecord failed: %v", err)
	}

	var doc struct {
		Record     string         `json:"record"`
		FormID     string         `json:"form_id"`
		Attributes map[string]any `json:"attributes"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if doc.Record != "AMMO" {
		t.Errorf("record = %q", doc.Record)
	}
	if doc.FormID != "01000DD2" {
		t.Errorf("form_id = %q", doc.FormID)
	}
	if doc.Attributes["edid"] != "IronArrow" {
		t.Errorf("edid = %v", doc.Attributes["edid"])
	}
	// Long-form references render as their readable identity.
	if doc.Attributes["script"] != "(Bar.esp, 000123)" {
		t.Errorf("script = %v", doc.Attributes["script"])
	}
	kw, ok := doc.Attributes["keywords"].([]any)
	if !ok || len(kw) != 2 {
		t.Errorf("keywords = %v", doc.Attributes["keywords"])
	}
}
