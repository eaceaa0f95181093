package apiclient

import (
	"encoding/json"
	"testing"
)

func TestDecodePage_LegacyShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLen   int
		wantTotal int
		wantPages int
	}{
		{"nested data envelope", `{"data":{"content":[{"id":1},{"id":2}],"totalElements":12,"totalPages":6}}`, 2, 12, 6},
		{"bare content", `{"content":[{"id":"a"}],"totalPages":3}`, 1, 1, 3},
		{"data list", `{"data":[{"id":1},{"id":2},{"id":3}]}`, 3, 3, 1},
		{"bare array", `[{"id":1}]`, 1, 1, 1},
		{"empty array", `[]`, 0, 0, 0},
		{"empty body", ``, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := DecodePage[doctor]([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(page.Content) != tt.wantLen {
				t.Errorf("expected %d rows, got %d", tt.wantLen, len(page.Content))
			}
			if page.TotalElements != tt.wantTotal {
				t.Errorf("expected total %d, got %d", tt.wantTotal, page.TotalElements)
			}
			if page.TotalPages != tt.wantPages {
				t.Errorf("expected %d pages, got %d", tt.wantPages, page.TotalPages)
			}
			if page.Content == nil {
				t.Error("content must never be nil")
			}
		})
	}
}

func TestDecodePage_Malformed(t *testing.T) {
	if _, err := DecodePage[doctor]([]byte(`{"content":"nope"}`)); err == nil {
		t.Error("expected error for non-list content")
	}
}

func TestDecodeOne(t *testing.T) {
	d, err := DecodeOne[doctor]([]byte(`{"data":{"id":3,"name":"A"}}`))
	if err != nil || d == nil || d.ID != "3" {
		t.Fatalf("expected unwrapped record, got %+v %v", d, err)
	}

	type withData struct {
		ID   ID              `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	w, err := DecodeOne[withData]([]byte(`{"id":"9","data":{"k":1}}`))
	if err != nil || w.ID != "9" {
		t.Fatalf("records with an id must not be unwrapped, got %+v %v", w, err)
	}

	none, err := DecodeOne[doctor](nil)
	if err != nil || none != nil {
		t.Errorf("expected nil for empty body, got %+v %v", none, err)
	}
}

func TestID_Unmarshal(t *testing.T) {
	var ids []ID
	if err := json.Unmarshal([]byte(`[12, "abc", null]`), &ids); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids[0] != "12" || ids[1] != "abc" || ids[2] != "" {
		t.Errorf("unexpected ids %v", ids)
	}
	if n, ok := ids[0].Int(); !ok || n != 12 {
		t.Errorf("expected numeric id 12, got %d %v", n, ok)
	}
	if _, ok := ids[1].Int(); ok {
		t.Error("expected non-numeric id")
	}
}
