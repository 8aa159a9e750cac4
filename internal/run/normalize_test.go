package run

import (
	"encoding/json"
	"testing"

	"github.com/streetrush/backend/internal/models"
)

func TestNormalizeResponse(t *testing.T) {
	tests := []struct {
		name    string
		format  models.QuestionFormat
		raw     string
		want    string
		wantErr bool
	}{
		{"single choice upper", models.FormatSingleChoice, `"b"`, "B", false},
		{"single choice trims", models.FormatSingleChoice, `" C "`, "C", false},
		{"single choice rejects array", models.FormatSingleChoice, `["A"]`, "", true},

		{"multi select sorts", models.FormatMultiSelect, `["C","a"]`, "A,C", false},
		{"multi select dedupes", models.FormatMultiSelect, `["B","b","B"]`, "B", false},
		{"multi select drops blanks", models.FormatMultiSelect, `["A","","C"]`, "A,C", false},
		{"multi select rejects string", models.FormatMultiSelect, `"A"`, "", true},

		{"free fill lowercases", models.FormatFreeFill, `"Goldman Sachs"`, "goldman sachs", false},
		{"free fill collapses whitespace", models.FormatFreeFill, `"  goldman   sachs  "`, "goldman sachs", false},

		{"ordered sequence keeps order", models.FormatOrderedSequence, `["c","a","b"]`, "C,A,B", false},
		{"ordered sequence rejects object", models.FormatOrderedSequence, `{"a":1}`, "", true},

		{"unknown format", models.QuestionFormat("essay"), `"x"`, "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeResponse(tt.format, json.RawMessage(tt.raw))
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got %q", tt.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

// Order and casing must not matter for multi_select: ["B","a"] and ["A","b"]
// are the same answer.
func TestMultiSelectOrderIndependence(t *testing.T) {
	a, err := NormalizeResponse(models.FormatMultiSelect, json.RawMessage(`["B","a"]`))
	if err != nil {
		t.Fatal(err)
	}
	b, err := NormalizeResponse(models.FormatMultiSelect, json.RawMessage(`["A","b"]`))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("equivalent multi_select responses normalized differently: %q vs %q", a, b)
	}
}

func TestNormalizeKeyMatchesResponseNormalization(t *testing.T) {
	tests := []struct {
		format models.QuestionFormat
		key    string
		raw    string
	}{
		{models.FormatSingleChoice, "b", `"B"`},
		{models.FormatMultiSelect, "c,a", `["A","C"]`},
		{models.FormatFreeFill, "Goldman  Sachs", `"goldman sachs"`},
		{models.FormatOrderedSequence, "a, b, c", `["A","B","C"]`},
	}

	for _, tt := range tests {
		key := NormalizeKey(tt.format, tt.key)
		resp, err := NormalizeResponse(tt.format, json.RawMessage(tt.raw))
		if err != nil {
			t.Fatalf("%s: %v", tt.format, err)
		}
		if key != resp {
			t.Errorf("%s: key %q normalized to %q but response normalized to %q", tt.format, tt.key, key, resp)
		}
	}
}
