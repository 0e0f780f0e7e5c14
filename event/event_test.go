package event

import (
	"encoding/json"
	"testing"
)

func TestIDUnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    ID
		wantErr bool
	}{
		{"integer", `{"id": 5164748}`, "5164748", false},
		{"string", `{"id": "abc-1"}`, "abc-1", false},
		{"padded string", `{"id": "  7 "}`, "7", false},
		{"null", `{"id": null}`, "", false},
		{"missing", `{}`, "", false},
		{"object", `{"id": {"x": 1}}`, "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got Event
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tt.want {
				t.Fatalf("ID = %q, want %q", got.ID, tt.want)
			}
		})
	}
}

func TestEventDiscardsUnknownFields(t *testing.T) {
	raw := `{"id": 1, "type": "concert", "datetime_utc": "2026-05-01T19:30:00",
		"title": "Show", "popularity": 0.72, "url": "https://example.com/e/1",
		"venue": {"name": "Hall"}, "performers": []}`

	var got Event
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	want := Event{ID: "1", Type: "concert", DatetimeUTC: "2026-05-01T19:30:00", Title: "Show", Popularity: 0.72, URL: "https://example.com/e/1"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestIDs(t *testing.T) {
	got := IDs([]Event{{ID: "1"}, {ID: "2"}})
	if len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Fatalf("unexpected ids: %v", got)
	}
}
