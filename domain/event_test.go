package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPriceUnmarshalNumber(t *testing.T) {
	var p Price
	if err := json.Unmarshal([]byte(`19.99`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p != 19.99 {
		t.Fatalf("unexpected price: %v", p)
	}
}

func TestPriceUnmarshalNumericString(t *testing.T) {
	var p Price
	if err := json.Unmarshal([]byte(`"19.99"`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p != 19.99 {
		t.Fatalf("unexpected price: %v", p)
	}
}

func TestPriceUnmarshalEmptyString(t *testing.T) {
	var p Price = 5
	if err := json.Unmarshal([]byte(`""`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p != 0 {
		t.Fatalf("expected zero price, got %v", p)
	}
}

func TestPriceUnmarshalRejectsNonNumeric(t *testing.T) {
	var p Price
	if err := json.Unmarshal([]byte(`"free"`), &p); err == nil {
		t.Fatal("expected error for non-numeric price")
	}
}

func TestDraftValidate(t *testing.T) {
	valid := Draft{Title: "Gala", ShortDescription: "short", FullDescription: "full", Date: "2026-09-01", Price: 10}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name  string
		draft Draft
	}{
		{"missing title", Draft{ShortDescription: "s", FullDescription: "f", Date: "d"}},
		{"missing short description", Draft{Title: "t", FullDescription: "f", Date: "d"}},
		{"missing full description", Draft{Title: "t", ShortDescription: "s", Date: "d"}},
		{"missing date", Draft{Title: "t", ShortDescription: "s", FullDescription: "f"}},
		{"negative price", Draft{Title: "t", ShortDescription: "s", FullDescription: "f", Date: "d", Price: -1}},
	}
	for _, tc := range cases {
		if err := tc.draft.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestApplyPreservesImmutableFields(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ev := Event{ID: "ev-1", OwnerID: "user-1", CreatedAt: created, Title: "Old"}

	ev.Apply(Fields{Title: "New", ShortDescription: "s", FullDescription: "f", Date: "2026-09-01", Price: 25})

	if ev.ID != "ev-1" || ev.OwnerID != "user-1" || !ev.CreatedAt.Equal(created) {
		t.Fatalf("immutable fields changed: %+v", ev)
	}
	if ev.Title != "New" || ev.Price != 25 {
		t.Fatalf("mutable fields not applied: %+v", ev)
	}
}

func TestEventCreatedAtSerializesISO8601(t *testing.T) {
	ev := Event{ID: "1", CreatedAt: time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC)}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["createdAt"] != "2026-08-30T10:30:00Z" {
		t.Fatalf("unexpected createdAt encoding: %v", raw["createdAt"])
	}
}
