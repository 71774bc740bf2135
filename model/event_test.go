package model

import (
	"encoding/json"
	"testing"
)

func TestTargetRefUnmarshalBareString(t *testing.T) {
	var ref TargetRef
	if err := json.Unmarshal([]byte(`"Founders Square"`), &ref); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ref.Station != "Founders Square" || ref.IsRange() {
		t.Fatalf("ref = %+v, want bare station", ref)
	}
}

func TestTargetRefUnmarshalRange(t *testing.T) {
	var ref TargetRef
	raw := `{"from": "A", "to": "D", "except": ["B"]}`
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !ref.IsRange() || ref.From != "A" || ref.To != "D" {
		t.Fatalf("ref = %+v, want A..D range", ref)
	}
	if !ref.Excludes("B") || ref.Excludes("C") {
		t.Fatalf("except handling wrong: %+v", ref)
	}
}

func TestTargetRefUnmarshalRejectsPartialRange(t *testing.T) {
	var ref TargetRef
	if err := json.Unmarshal([]byte(`{"from": "A"}`), &ref); err == nil {
		t.Fatal("expected error for range without to")
	}
}

func TestRouteRefUnmarshalForms(t *testing.T) {
	var spec []RouteRef
	raw := `["A", {"from": "B", "to": "D"}]`
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(spec) != 2 {
		t.Fatalf("spec = %+v, want 2 refs", spec)
	}
	if spec[0].Station != "A" || spec[0].IsRange() {
		t.Fatalf("bare ref = %+v", spec[0])
	}
	if !spec[1].IsRange() || spec[1].From != "B" || spec[1].To != "D" {
		t.Fatalf("range ref = %+v", spec[1])
	}
}

func TestLineDefinitionStationNames(t *testing.T) {
	def := LineDefinition{
		ID: "1",
		Stations: []StationDefinition{
			{Name: "A", Translation: "Alpha"},
			{Name: "B"},
		},
	}
	names := def.StationNames()
	if len(names) != 2 || names[0] != "A" || names[1] != "B" {
		t.Fatalf("names = %v", names)
	}
}
