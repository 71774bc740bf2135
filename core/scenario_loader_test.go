package core

import (
	"reflect"
	"strings"
	"testing"

	"github.com/transitfoundry/metro-timeline/kb"
	"github.com/transitfoundry/metro-timeline/model"
)

const scenarioFixture = `{
  "lines": [
    {
      "id": "1",
      "color": "#d6231b",
      "stations": [{"name": "A"}, {"name": "B"}, {"name": "C"}]
    },
    {
      "id": "2",
      "dummy_ridership": 500,
      "stations": [{"name": "P"}, {"name": "Q"}],
      "routes": [[{"from": "P", "to": "Q"}]]
    }
  ]
}`

func TestLoadScenario(t *testing.T) {
	reg := kb.NewRegistry()
	summary, err := LoadScenario(reg, strings.NewReader(scenarioFixture))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}

	if want := []string{"1", "2"}; !reflect.DeepEqual(summary.LineIDs, want) {
		t.Fatalf("LineIDs = %v, want %v", summary.LineIDs, want)
	}
	if summary.Stations != 5 {
		t.Fatalf("Stations = %d, want 5", summary.Stations)
	}
	if summary.Routes != 2 {
		t.Fatalf("Routes = %d, want 2", summary.Routes)
	}

	def := reg.GetLine("2")
	if def == nil {
		t.Fatal("line 2 not registered")
	}
	if def.DummyRidership != 500 {
		t.Fatalf("DummyRidership = %v, want 500", def.DummyRidership)
	}
}

func TestLoadScenarioRejectsEmptyAndInvalid(t *testing.T) {
	if _, err := LoadScenario(kb.NewRegistry(), strings.NewReader(`{"lines": []}`)); err == nil {
		t.Fatal("expected error for empty scenario")
	}

	// Missing id fails struct validation.
	bad := `{"lines": [{"stations": [{"name": "A"}]}]}`
	if _, err := LoadScenario(kb.NewRegistry(), strings.NewReader(bad)); err == nil {
		t.Fatal("expected validation error for line without id")
	}

	// No stations fails the min=1 tag.
	bad = `{"lines": [{"id": "1", "stations": []}]}`
	if _, err := LoadScenario(kb.NewRegistry(), strings.NewReader(bad)); err == nil {
		t.Fatal("expected validation error for line without stations")
	}
}

func TestLoadEventsAcceptsMixedTargetForms(t *testing.T) {
	payload := `{
	  "events": [
	    {"date": "2000-01-01", "line": "1", "type": "open",
	     "stations": ["A", {"from": "B", "to": "D", "except": ["C"]}]},
	    {"date": "2000-02-01", "line": "1", "type": "suspend",
	     "stations": ["B"]}
	  ]
	}`

	events, err := LoadEvents(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	first := events[0]
	if first.Stations[0].Station != "A" {
		t.Fatalf("bare target = %+v, want station A", first.Stations[0])
	}
	rng := first.Stations[1]
	if rng.From != "B" || rng.To != "D" || !rng.Excludes("C") {
		t.Fatalf("range target = %+v", rng)
	}
}

func TestLoadEventsToleratesMalformedDates(t *testing.T) {
	// Date format problems are a runtime data-quality concern, not a load
	// failure; only missing required fields fail here.
	payload := `{"events": [{"date": "bogus", "line": "1", "type": "open", "stations": ["A"]}]}`
	events, err := LoadEvents(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(events) != 1 || events[0].Date != "bogus" {
		t.Fatalf("events = %+v", events)
	}
}

func TestLoadEventsRejectsInvalidType(t *testing.T) {
	payload := `{"events": [{"date": "2000-01-01", "line": "1", "type": "demolish", "stations": ["A"]}]}`
	if _, err := LoadEvents(strings.NewReader(payload)); err == nil {
		t.Fatal("expected validation error for unknown event type")
	}
}

func TestLoadRidership(t *testing.T) {
	payload := `{
	  "2000-01-01": {"1": 1200, "total": 1500},
	  "2000-01-02": {"1": 1300, "2": 400, "total": 1700}
	}`

	series, err := LoadRidership(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("LoadRidership: %v", err)
	}

	if got, ok := series.Lookup("2000-01-02", "2"); !ok || got != 400 {
		t.Fatalf("Lookup = %v, %v; want 400, true", got, ok)
	}
	if got, ok := series.Lookup("2000-01-01", model.TotalKey); !ok || got != 1500 {
		t.Fatalf("total Lookup = %v, %v; want 1500, true", got, ok)
	}
	if _, ok := series.Lookup("2000-01-01", "2"); ok {
		t.Fatal("expected missing line lookup to report false")
	}
	if want := []string{"2000-01-01", "2000-01-02"}; !reflect.DeepEqual(series.Dates(), want) {
		t.Fatalf("Dates = %v, want %v", series.Dates(), want)
	}
}
