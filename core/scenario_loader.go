package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/transitfoundry/metro-timeline/kb"
	"github.com/transitfoundry/metro-timeline/model"
)

// ScenarioSummary is a small summary of what was loaded, mainly useful
// for startup logging from main().
type ScenarioSummary struct {
	LineIDs  []string
	Stations int
	Routes   int
}

type scenarioJSON struct {
	Lines []*model.LineDefinition `json:"lines"`
}

type eventsJSON struct {
	Events []model.Event `json:"events"`
}

// LoadScenario reads line metadata from JSON and registers every line in
// the registry. Decoded definitions are validated before registration;
// any failure is structural and aborts the load.
func LoadScenario(reg *kb.Registry, r io.Reader) (*ScenarioSummary, error) {
	if reg == nil {
		return nil, fmt.Errorf("LoadScenario: registry is nil")
	}

	var payload scenarioJSON
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}
	if len(payload.Lines) == 0 {
		return nil, fmt.Errorf("LoadScenario: scenario has no lines")
	}

	v := validator.New()
	summary := &ScenarioSummary{LineIDs: make([]string, 0, len(payload.Lines))}
	for _, def := range payload.Lines {
		if def == nil {
			return nil, fmt.Errorf("LoadScenario: nil line entry")
		}
		if err := v.Struct(def); err != nil {
			return nil, fmt.Errorf("LoadScenario: line %q: %w", def.ID, err)
		}
		if err := reg.AddLine(def); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		summary.LineIDs = append(summary.LineIDs, def.ID)
		summary.Stations += len(def.Stations)
		if n := len(def.Routes); n > 0 {
			summary.Routes += n
		} else {
			summary.Routes++
		}
	}
	return summary, nil
}

// LoadEvents reads the ordered-by-date event list from JSON. Events are
// validated structurally; date format is deliberately not checked here
// because malformed dates are a data-quality condition handled (skipped
// with a warning) during the simulation, not a load failure.
func LoadEvents(r io.Reader) ([]model.Event, error) {
	var payload eventsJSON
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadEvents: decode failed: %w", err)
	}

	v := validator.New()
	for i := range payload.Events {
		if err := v.Struct(&payload.Events[i]); err != nil {
			return nil, fmt.Errorf("LoadEvents: event %d: %w", i, err)
		}
	}
	return payload.Events, nil
}

// LoadRidership reads the pre-aggregated daily ridership mapping from
// JSON: ISO date to per-line figures, with the reserved "total" key for
// system-wide ridership.
func LoadRidership(r io.Reader) (model.RidershipSeries, error) {
	var series model.RidershipSeries
	if err := json.NewDecoder(r).Decode(&series); err != nil {
		return nil, fmt.Errorf("LoadRidership: decode failed: %w", err)
	}
	return series, nil
}
