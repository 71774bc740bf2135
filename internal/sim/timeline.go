// Package sim contains the simulation orchestrator and its output timeline
// document.
package sim

import (
	"encoding/json"
	"io"
)

// StatePoint records a service-state change on a given day index.
type StatePoint struct {
	Day   int    `json:"day"`
	State string `json:"state"`
}

// PositionPoint records a station position change on a given day index.
type PositionPoint struct {
	Day int     `json:"day"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

// SegmentPoint is one contiguous run of stations sharing an edge state.
type SegmentPoint struct {
	State    string   `json:"state"`
	Stations []string `json:"stations"`
}

// RoutePoint records a route-segment structure change on a given day index.
type RoutePoint struct {
	Day      int            `json:"day"`
	Segments []SegmentPoint `json:"segments"`
}

// StationTimeline holds the sparse change-point series for one station.
type StationTimeline struct {
	States    []StatePoint    `json:"states,omitempty"`
	Positions []PositionPoint `json:"positions,omitempty"`
}

// LineTimeline holds the sparse change-point series and ridership for one
// line. Ridership is aligned to FirstDay: Ridership[0] is the figure for
// the day the line first opened. FirstDay is -1 for lines that never open
// within the simulated range.
type LineTimeline struct {
	Color     string                      `json:"color,omitempty"`
	X         float64                     `json:"x"`
	FirstDay  int                         `json:"firstDay"`
	Ridership []float64                   `json:"ridership,omitempty"`
	States    []StatePoint                `json:"states,omitempty"`
	Routes    []RoutePoint                `json:"routes,omitempty"`
	Stations  map[string]*StationTimeline `json:"stations"`
}

// Timeline is the full output document. Consumers reconstruct the state at
// day D by taking the last change point with day <= D, defaulting to
// "never" (or an empty segment list) before the first point.
type Timeline struct {
	Days  []string                 `json:"days"`
	Total []float64                `json:"total"`
	Lines map[string]*LineTimeline `json:"lines"`
}

// Encode writes the timeline as indented JSON. Map keys serialize in
// sorted order, so identical runs produce byte-identical documents.
func (t *Timeline) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// StateAt reconstructs the state recorded at day index from a sparse
// series: the last point with Day <= day wins, "never" before the first.
func StateAt(points []StatePoint, day int) string {
	state := "never"
	for _, p := range points {
		if p.Day > day {
			break
		}
		state = p.State
	}
	return state
}

// station returns the station timeline for name, creating it on first use.
func (lt *LineTimeline) station(name string) *StationTimeline {
	st, ok := lt.Stations[name]
	if !ok {
		st = &StationTimeline{}
		lt.Stations[name] = st
	}
	return st
}
