package model

import (
	"encoding/json"
	"fmt"
)

// StationDefinition is one station in a line's nominal order.
type StationDefinition struct {
	Name        string `json:"name" validate:"required"`
	Translation string `json:"translation,omitempty"`
}

// RouteRef is one element of a declarative route spec: either a bare
// station reference or a from/to range resolved against the nominal
// station order. Exactly one form is populated; the variant is resolved
// once at model construction and never re-inspected downstream.
type RouteRef struct {
	Station string `json:"station,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

// IsRange reports whether the reference is a from/to range rather than a
// bare station.
func (r RouteRef) IsRange() bool { return r.Station == "" }

// UnmarshalJSON accepts either a bare JSON string (a station reference)
// or an object with "from"/"to" fields.
func (r *RouteRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*r = RouteRef{Station: name}
		return nil
	}

	type rangeRef struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	var rr rangeRef
	if err := json.Unmarshal(data, &rr); err != nil {
		return err
	}
	if rr.From == "" || rr.To == "" {
		return fmt.Errorf("route range requires both from and to: %s", data)
	}
	*r = RouteRef{From: rr.From, To: rr.To}
	return nil
}

// LineDefinition is the static metadata for one metro line. The station
// order and route specs are fixed for the simulation's duration; only
// activation state within that topology changes over time.
type LineDefinition struct {
	ID string `json:"id" validate:"required"`

	// Color is the display color handed through to the output document.
	Color string `json:"color,omitempty"`

	// X is the nominal horizontal coordinate. Zero means "assign from
	// line index" at layout time.
	X float64 `json:"x,omitempty"`

	// DummyRidership fills days where the ridership series has no figure
	// for this line.
	DummyRidership float64 `json:"dummy_ridership,omitempty"`

	Stations []StationDefinition `json:"stations" validate:"min=1,dive"`

	// Routes lists declarative route specs. Empty means a single route
	// spanning the full nominal station order.
	Routes [][]RouteRef `json:"routes,omitempty"`
}

// StationNames returns the nominal station order as a name slice.
func (l *LineDefinition) StationNames() []string {
	names := make([]string, 0, len(l.Stations))
	for _, s := range l.Stations {
		names = append(names, s.Name)
	}
	return names
}
