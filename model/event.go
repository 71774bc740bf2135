package model

import (
	"encoding/json"
	"fmt"
)

// EventType names an operational event kind.
type EventType string

const (
	EventOpen    EventType = "open"
	EventClose   EventType = "close"
	EventSuspend EventType = "suspend"
	EventResume  EventType = "resume"
)

// TargetRef is one element of an event's station spec: a bare station
// or a from/to range with optional exclusions. Ranges are resolved at
// apply time because their expansion depends on the line's current
// activation state, not just static order.
type TargetRef struct {
	Station string   `json:"station,omitempty"`
	From    string   `json:"from,omitempty"`
	To      string   `json:"to,omitempty"`
	Except  []string `json:"except,omitempty"`
}

// IsRange reports whether the target is a from/to range.
func (t TargetRef) IsRange() bool { return t.Station == "" }

// Excludes reports whether name is listed in the range's except set.
func (t TargetRef) Excludes(name string) bool {
	for _, e := range t.Except {
		if e == name {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts either a bare JSON string (a station reference)
// or an object with "from"/"to" and optional "except" fields.
func (t *TargetRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*t = TargetRef{Station: name}
		return nil
	}

	type rangeRef struct {
		From   string   `json:"from"`
		To     string   `json:"to"`
		Except []string `json:"except"`
	}
	var rr rangeRef
	if err := json.Unmarshal(data, &rr); err != nil {
		return err
	}
	if rr.From == "" || rr.To == "" {
		return fmt.Errorf("event range requires both from and to: %s", data)
	}
	*t = TargetRef{From: rr.From, To: rr.To, Except: rr.Except}
	return nil
}

// Event is one hand-authored operational change. Events arrive pre-sorted
// by date; same-date events apply in input order.
type Event struct {
	// Date is an ISO "YYYY-MM-DD" string. Dates that are not exactly ten
	// characters are treated as malformed and skipped with a warning.
	Date string `json:"date" validate:"required"`

	Line string    `json:"line" validate:"required"`
	Type EventType `json:"type" validate:"required,oneof=open close suspend resume"`

	Stations []TargetRef `json:"stations" validate:"min=1"`

	// FullStations, on an open event, declares the eventual complete
	// extent of an opening phase. Stations in it that are not part of the
	// immediate target are reserved (Suspended) rather than left Never.
	FullStations []TargetRef `json:"fullStations,omitempty"`
}
