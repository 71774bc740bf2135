// Package timectrl drives the day-indexed simulation clock and builds the
// day range a run iterates over.
package timectrl

import (
	"sort"
	"sync"
	"time"
)

// DateLayout is the canonical ISO date form used across input documents.
const DateLayout = "2006-01-02"

// ValidEventDate reports whether a raw date string has the canonical
// ten-character ISO form. Events carrying anything else are skipped by
// the orchestrator rather than failing the run.
func ValidEventDate(date string) bool {
	return len(date) == len(DateLayout)
}

// BuildDayRange produces the ordered list of day labels a run covers.
// The backbone is the sorted set of ridership dates; when the earliest
// well-formed event predates the first ridership date, the range is
// extended backwards one calendar day at a time so those events still
// get a day to land on.
func BuildDayRange(ridershipDates []string, eventDates []string) ([]string, error) {
	days := make([]string, len(ridershipDates))
	copy(days, ridershipDates)
	sort.Strings(days)

	// Only dates that actually parse may anchor the extension: a
	// ten-character label that is not a real date would sit below every
	// generated label and the walk would never reach it.
	earliest := ""
	for _, d := range eventDates {
		if !ValidEventDate(d) {
			continue
		}
		if _, err := time.Parse(DateLayout, d); err != nil {
			continue
		}
		if earliest == "" || d < earliest {
			earliest = d
		}
	}
	if earliest == "" || len(days) == 0 || earliest >= days[0] {
		return days, nil
	}

	first, err := time.Parse(DateLayout, days[0])
	if err != nil {
		return nil, err
	}
	var prefix []string
	for cursor := first.AddDate(0, 0, -1); ; cursor = cursor.AddDate(0, 0, -1) {
		label := cursor.Format(DateLayout)
		prefix = append(prefix, label)
		if label <= earliest {
			break
		}
	}
	// prefix was collected newest-first; reverse into chronological order.
	for i, j := 0, len(prefix)-1; i < j; i, j = i+1, j-1 {
		prefix[i], prefix[j] = prefix[j], prefix[i]
	}
	return append(prefix, days...), nil
}

// DayController steps through a fixed day range and notifies registered
// listeners once per day, in order. Listener errors abort the run.
type DayController struct {
	mu        sync.RWMutex
	days      []string
	listeners []func(index int, date string) error
}

// NewDayController constructs a controller over the given day range.
func NewDayController(days []string) *DayController {
	return &DayController{days: days}
}

// Days returns the day range the controller iterates over.
func (dc *DayController) Days() []string {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	out := make([]string, len(dc.days))
	copy(out, dc.days)
	return out
}

// AddListener registers a callback invoked for every day, in registration
// order.
func (dc *DayController) AddListener(fn func(index int, date string) error) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.listeners = append(dc.listeners, fn)
}

// Run steps through every day once. The first listener error stops the
// run and is returned.
func (dc *DayController) Run() error {
	dc.mu.RLock()
	days := dc.days
	listeners := dc.listeners
	dc.mu.RUnlock()

	for i, date := range days {
		for _, fn := range listeners {
			if err := fn(i, date); err != nil {
				return err
			}
		}
	}
	return nil
}
