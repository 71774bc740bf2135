package model

import "sort"

// TotalKey is the reserved line key carrying system-wide ridership.
const TotalKey = "total"

// RidershipSeries maps an ISO date to per-line daily rider counts. It is
// pre-aggregated upstream; the engine never parses raw ridership text.
type RidershipSeries map[string]map[string]float64

// Lookup returns the figure for a line on a date. The second return value
// reports whether the series actually held a figure; callers substitute a
// per-line fallback when it did not.
func (rs RidershipSeries) Lookup(date, lineID string) (float64, bool) {
	day, ok := rs[date]
	if !ok {
		return 0, false
	}
	v, ok := day[lineID]
	return v, ok
}

// Dates returns the series' date keys in ascending order.
func (rs RidershipSeries) Dates() []string {
	dates := make([]string, 0, len(rs))
	for d := range rs {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
