package core

// StationSnapshot is one station's per-day derived view.
type StationSnapshot struct {
	State ServiceState `json:"state"`
	Level int          `json:"level"`
}

// RouteSegment is a contiguous run of route edges sharing one non-Never
// state. Stations are ordered along the route; adjacent segments share
// their boundary station.
type RouteSegment struct {
	State    ServiceState `json:"state"`
	Stations []string     `json:"stations"`
}

// Equal reports whether two segments have identical state and stations.
func (s RouteSegment) Equal(o RouteSegment) bool {
	if s.State != o.State || len(s.Stations) != len(o.Stations) {
		return false
	}
	for i := range s.Stations {
		if s.Stations[i] != o.Stations[i] {
			return false
		}
	}
	return true
}

// SegmentsEqual compares two segment lists by content.
func SegmentsEqual(a, b []RouteSegment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Snapshot is an immutable per-day view of one line: derived line state,
// every station's state and level, and the simplified route segments.
// It is recreated each simulated day and never mutated once returned.
type Snapshot struct {
	LineState ServiceState
	Stations  map[string]StationSnapshot
	Segments  []RouteSegment
}

// Snapshot derives the current view without mutating model state.
func (m *NetworkModel) Snapshot() *Snapshot {
	stations := make(map[string]StationSnapshot, len(m.order))
	for _, name := range m.order {
		n := m.nodes[name]
		stations[name] = StationSnapshot{State: n.State, Level: n.Level}
	}
	return &Snapshot{
		LineState: m.lineState,
		Stations:  stations,
		Segments:  m.routeSegments(),
	}
}

// routeSegments walks each route backward from its tail, grouping maximal
// runs of edges that share the same non-Never state and breaking runs at
// junction stations, then forward-merges adjacent segments across a
// junction when they share state and no third segment touches it. The
// third-segment check keeps true branch points from being fused.
func (m *NetworkModel) routeSegments() []RouteSegment {
	var segs []RouteSegment
	for _, r := range m.routes {
		var routeSegs []RouteSegment
		// Edge i connects r[i-1] to r[i]; a run across edges j..i spans
		// stations r[j-1..i].
		for i := len(r) - 1; i >= 1; {
			st := m.nodes[r[i]].EdgeState
			if st == StateNever {
				i--
				continue
			}
			j := i
			for j > 1 && m.nodes[r[j-1]].EdgeState == st && !m.junctions[r[j-1]] {
				j--
			}
			seg := RouteSegment{
				State:    st,
				Stations: append([]string(nil), r[j-1:i+1]...),
			}
			routeSegs = append([]RouteSegment{seg}, routeSegs...)
			i = j - 1
		}
		segs = append(segs, routeSegs...)
	}
	return mergeAtJunctions(segs)
}

func mergeAtJunctions(segs []RouteSegment) []RouteSegment {
	for merged := true; merged; {
		merged = false
	scan:
		for i := range segs {
			a := segs[i]
			tail := a.Stations[len(a.Stations)-1]
			for k := range segs {
				if k == i {
					continue
				}
				b := segs[k]
				if b.Stations[0] != tail || b.State != a.State {
					continue
				}
				if touchCount(segs, tail) != 2 {
					continue
				}
				joined := RouteSegment{
					State:    a.State,
					Stations: append(append([]string(nil), a.Stations...), b.Stations[1:]...),
				}
				segs[i] = joined
				segs = append(segs[:k], segs[k+1:]...)
				merged = true
				break scan
			}
		}
	}
	return segs
}

// touchCount counts segments containing the given station.
func touchCount(segs []RouteSegment, name string) int {
	n := 0
	for _, s := range segs {
		for _, st := range s.Stations {
			if st == name {
				n++
				break
			}
		}
	}
	return n
}
