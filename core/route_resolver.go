package core

import (
	"errors"
	"fmt"

	"github.com/transitfoundry/metro-timeline/model"
)

var (
	ErrUnknownStation = errors.New("unknown station")
	ErrEmptyOrder     = errors.New("line has no stations")

	// ErrNoSharedJunction is returned when a path between two stations
	// would need to hop across more than one junction. Only single-junction
	// bridging is supported; specs requiring more are rejected outright
	// rather than resolved into a wrong path.
	ErrNoSharedJunction = errors.New("no shared junction between routes")
)

// Route is one maximal path through a line's station tree, ordered from a
// root toward a leaf. A line's routes collectively form a tree: no cycles,
// branches share only junction stations.
type Route []string

// IndexOf returns the position of a station on the route, or -1.
func (r Route) IndexOf(name string) int {
	for i, s := range r {
		if s == name {
			return i
		}
	}
	return -1
}

// ResolveRoutes expands declarative route specs into concrete ordered
// station lists. Each spec is a mix of bare station references and from/to
// ranges resolved against the nominal station order. With no specs at all,
// a single route spans the full order. A reference to a station missing
// from the order is a structural error.
func ResolveRoutes(order []string, specs [][]model.RouteRef) ([]Route, error) {
	if len(order) == 0 {
		return nil, ErrEmptyOrder
	}

	index := make(map[string]int, len(order))
	for i, name := range order {
		index[name] = i
	}

	if len(specs) == 0 {
		return []Route{append(Route(nil), order...)}, nil
	}

	routes := make([]Route, 0, len(specs))
	for _, spec := range specs {
		var route Route
		for _, ref := range spec {
			if !ref.IsRange() {
				if _, ok := index[ref.Station]; !ok {
					return nil, fmt.Errorf("%w: %q", ErrUnknownStation, ref.Station)
				}
				route = appendStation(route, ref.Station)
				continue
			}

			i, ok := index[ref.From]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownStation, ref.From)
			}
			j, ok := index[ref.To]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownStation, ref.To)
			}
			for _, name := range sliceBetween(order, i, j) {
				route = appendStation(route, name)
			}
		}
		if len(route) == 0 {
			return nil, fmt.Errorf("%w: empty route spec", ErrUnknownStation)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// ExtractRouteStations returns the ordered path between two stations. When
// both lie on the same route the path is the contiguous sub-list between
// their indices, reversed if from appears after to. When they lie on
// different routes the path bridges through a single shared junction:
// the from-side segment, the junction once, then the to-side segment.
func ExtractRouteStations(routes []Route, from, to string) ([]string, error) {
	for _, r := range routes {
		i, j := r.IndexOf(from), r.IndexOf(to)
		if i >= 0 && j >= 0 {
			return sliceBetween(r, i, j), nil
		}
	}

	fromRoutes := routesContaining(routes, from)
	if len(fromRoutes) == 0 {
		return nil, fmt.Errorf("%w: %q is not on any route", ErrUnknownStation, from)
	}
	toRoutes := routesContaining(routes, to)
	if len(toRoutes) == 0 {
		return nil, fmt.Errorf("%w: %q is not on any route", ErrUnknownStation, to)
	}

	for _, ra := range fromRoutes {
		for _, rb := range toRoutes {
			junction, ok := sharedStation(ra, rb)
			if !ok {
				continue
			}
			head := sliceBetween(ra, ra.IndexOf(from), ra.IndexOf(junction))
			tail := sliceBetween(rb, rb.IndexOf(junction), rb.IndexOf(to))
			return append(head, tail[1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: %q to %q", ErrNoSharedJunction, from, to)
}

// ComputeLevels assigns every routed station its vertical rank. The first
// station of a line's primary route sits at level 0; each route numbers its
// stations from the already-assigned level of its first station, so branch
// routes continue counting from their junction instead of restarting.
// Levels are assigned once and never shift afterwards.
func ComputeLevels(routes []Route) map[string]int {
	levels := make(map[string]int)
	for _, r := range routes {
		base := levels[r[0]]
		for i, name := range r {
			if _, done := levels[name]; !done {
				levels[name] = base + i
			}
		}
	}
	return levels
}

// Junctions returns the set of stations shared by two or more routes.
func Junctions(routes []Route) map[string]bool {
	count := make(map[string]int)
	for _, r := range routes {
		for _, name := range r {
			count[name]++
		}
	}
	junctions := make(map[string]bool)
	for name, n := range count {
		if n > 1 {
			junctions[name] = true
		}
	}
	return junctions
}

// sliceBetween copies the contiguous run between two indices inclusive,
// reversed when i > j.
func sliceBetween(list []string, i, j int) []string {
	if i <= j {
		return append([]string(nil), list[i:j+1]...)
	}
	out := make([]string, 0, i-j+1)
	for k := i; k >= j; k-- {
		out = append(out, list[k])
	}
	return out
}

// appendStation appends a name unless it repeats the route's current tail,
// which happens when a bare reference abuts a range starting at the same
// station.
func appendStation(route Route, name string) Route {
	if n := len(route); n > 0 && route[n-1] == name {
		return route
	}
	return append(route, name)
}

func routesContaining(routes []Route, name string) []Route {
	var out []Route
	for _, r := range routes {
		if r.IndexOf(name) >= 0 {
			out = append(out, r)
		}
	}
	return out
}

// sharedStation scans ra in order and returns the first station also
// present on rb. Scanning in route order keeps junction selection
// deterministic when routes overlap on more than one station.
func sharedStation(ra, rb Route) (string, bool) {
	for _, name := range ra {
		if rb.IndexOf(name) >= 0 {
			return name, true
		}
	}
	return "", false
}
