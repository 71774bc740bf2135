package core

// Position is an on-screen station coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CalculateStationPositions assigns a 2D position to every station whose
// state is Open or Suspended. Reserved stations get positions too, so a
// later re-activation does not jump discontinuously.
//
// Vertical placement interpolates the station's fixed level across the
// level range active today, normalizing the usable span to what is
// currently visible. Horizontal placement groups routes whose active
// level sets overlap into conflict groups and fans each group out
// symmetrically around baseX by branchOffset. Stations placed by an
// earlier group keep their position (first writer wins).
func CalculateStationPositions(routes []Route, stations map[string]StationSnapshot, baseX, topY, bottomY, branchOffset float64) map[string]Position {
	visible := make(map[string]StationSnapshot, len(stations))
	for name, snap := range stations {
		if snap.State.Visible() {
			visible[name] = snap
		}
	}
	positions := make(map[string]Position, len(visible))
	if len(visible) == 0 {
		return positions
	}

	minLevel, maxLevel := levelRange(visible)
	if minLevel == maxLevel {
		// One active station, or a collapsed level range: park at the top
		// with no horizontal offset.
		for name := range visible {
			positions[name] = Position{X: baseX, Y: topY}
		}
		return positions
	}
	span := float64(maxLevel - minLevel)

	offsets := routeOffsets(routes, visible, branchOffset)

	for ri, r := range routes {
		for _, name := range r {
			snap, ok := visible[name]
			if !ok {
				continue
			}
			if _, placed := positions[name]; placed {
				continue
			}
			positions[name] = Position{
				X: baseX + offsets[ri],
				Y: topY + (bottomY-topY)*float64(snap.Level-minLevel)/span,
			}
		}
	}

	// Stations on no route still get a vertical slot.
	for name, snap := range visible {
		if _, placed := positions[name]; !placed {
			positions[name] = Position{
				X: baseX,
				Y: topY + (bottomY-topY)*float64(snap.Level-minLevel)/span,
			}
		}
	}
	return positions
}

// routeOffsets resolves horizontal offsets per route index. Routes are
// processed in order; each unprocessed route seeds a conflict group of all
// later unprocessed routes sharing at least one active level with it, and
// the group's members fan out as (i - (n-1)/2) * branchOffset.
func routeOffsets(routes []Route, visible map[string]StationSnapshot, branchOffset float64) map[int]float64 {
	levelSets := make([]map[int]bool, len(routes))
	for i, r := range routes {
		set := make(map[int]bool)
		for _, name := range r {
			if snap, ok := visible[name]; ok {
				set[snap.Level] = true
			}
		}
		levelSets[i] = set
	}

	offsets := make(map[int]float64, len(routes))
	processed := make([]bool, len(routes))
	for i := range routes {
		if processed[i] {
			continue
		}
		group := []int{i}
		processed[i] = true
		for k := i + 1; k < len(routes); k++ {
			if processed[k] {
				continue
			}
			if levelsOverlap(levelSets[i], levelSets[k]) {
				group = append(group, k)
				processed[k] = true
			}
		}
		n := len(group)
		for gi, ri := range group {
			offsets[ri] = (float64(gi) - float64(n-1)/2) * branchOffset
		}
	}
	return offsets
}

func levelsOverlap(a, b map[int]bool) bool {
	for lv := range a {
		if b[lv] {
			return true
		}
	}
	return false
}

func levelRange(visible map[string]StationSnapshot) (int, int) {
	first := true
	var min, max int
	for _, snap := range visible {
		if first {
			min, max = snap.Level, snap.Level
			first = false
			continue
		}
		if snap.Level < min {
			min = snap.Level
		}
		if snap.Level > max {
			max = snap.Level
		}
	}
	return min, max
}
