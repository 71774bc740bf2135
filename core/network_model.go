package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/transitfoundry/metro-timeline/internal/logging"
	"github.com/transitfoundry/metro-timeline/model"
)

var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrWrongLine        = errors.New("event addresses a different line")
)

// StationNode is one station's record in a line's route tree. Parent and
// children are stored as station names rather than live pointers so the
// arena can be walked and serialized without ownership ambiguity.
type StationNode struct {
	Name     string
	Parent   string
	Children []string

	// Level is the station's vertical rank, assigned once from route
	// order and immutable for the line's lifetime.
	Level int

	State ServiceState

	// EdgeState tracks the edge toward Parent. It is distinct from the
	// station's own state: a station can be open while the edge toward an
	// unopened branch is not.
	EdgeState ServiceState
}

// NetworkModel holds one line's station tree and current activation state.
// All mutation funnels through ApplyEvent; Snapshot is the only read path
// and never mutates.
type NetworkModel struct {
	def       *model.LineDefinition
	order     []string
	routes    []Route
	junctions map[string]bool
	nodes     map[string]*StationNode
	lineState ServiceState
	log       logging.Logger
}

// NewNetworkModel resolves a line definition's routes into the station
// tree. Every station starts at StateNever with all edges StateNever.
func NewNetworkModel(def *model.LineDefinition, log logging.Logger) (*NetworkModel, error) {
	if def == nil {
		return nil, fmt.Errorf("line definition is nil")
	}
	if log == nil {
		log = logging.Noop()
	}

	order := def.StationNames()
	routes, err := ResolveRoutes(order, def.Routes)
	if err != nil {
		return nil, fmt.Errorf("line %q: %w", def.ID, err)
	}

	m := &NetworkModel{
		def:       def,
		order:     order,
		routes:    routes,
		junctions: Junctions(routes),
		nodes:     make(map[string]*StationNode, len(order)),
		log:       log,
	}

	for i, name := range order {
		// Level falls back to nominal position for stations no route
		// covers; ComputeLevels overrides it for routed stations.
		m.nodes[name] = &StationNode{Name: name, Level: i}
	}

	for _, r := range routes {
		for i := 1; i < len(r); i++ {
			child := m.nodes[r[i]]
			parent := m.nodes[r[i-1]]
			// First writer wins: a junction keeps the parent its first
			// route assigned.
			if child.Parent == "" {
				child.Parent = parent.Name
			}
			if !containsString(parent.Children, child.Name) {
				parent.Children = append(parent.Children, child.Name)
			}
		}
	}

	for name, level := range ComputeLevels(routes) {
		m.nodes[name].Level = level
	}

	return m, nil
}

// LineID returns the line this model simulates.
func (m *NetworkModel) LineID() string { return m.def.ID }

// Definition returns the static metadata the model was built from.
func (m *NetworkModel) Definition() *model.LineDefinition { return m.def }

// Routes returns the line's resolved routes. The slice is fixed at
// construction; callers must treat it as read-only.
func (m *NetworkModel) Routes() []Route { return m.routes }

// StationOrder returns the nominal station order.
func (m *NetworkModel) StationOrder() []string { return m.order }

// ApplyEvent resolves the event's station spec against the current
// realtime state and applies the resulting service state to the operated
// stations and to the edges along the full resolved segment. Unknown
// stations or lines are structural errors that abort the run.
func (m *NetworkModel) ApplyEvent(ctx context.Context, ev *model.Event) error {
	if ev == nil {
		return fmt.Errorf("event is nil")
	}
	if ev.Line != m.def.ID {
		return fmt.Errorf("%w: event for %q applied to %q", ErrWrongLine, ev.Line, m.def.ID)
	}

	newState, err := stateForEventType(ev.Type)
	if err != nil {
		return err
	}

	// Deferred opening: reserve the eventual full extent before the
	// primary update so an overlap resolves in favor of Open.
	if ev.Type == model.EventOpen && len(ev.FullStations) > 0 {
		full, err := m.resolveOperatedStations(ev.FullStations)
		if err != nil {
			return fmt.Errorf("line %q fullStations: %w", m.def.ID, err)
		}
		for _, name := range full.Operated {
			if node := m.nodes[name]; node.State == StateNever {
				node.State = StateSuspended
			}
		}
		for _, name := range full.Segment {
			if node := m.nodes[name]; node.Parent != "" && node.EdgeState == StateNever {
				node.EdgeState = StateSuspended
			}
		}
	}

	target, err := m.resolveOperatedStations(ev.Stations)
	if err != nil {
		return fmt.Errorf("line %q: %w", m.def.ID, err)
	}
	if len(target.Operated) == 0 {
		m.log.Warn(ctx, "event resolved to an empty station set",
			logging.String("line", m.def.ID),
			logging.String("date", ev.Date),
			logging.String("type", string(ev.Type)),
		)
	}

	for _, name := range target.Operated {
		m.nodes[name].State = newState
	}
	// Edges carry the full segment's state, not the trimmed subset's:
	// they represent connectivity, which terminus trimming must not cut.
	for _, name := range target.Segment {
		if node := m.nodes[name]; node.Parent != "" {
			node.EdgeState = newState
		}
	}

	m.recomputeLineState()
	return nil
}

// operatedSet is the result of resolving an event's station spec:
// Operated is the trimmed subset that receives the new station state,
// Segment the full path whose edges are updated alongside.
type operatedSet struct {
	Operated []string
	Segment  []string
}

func (m *NetworkModel) resolveOperatedStations(spec []model.TargetRef) (operatedSet, error) {
	var out operatedSet
	seenOp := make(map[string]bool)
	seenSeg := make(map[string]bool)

	addOperated := func(name string) {
		if !seenOp[name] {
			seenOp[name] = true
			out.Operated = append(out.Operated, name)
		}
	}
	addSegment := func(name string) {
		if !seenSeg[name] {
			seenSeg[name] = true
			out.Segment = append(out.Segment, name)
		}
	}

	for _, ref := range spec {
		if !ref.IsRange() {
			if _, ok := m.nodes[ref.Station]; !ok {
				return operatedSet{}, fmt.Errorf("%w: %q", ErrUnknownStation, ref.Station)
			}
			addOperated(ref.Station)
			addSegment(ref.Station)
			continue
		}

		seg, err := ExtractRouteStations(m.routes, ref.From, ref.To)
		if err != nil {
			return operatedSet{}, err
		}
		for i, name := range seg {
			addSegment(name)
			if ref.Excludes(name) {
				continue
			}
			// A range endpoint only joins the operated subset while it
			// acts as a realtime terminus, so repeated partial openings
			// compose instead of re-operating interior stations.
			if (i == 0 || i == len(seg)-1) && !m.realtimeTerminus(name) {
				continue
			}
			addOperated(name)
		}
	}
	return out, nil
}

// realtimeTerminus reports whether the station currently acts as an
// end-of-service point: it sits at a tree boundary, its edge toward its
// parent is not open, or no edge toward any child is open. The rule is an
// order-sensitive approximation carried over deliberately; downstream
// output depends on its exact behavior.
func (m *NetworkModel) realtimeTerminus(name string) bool {
	n := m.nodes[name]
	if n.Parent == "" || len(n.Children) == 0 {
		return true
	}
	if n.EdgeState != StateOpen {
		return true
	}
	for _, c := range n.Children {
		if m.nodes[c].EdgeState == StateOpen {
			return false
		}
	}
	return true
}

// recomputeLineState derives the line state as the best state among its
// stations. Closed never promotes to the line level: a line whose stations
// all closed reads as inactive, not closed.
func (m *NetworkModel) recomputeLineState() {
	anySuspended := false
	for _, name := range m.order {
		switch m.nodes[name].State {
		case StateOpen:
			m.lineState = StateOpen
			return
		case StateSuspended:
			anySuspended = true
		}
	}
	if anySuspended {
		m.lineState = StateSuspended
		return
	}
	m.lineState = StateNever
}

func stateForEventType(t model.EventType) (ServiceState, error) {
	switch t {
	case model.EventOpen, model.EventResume:
		return StateOpen, nil
	case model.EventSuspend:
		return StateSuspended, nil
	case model.EventClose:
		return StateClosed, nil
	default:
		return StateNever, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
