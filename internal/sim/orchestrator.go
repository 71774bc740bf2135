package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/transitfoundry/metro-timeline/core"
	"github.com/transitfoundry/metro-timeline/internal/logging"
	"github.com/transitfoundry/metro-timeline/kb"
	"github.com/transitfoundry/metro-timeline/model"
	"github.com/transitfoundry/metro-timeline/timectrl"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// MetricsRecorder is the narrow interface the orchestrator uses to report
// run metrics. It is satisfied by observability.SimCollector; a noop
// implementation is used when no recorder is configured.
type MetricsRecorder interface {
	RecordEventApplied(eventType string)
	RecordDataWarning(reason string)
	RecordChangePoint(kind string)
	RecordDayDuration(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordEventApplied(string)       {}
func (noopMetrics) RecordDataWarning(string)        {}
func (noopMetrics) RecordChangePoint(string)        {}
func (noopMetrics) RecordDayDuration(time.Duration) {}

// LayoutParams tunes the coordinate space handed to the layout resolver.
type LayoutParams struct {
	TopY         float64
	BottomY      float64
	BranchOffset float64
	BaseXStep    float64
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithMetricsRecorder wires a metrics recorder into the run loop.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(o *Orchestrator) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// Orchestrator drives the day loop: it applies due events to each line's
// network model, snapshots and lays out every line once per day, and diffs
// the results into sparse change-point series.
type Orchestrator struct {
	reg       *kb.Registry
	events    []model.Event
	ridership model.RidershipSeries
	layout    LayoutParams
	log       logging.Logger
	metrics   MetricsRecorder
}

// New constructs an Orchestrator over a loaded registry. Events are
// consumed in the order given; callers provide them pre-sorted by date
// when that ordering matters.
func New(reg *kb.Registry, events []model.Event, ridership model.RidershipSeries, layout LayoutParams, log logging.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logging.Noop()
	}
	o := &Orchestrator{
		reg:       reg,
		events:    events,
		ridership: ridership,
		layout:    layout,
		log:       log,
		metrics:   noopMetrics{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// lineRun is the per-line mutable state threaded through the day loop.
type lineRun struct {
	id        string
	model     *core.NetworkModel
	timeline  *LineTimeline
	baseX     float64
	prevState core.ServiceState
	prevStns  map[string]core.ServiceState
	prevSegs  []core.RouteSegment
	prevPos   map[string]core.Position
}

// Run simulates the given day range and returns the assembled timeline.
// The run is single-threaded and deterministic: lines are processed in
// sorted id order and every mutation flows through ApplyEvent.
func (o *Orchestrator) Run(ctx context.Context, days []string) (*Timeline, error) {
	tracer := otel.Tracer("metro-timeline/sim")
	ctx, span := tracer.Start(ctx, "sim.run")
	defer span.End()

	lineIDs := o.reg.ListLineIDs()
	span.SetAttributes(
		attribute.Int("sim.days", len(days)),
		attribute.Int("sim.lines", len(lineIDs)),
		attribute.Int("sim.events", len(o.events)),
	)

	out := &Timeline{
		Days:  days,
		Total: make([]float64, 0, len(days)),
		Lines: make(map[string]*LineTimeline, len(lineIDs)),
	}

	lines := make([]*lineRun, 0, len(lineIDs))
	for i, id := range lineIDs {
		def := o.reg.GetLine(id)
		nm, err := core.NewNetworkModel(def, o.log)
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", id, err)
		}
		baseX := def.X
		if baseX == 0 {
			baseX = float64(i+1) * o.layout.BaseXStep
		}
		lt := &LineTimeline{
			Color:    def.Color,
			X:        baseX,
			FirstDay: -1,
			Stations: make(map[string]*StationTimeline, len(def.Stations)),
		}
		out.Lines[id] = lt
		lines = append(lines, &lineRun{
			id:       id,
			model:    nm,
			timeline: lt,
			baseX:    baseX,
			prevStns: make(map[string]core.ServiceState, len(def.Stations)),
			prevPos:  make(map[string]core.Position, len(def.Stations)),
		})
	}

	qi := 0
	dc := timectrl.NewDayController(days)
	dc.AddListener(func(index int, date string) error {
		start := time.Now()
		defer func() { o.metrics.RecordDayDuration(time.Since(start)) }()

		for qi < len(o.events) {
			ev := &o.events[qi]
			if !timectrl.ValidEventDate(ev.Date) {
				o.log.Warn(ctx, "skipping event with malformed date",
					logging.String("date", ev.Date),
					logging.String("line", ev.Line),
				)
				o.metrics.RecordDataWarning("malformed_date")
				qi++
				continue
			}
			if ev.Date > date {
				break
			}
			lr := o.lineByID(lines, ev.Line)
			if lr == nil {
				return fmt.Errorf("event %s on day %s: %w", ev.Type, ev.Date, kb.ErrLineNotFound)
			}
			if err := lr.model.ApplyEvent(ctx, ev); err != nil {
				return fmt.Errorf("apply %s event dated %s to line %s: %w", ev.Type, ev.Date, ev.Line, err)
			}
			o.metrics.RecordEventApplied(string(ev.Type))
			qi++
		}

		for _, lr := range lines {
			o.stepLine(ctx, lr, index, date)
		}

		total, _ := o.ridership.Lookup(date, model.TotalKey)
		out.Total = append(out.Total, total)
		return nil
	})

	if err := dc.Run(); err != nil {
		return nil, err
	}

	for ; qi < len(o.events); qi++ {
		ev := o.events[qi]
		o.log.Warn(ctx, "event left unconsumed after day range",
			logging.String("date", ev.Date),
			logging.String("line", ev.Line),
			logging.String("type", string(ev.Type)),
		)
		o.metrics.RecordDataWarning("unconsumed_event")
	}

	return out, nil
}

// stepLine snapshots one line for one day and appends any change points.
func (o *Orchestrator) stepLine(ctx context.Context, lr *lineRun, index int, date string) {
	snap := lr.model.Snapshot()
	lt := lr.timeline

	if snap.LineState != lr.prevState {
		lt.States = append(lt.States, StatePoint{Day: index, State: snap.LineState.String()})
		o.metrics.RecordChangePoint("line_state")
		lr.prevState = snap.LineState
	}
	if snap.LineState == core.StateOpen && lt.FirstDay < 0 {
		lt.FirstDay = index
		o.log.Info(ctx, "line opened",
			logging.String("line", lr.id),
			logging.String("date", date),
		)
	}

	if !core.SegmentsEqual(snap.Segments, lr.prevSegs) {
		lt.Routes = append(lt.Routes, RoutePoint{Day: index, Segments: segmentPoints(snap.Segments)})
		o.metrics.RecordChangePoint("route")
		lr.prevSegs = snap.Segments
	}

	positions := core.CalculateStationPositions(
		lr.model.Routes(), snap.Stations,
		lr.baseX, o.layout.TopY, o.layout.BottomY, o.layout.BranchOffset,
	)

	for _, name := range lr.model.StationOrder() {
		st := snap.Stations[name]
		if st.State != lr.prevStns[name] {
			lt.station(name).States = append(lt.station(name).States,
				StatePoint{Day: index, State: st.State.String()})
			o.metrics.RecordChangePoint("station_state")
			lr.prevStns[name] = st.State
		}
		pos, ok := positions[name]
		if !ok {
			continue
		}
		if prev, seen := lr.prevPos[name]; !seen || prev != pos {
			lt.station(name).Positions = append(lt.station(name).Positions,
				PositionPoint{Day: index, X: pos.X, Y: pos.Y})
			o.metrics.RecordChangePoint("position")
			lr.prevPos[name] = pos
		}
	}

	if lt.FirstDay >= 0 {
		value, ok := o.ridership.Lookup(date, lr.id)
		if !ok {
			value = lr.model.Definition().DummyRidership
			o.log.Warn(ctx, "ridership missing for open line",
				logging.String("line", lr.id),
				logging.String("date", date),
				logging.Float64("fallback", value),
			)
			o.metrics.RecordDataWarning("missing_ridership")
		}
		lt.Ridership = append(lt.Ridership, value)
	}
}

func (o *Orchestrator) lineByID(lines []*lineRun, id string) *lineRun {
	for _, lr := range lines {
		if lr.id == id {
			return lr
		}
	}
	return nil
}

func segmentPoints(segs []core.RouteSegment) []SegmentPoint {
	out := make([]SegmentPoint, 0, len(segs))
	for _, s := range segs {
		stations := make([]string, len(s.Stations))
		copy(stations, s.Stations)
		out = append(out, SegmentPoint{State: s.State.String(), Stations: stations})
	}
	return out
}
