package sim

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/transitfoundry/metro-timeline/kb"
	"github.com/transitfoundry/metro-timeline/model"
)

var testLayout = LayoutParams{TopY: 0, BottomY: 100, BranchOffset: 18, BaseXStep: 120}

func registry(t *testing.T, defs ...*model.LineDefinition) *kb.Registry {
	t.Helper()
	reg := kb.NewRegistry()
	for _, def := range defs {
		if err := reg.AddLine(def); err != nil {
			t.Fatalf("AddLine(%s): %v", def.ID, err)
		}
	}
	return reg
}

func lineDef(id string, stations ...string) *model.LineDefinition {
	def := &model.LineDefinition{ID: id}
	for _, s := range stations {
		def.Stations = append(def.Stations, model.StationDefinition{Name: s})
	}
	return def
}

// recordingMetrics captures recorder calls for assertions.
type recordingMetrics struct {
	events   []string
	warnings []string
	changes  []string
	days     int
}

func (r *recordingMetrics) RecordEventApplied(t string)     { r.events = append(r.events, t) }
func (r *recordingMetrics) RecordDataWarning(reason string) { r.warnings = append(r.warnings, reason) }
func (r *recordingMetrics) RecordChangePoint(kind string)   { r.changes = append(r.changes, kind) }
func (r *recordingMetrics) RecordDayDuration(time.Duration) { r.days++ }

func TestRunSingleLineScenario(t *testing.T) {
	reg := registry(t, lineDef("1", "S1", "S2", "S3"))
	events := []model.Event{{
		Date: "2020-01-01", Line: "1", Type: model.EventOpen,
		Stations: []model.TargetRef{{Station: "S1"}, {Station: "S2"}, {Station: "S3"}},
	}}
	ridership := model.RidershipSeries{"2020-01-01": {"1": 10}}

	orch := New(reg, events, ridership, testLayout, nil)
	tl, err := orch.Run(context.Background(), []string{"2020-01-01"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	lt := tl.Lines["1"]
	if lt == nil {
		t.Fatal("line 1 missing from timeline")
	}
	if want := []StatePoint{{Day: 0, State: "open"}}; !reflect.DeepEqual(lt.States, want) {
		t.Fatalf("line states = %v, want %v", lt.States, want)
	}
	if lt.FirstDay != 0 {
		t.Fatalf("FirstDay = %d, want 0", lt.FirstDay)
	}
	if want := []float64{10}; !reflect.DeepEqual(lt.Ridership, want) {
		t.Fatalf("ridership = %v, want %v", lt.Ridership, want)
	}

	wantY := []float64{0, 50, 100}
	for i, name := range []string{"S1", "S2", "S3"} {
		st := lt.Stations[name]
		if st == nil {
			t.Fatalf("station %s missing", name)
		}
		if want := []StatePoint{{Day: 0, State: "open"}}; !reflect.DeepEqual(st.States, want) {
			t.Fatalf("%s states = %v, want %v", name, st.States, want)
		}
		if len(st.Positions) != 1 {
			t.Fatalf("%s positions = %v, want one point", name, st.Positions)
		}
		if got := st.Positions[0]; got.Day != 0 || got.X != 120 || got.Y != wantY[i] {
			t.Fatalf("%s position = %+v, want {0 120 %v}", name, got, wantY[i])
		}
	}

	if len(lt.Routes) != 1 {
		t.Fatalf("routes = %v, want one point", lt.Routes)
	}
	wantSeg := []SegmentPoint{{State: "open", Stations: []string{"S1", "S2", "S3"}}}
	if !reflect.DeepEqual(lt.Routes[0].Segments, wantSeg) {
		t.Fatalf("route segments = %v, want %v", lt.Routes[0].Segments, wantSeg)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	makeInputs := func() (*kb.Registry, []model.Event, model.RidershipSeries) {
		reg := registry(t,
			lineDef("1", "A", "B", "C"),
			lineDef("2", "P", "Q", "R", "S"),
		)
		events := []model.Event{
			{Date: "2020-01-01", Line: "1", Type: model.EventOpen,
				Stations: []model.TargetRef{{From: "A", To: "C"}}},
			{Date: "2020-01-02", Line: "2", Type: model.EventOpen,
				Stations: []model.TargetRef{{From: "P", To: "S", Except: []string{"R"}}}},
			{Date: "2020-01-03", Line: "1", Type: model.EventSuspend,
				Stations: []model.TargetRef{{Station: "B"}}},
		}
		ridership := model.RidershipSeries{
			"2020-01-01": {"1": 100, "total": 100},
			"2020-01-02": {"1": 110, "2": 40, "total": 150},
			"2020-01-03": {"1": 90, "2": 55, "total": 145},
		}
		return reg, events, ridership
	}
	days := []string{"2020-01-01", "2020-01-02", "2020-01-03"}

	encode := func() []byte {
		reg, events, ridership := makeInputs()
		tl, err := New(reg, events, ridership, testLayout, nil).Run(context.Background(), days)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		var buf bytes.Buffer
		if err := tl.Encode(&buf); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		return buf.Bytes()
	}

	first := encode()
	for i := 0; i < 5; i++ {
		if again := encode(); !bytes.Equal(first, again) {
			t.Fatalf("run %d produced different output", i)
		}
	}
}

func TestRunDoesNotReemitUnchangedStations(t *testing.T) {
	reg := registry(t, lineDef("1", "A", "B", "C", "D"))
	events := []model.Event{
		{Date: "2020-01-01", Line: "1", Type: model.EventOpen,
			Stations: []model.TargetRef{{From: "B", To: "C"}}},
		{Date: "2020-01-02", Line: "1", Type: model.EventOpen,
			Stations: []model.TargetRef{{From: "A", To: "D"}}},
	}
	ridership := model.RidershipSeries{
		"2020-01-01": {"1": 10},
		"2020-01-02": {"1": 12},
	}

	tl, err := New(reg, events, ridership, testLayout, nil).
		Run(context.Background(), []string{"2020-01-01", "2020-01-02"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	lt := tl.Lines["1"]
	for _, name := range []string{"B", "C"} {
		want := []StatePoint{{Day: 0, State: "open"}}
		if got := lt.Stations[name].States; !reflect.DeepEqual(got, want) {
			t.Fatalf("%s states = %v, want single day-0 point", name, got)
		}
	}
	for _, name := range []string{"A", "D"} {
		want := []StatePoint{{Day: 1, State: "open"}}
		if got := lt.Stations[name].States; !reflect.DeepEqual(got, want) {
			t.Fatalf("%s states = %v, want single day-1 point", name, got)
		}
	}
}

func TestRunAlignsRidershipToFirstDay(t *testing.T) {
	reg := registry(t, lineDef("1", "A", "B"))
	events := []model.Event{{
		Date: "2020-01-02", Line: "1", Type: model.EventOpen,
		Stations: []model.TargetRef{{From: "A", To: "B"}},
	}}
	ridership := model.RidershipSeries{
		"2020-01-01": {"1": 5, "total": 5},
		"2020-01-02": {"1": 6, "total": 6},
		"2020-01-03": {"1": 7, "total": 7},
	}

	tl, err := New(reg, events, ridership, testLayout, nil).
		Run(context.Background(), []string{"2020-01-01", "2020-01-02", "2020-01-03"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	lt := tl.Lines["1"]
	if lt.FirstDay != 1 {
		t.Fatalf("FirstDay = %d, want 1", lt.FirstDay)
	}
	if want := []float64{6, 7}; !reflect.DeepEqual(lt.Ridership, want) {
		t.Fatalf("ridership = %v, want %v", lt.Ridership, want)
	}
	if want := []float64{5, 6, 7}; !reflect.DeepEqual(tl.Total, want) {
		t.Fatalf("total = %v, want %v", tl.Total, want)
	}
}

func TestRunFallsBackToDummyRidership(t *testing.T) {
	def := lineDef("1", "A", "B")
	def.DummyRidership = 7
	reg := registry(t, def)
	events := []model.Event{{
		Date: "2020-01-01", Line: "1", Type: model.EventOpen,
		Stations: []model.TargetRef{{From: "A", To: "B"}},
	}}
	ridership := model.RidershipSeries{"2020-01-01": {"total": 20}}

	rec := &recordingMetrics{}
	tl, err := New(reg, events, ridership, testLayout, nil, WithMetricsRecorder(rec)).
		Run(context.Background(), []string{"2020-01-01"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := []float64{7}; !reflect.DeepEqual(tl.Lines["1"].Ridership, want) {
		t.Fatalf("ridership = %v, want %v", tl.Lines["1"].Ridership, want)
	}
	if !containsWarning(rec.warnings, "missing_ridership") {
		t.Fatalf("warnings = %v, want missing_ridership", rec.warnings)
	}
}

func TestRunSkipsMalformedDatesAndWarnsOnLeftovers(t *testing.T) {
	reg := registry(t, lineDef("1", "A", "B"))
	events := []model.Event{
		{Date: "bogus", Line: "1", Type: model.EventOpen,
			Stations: []model.TargetRef{{Station: "A"}}},
		{Date: "2020-01-01", Line: "1", Type: model.EventOpen,
			Stations: []model.TargetRef{{From: "A", To: "B"}}},
		{Date: "2020-09-01", Line: "1", Type: model.EventClose,
			Stations: []model.TargetRef{{Station: "A"}}},
	}
	ridership := model.RidershipSeries{"2020-01-01": {"1": 3}}

	rec := &recordingMetrics{}
	tl, err := New(reg, events, ridership, testLayout, nil, WithMetricsRecorder(rec)).
		Run(context.Background(), []string{"2020-01-01"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := StateAt(tl.Lines["1"].States, 0); got != "open" {
		t.Fatalf("line state at day 0 = %q, want open", got)
	}
	if !containsWarning(rec.warnings, "malformed_date") {
		t.Fatalf("warnings = %v, want malformed_date", rec.warnings)
	}
	if !containsWarning(rec.warnings, "unconsumed_event") {
		t.Fatalf("warnings = %v, want unconsumed_event", rec.warnings)
	}
	if want := []string{"open"}; !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("applied events = %v, want %v", rec.events, want)
	}
}

func TestRunFailsOnUnknownLine(t *testing.T) {
	reg := registry(t, lineDef("1", "A"))
	events := []model.Event{{
		Date: "2020-01-01", Line: "ghost", Type: model.EventOpen,
		Stations: []model.TargetRef{{Station: "A"}},
	}}

	_, err := New(reg, events, nil, testLayout, nil).
		Run(context.Background(), []string{"2020-01-01"})
	if !errors.Is(err, kb.ErrLineNotFound) {
		t.Fatalf("err = %v, want ErrLineNotFound", err)
	}
}

func TestRunStablePositionsAcrossIdenticalDays(t *testing.T) {
	reg := registry(t, lineDef("1", "A", "B", "C"))
	events := []model.Event{{
		Date: "2020-01-01", Line: "1", Type: model.EventOpen,
		Stations: []model.TargetRef{{From: "A", To: "C"}},
	}}
	ridership := model.RidershipSeries{
		"2020-01-01": {"1": 1},
		"2020-01-02": {"1": 1},
		"2020-01-03": {"1": 1},
	}

	tl, err := New(reg, events, ridership, testLayout, nil).
		Run(context.Background(), []string{"2020-01-01", "2020-01-02", "2020-01-03"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for name, st := range tl.Lines["1"].Stations {
		if len(st.Positions) != 1 {
			t.Fatalf("%s accumulated %d position points across identical days", name, len(st.Positions))
		}
		if len(st.States) != 1 {
			t.Fatalf("%s accumulated %d state points across identical days", name, len(st.States))
		}
	}
	if got := len(tl.Lines["1"].Routes); got != 1 {
		t.Fatalf("route points = %d, want 1", got)
	}
}

func containsWarning(warnings []string, want string) bool {
	for _, w := range warnings {
		if w == want {
			return true
		}
	}
	return false
}
