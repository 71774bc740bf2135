package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for a simulation run and provides
// a ready-to-serve /metrics handler.
type SimCollector struct {
	gatherer prometheus.Gatherer

	EventsApplied *prometheus.CounterVec
	DataWarnings  *prometheus.CounterVec
	ChangePoints  *prometheus.CounterVec
	DayDurations  prometheus.Histogram

	TimelineLines    prometheus.Gauge
	TimelineStations prometheus.Gauge
	TimelineDays     prometheus.Gauge
}

// NewSimCollector registers simulation Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_events_applied_total",
		Help: "Total number of timeline events applied, labeled by event type.",
	}, []string{"type"})
	events, err := registerCounterVec(reg, events, "sim_events_applied_total")
	if err != nil {
		return nil, err
	}

	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_data_warnings_total",
		Help: "Total number of data-quality warnings emitted, labeled by reason.",
	}, []string{"reason"})
	warnings, err = registerCounterVec(reg, warnings, "sim_data_warnings_total")
	if err != nil {
		return nil, err
	}

	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_change_points_total",
		Help: "Total number of change points recorded in the output timeline, labeled by series kind.",
	}, []string{"kind"})
	changes, err = registerCounterVec(reg, changes, "sim_change_points_total")
	if err != nil {
		return nil, err
	}

	days := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_day_duration_seconds",
		Help:    "Time spent processing a single simulated day.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
	days, err = registerHistogram(reg, days, "sim_day_duration_seconds")
	if err != nil {
		return nil, err
	}

	lines, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_lines",
		Help: "Number of lines in the loaded scenario.",
	}), "timeline_lines")
	if err != nil {
		return nil, err
	}
	stations, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_stations",
		Help: "Number of stations across all lines in the loaded scenario.",
	}), "timeline_stations")
	if err != nil {
		return nil, err
	}
	dayCount, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_days",
		Help: "Number of days covered by the simulated range.",
	}), "timeline_days")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:         gatherer,
		EventsApplied:    events,
		DataWarnings:     warnings,
		ChangePoints:     changes,
		DayDurations:     days,
		TimelineLines:    lines,
		TimelineStations: stations,
		TimelineDays:     dayCount,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordEventApplied satisfies the orchestrator's MetricsRecorder interface.
func (c *SimCollector) RecordEventApplied(eventType string) {
	if c == nil || c.EventsApplied == nil {
		return
	}
	c.EventsApplied.WithLabelValues(eventType).Inc()
}

// RecordDataWarning counts a skipped or degraded input, labeled by reason.
func (c *SimCollector) RecordDataWarning(reason string) {
	if c == nil || c.DataWarnings == nil {
		return
	}
	c.DataWarnings.WithLabelValues(reason).Inc()
}

// RecordChangePoint counts one emitted change point of the given series kind.
func (c *SimCollector) RecordChangePoint(kind string) {
	if c == nil || c.ChangePoints == nil {
		return
	}
	c.ChangePoints.WithLabelValues(kind).Inc()
}

// RecordDayDuration observes the wall time spent on one simulated day.
func (c *SimCollector) RecordDayDuration(d time.Duration) {
	if c == nil || c.DayDurations == nil {
		return
	}
	c.DayDurations.Observe(d.Seconds())
}

// SetScenarioCounts drives the scenario gauges after loading completes.
func (c *SimCollector) SetScenarioCounts(lines, stations, days int) {
	if c == nil {
		return
	}
	if c.TimelineLines != nil {
		c.TimelineLines.Set(float64(lines))
	}
	if c.TimelineStations != nil {
		c.TimelineStations.Set(float64(stations))
	}
	if c.TimelineDays != nil {
		c.TimelineDays.Set(float64(days))
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
