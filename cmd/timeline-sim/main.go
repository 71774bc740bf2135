package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/transitfoundry/metro-timeline/core"
	"github.com/transitfoundry/metro-timeline/internal/config"
	"github.com/transitfoundry/metro-timeline/internal/logging"
	"github.com/transitfoundry/metro-timeline/internal/observability"
	"github.com/transitfoundry/metro-timeline/internal/sim"
	"github.com/transitfoundry/metro-timeline/kb"
	"github.com/transitfoundry/metro-timeline/model"
	"github.com/transitfoundry/metro-timeline/timectrl"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "Path to the YAML run configuration")
	outPath := flag.String("out", "", "Timeline output path; overrides the config, \"-\" writes to stdout")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics; overrides the config")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, log := logging.WithRunLogger(context.Background(), log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load config", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *outPath != "" {
		cfg.Output = *outPath
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	reg := kb.NewRegistry()
	summary, err := loadScenario(reg, cfg.Scenario)
	if err != nil {
		log.Error(ctx, "failed to load scenario", logging.String("path", cfg.Scenario), logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "loaded scenario",
		logging.Int("lines", len(summary.LineIDs)),
		logging.Int("stations", summary.Stations),
		logging.Int("routes", summary.Routes),
	)

	events, err := loadEvents(cfg.Events)
	if err != nil {
		log.Error(ctx, "failed to load events", logging.String("path", cfg.Events), logging.String("error", err.Error()))
		os.Exit(1)
	}
	ridership, err := loadRidership(cfg.Ridership)
	if err != nil {
		log.Error(ctx, "failed to load ridership", logging.String("path", cfg.Ridership), logging.String("error", err.Error()))
		os.Exit(1)
	}

	eventDates := make([]string, 0, len(events))
	for _, ev := range events {
		eventDates = append(eventDates, ev.Date)
	}
	days, err := timectrl.BuildDayRange(ridership.Dates(), eventDates)
	if err != nil {
		log.Error(ctx, "failed to build day range", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if len(days) == 0 {
		log.Error(ctx, "nothing to simulate: empty day range")
		os.Exit(1)
	}
	collector.SetScenarioCounts(len(summary.LineIDs), summary.Stations, len(days))

	orch := sim.New(reg, events, ridership,
		sim.LayoutParams{
			TopY:         cfg.Layout.TopY,
			BottomY:      cfg.Layout.BottomY,
			BranchOffset: cfg.Layout.BranchOffset,
			BaseXStep:    cfg.Layout.BaseXStep,
		},
		log,
		sim.WithMetricsRecorder(collector),
	)

	started := time.Now()
	timeline, err := orch.Run(ctx, days)
	if err != nil {
		log.Error(ctx, "simulation failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "simulation complete",
		logging.Int("days", len(days)),
		logging.String("elapsed", time.Since(started).String()),
	)

	if err := writeTimeline(timeline, cfg.Output); err != nil {
		log.Error(ctx, "failed to write timeline", logging.String("path", cfg.Output), logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "timeline written", logging.String("path", cfg.Output))

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func loadScenario(reg *kb.Registry, path string) (*core.ScenarioSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.LoadScenario(reg, f)
}

func loadEvents(path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.LoadEvents(f)
}

func loadRidership(path string) (model.RidershipSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.LoadRidership(f)
}

func writeTimeline(t *sim.Timeline, path string) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return t.Encode(w)
}
