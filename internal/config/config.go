// Package config loads and validates the run configuration for the
// timeline simulator.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LayoutConfig tunes the coordinate space used by the layout resolver.
type LayoutConfig struct {
	TopY         float64 `yaml:"top_y"`
	BottomY      float64 `yaml:"bottom_y"`
	BranchOffset float64 `yaml:"branch_offset"`
	BaseXStep    float64 `yaml:"base_x_step"`
}

// RunConfig describes one simulation run: input documents, output target,
// and layout tuning.
type RunConfig struct {
	Scenario  string `yaml:"scenario" validate:"required"`
	Events    string `yaml:"events" validate:"required"`
	Ridership string `yaml:"ridership" validate:"required"`

	// Output is the timeline document path; "-" writes to stdout.
	Output string `yaml:"output"`

	// MetricsAddr, when non-empty, serves Prometheus metrics on that address.
	MetricsAddr string `yaml:"metrics_addr"`

	Layout LayoutConfig `yaml:"layout"`
}

// Default returns a RunConfig with layout defaults filled in.
func Default() RunConfig {
	return RunConfig{
		Output: "timeline.json",
		Layout: LayoutConfig{
			TopY:         40,
			BottomY:      680,
			BranchOffset: 18,
			BaseXStep:    120,
		},
	}
}

// rawConfig mirrors RunConfig with pointer layout fields so an absent
// key can be told apart from an explicit zero. Only Load uses it.
type rawConfig struct {
	Scenario    string `yaml:"scenario"`
	Events      string `yaml:"events"`
	Ridership   string `yaml:"ridership"`
	Output      string `yaml:"output"`
	MetricsAddr string `yaml:"metrics_addr"`
	Layout      struct {
		TopY         *float64 `yaml:"top_y"`
		BottomY      *float64 `yaml:"bottom_y"`
		BranchOffset *float64 `yaml:"branch_offset"`
		BaseXStep    *float64 `yaml:"base_x_step"`
	} `yaml:"layout"`
}

// Load reads a YAML run configuration from path, applies defaults for
// absent fields, and validates the result.
func Load(path string) (RunConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Scenario = raw.Scenario
	cfg.Events = raw.Events
	cfg.Ridership = raw.Ridership
	cfg.MetricsAddr = raw.MetricsAddr
	if raw.Output != "" {
		cfg.Output = raw.Output
	}
	if raw.Layout.TopY != nil {
		cfg.Layout.TopY = *raw.Layout.TopY
	}
	if raw.Layout.BottomY != nil {
		cfg.Layout.BottomY = *raw.Layout.BottomY
	}
	if raw.Layout.BranchOffset != nil {
		cfg.Layout.BranchOffset = *raw.Layout.BranchOffset
	}
	if raw.Layout.BaseXStep != nil {
		cfg.Layout.BaseXStep = *raw.Layout.BaseXStep
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required fields and layout sanity.
func (c RunConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Layout.BottomY <= c.Layout.TopY {
		return fmt.Errorf("layout: bottom_y (%v) must be greater than top_y (%v)", c.Layout.BottomY, c.Layout.TopY)
	}
	return nil
}
