package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/seenimoa/bondrisk/internal/analysis/fixedincome"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	for _, e := range []string{"BONDRISK_ENGINE_CONVENTION", "BONDRISK_ENGINE_FREQUENCY", "BONDRISK_REPORT_FORMAT"} {
		os.Unsetenv(e)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Engine defaults
	if cfg.Engine.Convention != "fractional" {
		t.Errorf("Engine.Convention: got %q, want %q", cfg.Engine.Convention, "fractional")
	}
	if cfg.Convention() != fixedincome.FractionalPeriodConvention {
		t.Errorf("Convention(): got %q", cfg.Convention())
	}
	if cfg.Engine.Frequency != 2 {
		t.Errorf("Engine.Frequency: got %d, want 2", cfg.Engine.Frequency)
	}
	if cfg.Engine.Workers != 4 {
		t.Errorf("Engine.Workers: got %d, want 4", cfg.Engine.Workers)
	}

	// Report defaults
	if cfg.Report.Format != "text" {
		t.Errorf("Report.Format: got %q, want %q", cfg.Report.Format, "text")
	}
	if cfg.Report.Currency != "INR" {
		t.Errorf("Report.Currency: got %q, want %q", cfg.Report.Currency, "INR")
	}
	if cfg.Report.TopN != 5 {
		t.Errorf("Report.TopN: got %d, want 5", cfg.Report.TopN)
	}
	if cfg.Report.DurationUnit != "periods" {
		t.Errorf("Report.DurationUnit: got %q, want %q", cfg.Report.DurationUnit, "periods")
	}

	// Input defaults
	if cfg.Input.DayCountBasis != 365 {
		t.Errorf("Input.DayCountBasis: got %f, want 365", cfg.Input.DayCountBasis)
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if cfg.API.RunRetention != 30*time.Minute {
		t.Errorf("API.RunRetention: got %s, want 30m", cfg.API.RunRetention)
	}
	if cfg.API.RateLimit != 0 {
		t.Errorf("API.RateLimit: got %d, want 0", cfg.API.RateLimit)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr(): got %q", cfg.Addr())
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "console")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BONDRISK_ENGINE_CONVENTION", "whole")
	t.Setenv("BONDRISK_ENGINE_FREQUENCY", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Convention() != fixedincome.WholePeriodConvention {
		t.Errorf("Convention(): got %q, want whole", cfg.Convention())
	}
	if cfg.Engine.Frequency != 1 {
		t.Errorf("Engine.Frequency: got %d, want 1", cfg.Engine.Frequency)
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
engine:
  convention: "whole"
  frequency: 1
  workers: 2
report:
  format: "csv"
  currency: "USD"
  top_n: 3
  duration_unit: "years"
input:
  spot_date: "2025-03-31"
api:
  port: 9090
  rate_limit: 120
  run_retention: "5m"
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Convention() != fixedincome.WholePeriodConvention {
		t.Errorf("Convention(): got %q", cfg.Convention())
	}
	if cfg.Engine.Frequency != 1 {
		t.Errorf("Engine.Frequency: got %d, want 1", cfg.Engine.Frequency)
	}
	if cfg.Engine.Workers != 2 {
		t.Errorf("Engine.Workers: got %d, want 2", cfg.Engine.Workers)
	}
	if cfg.Report.Format != "csv" {
		t.Errorf("Report.Format: got %q, want csv", cfg.Report.Format)
	}
	if cfg.Report.Currency != "USD" {
		t.Errorf("Report.Currency: got %q, want USD", cfg.Report.Currency)
	}
	if cfg.Report.TopN != 3 {
		t.Errorf("Report.TopN: got %d, want 3", cfg.Report.TopN)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.API.RateLimit != 120 {
		t.Errorf("API.RateLimit: got %d, want 120", cfg.API.RateLimit)
	}
	if cfg.API.RunRetention != 5*time.Minute {
		t.Errorf("API.RunRetention: got %s, want 5m", cfg.API.RunRetention)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want json", cfg.Logging.Format)
	}

	spot, err := cfg.SpotDate()
	if err != nil {
		t.Fatalf("SpotDate() error: %v", err)
	}
	if want := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC); !spot.Equal(want) {
		t.Errorf("SpotDate(): got %v, want %v", spot, want)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"convention": "engine:\n  convention: \"act/act\"\n",
		"frequency":  "engine:\n  frequency: 0\n",
		"workers":    "engine:\n  workers: -1\n",
		"format":     "report:\n  format: \"pdf\"\n",
		"unit":       "report:\n  duration_unit: \"days\"\n",
		"spot date":  "input:\n  spot_date: \"31/03/2025\"\n",
		"basis":      "input:\n  day_count_basis: 0\n",
		"rate limit": "api:\n  rate_limit: -1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatalf("write temp config: %v", err)
			}
			if _, err := LoadFromFile(path); err == nil {
				t.Errorf("LoadFromFile(%s) should fail validation", name)
			}
		})
	}
}

func TestSpotDateDefaultsToToday(t *testing.T) {
	cfg := &Config{}
	spot, err := cfg.SpotDate()
	if err != nil {
		t.Fatalf("SpotDate() error: %v", err)
	}
	now := time.Now().UTC()
	if spot.Year() != now.Year() || spot.YearDay() != now.YearDay() {
		t.Errorf("SpotDate(): got %v, want today", spot)
	}
}
