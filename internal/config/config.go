// Package config handles configuration loading for bondrisk.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seenimoa/bondrisk/internal/analysis/fixedincome"
)

// Config represents the complete application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"  yaml:"engine"  json:"engine"`
	Report  ReportConfig  `mapstructure:"report"  yaml:"report"  json:"report"`
	Input   InputConfig   `mapstructure:"input"   yaml:"input"   json:"input"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"     json:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// EngineConfig holds valuation engine settings.
type EngineConfig struct {
	Convention string `mapstructure:"convention" yaml:"convention" json:"convention"` // "whole" or "fractional"
	Frequency  int    `mapstructure:"frequency"  yaml:"frequency"  json:"frequency"`  // default compounding periods per year
	Workers    int    `mapstructure:"workers"    yaml:"workers"    json:"workers"`    // concurrent valuations
}

// ReportConfig controls CLI report output.
type ReportConfig struct {
	Format       string `mapstructure:"format"        yaml:"format"        json:"format"`        // text, markdown, pretty, csv, json
	Currency     string `mapstructure:"currency"      yaml:"currency"      json:"currency"`      // ISO 4217 code for money columns
	TopN         int    `mapstructure:"top_n"         yaml:"top_n"         json:"top_n"`         // most sensitive bonds to list
	DurationUnit string `mapstructure:"duration_unit" yaml:"duration_unit" json:"duration_unit"` // "periods" or "years"
}

// InputConfig controls how portfolio files are turned into bond terms.
type InputConfig struct {
	SpotDate      string  `mapstructure:"spot_date"       yaml:"spot_date"       json:"spot_date"` // YYYY-MM-DD, empty = today
	DayCountBasis float64 `mapstructure:"day_count_basis" yaml:"day_count_basis" json:"day_count_basis"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host         string        `mapstructure:"host"          yaml:"host"          json:"host"`
	Port         int           `mapstructure:"port"          yaml:"port"          json:"port"`
	CORSOrigins  []string      `mapstructure:"cors_origins"  yaml:"cors_origins"  json:"cors_origins"`
	RateLimit    int           `mapstructure:"rate_limit"    yaml:"rate_limit"    json:"rate_limit"`    // analysis requests per minute, 0 = unlimited
	RunRetention time.Duration `mapstructure:"run_retention" yaml:"run_retention" json:"run_retention"` // how long finished runs stay retrievable
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "console" or "json"
}

var (
	reportFormats = map[string]bool{"text": true, "markdown": true, "pretty": true, "csv": true, "json": true}
	durationUnits = map[string]bool{"periods": true, "years": true}
)

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.bondrisk/config.yaml (home directory)
//  3. /etc/bondrisk/config.yaml (system)
//
// A .env file in the working directory is loaded first if present.
// Environment variables override config file values.
// Format: BONDRISK_<SECTION>_<KEY>, e.g., BONDRISK_ENGINE_CONVENTION
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".bondrisk"))
	v.AddConfigPath("/etc/bondrisk")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("BONDRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Engine defaults
	v.SetDefault("engine.convention", string(fixedincome.FractionalPeriodConvention))
	v.SetDefault("engine.frequency", 2)
	v.SetDefault("engine.workers", 4)

	// Report defaults
	v.SetDefault("report.format", "text")
	v.SetDefault("report.currency", "INR")
	v.SetDefault("report.top_n", 5)
	v.SetDefault("report.duration_unit", "periods")

	// Input defaults
	v.SetDefault("input.spot_date", "")
	v.SetDefault("input.day_count_basis", 365.0)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.run_retention", "30m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Validate rejects settings the engine cannot honour.
func (c *Config) Validate() error {
	if _, err := fixedincome.ParseConvention(c.Engine.Convention); err != nil {
		return fmt.Errorf("engine.convention: %w", err)
	}
	if c.Engine.Frequency <= 0 {
		return fmt.Errorf("engine.frequency must be positive, got %d", c.Engine.Frequency)
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be positive, got %d", c.Engine.Workers)
	}
	if !reportFormats[strings.ToLower(c.Report.Format)] {
		return fmt.Errorf("report.format: unknown format %q", c.Report.Format)
	}
	if !durationUnits[strings.ToLower(c.Report.DurationUnit)] {
		return fmt.Errorf("report.duration_unit: unknown unit %q", c.Report.DurationUnit)
	}
	if c.Report.TopN < 0 {
		return fmt.Errorf("report.top_n must not be negative, got %d", c.Report.TopN)
	}
	if c.Input.DayCountBasis <= 0 {
		return fmt.Errorf("input.day_count_basis must be positive, got %g", c.Input.DayCountBasis)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative, got %d", c.API.RateLimit)
	}
	if c.API.RunRetention < 0 {
		return fmt.Errorf("api.run_retention must not be negative, got %s", c.API.RunRetention)
	}
	if _, err := c.SpotDate(); err != nil {
		return fmt.Errorf("input.spot_date: %w", err)
	}
	return nil
}

// Convention returns the configured pricing convention.
func (c *Config) Convention() fixedincome.Convention {
	conv, err := fixedincome.ParseConvention(c.Engine.Convention)
	if err != nil {
		return fixedincome.FractionalPeriodConvention
	}
	return conv
}

// SpotDate returns the configured valuation date, or today (UTC midnight)
// when none is set.
func (c *Config) SpotDate() (time.Time, error) {
	if strings.TrimSpace(c.Input.SpotDate) == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", strings.TrimSpace(c.Input.SpotDate))
}

// Addr returns the API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
