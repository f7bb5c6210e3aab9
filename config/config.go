// Package config loads the analysis settings from an optional YAML file,
// PARCELS_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/bsaid97/go-parcel-consolidator/geometry"
	"github.com/bsaid97/go-parcel-consolidator/logging"
)

const envPrefix = "PARCELS"

// Swap potential names accepted by analysis.potential, matched
// case-insensitively.
const (
	PotentialRatio             = "ratio"
	PotentialInverseDifference = "inverse-difference"
)

type Config struct {
	Log      logging.Config `mapstructure:"log"`
	Source   SourceConfig   `mapstructure:"source"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Server   ServerConfig   `mapstructure:"server"`
}

type SourceConfig struct {
	Path string `mapstructure:"path"`
	// Format is "csv" or "shapefile"; empty means guess from the extension.
	Format    string `mapstructure:"format"`
	Delimiter string `mapstructure:"delimiter"`
}

type AnalysisConfig struct {
	Predicate     string  `mapstructure:"predicate"`
	Potential     string  `mapstructure:"potential"`
	SwapThreshold float64 `mapstructure:"swap_threshold"`
	Workers       int     `mapstructure:"workers"`
	CellSize      float64 `mapstructure:"cell_size"`
	Progress      bool    `mapstructure:"progress"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// New returns a viper instance with defaults and env binding in place.
// Callers may bind flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("source.path", "")
	v.SetDefault("source.format", "")
	v.SetDefault("source.delimiter", ";")
	v.SetDefault("analysis.predicate", "related")
	v.SetDefault("analysis.potential", "ratio")
	v.SetDefault("analysis.swap_threshold", 0.75)
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("analysis.cell_size", 0.0)
	v.SetDefault("analysis.progress", false)
	v.SetDefault("server.addr", ":8080")
}

// Load reads configPath when set, then unmarshals and validates.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Source.Format) {
	case "", "csv", "shapefile", "shp":
	default:
		errs = append(errs, fmt.Errorf("source.format %q is not one of csv, shapefile", c.Source.Format))
	}
	if len([]rune(c.Source.Delimiter)) != 1 {
		errs = append(errs, fmt.Errorf("source.delimiter must be a single character, got %q", c.Source.Delimiter))
	}
	if _, err := geometry.ParsePredicate(c.Analysis.Predicate); err != nil {
		errs = append(errs, fmt.Errorf("analysis.predicate: %w", err))
	}
	switch strings.ToLower(strings.TrimSpace(c.Analysis.Potential)) {
	case "", PotentialRatio, PotentialInverseDifference:
	default:
		errs = append(errs, fmt.Errorf("analysis.potential %q is not one of %s, %s",
			c.Analysis.Potential, PotentialRatio, PotentialInverseDifference))
	}
	if c.Analysis.SwapThreshold <= 0 || c.Analysis.SwapThreshold > 1 {
		errs = append(errs, fmt.Errorf("analysis.swap_threshold must be in (0,1], got %v", c.Analysis.SwapThreshold))
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must not be negative, got %d", c.Analysis.Workers))
	}
	if c.Analysis.CellSize < 0 {
		errs = append(errs, fmt.Errorf("analysis.cell_size must not be negative, got %v", c.Analysis.CellSize))
	}

	return errors.Join(errs...)
}
