// Package config provides Viper-based configuration loading for retile.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/retile/internal/grid"
)

// ErrConfiguration is the errors.Is target for every *Error.
var ErrConfiguration = errors.New("configuration error")

// Error reports every configuration violation found by Validate. It is raised
// once, before any input is read.
type Error struct {
	Violations []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration validation failed: %s", strings.Join(e.Violations, "; "))
}

// Is reports whether target is ErrConfiguration.
func (e *Error) Is(target error) bool { return target == ErrConfiguration }

// GridConfig describes the atlas before and after re-banding, and the tile
// reference space of the map files.
type GridConfig struct {
	// OldRows is the row count of the atlas the maps were authored against.
	OldRows int `mapstructure:"old_rows"`
	// OldCols is the column count of the atlas the maps were authored against.
	OldCols int `mapstructure:"old_cols"`
	// NewRows is the band height; it becomes the row count of the new atlas.
	NewRows int `mapstructure:"new_rows"`
	// NewCols is the column count of the new atlas. Zero derives it as
	// OldCols * (OldRows / NewRows).
	NewCols int `mapstructure:"new_cols"`
	// TileCount bounds the content tiles; values at or above it pass through.
	TileCount int `mapstructure:"tile_count"`
	// FirstGID is the offset of gid references into the global id space.
	FirstGID int `mapstructure:"first_gid"`
	// Strict enables banding and bounds validation.
	Strict bool `mapstructure:"strict"`
}

// Shapes returns the old and new atlas shapes. A zero NewCols is derived from
// the old shape with integer division.
//
// Precondition: OldRows and NewRows must be positive for derivation to be meaningful.
func (g GridConfig) Shapes() (grid.Shape, grid.Shape) {
	old := grid.Shape{Rows: g.OldRows, Cols: g.OldCols}
	next := grid.Shape{Rows: g.NewRows, Cols: g.NewCols}
	if next.Cols == 0 && next.Rows > 0 {
		next.Cols = old.Cols * (old.Rows / next.Rows)
	}
	return old, next
}

// Remapper builds the grid.Remapper described by g.
//
// Postcondition: returns a non-nil Remapper or a *grid.InvalidShapeError.
func (g GridConfig) Remapper() (*grid.Remapper, error) {
	old, next := g.Shapes()
	var opts []grid.Option
	if g.Strict {
		opts = append(opts, grid.Strict())
	}
	return grid.NewRemapper(old, next, opts...)
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	// Suffix is appended to each input path to form its output path.
	Suffix string `mapstructure:"suffix"`
	// Workers bounds the number of files rewritten concurrently.
	Workers int `mapstructure:"workers"`
	// Report is an optional path for a YAML run report.
	Report string `mapstructure:"report"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Grid    GridConfig    `mapstructure:"grid"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an *Error describing all violations.
func (c Config) Validate() error {
	var errs []string
	errs = append(errs, validateGrid(c.Grid)...)
	errs = append(errs, validateOutput(c.Output)...)
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return &Error{Violations: errs}
	}
	return nil
}

func validateGrid(g GridConfig) []string {
	var errs []string
	if g.OldRows < 1 {
		errs = append(errs, fmt.Sprintf("grid.old_rows must be >= 1, got %d", g.OldRows))
	}
	if g.OldCols < 1 {
		errs = append(errs, fmt.Sprintf("grid.old_cols must be >= 1, got %d", g.OldCols))
	}
	if g.NewRows < 1 {
		errs = append(errs, fmt.Sprintf("grid.new_rows must be >= 1, got %d", g.NewRows))
	}
	if g.NewCols < 0 {
		errs = append(errs, fmt.Sprintf("grid.new_cols must be >= 0, got %d", g.NewCols))
	}
	if g.TileCount < 0 {
		errs = append(errs, fmt.Sprintf("grid.tile_count must be >= 0, got %d", g.TileCount))
	}
	if g.FirstGID < 0 {
		errs = append(errs, fmt.Sprintf("grid.first_gid must be >= 0, got %d", g.FirstGID))
	}
	if len(errs) > 0 || !g.Strict {
		return errs
	}

	old, next := g.Shapes()
	if err := grid.CheckBanding(old, next); err != nil {
		errs = append(errs, err.Error())
	}
	if g.TileCount > old.Total() {
		errs = append(errs, fmt.Sprintf("grid.tile_count %d exceeds old atlas size %d", g.TileCount, old.Total()))
	}
	return errs
}

func validateOutput(o OutputConfig) []string {
	var errs []string
	if o.Suffix == "" {
		errs = append(errs, "output.suffix must not be empty")
	}
	if strings.ContainsAny(o.Suffix, `/\`) {
		errs = append(errs, fmt.Sprintf("output.suffix must not contain path separators, got %q", o.Suffix))
	}
	if o.Workers < 1 {
		errs = append(errs, fmt.Sprintf("output.workers must be >= 1, got %d", o.Workers))
	}
	return errs
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, then each override function in order, and validates the result.
// An empty path skips the file and uses defaults plus environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string, overrides ...func(*viper.Viper)) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	for _, override := range overrides {
		override(v)
	}
	return LoadFromViper(v)
}

// New returns a Viper instance with defaults and RETILE_ environment
// overrides applied.
func New() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with RETILE_ prefix
	v.SetEnvPrefix("RETILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grid.old_rows", 512)
	v.SetDefault("grid.old_cols", 8)
	v.SetDefault("grid.new_rows", 64)
	v.SetDefault("grid.new_cols", 0)
	v.SetDefault("grid.tile_count", 4096)
	v.SetDefault("grid.first_gid", 1030)
	v.SetDefault("grid.strict", true)

	v.SetDefault("output.suffix", "_edit")
	v.SetDefault("output.workers", 4)
	v.SetDefault("output.report", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
