// Package config loads the engine configuration from an optional YAML file with BACKCAST_
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aouyang1/go-backcast/backtest"
	"github.com/aouyang1/go-backcast/ets"
	"github.com/aouyang1/go-backcast/forecast"
	"github.com/spf13/viper"
)

const envPrefix = "BACKCAST"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete application configuration
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	ETS      ETSConfig      `mapstructure:"ets"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Source   SourceConfig   `mapstructure:"source"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BacktestConfig holds the test range and calibration switches. A zero year picks the
// default range.
type BacktestConfig struct {
	StartYear         int  `mapstructure:"start_year"`
	EndYear           int  `mapstructure:"end_year"`
	BiasCorrection    bool `mapstructure:"bias_correction"`
	LinearCalibration bool `mapstructure:"linear_calibration"`
	MinTrain          int  `mapstructure:"min_train"`
}

type ForecastConfig struct {
	Horizon int `mapstructure:"horizon"`
}

type ETSConfig struct {
	GridAlpha      int     `mapstructure:"grid_alpha"`
	GridBeta       int     `mapstructure:"grid_beta"`
	GridPhi        int     `mapstructure:"grid_phi"`
	PhiMin         float64 `mapstructure:"phi_min"`
	PhiMax         float64 `mapstructure:"phi_max"`
	NumStarts      int     `mapstructure:"num_starts"`
	MaxEvaluations int     `mapstructure:"max_evaluations"`
}

type EngineConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RejectGaps        bool          `mapstructure:"reject_gaps"`
	RecommendedPoints int           `mapstructure:"recommended_points"`
	Concurrency       int           `mapstructure:"concurrency"`
}

// CacheConfig selects the model cache. A Size of zero disables the in-process cache and an
// empty RedisAddr disables the shared one.
type CacheConfig struct {
	Size          int           `mapstructure:"size"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
}

type SourceConfig struct {
	Kind         string `mapstructure:"kind"`
	CSVPath      string `mapstructure:"csv_path"`
	Delimiter    string `mapstructure:"delimiter"`
	DecimalComma bool   `mapstructure:"decimal_comma"`
	YearColumn   string `mapstructure:"year_column"`
	PostgresDSN  string `mapstructure:"postgres_dsn"`
	Metric       string `mapstructure:"metric"`
	YearMin      int    `mapstructure:"year_min"`
	YearMax      int    `mapstructure:"year_max"`
}

// Load reads configuration from the file at path and environment variables. An empty path
// uses the defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file, %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config, %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("backtest.start_year", 0)
	v.SetDefault("backtest.end_year", 0)
	v.SetDefault("backtest.bias_correction", true)
	v.SetDefault("backtest.linear_calibration", false)
	v.SetDefault("backtest.min_train", backtest.MinTrain)

	v.SetDefault("forecast.horizon", forecast.DefaultHorizon)

	etsOpt := ets.NewDefaultOptions()
	v.SetDefault("ets.grid_alpha", etsOpt.GridAlpha)
	v.SetDefault("ets.grid_beta", etsOpt.GridBeta)
	v.SetDefault("ets.grid_phi", etsOpt.GridPhi)
	v.SetDefault("ets.phi_min", etsOpt.Phi.Lower)
	v.SetDefault("ets.phi_max", etsOpt.Phi.Upper)
	v.SetDefault("ets.num_starts", etsOpt.NumStarts)
	v.SetDefault("ets.max_evaluations", etsOpt.MaxEvaluations)

	v.SetDefault("engine.timeout", "30s")
	v.SetDefault("engine.reject_gaps", false)
	v.SetDefault("engine.recommended_points", 8)
	v.SetDefault("engine.concurrency", 4)

	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", "backcast:")

	v.SetDefault("source.kind", "csv")
	v.SetDefault("source.csv_path", "")
	v.SetDefault("source.delimiter", "")
	v.SetDefault("source.decimal_comma", false)
	v.SetDefault("source.year_column", "")
	v.SetDefault("source.postgres_dsn", "")
	v.SetDefault("source.metric", "")
	v.SetDefault("source.year_min", 0)
	v.SetDefault("source.year_max", 0)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, %w", ErrInvalidConfig)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text, %w", ErrInvalidConfig)
	}

	if c.Backtest.StartYear != 0 && c.Backtest.EndYear != 0 && c.Backtest.StartYear > c.Backtest.EndYear {
		return fmt.Errorf("backtest.start_year must not exceed backtest.end_year, %w", ErrInvalidConfig)
	}
	if _, err := c.BacktestOptions().Validate(); err != nil {
		return fmt.Errorf("backtest, %w", errors.Join(ErrInvalidConfig, err))
	}
	if c.Forecast.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be at least 1, %w", ErrInvalidConfig)
	}
	if err := c.ETSOptions().Validate(); err != nil {
		return fmt.Errorf("ets, %w", errors.Join(ErrInvalidConfig, err))
	}

	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine.timeout must not be negative, %w", ErrInvalidConfig)
	}
	if c.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be at least 1, %w", ErrInvalidConfig)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative, %w", ErrInvalidConfig)
	}

	switch c.Source.Kind {
	case "csv":
		if len([]rune(c.Source.Delimiter)) > 1 {
			return fmt.Errorf("source.delimiter must be a single character, %w", ErrInvalidConfig)
		}
	case "postgres":
		if c.Source.PostgresDSN == "" {
			return fmt.Errorf("source.postgres_dsn is required for the postgres source, %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("source.kind must be one of: csv, postgres, %w", ErrInvalidConfig)
	}
	return nil
}

// BacktestOptions converts the backtest section
func (c *Config) BacktestOptions() *backtest.Options {
	return &backtest.Options{
		MinTrain:          c.Backtest.MinTrain,
		BiasCorrection:    c.Backtest.BiasCorrection,
		LinearCalibration: c.Backtest.LinearCalibration,
	}
}

// ETSOptions converts the ets section, keeping the default alpha and beta ranges
func (c *Config) ETSOptions() *ets.Options {
	opt := ets.NewDefaultOptions()
	opt.GridAlpha = c.ETS.GridAlpha
	opt.GridBeta = c.ETS.GridBeta
	opt.GridPhi = c.ETS.GridPhi
	opt.Phi = ets.Bounds{Lower: c.ETS.PhiMin, Upper: c.ETS.PhiMax}
	opt.NumStarts = c.ETS.NumStarts
	opt.MaxEvaluations = c.ETS.MaxEvaluations
	return opt
}

// DelimiterRune returns the configured delimiter or zero for auto detection
func (s SourceConfig) DelimiterRune() rune {
	for _, r := range s.Delimiter {
		return r
	}
	return 0
}

// NewLogger builds a slog logger writing to w at the configured level and format
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.level()}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func (l LoggingConfig) level() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
