package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-backcast/backtest"
	"github.com/aouyang1/go-backcast/ets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backcast.yaml")
	require.Nil(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.Nil(t, err)
	require.Nil(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Backtest.BiasCorrection)
	assert.False(t, cfg.Backtest.LinearCalibration)
	assert.Equal(t, backtest.MinTrain, cfg.Backtest.MinTrain)
	assert.Equal(t, 5, cfg.Forecast.Horizon)
	assert.Equal(t, 30*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, 8, cfg.Engine.RecommendedPoints)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "csv", cfg.Source.Kind)
	assert.Equal(t, ets.NewDefaultOptions(), cfg.ETSOptions())
	assert.Equal(t, backtest.NewDefaultOptions(), cfg.BacktestOptions())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: text
backtest:
  start_year: 2015
  end_year: 2020
  bias_correction: false
  linear_calibration: true
forecast:
  horizon: 3
ets:
  phi_min: 0.85
  phi_max: 0.95
  num_starts: 5
engine:
  timeout: 2s
  reject_gaps: true
source:
  kind: postgres
  postgres_dsn: postgres://localhost/vitivinicultura
  metric: exportacao_valor
`)
	cfg, err := Load(path)
	require.Nil(t, err)
	require.Nil(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2015, cfg.Backtest.StartYear)
	assert.Equal(t, 2020, cfg.Backtest.EndYear)
	assert.False(t, cfg.Backtest.BiasCorrection)
	assert.True(t, cfg.Backtest.LinearCalibration)
	assert.Equal(t, 3, cfg.Forecast.Horizon)
	assert.Equal(t, 2*time.Second, cfg.Engine.Timeout)
	assert.True(t, cfg.Engine.RejectGaps)
	assert.Equal(t, "exportacao_valor", cfg.Source.Metric)

	opt := cfg.ETSOptions()
	assert.Equal(t, ets.Bounds{Lower: 0.85, Upper: 0.95}, opt.Phi)
	assert.Equal(t, 5, opt.NumStarts)
	assert.Equal(t, ets.DefaultGridAlpha, opt.GridAlpha)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BACKCAST_FORECAST_HORIZON", "7")
	t.Setenv("BACKCAST_SOURCE_CSV_PATH", "/data/serie.csv")

	cfg, err := Load("")
	require.Nil(t, err)
	assert.Equal(t, 7, cfg.Forecast.Horizon)
	assert.Equal(t, "/data/serie.csv", cfg.Source.CSVPath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}

func TestValidate(t *testing.T) {
	testData := map[string]func(c *Config){
		"log level":      func(c *Config) { c.Logging.Level = "trace" },
		"log format":     func(c *Config) { c.Logging.Format = "xml" },
		"range":          func(c *Config) { c.Backtest.StartYear, c.Backtest.EndYear = 2020, 2010 },
		"min train":      func(c *Config) { c.Backtest.MinTrain = 1 },
		"horizon":        func(c *Config) { c.Forecast.Horizon = 0 },
		"phi":            func(c *Config) { c.ETS.PhiMin, c.ETS.PhiMax = 0.99, 0.9 },
		"grid":           func(c *Config) { c.ETS.GridPhi = 0 },
		"timeout":        func(c *Config) { c.Engine.Timeout = -time.Second },
		"concurrency":    func(c *Config) { c.Engine.Concurrency = 0 },
		"cache size":     func(c *Config) { c.Cache.Size = -1 },
		"source kind":    func(c *Config) { c.Source.Kind = "http" },
		"postgres dsn":   func(c *Config) { c.Source.Kind = "postgres" },
		"long delimiter": func(c *Config) { c.Source.Delimiter = ";;" },
	}

	for name, mutate := range testData {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load("")
			require.Nil(t, err)
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestDelimiterRune(t *testing.T) {
	assert.Equal(t, rune(0), SourceConfig{}.DelimiterRune())
	assert.Equal(t, ';', SourceConfig{Delimiter: ";"}.DelimiterRune())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: "warn", Format: "text"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "metric", "producao_total")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "msg=shown"))
	assert.True(t, strings.Contains(out, "metric=producao_total"))

	buf.Reset()
	LoggingConfig{Level: "debug", Format: "json"}.NewLogger(&buf).Debug("fit")
	assert.Contains(t, buf.String(), `"msg":"fit"`)
}
