package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aouyang1/go-backcast"
	"github.com/aouyang1/go-backcast/cache"
	"github.com/aouyang1/go-backcast/config"
	"github.com/aouyang1/go-backcast/instrument"
	"github.com/aouyang1/go-backcast/provider"
	"github.com/aouyang1/go-backcast/series"
	"github.com/aouyang1/go-backcast/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var ErrUnknownFormat = errors.New("unknown output format")

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

// app holds the flag values and the resources opened for a single command
type app struct {
	configPath  string
	source      string
	csvPath     string
	metric      string
	format      string
	metricsFile string

	start   int
	end     int
	horizon int
	noBias  bool
	linear  bool
	plot    string

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	closers  []func()
	finished bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "backcast",
		Short: "Rolling-origin backtests and forecasts of annual series",
		Long: `Backtests a damped trend smoothing model on an annual series by refitting it on every
year before each test year, calibrates and scores the one step forecasts, and forecasts the
years after the last observation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&a.source, "source", "", "Series source: csv or postgres")
	rootCmd.PersistentFlags().StringVar(&a.csvPath, "csv", "", "CSV file with a year column and value columns")
	rootCmd.PersistentFlags().StringVarP(&a.metric, "metric", "m", "", "Metric or value column to evaluate")
	rootCmd.PersistentFlags().StringVarP(&a.format, "format", "f", formatTable, "Output format: table, csv or json")
	rootCmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on exit")

	rootCmd.AddCommand(a.backtestCmd())
	rootCmd.AddCommand(a.forecastCmd())
	rootCmd.AddCommand(a.sweepCmd())
	rootCmd.AddCommand(a.metricsCmd())
	return rootCmd
}

// setup loads the configuration, applies the flags that were set and builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	switch a.format {
	case formatTable, formatCSV, formatJSON:
	default:
		return fmt.Errorf("%q, %w", a.format, ErrUnknownFormat)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source.Kind = a.source
	}
	if flags.Changed("csv") {
		cfg.Source.CSVPath = a.csvPath
		if !flags.Changed("source") {
			cfg.Source.Kind = "csv"
		}
	}
	if flags.Changed("metric") {
		cfg.Source.Metric = a.metric
	}
	if flags.Changed("start") {
		cfg.Backtest.StartYear = a.start
	}
	if flags.Changed("end") {
		cfg.Backtest.EndYear = a.end
	}
	if flags.Changed("horizon") {
		cfg.Forecast.Horizon = a.horizon
	}
	if flags.Changed("no-bias") {
		cfg.Backtest.BiasCorrection = !a.noBias
	}
	if flags.Changed("linear") {
		cfg.Backtest.LinearCalibration = a.linear
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logging.NewLogger(cmd.ErrOrStderr())
	a.registry = prometheus.NewRegistry()
	return nil
}

func (a *app) engine(ctx context.Context) (*backcast.Engine, error) {
	opt := &backcast.Options{
		Backtest:          a.cfg.BacktestOptions(),
		ETS:               a.cfg.ETSOptions(),
		Outliers:          stats.NewDefaultOutlierOptions(),
		Timeout:           a.cfg.Engine.Timeout,
		RejectGaps:        a.cfg.Engine.RejectGaps,
		RecommendedPoints: a.cfg.Engine.RecommendedPoints,
		Concurrency:       a.cfg.Engine.Concurrency,
	}
	engOpts := []backcast.EngineOption{
		backcast.WithLogger(a.logger),
		backcast.WithMetrics(instrument.New(a.registry)),
	}

	cc := a.cfg.Cache
	switch {
	case cc.RedisAddr != "":
		r, err := cache.DialRedis(ctx, cc.RedisAddr, cc.RedisPassword, cc.RedisDB, cc.RedisPrefix, cc.TTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = r.Close() })
		engOpts = append(engOpts, backcast.WithCache(r))
	case cc.Size > 0:
		lru, err := cache.NewLRU(cc.Size, cc.TTL)
		if err != nil {
			return nil, err
		}
		engOpts = append(engOpts, backcast.WithCache(lru))
	}

	return backcast.New(opt, engOpts...)
}

func (a *app) provider(ctx context.Context) (provider.Provider, error) {
	src := a.cfg.Source
	if src.Kind == "postgres" {
		p, pool, err := provider.OpenPostgres(ctx, src.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if src.YearMin != 0 {
			p.YearMin = &src.YearMin
		}
		if src.YearMax != 0 {
			p.YearMax = &src.YearMax
		}
		return p, nil
	}

	if src.CSVPath == "" {
		return nil, errors.New("no csv file given, set --csv or source.csv_path")
	}
	p, err := provider.OpenCSV(src.CSVPath, &provider.CSVOptions{
		Delimiter:    src.DelimiterRune(),
		DecimalComma: src.DecimalComma,
		YearColumn:   src.YearColumn,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("csv loaded",
		"path", src.CSVPath, "year_column", p.YearColumn(), "decimal_comma", p.DecimalComma())
	return p, nil
}

// series resolves the selected metric. The postgres source defaults to the first metric and
// the csv source to its first suggested column.
func (a *app) series(ctx context.Context, p provider.Provider) (*series.Series, error) {
	name := a.cfg.Source.Metric
	if name == "" && a.cfg.Source.Kind == "postgres" {
		name = string(provider.ProducaoTotal)
	}
	s, err := p.Series(ctx, name)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("series loaded", "series", s.Name, "years", s.Len(),
		"first_year", s.FirstYear(), "last_year", s.LastYear())
	return s, nil
}

// finish writes the metrics textfile and releases every opened resource. Only the first call
// has an effect.
func (a *app) finish() error {
	if a.finished {
		return nil
	}
	a.finished = true
	defer func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
		a.closers = nil
	}()
	if a.metricsFile == "" || a.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
		return fmt.Errorf("unable to write metrics file, %w", err)
	}
	return nil
}

func (a *app) writePlot(s *series.Series, r *backcast.Report, f *backcast.ForecastResult) error {
	if a.plot == "" {
		return nil
	}
	file, err := os.Create(a.plot)
	if err != nil {
		return err
	}
	defer file.Close()
	return backcast.PlotReport(file, s, r, f)
}

type writer interface {
	WriteCSV(w io.Writer) error
	WriteJSON(w io.Writer) error
	TablePrint(w io.Writer, prefix, indent string) error
}

func (a *app) write(w io.Writer, res writer) error {
	switch a.format {
	case formatCSV:
		return res.WriteCSV(w)
	case formatJSON:
		return res.WriteJSON(w)
	}
	return res.TablePrint(w, "", "  ")
}
