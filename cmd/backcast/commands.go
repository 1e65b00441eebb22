package main

import (
	"fmt"

	"github.com/aouyang1/go-backcast"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func (a *app) rangeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&a.start, "start", 0, "First test year, defaults to the middle year of the series")
	cmd.Flags().IntVar(&a.end, "end", 0, "Last test year, defaults to the last year of the series")
	cmd.Flags().BoolVar(&a.noBias, "no-bias", false, "Disable the bias correction of the raw predictions")
	cmd.Flags().BoolVar(&a.linear, "linear", false, "Apply the linear recalibration after the bias correction")
}

func (a *app) horizonFlag(cmd *cobra.Command) {
	cmd.Flags().IntVar(&a.horizon, "horizon", 5, "Number of years to forecast")
}

func (a *app) backtestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest the selected metric over a range of test years",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.finish()

			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			p, err := a.provider(ctx)
			if err != nil {
				return err
			}
			s, err := a.series(ctx, p)
			if err != nil {
				return err
			}

			r, err := e.Backtest(ctx, s, backcast.Range{Start: a.cfg.Backtest.StartYear, End: a.cfg.Backtest.EndYear})
			if err != nil {
				return err
			}
			if err := a.write(cmd.OutOrStdout(), r); err != nil {
				return err
			}
			if err := a.writePlot(s, r, nil); err != nil {
				return err
			}
			return a.finish()
		},
	}
	a.rangeFlags(cmd)
	cmd.Flags().StringVar(&a.plot, "plot", "", "Write an html chart of the backtest to this file")
	return cmd
}

func (a *app) forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Fit the full series of the selected metric and forecast the following years",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.finish()

			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			p, err := a.provider(ctx)
			if err != nil {
				return err
			}
			s, err := a.series(ctx, p)
			if err != nil {
				return err
			}

			f, err := e.Forecast(ctx, s, a.cfg.Forecast.Horizon)
			if err != nil {
				return err
			}
			if err := a.write(cmd.OutOrStdout(), f); err != nil {
				return err
			}
			if err := a.writePlot(s, nil, f); err != nil {
				return err
			}
			return a.finish()
		},
	}
	a.horizonFlag(cmd)
	cmd.Flags().StringVar(&a.plot, "plot", "", "Write an html chart of the history and forecast to this file")
	return cmd
}

func (a *app) sweepCmd() *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Backtest and forecast several metrics concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.finish()

			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			p, err := a.provider(ctx)
			if err != nil {
				return err
			}

			rng := backcast.Range{Start: a.cfg.Backtest.StartYear, End: a.cfg.Backtest.EndYear}
			results, err := e.Sweep(ctx, p, names, rng, a.cfg.Forecast.Horizon)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.format == formatJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else if err := backcast.SweepTablePrint(out, results); err != nil {
				return err
			}
			return a.finish()
		},
	}
	a.rangeFlags(cmd)
	a.horizonFlag(cmd)
	cmd.Flags().StringSliceVar(&names, "metrics", nil, "Metrics to sweep, defaults to every metric of the source")
	return cmd
}

func (a *app) metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the metrics the source offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.finish()

			ctx := cmd.Context()
			p, err := a.provider(ctx)
			if err != nil {
				return err
			}
			names, err := p.Names(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.format == formatJSON {
				b, err := json.Marshal(names)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(b))
				return err
			}
			for _, n := range names {
				if _, err := fmt.Fprintln(out, n); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
