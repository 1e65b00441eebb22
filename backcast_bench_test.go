package backcast

import (
	"context"
	"os"
	"testing"

	"github.com/aouyang1/go-backcast/forecast"
	"github.com/aouyang1/go-backcast/series"
	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

var (
	benchReport   *Report
	benchForecast []forecast.Row
)

func benchSeries() *series.Series {
	n := 40
	y := series.GenerateDamped(n, 1000, 25, 0.95).
		Add(series.GenerateNoise(n, 30, 7)).
		ClampZero()
	return series.MustNew(series.GenerateYears(1985, n), y)
}

func BenchmarkBacktest(b *testing.B) {
	s := benchSeries()
	e, err := New(nil)
	if err != nil {
		panic(err)
	}
	ctx := context.Background()

	defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	for b.Loop() {
		benchReport, err = e.Backtest(ctx, s, Range{})
		if err != nil {
			panic(err)
		}
	}
}

func BenchmarkFitToModel(b *testing.B) {
	s := benchSeries()
	e, err := New(nil)
	if err != nil {
		panic(err)
	}

	var res *ForecastResult
	for b.Loop() {
		res, err = e.Forecast(context.Background(), s, forecast.DefaultHorizon)
		if err != nil {
			panic(err)
		}
	}

	bytes, err := json.MarshalIndent(res.Model, "", "  ")
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile("benchmark_model.json", bytes, 0o644); err != nil {
		panic(err)
	}
}

func BenchmarkForecastFromModel(b *testing.B) {
	bytes, err := os.ReadFile("benchmark_model.json")
	if err != nil {
		b.Skip("run BenchmarkFitToModel first")
	}

	var m forecast.Model
	if err := json.Unmarshal(bytes, &m); err != nil {
		panic(err)
	}

	for b.Loop() {
		benchForecast, err = m.Forecast(forecast.DefaultHorizon)
		if err != nil {
			panic(err)
		}
	}
}
