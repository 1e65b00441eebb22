// Package forecast fits the smoothing model once on a full series and projects it forward
package forecast

import (
	"errors"
	"fmt"
	"io"

	"github.com/aouyang1/go-backcast/backtest"
	"github.com/aouyang1/go-backcast/ets"
	"github.com/aouyang1/go-backcast/series"
	"github.com/aouyang1/go-backcast/util"
)

// DefaultHorizon is the number of years forecast when none is requested
const DefaultHorizon = 5

var ErrUntrainedForecast = errors.New("forecast has not been trained yet")

// Row is one forecast year
type Row struct {
	Year  int     `json:"ano"`
	Value float64 `json:"previsao"`
}

// Model represents a serializeable full series fit. It can be cached and used to forecast
// again without refitting.
type Model struct {
	Name         string     `json:"name,omitempty"`
	TrainEndYear int        `json:"train_end_year"`
	Fingerprint  uint64     `json:"fingerprint"`
	ETS          *ets.Model `json:"ets"`
}

// Fit trains the fitter on every value of the series. A series needs backtest.MinTrain years.
func Fit(s *series.Series, fitter backtest.Fitter) (*Model, error) {
	if fitter == nil {
		return nil, backtest.ErrNoFitter
	}
	if s.Len() < backtest.MinTrain {
		return nil, fmt.Errorf("got %d years, need %d, %w", s.Len(), backtest.MinTrain, backtest.ErrInsufficientData)
	}

	m, err := fitter.Fit(s.Values)
	if err != nil {
		return nil, fmt.Errorf("unable to fit full series, %w", err)
	}
	return &Model{
		Name:         s.Name,
		TrainEndYear: s.LastYear(),
		Fingerprint:  s.Fingerprint(),
		ETS:          m,
	}, nil
}

// Forecast returns one row per year after the training end year, in ascending order
func (m *Model) Forecast(horizon int) ([]Row, error) {
	if m == nil || m.ETS == nil {
		return nil, ErrUntrainedForecast
	}
	vals, err := m.ETS.Forecast(horizon)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(vals))
	for i, v := range vals {
		rows[i] = Row{Year: m.TrainEndYear + i + 1, Value: max(v, 0.0)}
	}
	return rows, nil
}

// Run fits the full series and forecasts horizon years beyond its last year
func Run(s *series.Series, horizon int, fitter backtest.Fitter) ([]Row, *Model, error) {
	m, err := Fit(s, fitter)
	if err != nil {
		return nil, nil, err
	}
	rows, err := m.Forecast(horizon)
	if err != nil {
		return nil, nil, err
	}
	return rows, m, nil
}

// Values returns the forecast value of each row
func Values(rows []Row) []float64 {
	res := make([]float64, len(rows))
	for i, r := range rows {
		res[i] = r.Value
	}
	return res
}

func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecast:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
		return err
	}
	if m.Name != "" {
		if _, err := fmt.Fprintf(w, "%s%sSeries: %s\n", prefix, util.IndentExpand(indent, 1), m.Name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s%sTraining End Year: %d\n", prefix, util.IndentExpand(indent, 1), m.TrainEndYear); err != nil {
		return err
	}
	if m.ETS == nil {
		return nil
	}
	return m.ETS.TablePrint(w, prefix, indent, 1)
}
