package backcast

import (
	"errors"
	"io"
	"math"
	"strconv"

	"github.com/aouyang1/go-backcast/series"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var ErrNothingToPlot = errors.New("no report or forecast to plot")

// LineYears generates an echart multi-line chart over the input years. Each series in y must
// have the same length as years. NaN values are left as holes in the line.
func LineYears(title string, seriesName []string, years []int, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithXAxisOpts(
			opts.XAxis{
				Name: "ano",
			},
		),
	)

	x := make([]string, len(years))
	for i, yr := range years {
		x[i] = strconv.Itoa(yr)
	}
	line = line.SetXAxis(x)

	for i, name := range seriesName {
		lineData := make([]opts.LineData, len(y[i]))
		for j, v := range y[i] {
			if math.IsNaN(v) {
				lineData[j] = opts.LineData{Value: "-"}
				continue
			}
			lineData[j] = opts.LineData{Value: v}
		}
		line = line.AddSeries(name, lineData)
	}
	return line
}

// LineBacktest charts the observed and calibrated predicted values of every backtest row
func LineBacktest(r *Report) *charts.Line {
	years := make([]int, len(r.Rows))
	actual := make([]float64, len(r.Rows))
	predicted := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		years[i] = row.Year
		actual[i] = row.Actual
		predicted[i] = row.Calibrated
	}
	return LineYears("Backtest "+r.Name, []string{"real", "previsto"}, years, [][]float64{actual, predicted})
}

// LineForecast charts the history of s followed by the forecast years
func LineForecast(s *series.Series, f *ForecastResult) *charts.Line {
	n := s.Len() + len(f.Rows)
	years := make([]int, 0, n)
	history := make([]float64, 0, n)
	projected := make([]float64, 0, n)
	for i := 0; i < s.Len(); i++ {
		years = append(years, s.Years[i])
		history = append(history, s.Values[i])
		projected = append(projected, math.NaN())
	}
	// join the projection to the last observation
	if s.Len() > 0 && len(f.Rows) > 0 {
		projected[len(projected)-1] = s.Values[s.Len()-1]
	}
	for _, row := range f.Rows {
		years = append(years, row.Year)
		history = append(history, math.NaN())
		projected = append(projected, row.Value)
	}
	return LineYears("Forecast "+f.Name, []string{"historico", "previsao"}, years, [][]float64{history, projected})
}

// PlotReport renders an html page with the backtest chart and, when s and f are set, the
// history and forecast chart. Either r or f may be nil.
func PlotReport(w io.Writer, s *series.Series, r *Report, f *ForecastResult) error {
	page := components.NewPage()
	charted := false
	if r != nil && len(r.Rows) > 0 {
		page.AddCharts(LineBacktest(r))
		charted = true
	}
	if s != nil && f != nil {
		page.AddCharts(LineForecast(s, f))
		charted = true
	}
	if !charted {
		return ErrNothingToPlot
	}
	return page.Render(w)
}
