package backcast

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/aouyang1/go-backcast/backtest"
	"github.com/aouyang1/go-backcast/forecast"
	"github.com/aouyang1/go-backcast/util"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Report is the outcome of one backtest run
type Report struct {
	RunID        uuid.UUID             `json:"run_id"`
	Name         string                `json:"name,omitempty"`
	Start        int                   `json:"start_year"`
	End          int                   `json:"end_year"`
	Rows         []backtest.Row        `json:"rows"`
	Calibration  *backtest.Calibration `json:"calibration"`
	Scores       *backtest.Scores      `json:"scores"`
	FitFallbacks int                   `json:"fit_fallbacks"`
	Outliers     []int                 `json:"outlier_years,omitempty"`
	Cached       bool                  `json:"cached"`
}

var reportHeader = []string{"ano", "real", "previsto", "erro_abs", "erro_pct"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes the backtest table with the calibrated predictions
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, row := range r.Rows {
		rec := []string{
			strconv.Itoa(row.Year),
			formatFloat(row.Actual),
			formatFloat(row.Calibrated),
			formatFloat(row.AbsError),
			formatFloat(row.PctError),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// TablePrint writes a human readable summary of the run followed by the aligned rows
func (r *Report) TablePrint(w io.Writer, prefix, indent string) error {
	title := "Backtest"
	if r.Name != "" {
		title += " " + r.Name
	}
	if _, err := fmt.Fprintf(w, "%s%s: %d-%d\n", prefix, title, r.Start, r.End); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	lead := prefix + util.IndentExpand(indent, 1)
	if _, err := fmt.Fprintf(tw, "%sano\treal\tprevisto_bruto\tprevisto\terro_abs\terro_pct\t\n", lead); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if _, err := fmt.Fprintf(tw, "%s%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f%%\t\n",
			lead, row.Year, row.Actual, row.Raw, row.Calibrated, row.AbsError, row.PctError); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Calibration != nil {
		if err := r.Calibration.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}
	}
	if r.Scores != nil {
		if err := r.Scores.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}
	}
	if r.FitFallbacks > 0 {
		if _, err := fmt.Fprintf(w, "%s%sFallback Fits: %d\n", prefix, util.IndentExpand(indent, 1), r.FitFallbacks); err != nil {
			return err
		}
	}
	if len(r.Outliers) > 0 {
		if _, err := fmt.Fprintf(w, "%s%sOutlier Years: %v\n", prefix, util.IndentExpand(indent, 1), r.Outliers); err != nil {
			return err
		}
	}
	return nil
}

// ForecastResult is the outcome of one full series forecast
type ForecastResult struct {
	RunID  uuid.UUID       `json:"run_id"`
	Name   string          `json:"name,omitempty"`
	Model  *forecast.Model `json:"model"`
	Rows   []forecast.Row  `json:"rows"`
	Cached bool            `json:"cached"`
}

var forecastHeader = []string{"ano", "previsao"}

func (f *ForecastResult) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(forecastHeader); err != nil {
		return err
	}
	for _, row := range f.Rows {
		if err := cw.Write([]string{strconv.Itoa(row.Year), formatFloat(row.Value)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (f *ForecastResult) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

func (f *ForecastResult) TablePrint(w io.Writer, prefix, indent string) error {
	if f.Model != nil {
		if err := f.Model.TablePrint(w, prefix, indent); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	lead := prefix + util.IndentExpand(indent, 1)
	if _, err := fmt.Fprintf(tw, "%sano\tprevisao\t\n", lead); err != nil {
		return err
	}
	for _, row := range f.Rows {
		if _, err := fmt.Fprintf(tw, "%s%d\t%.2f\t\n", lead, row.Year, row.Value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// SweepResult holds the outcome of one series of a sweep. Err is set when either stage
// failed and Report is kept when only the forecast failed.
type SweepResult struct {
	Name     string          `json:"name"`
	Report   *Report         `json:"report,omitempty"`
	Forecast *ForecastResult `json:"forecast,omitempty"`
	Err      error           `json:"-"`
	Error    string          `json:"error,omitempty"`
}

func (r *SweepResult) setErr(err error) {
	r.Err = err
	r.Error = err.Error()
}

// SweepTablePrint writes one summary line per swept series
func SweepTablePrint(w io.Writer, results []SweepResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "series\trows\tmae\twape\tsmape\tnext\terror"); err != nil {
		return err
	}
	for _, r := range results {
		rows, mae, wape, smape, next := "-", "-", "-", "-", "-"
		if r.Report != nil {
			rows = strconv.Itoa(len(r.Report.Rows))
			mae = fmt.Sprintf("%.3f", r.Report.Scores.MAE)
			wape = fmt.Sprintf("%.2f%%", r.Report.Scores.WAPE*100)
			smape = fmt.Sprintf("%.2f%%", r.Report.Scores.SMAPE*100)
		}
		if r.Forecast != nil && len(r.Forecast.Rows) > 0 {
			next = fmt.Sprintf("%d=%.2f", r.Forecast.Rows[0].Year, r.Forecast.Rows[0].Value)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Name, rows, mae, wape, smape, next, r.Error); err != nil {
			return err
		}
	}
	return tw.Flush()
}
