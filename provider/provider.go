// Package provider resolves a selectable metric into an annual series. The engine only ever
// sees the resulting series.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aouyang1/go-backcast/series"
)

// Metric is a selectable annual total of the synthesis table
type Metric string

const (
	ProducaoTotal        Metric = "producao_total"
	ProcessamentoTotal   Metric = "processamento_total"
	ComercializacaoTotal Metric = "comercializacao_total"
	ImportacaoQtd        Metric = "importacao_qtd"
	ImportacaoValor      Metric = "importacao_valor"
	ExportacaoQtd        Metric = "exportacao_qtd"
	ExportacaoValor      Metric = "exportacao_valor"
)

var (
	ErrUnknownMetric = errors.New("unknown metric")
	ErrUnknownColumn = errors.New("column not found")
	ErrNoValueColumn = errors.New("no numeric column besides the year")
)

// Metrics lists every metric in display priority order
func Metrics() []Metric {
	return []Metric{
		ProducaoTotal,
		ProcessamentoTotal,
		ComercializacaoTotal,
		ImportacaoQtd,
		ImportacaoValor,
		ExportacaoQtd,
		ExportacaoValor,
	}
}

// ParseMetric resolves a metric by name, ignoring case and surrounding spaces
func ParseMetric(s string) (Metric, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Metrics() {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%q, %w", s, ErrUnknownMetric)
}

// Provider supplies one annual series per selectable name
type Provider interface {
	// Names lists the selectable series in preference order
	Names(ctx context.Context) ([]string, error)

	// Series builds the series for a name
	Series(ctx context.Context, name string) (*series.Series, error)
}

// priorityOrder puts the known metric names first, in Metrics order, followed by the rest in
// their input order
func priorityOrder(names []string) []string {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	res := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, m := range Metrics() {
		if known[string(m)] {
			res = append(res, string(m))
			seen[string(m)] = true
		}
	}
	for _, n := range names {
		if !seen[n] {
			res = append(res, n)
		}
	}
	return res
}
