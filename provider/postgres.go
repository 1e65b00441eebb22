package provider

import (
	"context"
	"fmt"

	"github.com/aouyang1/go-backcast/series"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// synthesisSQL yields one row per year found in any source table with the yearly totals of
// each metric. Missing totals are zero.
const synthesisSQL = `
WITH anos AS (
    SELECT DISTINCT ano FROM public.producao
    UNION
    SELECT DISTINCT ano FROM public.processamento
    UNION
    SELECT DISTINCT ano FROM public.comercializacao
    UNION
    SELECT DISTINCT ano FROM public.importacao
    UNION
    SELECT DISTINCT ano FROM public.exportacao
),
prod AS (
    SELECT ano, SUM(quantidade) AS producao_total FROM public.producao GROUP BY ano
),
proc AS (
    SELECT ano, SUM(quantidade) AS processamento_total FROM public.processamento GROUP BY ano
),
com AS (
    SELECT ano, SUM(quantidade) AS comercializacao_total FROM public.comercializacao GROUP BY ano
),
imp AS (
    SELECT ano, SUM(quantidade) AS importacao_qtd, COALESCE(SUM(valor), 0) AS importacao_valor
    FROM public.importacao GROUP BY ano
),
exp AS (
    SELECT ano, SUM(quantidade) AS exportacao_qtd, COALESCE(SUM(valor), 0) AS exportacao_valor
    FROM public.exportacao GROUP BY ano
)
SELECT
    a.ano::int8                                      AS ano,
    COALESCE(prod.producao_total, 0)::float8         AS producao_total,
    COALESCE(proc.processamento_total, 0)::float8    AS processamento_total,
    COALESCE(com.comercializacao_total, 0)::float8   AS comercializacao_total,
    COALESCE(imp.importacao_qtd, 0)::float8          AS importacao_qtd,
    COALESCE(imp.importacao_valor, 0)::float8        AS importacao_valor,
    COALESCE(exp.exportacao_qtd, 0)::float8          AS exportacao_qtd,
    COALESCE(exp.exportacao_valor, 0)::float8        AS exportacao_valor
FROM anos a
LEFT JOIN prod ON prod.ano = a.ano
LEFT JOIN proc ON proc.ano = a.ano
LEFT JOIN com  ON com.ano  = a.ano
LEFT JOIN imp  ON imp.ano  = a.ano
LEFT JOIN exp  ON exp.ano  = a.ano
WHERE ($1::int8 IS NULL OR a.ano >= $1)
  AND ($2::int8 IS NULL OR a.ano <= $2)
ORDER BY a.ano`

// Querier runs a query. *pgxpool.Pool, *pgx.Conn and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SynthesisRow is one year of the synthesis table
type SynthesisRow struct {
	Year                 int64
	ProducaoTotal        float64
	ProcessamentoTotal   float64
	ComercializacaoTotal float64
	ImportacaoQtd        float64
	ImportacaoValor      float64
	ExportacaoQtd        float64
	ExportacaoValor      float64
}

// Value returns the total of the metric
func (r SynthesisRow) Value(m Metric) (float64, error) {
	switch m {
	case ProducaoTotal:
		return r.ProducaoTotal, nil
	case ProcessamentoTotal:
		return r.ProcessamentoTotal, nil
	case ComercializacaoTotal:
		return r.ComercializacaoTotal, nil
	case ImportacaoQtd:
		return r.ImportacaoQtd, nil
	case ImportacaoValor:
		return r.ImportacaoValor, nil
	case ExportacaoQtd:
		return r.ExportacaoQtd, nil
	case ExportacaoValor:
		return r.ExportacaoValor, nil
	}
	return 0, fmt.Errorf("%q, %w", m, ErrUnknownMetric)
}

// Postgres serves metric series from the synthesis query, optionally limited to a year range
type Postgres struct {
	q Querier

	// YearMin and YearMax bound the returned years when set
	YearMin *int
	YearMax *int
}

func NewPostgres(q Querier) *Postgres {
	return &Postgres{q: q}
}

// OpenPostgres connects a pool to the database at dsn and verifies it responds
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create postgres pool, %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("unable to reach postgres, %w", err)
	}
	return NewPostgres(pool), pool, nil
}

// Synthesis returns the yearly totals ordered by year
func (p *Postgres) Synthesis(ctx context.Context) ([]SynthesisRow, error) {
	var yearMin, yearMax *int64
	if p.YearMin != nil {
		v := int64(*p.YearMin)
		yearMin = &v
	}
	if p.YearMax != nil {
		v := int64(*p.YearMax)
		yearMax = &v
	}

	rows, err := p.q.Query(ctx, synthesisSQL, yearMin, yearMax)
	if err != nil {
		return nil, fmt.Errorf("unable to query synthesis, %w", err)
	}
	defer rows.Close()

	var res []SynthesisRow
	for rows.Next() {
		var r SynthesisRow
		if err := rows.Scan(
			&r.Year,
			&r.ProducaoTotal,
			&r.ProcessamentoTotal,
			&r.ComercializacaoTotal,
			&r.ImportacaoQtd,
			&r.ImportacaoValor,
			&r.ExportacaoQtd,
			&r.ExportacaoValor,
		); err != nil {
			return nil, fmt.Errorf("unable to scan synthesis row, %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read synthesis rows, %w", err)
	}
	return res, nil
}

func (p *Postgres) Names(_ context.Context) ([]string, error) {
	metrics := Metrics()
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = string(m)
	}
	return names, nil
}

// Series builds the series of the named metric from the synthesis rows
func (p *Postgres) Series(ctx context.Context, name string) (*series.Series, error) {
	m, err := ParseMetric(name)
	if err != nil {
		return nil, err
	}
	rows, err := p.Synthesis(ctx)
	if err != nil {
		return nil, err
	}

	b := series.NewBuilder(nil)
	for _, r := range rows {
		v, err := r.Value(m)
		if err != nil {
			return nil, err
		}
		b.AddPoint(int(r.Year), v)
	}
	s := b.Series()
	s.Name = string(m)
	return s, nil
}
