package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows serves fixed synthesis rows through the pgx.Rows interface
type fakeRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.idx-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("got %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch v := d.(type) {
		case *int64:
			*v = row[i].(int64)
		case *float64:
			*v = row[i].(float64)
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

type fakeQuerier struct {
	rows *fakeRows
	err  error
	args []any
}

func (q *fakeQuerier) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func synthesisData() [][]any {
	return [][]any{
		{int64(2019), 100.0, 10.0, 50.0, 1.0, 2.0, 3.0, 4.0},
		{int64(2020), 110.0, 11.0, 55.0, 1.5, 2.5, 3.5, 4.5},
		{int64(2021), 0.0, 12.0, 60.0, 2.0, 3.0, 4.0, 5.0},
	}
}

func TestPostgresSeries(t *testing.T) {
	testData := map[string]struct {
		metric   string
		expected []float64
	}{
		"production":   {"producao_total", []float64{100, 110, 0}},
		"processing":   {"processamento_total", []float64{10, 11, 12}},
		"commerce":     {"comercializacao_total", []float64{50, 55, 60}},
		"import qty":   {"importacao_qtd", []float64{1, 1.5, 2}},
		"import value": {"importacao_valor", []float64{2, 2.5, 3}},
		"export qty":   {"exportacao_qtd", []float64{3, 3.5, 4}},
		"export value": {"EXPORTACAO_VALOR", []float64{4, 4.5, 5}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rows := &fakeRows{data: synthesisData()}
			p := NewPostgres(&fakeQuerier{rows: rows})

			s, err := p.Series(context.Background(), td.metric)
			require.Nil(t, err)
			assert.Equal(t, []int{2019, 2020, 2021}, s.Years)
			assert.Equal(t, td.expected, s.Values)
			assert.True(t, rows.closed)
		})
	}
}

func TestPostgresYearFilter(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{}}
	p := NewPostgres(q)
	lo, hi := 2000, 2020
	p.YearMin, p.YearMax = &lo, &hi

	_, err := p.Synthesis(context.Background())
	require.Nil(t, err)
	require.Len(t, q.args, 2)
	assert.Equal(t, int64(2000), *q.args[0].(*int64))
	assert.Equal(t, int64(2020), *q.args[1].(*int64))

	p.YearMin, p.YearMax = nil, nil
	_, err = p.Synthesis(context.Background())
	require.Nil(t, err)
	assert.Nil(t, q.args[0].(*int64))
	assert.Nil(t, q.args[1].(*int64))
}

func TestPostgresErrors(t *testing.T) {
	ctx := context.Background()
	errDB := errors.New("connection reset")

	p := NewPostgres(&fakeQuerier{err: errDB})
	_, err := p.Series(ctx, "producao_total")
	assert.ErrorIs(t, err, errDB)

	p = NewPostgres(&fakeQuerier{rows: &fakeRows{data: synthesisData(), err: errDB}})
	_, err = p.Series(ctx, "producao_total")
	assert.ErrorIs(t, err, errDB)

	p = NewPostgres(&fakeQuerier{rows: &fakeRows{data: [][]any{{int64(2020), 1.0}}}})
	_, err = p.Series(ctx, "producao_total")
	assert.NotNil(t, err)

	_, err = p.Series(ctx, "vinho")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestPostgresNames(t *testing.T) {
	names, err := NewPostgres(nil).Names(context.Background())
	require.Nil(t, err)
	assert.Len(t, names, 7)
	assert.Equal(t, "producao_total", names[0])
}
