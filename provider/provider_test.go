package provider

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetric(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected Metric
		err      error
	}{
		"exact":    {"importacao_valor", ImportacaoValor, nil},
		"padded":   {"  Producao_Total ", ProducaoTotal, nil},
		"unknown":  {"uva", "", ErrUnknownMetric},
		"empty":    {"", "", ErrUnknownMetric},
		"exp qtd":  {"exportacao_qtd", ExportacaoQtd, nil},
		"process":  {"processamento_total", ProcessamentoTotal, nil},
		"commerce": {"comercializacao_total", ComercializacaoTotal, nil},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			m, err := ParseMetric(td.input)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, m)
		})
	}
}

func TestPriorityOrder(t *testing.T) {
	in := []string{"quantidade", "exportacao_qtd", "producao_total", "valor"}
	assert.Equal(t, []string{"producao_total", "exportacao_qtd", "quantidade", "valor"}, priorityOrder(in))
}

func TestCSVSeries(t *testing.T) {
	ctx := context.Background()

	testData := map[string]struct {
		data     string
		opt      *CSVOptions
		column   string
		yearCol  string
		years    []int
		values   []float64
		decComma bool
	}{
		"comma separated": {
			data:    "ano,producao_total,obs\n2020,10,a\n2019,5,b\n2020,2.5,c\n",
			yearCol: "ano",
			years:   []int{2019, 2020},
			values:  []float64{5, 12.5},
		},
		"semicolon with decimal comma": {
			data:     "Ano;Valor\n2020;1.234,5\n2021;10,5\n",
			yearCol:  "Ano",
			years:    []int{2020, 2021},
			values:   []float64{1234.5, 10.5},
			decComma: true,
		},
		"dates and drops": {
			data:    "data,total\n15/03/2020,1\n2021-06-01,2\n,3\nabc,4\n2022,\n",
			yearCol: "data",
			years:   []int{2020, 2021},
			values:  []float64{1, 2},
		},
		"first column fallback": {
			data:    "periodo,quantidade\n2018,7\n2019,8\n",
			yearCol: "periodo",
			years:   []int{2018, 2019},
			values:  []float64{7, 8},
		},
		"named column": {
			data:    "year,exportacao_valor,importacao_valor\n2020,1,2\n2021,3,4\n",
			column:  "importacao_valor",
			yearCol: "year",
			years:   []int{2020, 2021},
			values:  []float64{2, 4},
		},
		"explicit options": {
			data:    "x|y|z\n1|2020|9\n2|2021|8\n",
			opt:     &CSVOptions{Delimiter: '|', YearColumn: "y"},
			column:  "z",
			yearCol: "y",
			years:   []int{2020, 2021},
			values:  []float64{9, 8},
		},
		"quoted header and bom": {
			data:    "\ufeff\"ano\",\"valor\"\n\"2020\",\"3\"\n",
			yearCol: "ano",
			years:   []int{2020},
			values:  []float64{3},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			c, err := NewCSV(strings.NewReader(td.data), td.opt)
			require.Nil(t, err)
			assert.Equal(t, td.yearCol, c.YearColumn())
			assert.Equal(t, td.decComma, c.DecimalComma())

			s, err := c.Series(ctx, td.column)
			require.Nil(t, err)
			assert.Equal(t, td.years, s.Years)
			assert.InDeltaSlice(t, td.values, s.Values, 1e-9)
		})
	}
}

func TestCSVColumns(t *testing.T) {
	data := "ano,obs,quantidade,producao_total,exportacao_qtd\n2020,a,1,2,3\n2021,b,4,,6\n"
	c, err := NewCSV(strings.NewReader(data), nil)
	require.Nil(t, err)

	assert.Equal(t, []string{"quantidade", "producao_total", "exportacao_qtd"}, c.NumericColumns())
	assert.Equal(t, []string{"producao_total", "exportacao_qtd"}, c.Suggested())

	names, err := c.Names(context.Background())
	require.Nil(t, err)
	assert.Equal(t, []string{"producao_total", "exportacao_qtd", "quantidade"}, names)

	s, err := c.Series(context.Background(), "")
	require.Nil(t, err)
	assert.Equal(t, "producao_total", s.Name)
	assert.Equal(t, []int{2020}, s.Years)
}

func TestCSVErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewCSV(strings.NewReader(""), nil)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = NewCSV(strings.NewReader("a,b\n1,2\n"), &CSVOptions{YearColumn: "ano"})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	c, err := NewCSV(strings.NewReader("ano,obs\n2020,x\n"), nil)
	require.Nil(t, err)
	_, err = c.Series(ctx, "")
	assert.ErrorIs(t, err, ErrNoValueColumn)
	_, err = c.Names(ctx)
	assert.ErrorIs(t, err, ErrNoValueColumn)
	_, err = c.Series(ctx, "ano")
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = c.Series(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestOpenCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serie.csv")
	require.Nil(t, os.WriteFile(path, []byte("ano,valor\n2020,1\n2021,2\n"), 0o600))

	c, err := OpenCSV(path, nil)
	require.Nil(t, err)
	s, err := c.Series(context.Background(), "valor")
	require.Nil(t, err)
	assert.Equal(t, []float64{1, 2}, s.Values)

	_, err = OpenCSV(filepath.Join(t.TempDir(), "missing.csv"), nil)
	assert.NotNil(t, err)
}
