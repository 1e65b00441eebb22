package provider

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aouyang1/go-backcast/series"
)

// value column hints, matched against lower cased headers
var valueHints = []string{"total", "valor", "produc", "import", "export"}

// CSVOptions holds options for CSV loading
type CSVOptions struct {
	// Delimiter is the field separator. Zero tries ',' and falls back to ';' with decimal
	// commas when the header has a single column.
	Delimiter rune

	DecimalComma bool

	// YearColumn names the year column. Empty picks the first header containing "ano" or
	// "year", else the first column.
	YearColumn string
}

func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{}
}

// CSV serves series from the columns of a delimited table with a header row
type CSV struct {
	header       []string
	rows         [][]string
	yearIdx      int
	decimalComma bool
}

// OpenCSV loads the table at path
func OpenCSV(path string, opt *CSVOptions) (*CSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return NewCSV(f, opt)
}

// NewCSV reads the full table from r
func NewCSV(r io.Reader, opt *CSVOptions) (*CSV, error) {
	if opt == nil {
		opt = DefaultCSVOptions()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read csv, %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	delim, decimalComma := opt.Delimiter, opt.DecimalComma
	if delim == 0 {
		delim = ','
	}
	records, err := readRecords(data, delim)
	if opt.Delimiter == 0 && (err != nil || (len(records) > 0 && len(records[0]) == 1 && bytes.ContainsRune(data, ';'))) {
		delim, decimalComma = ';', true
		records, err = readRecords(data, delim)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to parse csv, %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header, %w", ErrUnknownColumn)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.Trim(h, "\""))
	}

	yearIdx, err := findYearColumn(header, opt.YearColumn)
	if err != nil {
		return nil, err
	}

	return &CSV{
		header:       header,
		rows:         records[1:],
		yearIdx:      yearIdx,
		decimalComma: decimalComma,
	}, nil
}

func readRecords(data []byte, delim rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func findYearColumn(header []string, name string) (int, error) {
	if name != "" {
		for i, h := range header {
			if strings.EqualFold(h, name) {
				return i, nil
			}
		}
		return -1, fmt.Errorf("year column %q, %w", name, ErrUnknownColumn)
	}
	for i, h := range header {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "ano") || strings.Contains(lower, "year") {
			return i, nil
		}
	}
	return 0, nil
}

// YearColumn returns the header of the detected year column
func (c *CSV) YearColumn() string {
	return c.header[c.yearIdx]
}

// DecimalComma reports whether values are parsed with a decimal comma
func (c *CSV) DecimalComma() bool {
	return c.decimalComma
}

// NumericColumns returns the columns other than the year where every non-empty cell is a
// number and at least one cell is set
func (c *CSV) NumericColumns() []string {
	var cols []string
	for i, h := range c.header {
		if i == c.yearIdx {
			continue
		}
		if c.numeric(i) {
			cols = append(cols, h)
		}
	}
	return cols
}

func (c *CSV) numeric(col int) bool {
	set := 0
	for _, row := range c.rows {
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			continue
		}
		if _, ok := series.ParseValue(row[col], c.decimalComma); !ok {
			return false
		}
		set++
	}
	return set > 0
}

// Suggested returns the numeric columns whose header looks like a total, value, production,
// import or export. When none match every numeric column is returned.
func (c *CSV) Suggested() []string {
	numeric := c.NumericColumns()
	var sug []string
	for _, h := range numeric {
		lower := strings.ToLower(h)
		for _, hint := range valueHints {
			if strings.Contains(lower, hint) {
				sug = append(sug, h)
				break
			}
		}
	}
	if len(sug) == 0 {
		return numeric
	}
	return sug
}

func (c *CSV) Names(_ context.Context) ([]string, error) {
	names := c.NumericColumns()
	if len(names) == 0 {
		return nil, ErrNoValueColumn
	}
	return priorityOrder(names), nil
}

// Series builds the series of the named column. An empty name uses the first suggested
// column. Rows with a missing or malformed year or value are dropped.
func (c *CSV) Series(_ context.Context, name string) (*series.Series, error) {
	if name == "" {
		sug := c.Suggested()
		if len(sug) == 0 {
			return nil, ErrNoValueColumn
		}
		name = sug[0]
	}

	col := -1
	for i, h := range c.header {
		if h == name && i != c.yearIdx {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("value column %q, %w", name, ErrUnknownColumn)
	}

	b := series.NewBuilder(&series.BuilderOptions{DecimalComma: c.decimalComma})
	for _, row := range c.rows {
		if c.yearIdx >= len(row) || col >= len(row) {
			continue
		}
		b.Add(series.Record{Year: row[c.yearIdx], Value: row[col]})
	}
	s := b.Series()
	s.Name = name
	return s, nil
}
