package series

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// dayfirst layouts are tried after plain numeric years
var yearLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01",
	time.RFC3339,
}

// Record is a raw row carrying a year field and a metric field as text. Either may be
// missing or malformed.
type Record struct {
	Year  string
	Value string
}

// BuilderOptions controls how Record fields are parsed
type BuilderOptions struct {
	// DecimalComma parses values such as "1.234,5"
	DecimalComma bool
}

// Builder reduces raw rows into a Series. Rows sharing a year are summed and rows with a
// missing or non-numeric year or value are dropped.
type Builder struct {
	opt     *BuilderOptions
	totals  map[int]float64
	dropped int
}

// NewBuilder creates a builder. A nil options uses the defaults.
func NewBuilder(opt *BuilderOptions) *Builder {
	if opt == nil {
		opt = &BuilderOptions{}
	}
	return &Builder{
		opt:    opt,
		totals: make(map[int]float64),
	}
}

// Add parses and accumulates a raw record. It returns false when the record was dropped.
func (b *Builder) Add(r Record) bool {
	year, ok := ParseYear(r.Year)
	if !ok {
		b.dropped++
		return false
	}
	val, ok := ParseValue(r.Value, b.opt.DecimalComma)
	if !ok {
		b.dropped++
		return false
	}
	b.totals[year] += val
	return true
}

// AddPoint accumulates an already typed observation. Non-finite values are dropped.
func (b *Builder) AddPoint(year int, value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		b.dropped++
		return false
	}
	b.totals[year] += value
	return true
}

// Dropped returns the number of rows excluded so far
func (b *Builder) Dropped() int {
	return b.dropped
}

// Series returns the accumulated totals sorted ascending by year
func (b *Builder) Series() *Series {
	years := make([]int, 0, len(b.totals))
	for y := range b.totals {
		years = append(years, y)
	}
	sort.Ints(years)

	values := make([]float64, len(years))
	for i, y := range years {
		values[i] = b.totals[y]
	}
	return &Series{Years: years, Values: values}
}

// Build reduces the records into a Series using default options
func Build(records []Record) *Series {
	b := NewBuilder(nil)
	for _, r := range records {
		b.Add(r)
	}
	return b.Series()
}

// ParseYear extracts a calendar year from an integer, an integral float or a date string
func ParseYear(s string) (int, bool) {
	s = cleanField(s)
	if s == "" {
		return 0, false
	}
	if y, err := strconv.Atoi(s); err == nil {
		if y > math.MaxInt32 || y < math.MinInt32 {
			return 0, false
		}
		return y, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return 0, false
		}
		return int(f), true
	}
	for _, layout := range yearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// ParseValue parses a finite numeric value. With decimalComma set, "." is treated as a
// thousands separator and "," as the decimal mark.
func ParseValue(s string, decimalComma bool) (float64, bool) {
	s = cleanField(s)
	if s == "" {
		return 0, false
	}
	if decimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func cleanField(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\""))
}
