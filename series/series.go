// Package series holds the annual series type consumed by the backtest and forecast engines
// along with the builder that reduces raw records into one.
package series

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
)

var (
	ErrDatasetLenMismatch = errors.New("years have a different length than values")
	ErrNonMonotonic       = errors.New("years are not strictly increasing")
	ErrNonFinite          = errors.New("value is not finite")
)

// Series is an annual series with one value per calendar year. Years are strictly increasing
// and values are the per-year totals. A Series is not modified after construction.
type Series struct {
	Name   string    `json:"name,omitempty"`
	Years  []int     `json:"years"`
	Values []float64 `json:"values"`
}

// New returns an instance of a Series given a year and value slice. Both inputs are copied.
func New(years []int, values []float64) (*Series, error) {
	if len(years) != len(values) {
		return nil, fmt.Errorf(
			"years has length of %d, but values has a length of %d, %w",
			len(years), len(values), ErrDatasetLenMismatch,
		)
	}

	for i := 0; i < len(years); i++ {
		if i > 0 && years[i] <= years[i-1] {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMonotonic)
		}
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return nil, fmt.Errorf("year %d, %w", years[i], ErrNonFinite)
		}
	}

	ys := make([]int, len(years))
	vs := make([]float64, len(values))
	copy(ys, years)
	copy(vs, values)
	return &Series{Years: ys, Values: vs}, nil
}

// Len returns the number of years in the series
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Years)
}

// Empty reports whether the series holds no observations
func (s *Series) Empty() bool {
	return s.Len() == 0
}

// FirstYear returns the earliest year or 0 for an empty series
func (s *Series) FirstYear() int {
	if s.Empty() {
		return 0
	}
	return s.Years[0]
}

// LastYear returns the latest year or 0 for an empty series
func (s *Series) LastYear() int {
	if s.Empty() {
		return 0
	}
	return s.Years[len(s.Years)-1]
}

// CountBefore returns the number of observations with a year strictly before the input year
func (s *Series) CountBefore(year int) int {
	if s.Empty() {
		return 0
	}
	return sort.SearchInts(s.Years, year)
}

// Before returns a copy of every observation with a year strictly before the input year
func (s *Series) Before(year int) *Series {
	n := s.CountBefore(year)
	return s.slice(0, n)
}

// Between returns a copy of the observations within the inclusive year range
func (s *Series) Between(start, end int) *Series {
	if s.Empty() || end < start {
		return &Series{Name: s.nameOrEmpty(), Years: []int{}, Values: []float64{}}
	}
	lo := sort.SearchInts(s.Years, start)
	hi := sort.SearchInts(s.Years, end+1)
	return s.slice(lo, hi)
}

// At returns the value observed at the input year
func (s *Series) At(year int) (float64, bool) {
	if s.Empty() {
		return 0, false
	}
	idx := sort.SearchInts(s.Years, year)
	if idx < len(s.Years) && s.Years[idx] == year {
		return s.Values[idx], true
	}
	return 0, false
}

// Gaps returns the calendar years missing between the first and last observation
func (s *Series) Gaps() []int {
	var gaps []int
	for i := 1; i < s.Len(); i++ {
		for y := s.Years[i-1] + 1; y < s.Years[i]; y++ {
			gaps = append(gaps, y)
		}
	}
	return gaps
}

// Copy returns a deep copy of the series
func (s *Series) Copy() *Series {
	return s.slice(0, s.Len())
}

// Fingerprint hashes the year/value contents of the series. Two series with identical
// observations share a fingerprint regardless of name.
func (s *Series) Fingerprint() uint64 {
	d := xxhash.New()
	buf := make([]byte, 8)
	for i := 0; i < s.Len(); i++ {
		binary.LittleEndian.PutUint64(buf, uint64(int64(s.Years[i])))
		_, _ = d.Write(buf)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(s.Values[i]))
		_, _ = d.Write(buf)
	}
	return d.Sum64()
}

func (s *Series) slice(lo, hi int) *Series {
	ys := make([]int, hi-lo)
	vs := make([]float64, hi-lo)
	if hi > lo {
		copy(ys, s.Years[lo:hi])
		copy(vs, s.Values[lo:hi])
	}
	return &Series{Name: s.nameOrEmpty(), Years: ys, Values: vs}
}

func (s *Series) nameOrEmpty() string {
	if s == nil {
		return ""
	}
	return s.Name
}
