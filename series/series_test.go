package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testData := map[string]struct {
		years    []int
		values   []float64
		expected *Series
		err      error
	}{
		"length mismatch": {
			years:  []int{2019},
			values: []float64{1, 2},
			err:    ErrDatasetLenMismatch,
		},
		"non increasing years": {
			years:  []int{2020, 2019},
			values: []float64{1, 2},
			err:    ErrNonMonotonic,
		},
		"duplicate years": {
			years:  []int{2020, 2020},
			values: []float64{1, 2},
			err:    ErrNonMonotonic,
		},
		"valid": {
			years:  []int{2019, 2020},
			values: []float64{1, 2},
			expected: &Series{
				Years:  []int{2019, 2020},
				Values: []float64{1, 2},
			},
		},
		"empty": {
			years:  []int{},
			values: []float64{},
			expected: &Series{
				Years:  []int{},
				Values: []float64{},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s, err := New(td.years, td.values)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, s)
		})
	}
}

func TestSeriesLookups(t *testing.T) {
	s := MustNew([]int{2018, 2019, 2021, 2024}, []float64{1, 2, 3, 4})

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 2018, s.FirstYear())
	assert.Equal(t, 2024, s.LastYear())

	assert.Equal(t, 0, s.CountBefore(2018))
	assert.Equal(t, 2, s.CountBefore(2020))
	assert.Equal(t, 2, s.CountBefore(2021))
	assert.Equal(t, 4, s.CountBefore(2030))

	v, ok := s.At(2021)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	_, ok = s.At(2020)
	assert.False(t, ok)

	before := s.Before(2021)
	assert.Equal(t, []int{2018, 2019}, before.Years)
	assert.Equal(t, []float64{1, 2}, before.Values)

	between := s.Between(2019, 2021)
	assert.Equal(t, []int{2019, 2021}, between.Years)

	assert.Equal(t, []int{2020, 2022, 2023}, s.Gaps())
}

func TestSeriesEmpty(t *testing.T) {
	var s *Series
	assert.True(t, s.Empty())
	assert.Equal(t, 0, s.LastYear())
	assert.Equal(t, 0, s.Before(2020).Len())

	_, ok := s.At(2020)
	assert.False(t, ok)
}

func TestCopyIsIndependent(t *testing.T) {
	s := MustNew([]int{2019, 2020}, []float64{1, 2})
	c := s.Copy()
	c.Values[0] = 100

	assert.Equal(t, 1.0, s.Values[0])
}

func TestFingerprint(t *testing.T) {
	a := MustNew([]int{2019, 2020}, []float64{1, 2})
	b := MustNew([]int{2019, 2020}, []float64{1, 2})
	b.Name = "other"
	c := MustNew([]int{2019, 2020}, []float64{1, 2.0000001})
	d := MustNew([]int{2018, 2020}, []float64{1, 2})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}
