package series

import (
	"math"
	"math/rand/v2"
)

// GenerateYears returns n consecutive years beginning at start
func GenerateYears(start, n int) []int {
	years := make([]int, 0, n)
	for i := 0; i < n; i++ {
		years = append(years, start+i)
	}
	return years
}

// Values is a helper slice for composing synthetic series
type Values []float64

func (v Values) Add(src Values) Values {
	for i := range v {
		if i < len(src) {
			v[i] += src[i]
		}
	}
	return v
}

// ClampZero floors every value at zero
func (v Values) ClampZero() Values {
	for i := range v {
		v[i] = math.Max(v[i], 0)
	}
	return v
}

func GenerateConst(n int, val float64) Values {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Values(y)
}

func GenerateLinear(n int, intercept, slope float64) Values {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, intercept+slope*float64(i))
	}
	return Values(y)
}

// GenerateDamped follows a damped trend path starting at level with an initial trend that
// decays by phi every year
func GenerateDamped(n int, level, trend, phi float64) Values {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, level)
		trend *= phi
		level += trend
	}
	return Values(y)
}

// GenerateNoise returns gaussian noise with a fixed seed so generated series are reproducible
func GenerateNoise(n int, scale float64, seed uint64) Values {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, r.NormFloat64()*scale)
	}
	return Values(y)
}

// MustNew is New for test fixtures and examples where inputs are known to be valid
func MustNew(years []int, values []float64) *Series {
	s, err := New(years, values)
	if err != nil {
		panic(err)
	}
	return s
}
