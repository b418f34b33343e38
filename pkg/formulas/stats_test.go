package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{name: "three returns", data: []float64{0.05, 0.07, 0.03}, expected: 0.05},
		{name: "single value", data: []float64{0.1}, expected: 0.1},
		{name: "negative values", data: []float64{-0.02, 0.02, -0.03}, expected: -0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Mean(tt.data), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(Mean(nil)), "mean of nothing is undefined")
}

func TestStdDev_IsSampleStandardDeviation(t *testing.T) {
	data := []float64{0.05, 0.07, 0.03}
	// Bessel-corrected: sqrt(((0)^2 + (0.02)^2 + (-0.02)^2) / 2) = 0.02
	assert.InDelta(t, 0.02, StdDev(data), 1e-12)

	assert.True(t, math.IsNaN(StdDev([]float64{0.1})), "one observation has no sample deviation")
	assert.Equal(t, 0.0, StdDev([]float64{0.25, 0.25, 0.25}))
}

func TestProduct(t *testing.T) {
	assert.InDelta(t, 1.05*1.07*1.03, Product([]float64{1.05, 1.07, 1.03}), 1e-12)
	assert.Equal(t, 1.0, Product(nil))
}

func TestSharpeRatio(t *testing.T) {
	excess := []float64{0.01, 0.03, 0.02}
	assert.InDelta(t, 0.02/0.01, SharpeRatio(excess), 1e-9)

	flat := []float64{0.25, 0.25, 0.25}
	assert.True(t, math.IsInf(SharpeRatio(flat), 1), "positive mean over zero deviation is +Inf")

	zero := []float64{0, 0, 0}
	assert.True(t, math.IsNaN(SharpeRatio(zero)))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 0.3, RoundTo(0.1+0.2, 4))
	assert.Equal(t, 0.1235, RoundTo(0.12345678, 4))
	assert.Equal(t, 1.0, RoundTo(0.99999999, 4))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(1.5))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(1)))
	assert.False(t, IsFinite(math.Inf(-1)))
}
