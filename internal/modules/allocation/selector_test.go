package allocation

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/search"
)

func TestBestIndex(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name     string
		sharpes  []float64
		expected int
	}{
		{"plain maximum", []float64{0.1, 0.5, 0.3}, 1},
		{"nan first", []float64{nan, 0.2, 0.1}, 1},
		{"nan between", []float64{0.4, nan, 0.9, nan}, 2},
		{"negative values", []float64{-0.3, -0.1, nan}, 1},
		{"infinity loses", []float64{math.Inf(1), 0.2, math.Inf(-1)}, 1},
		{"tie goes to later index", []float64{0.7, 0.2, 0.7}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := BestIndex(tt.sharpes)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, idx)
		})
	}
}

func TestBestIndex_NoValidCandidate(t *testing.T) {
	_, err := BestIndex([]float64{math.NaN(), math.NaN()})
	assert.ErrorIs(t, err, domain.ErrNoValidCandidate)

	_, err = BestIndex(nil)
	assert.ErrorIs(t, err, domain.ErrNoValidCandidate)
}

func sampleStatistics() *search.Statistics {
	return &search.Statistics{
		Splits:         [][]float64{{1, 0}, {0.5, 0.5}, {0, 1}},
		Volatilities:   []float64{0.04, 0.02, 0},
		AverageReturns: []float64{1.012, 1.008, 1.004},
		ReturnsAtEnd:   []float64{1.3, 1.2, 1.1},
		SharpeRatios:   []float64{0.8, 1.4, math.NaN()},
	}
}

func TestSelectBest(t *testing.T) {
	alloc, idx, err := SelectBest([]string{"fund_a", "fund_b"}, sampleStatistics())
	require.NoError(t, err)

	assert.Equal(t, 1, idx)
	assert.Equal(t, map[string]float64{"fund_a": 0.5, "fund_b": 0.5}, alloc.Allocations)
	assert.Equal(t, 1.4, alloc.SharpeRatio)
	assert.Equal(t, 1.2, alloc.ExpectedReturnsAtEnd)
	assert.Equal(t, 1.008, alloc.Average)
	assert.Equal(t, 0.02, alloc.Volatility)
}

func TestSelectBest_Errors(t *testing.T) {
	stats := sampleStatistics()
	stats.SharpeRatios = []float64{math.NaN(), math.NaN(), math.NaN()}
	_, _, err := SelectBest([]string{"fund_a", "fund_b"}, stats)
	assert.ErrorIs(t, err, domain.ErrNoValidCandidate)

	_, _, err = SelectBest([]string{"fund_a"}, sampleStatistics())
	assert.ErrorIs(t, err, domain.ErrArityMismatch)

	broken := sampleStatistics()
	broken.Volatilities = broken.Volatilities[:1]
	_, _, err = SelectBest([]string{"fund_a", "fund_b"}, broken)
	assert.ErrorIs(t, err, domain.ErrLengthMismatch)
}

func TestAllocation_JSONShape(t *testing.T) {
	alloc, _, err := SelectBest([]string{"fund_a", "fund_b"}, sampleStatistics())
	require.NoError(t, err)

	data, err := json.Marshal(alloc)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.ElementsMatch(t,
		[]string{"allocations", "sharpe_ratio", "expected_returns_at_end", "average", "volatility"},
		keys(raw))
	assert.Equal(t, map[string]interface{}{"fund_a": 0.5, "fund_b": 0.5}, raw["allocations"])
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
