package frontier

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
)

func indices(points []Point) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.Index
	}
	return out
}

func splitsFor(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{float64(i), 1 - float64(i)}
	}
	return out
}

func TestExtract_Square(t *testing.T) {
	vols := []float64{0, 1, 1, 0, 0.5, 0.5}
	avgs := []float64{0, 0, 1, 1, 0.5, 0}

	ext := NewExtractor(zerolog.Nop())
	result, err := ext.Extract(vols, avgs, splitsFor(len(vols)))
	require.NoError(t, err)

	// Interior point 4 and collinear edge point 5 are not vertices
	assert.Equal(t, []int{0, 1, 2, 3}, indices(result.Points))
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Excluded)

	for _, p := range result.Points {
		assert.Equal(t, vols[p.Index], p.Volatility)
		assert.Equal(t, avgs[p.Index], p.AverageReturn)
		assert.Equal(t, []float64{float64(p.Index), 1 - float64(p.Index)}, p.Split)
	}
}

func TestExtract_Containment(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 500
	vols := make([]float64, n)
	avgs := make([]float64, n)
	for i := 0; i < n; i++ {
		vols[i] = 0.01 + rng.Float64()*0.05
		avgs[i] = -0.01 + rng.Float64()*0.03
	}

	ext := NewExtractor(zerolog.Nop())
	result, err := ext.Extract(vols, avgs, splitsFor(n))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(result.Points), 3)

	hull := result.Points
	for i := 0; i < n; i++ {
		p := point{x: vols[i], y: avgs[i]}
		for j := range hull {
			a := point{x: hull[j].Volatility, y: hull[j].AverageReturn}
			b := point{x: hull[(j+1)%len(hull)].Volatility, y: hull[(j+1)%len(hull)].AverageReturn}
			assert.GreaterOrEqual(t, cross(a, b, p), -1e-12, "point %d outside edge %d", i, j)
		}
	}

	// Starts at the lowest volatility
	for _, v := range vols {
		assert.LessOrEqual(t, hull[0].Volatility, v)
	}
}

func TestExtract_Degenerate(t *testing.T) {
	ext := NewExtractor(zerolog.Nop())

	t.Run("empty", func(t *testing.T) {
		result, err := ext.Extract(nil, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, result.Points)
	})

	t.Run("single point", func(t *testing.T) {
		result, err := ext.Extract([]float64{0.2}, []float64{0.01}, splitsFor(1))
		require.NoError(t, err)
		assert.Equal(t, []int{0}, indices(result.Points))
	})

	t.Run("two points", func(t *testing.T) {
		result, err := ext.Extract([]float64{0.3, 0.2}, []float64{0.02, 0.01}, splitsFor(2))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0}, indices(result.Points))
	})

	t.Run("collinear", func(t *testing.T) {
		result, err := ext.Extract(
			[]float64{0.1, 0.2, 0.3, 0.4},
			[]float64{0.01, 0.02, 0.03, 0.04},
			splitsFor(4),
		)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 3}, indices(result.Points))
	})

	t.Run("coincident points keep lowest index", func(t *testing.T) {
		result, err := ext.Extract(
			[]float64{0.1, 0.5, 0.1, 0.3},
			[]float64{0.0, 0.0, 0.0, 0.2},
			splitsFor(4),
		)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 3}, indices(result.Points))
	})
}

func TestExtract_ExcludesNonFinite(t *testing.T) {
	vols := []float64{0, 1, math.NaN(), 0, math.Inf(1)}
	avgs := []float64{0, 0, 5, 1, 2}

	ext := NewExtractor(zerolog.Nop())
	result, err := ext.Extract(vols, avgs, splitsFor(len(vols)))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Excluded)
	assert.Equal(t, []int{0, 1, 3}, indices(result.Points))
}

func TestExtract_LookupFailureIsSkipped(t *testing.T) {
	vols := []float64{0, 1, 1, 0}
	avgs := []float64{0, 0, 1, 1}
	splits := splitsFor(4)
	splits[2] = nil

	ext := NewExtractor(zerolog.Nop())
	result, err := ext.Extract(vols, avgs, splits)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []int{0, 1, 3}, indices(result.Points))
}

func TestExtract_LengthMismatch(t *testing.T) {
	ext := NewExtractor(zerolog.Nop())
	_, err := ext.Extract([]float64{0.1, 0.2}, []float64{0.1}, splitsFor(2))
	assert.ErrorIs(t, err, domain.ErrLengthMismatch)
}

func TestLookup(t *testing.T) {
	splits := [][]float64{{0.5, 0.5}}

	got, err := lookup(splits, 0)
	require.NoError(t, err)
	got[0] = 9
	assert.Equal(t, 0.5, splits[0][0], "lookup must return a copy")

	_, err = lookup(splits, 3)
	assert.ErrorIs(t, err, domain.ErrLookupFailure)
}

func TestEfficient(t *testing.T) {
	vols := []float64{0.1, 0.2, 0.3, 0.25, 0.15}
	avgs := []float64{0.01, 0.03, 0.04, 0.0, 0.005}

	ext := NewExtractor(zerolog.Nop())
	result, err := ext.Extract(vols, avgs, splitsFor(len(vols)))
	require.NoError(t, err)

	efficient := Efficient(result.Points)
	assert.Equal(t, []int{0, 1, 2}, indices(efficient))

	for i := 1; i < len(efficient); i++ {
		assert.Greater(t, efficient[i].Volatility, efficient[i-1].Volatility)
		assert.Greater(t, efficient[i].AverageReturn, efficient[i-1].AverageReturn)
	}

	assert.Empty(t, Efficient(nil))
}
