package splits

import (
	"context"
	"math"
	"testing"

	"github.com/aristath/frontier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grid lists every weight value the generator can emit.
func grid(g *Generator) []float64 {
	out := make([]float64, g.steps+1)
	for k := range out {
		out[k] = g.weight(k)
	}
	return out
}

func collect(t *testing.T, g *Generator) [][]float64 {
	t.Helper()
	var out [][]float64
	it := g.Iter()
	for split, ok := it.Next(); ok; split, ok = it.Next() {
		out = append(out, split)
	}
	return out
}

// bruteForceCount enumerates the full cartesian product of the grid and keeps
// tuples whose partial sum is at most 1.
func bruteForceCount(grid []float64, components int) int {
	count := 0
	var walk func(depth int, sum float64)
	walk = func(depth int, sum float64) {
		if depth == components {
			if sum <= 1+1e-9 {
				count++
			}
			return
		}
		for _, w := range grid {
			walk(depth+1, sum+w)
		}
	}
	walk(0, 0)
	return count
}

func TestNewGenerator_Validation(t *testing.T) {
	tests := []struct {
		name        string
		granularity float64
		fundCount   int
	}{
		{"zero granularity", 0, 3},
		{"negative granularity", -0.1, 3},
		{"granularity above one", 1.5, 3},
		{"NaN granularity", math.NaN(), 3},
		{"single fund", 0.1, 1},
		{"no funds", 0.1, 0},
		{"finer than grid precision", 1e-7, 2},
		{"vanishing granularity", 1e-300, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.granularity, tt.fundCount)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfig)
		})
	}
}

func TestGenerator_Grid(t *testing.T) {
	g, err := NewGenerator(0.1, 2)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}, grid(g))

	g, err = NewGenerator(0.3, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.3, 0.6, 0.9}, grid(g), "grid stays inside [0, 1]")
}

func TestGenerator_SplitProperties(t *testing.T) {
	cases := []struct {
		granularity float64
		fundCount   int
	}{
		{0.5, 2}, {0.1, 2}, {0.1, 3}, {0.25, 4}, {0.05, 3}, {0.3, 3}, {0.2, 5}, {1, 3},
	}

	for _, c := range cases {
		g, err := NewGenerator(c.granularity, c.fundCount)
		require.NoError(t, err)

		splits := collect(t, g)
		require.NotEmpty(t, splits)

		for _, split := range splits {
			require.Len(t, split, c.fundCount)
			sum := 0.0
			for _, w := range split {
				assert.GreaterOrEqual(t, w, 0.0)
				sum += w
			}
			assert.InDelta(t, 1.0, sum, 1e-6, "split %v must sum to 1", split)
		}
	}
}

func TestGenerator_CountMatchesBruteForce(t *testing.T) {
	cases := []struct {
		granularity float64
		fundCount   int
	}{
		{0.5, 2}, {0.1, 2}, {0.1, 3}, {0.1, 4}, {0.25, 4}, {0.2, 5}, {0.05, 3}, {0.3, 3}, {1, 4},
	}

	for _, c := range cases {
		g, err := NewGenerator(c.granularity, c.fundCount)
		require.NoError(t, err)

		expected := bruteForceCount(grid(g), c.fundCount-1)
		assert.Equal(t, expected, g.Count(), "count for g=%v n=%d", c.granularity, c.fundCount)
		assert.Len(t, collect(t, g), expected, "generated for g=%v n=%d", c.granularity, c.fundCount)
	}
}

func TestGenerator_CartesianOrder(t *testing.T) {
	g, err := NewGenerator(0.5, 3)
	require.NoError(t, err)

	expected := [][]float64{
		{0, 0, 1},
		{0, 0.5, 0.5},
		{0, 1, 0},
		{0.5, 0, 0.5},
		{0.5, 0.5, 0},
		{1, 0, 0},
	}
	assert.Equal(t, expected, collect(t, g))
}

func TestGenerator_Restartable(t *testing.T) {
	g, err := NewGenerator(0.1, 3)
	require.NoError(t, err)

	first := collect(t, g)
	second := collect(t, g)
	assert.Equal(t, first, second)

	it := g.Iter()
	_, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, first, collect(t, g), "a new iterator ignores one in progress")
}

func TestGenerator_LastWeightIsRemainder(t *testing.T) {
	g, err := NewGenerator(0.1, 3)
	require.NoError(t, err)

	for _, split := range collect(t, g) {
		assert.Equal(t, math.Max(0, 1-(split[0]+split[1])), split[2])
	}
}

func TestGenerator_CountLarge(t *testing.T) {
	// granularity 0.01 with 5 funds: C(104, 4)
	g, err := NewGenerator(0.01, 5)
	require.NoError(t, err)
	assert.Equal(t, 4598126, g.Count())

	g, err = NewGenerator(MinGranularity, 200)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, g.Count(), "overflowing counts saturate")
}

func TestMaterialize(t *testing.T) {
	g, err := NewGenerator(0.1, 3)
	require.NoError(t, err)

	set, err := g.Materialize(context.Background(), 0)
	require.NoError(t, err)

	expected := collect(t, g)
	require.Equal(t, len(expected), set.Len())
	assert.Equal(t, 3, set.Width())
	for i, split := range expected {
		assert.Equal(t, split, set.At(i))
	}
}

func TestMaterialize_RejectsOverCeiling(t *testing.T) {
	g, err := NewGenerator(0.01, 5)
	require.NoError(t, err)

	_, err = g.Materialize(context.Background(), 1_000_000)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCandidateCeiling)
}

func TestMaterialize_Cancelled(t *testing.T) {
	g, err := NewGenerator(0.1, 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Materialize(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
