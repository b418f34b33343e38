// Package splits enumerates quantized allocation vectors that sum to one.
package splits

import (
	"fmt"
	"math"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// GridPrecision is the number of decimal places grid weights are rounded to.
const GridPrecision = 4

// MinGranularity is the finest step the rounded grid can represent.
const MinGranularity = 1e-4

// Generator enumerates every split of a fund count under a granularity step.
//
// The first fundCount-1 weights range over the cartesian product of the grid
// {0, g, 2g, ...} ∩ [0, 1]; tuples whose partial sum exceeds 1 are pruned, and the
// last weight is always 1 - partial sum. Enumeration order is the cartesian-product
// order with the last enumerated component varying fastest.
type Generator struct {
	granularity float64
	fundCount   int
	steps       int // number of grid steps in [0, 1]
}

// NewGenerator validates the granularity and fund count. Nothing proportional to
// the grid or the candidate count is allocated.
func NewGenerator(granularity float64, fundCount int) (*Generator, error) {
	if math.IsNaN(granularity) || granularity <= 0 || granularity > 1 {
		return nil, fmt.Errorf("granularity %v must be in (0, 1]: %w", granularity, domain.ErrConfig)
	}
	if granularity < MinGranularity {
		return nil, fmt.Errorf("granularity %v is finer than %v: %w", granularity, MinGranularity, domain.ErrConfig)
	}
	if fundCount < 2 {
		return nil, fmt.Errorf("fund count %d must be at least 2: %w", fundCount, domain.ErrConfig)
	}

	// Tolerate 1/g landing a hair under an integer (e.g. 1/0.1 = 9.999...).
	steps := int(math.Floor(1/granularity + 1e-9))

	return &Generator{
		granularity: granularity,
		fundCount:   fundCount,
		steps:       steps,
	}, nil
}

// Granularity returns the configured step
func (g *Generator) Granularity() float64 {
	return g.granularity
}

// FundCount returns the split length
func (g *Generator) FundCount() int {
	return g.fundCount
}

// weight returns grid value k, k*g rounded to GridPrecision places
func (g *Generator) weight(k int) float64 {
	return formulas.RoundTo(float64(k)*g.granularity, GridPrecision)
}

// Count returns the exact number of splits the generator yields.
//
// Grid weights are k*g for integer k, so a tuple's partial sum is at most 1 exactly
// when its step counts sum to at most steps. The number of (n-1)-tuples of
// non-negative integers with sum <= T is C(T+n-1, n-1). Counts that overflow
// saturate at math.MaxInt.
func (g *Generator) Count() int {
	return binomial(g.steps+g.fundCount-1, g.fundCount-1)
}

func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}

	result := 1
	for i := 1; i <= k; i++ {
		// result*(n-k+i) is divisible by i at every step
		factor := n - k + i
		if result > math.MaxInt/factor {
			return math.MaxInt
		}
		result = result * factor / i
	}
	return result
}

// Iter returns a fresh iterator positioned before the first split. Iterators are
// independent, so the sequence can be restarted at any time.
func (g *Generator) Iter() *Iterator {
	return &Iterator{
		gen:    g,
		counts: make([]int, g.fundCount-1),
	}
}

// Iterator lazily walks the splits of a Generator.
type Iterator struct {
	gen     *Generator
	counts  []int // step counts of the enumerated components
	sum     int   // sum of counts
	started bool
	done    bool
}

// Next returns the next split, or false when the sequence is exhausted.
// The returned slice is newly allocated and owned by the caller.
func (it *Iterator) Next() ([]float64, bool) {
	if !it.advance() {
		return nil, false
	}

	split := make([]float64, it.gen.fundCount)
	it.fill(split)
	return split, true
}

// advance moves the odometer to the next tuple with sum <= steps.
// Incrementing a position past the budget carries into the position on its left,
// which skips every pruned tuple without visiting it.
func (it *Iterator) advance() bool {
	if it.done {
		return false
	}
	if !it.started {
		it.started = true
		return true
	}

	for pos := len(it.counts) - 1; pos >= 0; pos-- {
		if it.sum < it.gen.steps {
			it.counts[pos]++
			it.sum++
			return true
		}
		// Budget exhausted: reset this position and carry left.
		it.sum -= it.counts[pos]
		it.counts[pos] = 0
	}

	it.done = true
	return false
}

// fill writes the current split into dst, which must have fundCount entries.
func (it *Iterator) fill(dst []float64) {
	partial := 0.0
	for i, k := range it.counts {
		dst[i] = it.gen.weight(k)
		partial += dst[i]
	}

	// Step counts guarantee the exact partial sum is <= 1; a negative remainder
	// is rounding noise in the grid values.
	last := 1 - partial
	if last < 0 {
		last = 0
	}
	dst[len(dst)-1] = last
}
