package splits

import (
	"context"
	"fmt"
	"math"

	"github.com/aristath/frontier/internal/domain"
)

// Set holds every split of a generator in one flat, pre-sized buffer so that
// candidates can be addressed by index from several goroutines.
type Set struct {
	weights []float64 // split i occupies weights[i*width : (i+1)*width]
	width   int
}

// Materialize enumerates all splits into a Set. It refuses to allocate when the
// exact count exceeds maxCandidates (0 disables the check) and stops early if
// ctx is cancelled.
func (g *Generator) Materialize(ctx context.Context, maxCandidates int) (*Set, error) {
	count := g.Count()
	if count > math.MaxInt/g.fundCount || (maxCandidates > 0 && count > maxCandidates) {
		return nil, fmt.Errorf("%d candidates for granularity %v and %d funds, ceiling %d: %w",
			count, g.granularity, g.fundCount, maxCandidates, domain.ErrCandidateCeiling)
	}

	set := &Set{
		weights: make([]float64, count*g.fundCount),
		width:   g.fundCount,
	}

	it := g.Iter()
	for i := 0; it.advance(); i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		it.fill(set.weights[i*set.width : (i+1)*set.width])
	}

	return set, nil
}

const checkEvery = 1 << 14

// Len returns the number of splits
func (s *Set) Len() int {
	if s.width == 0 {
		return 0
	}
	return len(s.weights) / s.width
}

// Width returns the number of weights per split
func (s *Set) Width() int {
	return s.width
}

// At returns split i as a view into the set. The slice must not be modified.
func (s *Set) At(i int) []float64 {
	return s.weights[i*s.width : (i+1)*s.width : (i+1)*s.width]
}
