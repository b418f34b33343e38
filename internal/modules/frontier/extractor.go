// Package frontier extracts the efficient frontier of a searched candidate cloud
// and recovers the allocation behind each boundary vertex.
package frontier

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// Point is one hull vertex with the candidate it originated from.
type Point struct {
	Index         int       `json:"index"`
	Volatility    float64   `json:"volatility"`
	AverageReturn float64   `json:"average_return"`
	Split         []float64 `json:"split"`
}

// Extraction is the hull boundary in counter-clockwise order.
type Extraction struct {
	Points   []Point `json:"points"`
	Skipped  int     `json:"skipped"`  // vertices whose split could not be recovered
	Excluded int     `json:"excluded"` // candidates with non-finite coordinates
}

// Extractor computes frontiers from search statistics.
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor creates a new frontier extractor
func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{
		log: log.With().Str("component", "frontier").Logger(),
	}
}

// Extract computes the convex hull of the (volatility, average return) cloud and
// recovers the split behind every vertex by its candidate index.
//
// Candidates with a non-finite coordinate cannot be placed on the plane and are
// left out of the hull. A vertex whose split is missing is logged and skipped;
// it does not abort the extraction.
func (e *Extractor) Extract(volatilities, averageReturns []float64, splits [][]float64) (*Extraction, error) {
	if len(volatilities) != len(averageReturns) || len(volatilities) != len(splits) {
		return nil, fmt.Errorf("frontier input lengths differ (volatilities=%d, returns=%d, splits=%d): %w",
			len(volatilities), len(averageReturns), len(splits), domain.ErrLengthMismatch)
	}

	result := &Extraction{}
	pts := make([]point, 0, len(volatilities))
	for i := range volatilities {
		if !formulas.IsFinite(volatilities[i]) || !formulas.IsFinite(averageReturns[i]) {
			result.Excluded++
			continue
		}
		pts = append(pts, point{x: volatilities[i], y: averageReturns[i], index: i})
	}

	hull := convexHull(pts)
	result.Points = make([]Point, 0, len(hull))
	for _, v := range hull {
		split, err := lookup(splits, v.index)
		if err != nil {
			result.Skipped++
			e.log.Warn().
				Err(err).
				Int("index", v.index).
				Float64("volatility", v.x).
				Float64("average_return", v.y).
				Msg("Skipping frontier vertex")
			continue
		}
		result.Points = append(result.Points, Point{
			Index:         v.index,
			Volatility:    v.x,
			AverageReturn: v.y,
			Split:         split,
		})
	}

	e.log.Debug().
		Int("candidates", len(volatilities)).
		Int("vertices", len(result.Points)).
		Int("skipped", result.Skipped).
		Int("excluded", result.Excluded).
		Msg("Frontier extracted")

	return result, nil
}

func lookup(splits [][]float64, index int) ([]float64, error) {
	if index < 0 || index >= len(splits) || len(splits[index]) == 0 {
		return nil, fmt.Errorf("no split recorded for candidate %d: %w", index, domain.ErrLookupFailure)
	}
	out := make([]float64, len(splits[index]))
	copy(out, splits[index])
	return out, nil
}

// Efficient reduces hull vertices to the Pareto boundary: walking from the lowest
// volatility upwards, a vertex is kept only if it returns strictly more than every
// vertex kept before it.
func Efficient(points []Point) []Point {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Volatility != sorted[j].Volatility {
			return sorted[i].Volatility < sorted[j].Volatility
		}
		return sorted[i].AverageReturn > sorted[j].AverageReturn
	})

	var out []Point
	for _, p := range sorted {
		if len(out) == 0 || p.AverageReturn > out[len(out)-1].AverageReturn {
			out = append(out, p)
		}
	}
	return out
}
