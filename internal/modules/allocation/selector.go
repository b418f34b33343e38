// Package allocation selects the best candidate of a search and renders it as the
// final allocation artifact.
package allocation

import (
	"fmt"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/search"
	"github.com/aristath/frontier/pkg/formulas"
)

// Allocation is the selected candidate: asset weights plus its metrics.
type Allocation struct {
	Allocations          map[string]float64 `json:"allocations"`
	SharpeRatio          float64            `json:"sharpe_ratio"`
	ExpectedReturnsAtEnd float64            `json:"expected_returns_at_end"`
	Average              float64            `json:"average"`
	Volatility           float64            `json:"volatility"`
}

// BestIndex returns the index of the highest Sharpe ratio. Non-finite entries
// always lose; among equal maxima the later index wins.
func BestIndex(sharpeRatios []float64) (int, error) {
	best := -1
	for i, s := range sharpeRatios {
		if !formulas.IsFinite(s) {
			continue
		}
		if best < 0 || s >= sharpeRatios[best] {
			best = i
		}
	}
	if best < 0 {
		return -1, fmt.Errorf("none of %d candidates has a finite sharpe ratio: %w",
			len(sharpeRatios), domain.ErrNoValidCandidate)
	}
	return best, nil
}

// SelectBest picks the maximum-Sharpe candidate and zips its split with the
// ordered asset ids.
func SelectBest(assetIDs []string, stats *search.Statistics) (*Allocation, int, error) {
	if err := stats.Validate(); err != nil {
		return nil, -1, err
	}

	idx, err := BestIndex(stats.SharpeRatios)
	if err != nil {
		return nil, -1, err
	}

	split := stats.Splits[idx]
	if len(split) != len(assetIDs) {
		return nil, -1, fmt.Errorf("split of %d weights for %d assets: %w",
			len(split), len(assetIDs), domain.ErrArityMismatch)
	}

	weights := make(map[string]float64, len(assetIDs))
	for i, id := range assetIDs {
		weights[id] = split[i]
	}

	return &Allocation{
		Allocations:          weights,
		SharpeRatio:          stats.SharpeRatios[idx],
		ExpectedReturnsAtEnd: stats.ReturnsAtEnd[idx],
		Average:              stats.AverageReturns[idx],
		Volatility:           stats.Volatilities[idx],
	}, idx, nil
}
