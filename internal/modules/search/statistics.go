package search

import (
	"fmt"

	"github.com/aristath/frontier/internal/domain"
)

// Statistics is the batch record of a search. Index i denotes the same candidate
// in every array.
type Statistics struct {
	Splits         [][]float64 `json:"splits" msgpack:"splits"`
	Volatilities   []float64   `json:"volatilities" msgpack:"volatilities"`
	AverageReturns []float64   `json:"average_returns" msgpack:"average_returns"`
	ReturnsAtEnd   []float64   `json:"returns_at_end" msgpack:"returns_at_end"`
	SharpeRatios   []float64   `json:"sharpe_ratios" msgpack:"sharpe_ratios"`
}

// NewStatistics allocates every array at its final length so results can be
// written by index.
func NewStatistics(n int) *Statistics {
	return &Statistics{
		Splits:         make([][]float64, n),
		Volatilities:   make([]float64, n),
		AverageReturns: make([]float64, n),
		ReturnsAtEnd:   make([]float64, n),
		SharpeRatios:   make([]float64, n),
	}
}

// Len returns the number of candidates
func (s *Statistics) Len() int {
	return len(s.Splits)
}

// Validate checks that all arrays share one length.
func (s *Statistics) Validate() error {
	n := len(s.Splits)
	lengths := map[string]int{
		"volatilities":    len(s.Volatilities),
		"average_returns": len(s.AverageReturns),
		"returns_at_end":  len(s.ReturnsAtEnd),
		"sharpe_ratios":   len(s.SharpeRatios),
	}
	for name, l := range lengths {
		if l != n {
			return fmt.Errorf("statistics %s has %d entries, splits has %d: %w",
				name, l, n, domain.ErrLengthMismatch)
		}
	}
	return nil
}
