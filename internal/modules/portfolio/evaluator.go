package portfolio

import (
	"fmt"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/timeseries"
	"github.com/aristath/frontier/pkg/formulas"
)

// Stats are the scalars extracted from one evaluated candidate.
type Stats struct {
	Volatility    float64
	AverageReturn float64
	ValueAtEnd    float64
	SharpeRatio   float64
}

// Degenerate reports whether the candidate cannot compete for the best Sharpe
// ratio (zero volatility surfaces here as NaN or ±Inf).
func (s Stats) Degenerate() bool {
	return !formulas.IsFinite(s.SharpeRatio)
}

// Evaluator scores splits against a fixed risk-free benchmark. It holds no
// mutable state and is safe for concurrent use.
type Evaluator struct {
	riskFree *timeseries.TimeSeries
	mode     BlendMode
}

// NewEvaluator creates an evaluator for the given benchmark and blend mode.
func NewEvaluator(riskFree *timeseries.TimeSeries, mode BlendMode) (*Evaluator, error) {
	if riskFree == nil {
		return nil, fmt.Errorf("risk-free series is required: %w", domain.ErrConfig)
	}
	if mode != BlendMultiplier && mode != BlendReturn {
		return nil, fmt.Errorf("unknown blend mode %q: %w", mode, domain.ErrConfig)
	}
	return &Evaluator{riskFree: riskFree, mode: mode}, nil
}

// Mode returns the blend mode in use
func (e *Evaluator) Mode() BlendMode {
	return e.mode
}

// Validate checks that every asset shares the risk-free series' period length.
// Nothing upstream guarantees it, so callers run this once before a batch.
func (e *Evaluator) Validate(assets []*timeseries.TimeSeries) error {
	return checkLengths(assets, e.riskFree.Len())
}

// Evaluate blends assets under split and extracts its statistics.
func (e *Evaluator) Evaluate(assets []*timeseries.TimeSeries, split []float64) (Stats, error) {
	if len(assets) != len(split) {
		return Stats{}, fmt.Errorf("%d assets for a split of %d weights: %w",
			len(assets), len(split), domain.ErrArityMismatch)
	}
	if err := e.Validate(assets); err != nil {
		return Stats{}, err
	}

	p, err := New(assets, split, e.mode)
	if err != nil {
		return Stats{}, err
	}

	sharpe, err := p.SharpeRatio(e.riskFree)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		Volatility:    p.Std(),
		AverageReturn: p.Average(),
		ValueAtEnd:    p.CalculateValueAtEnd(1.0),
		SharpeRatio:   sharpe,
	}, nil
}
