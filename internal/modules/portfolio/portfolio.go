// Package portfolio blends weighted asset series into one derived series and
// scores its risk, return and Sharpe profile.
package portfolio

import (
	"fmt"
	"strings"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/timeseries"
	"github.com/aristath/frontier/pkg/formulas"
)

// BlendMode selects how weighted asset returns are combined per period.
type BlendMode string

const (
	// BlendMultiplier sums w_i * (1 + r_i[t]) and treats the sum as a period return.
	// The blended series' own multipliers therefore add 1 a second time. This is
	// the reference behaviour and the default.
	BlendMultiplier BlendMode = "multiplier"
	// BlendReturn sums w_i * r_i[t]. Used only when explicitly requested.
	BlendReturn BlendMode = "return"
)

// ParseBlendMode maps a configuration value to a BlendMode. Empty selects BlendMultiplier.
func ParseBlendMode(s string) (BlendMode, error) {
	switch BlendMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", BlendMultiplier:
		return BlendMultiplier, nil
	case BlendReturn:
		return BlendReturn, nil
	default:
		return "", fmt.Errorf("unknown blend mode %q: %w", s, domain.ErrConfig)
	}
}

// Portfolio is a chosen asset subset, its split, and the blended series derived
// from them at construction time.
type Portfolio struct {
	assets  []*timeseries.TimeSeries
	split   []float64
	blended *timeseries.TimeSeries
}

// New validates arity and period lengths and blends the assets.
func New(assets []*timeseries.TimeSeries, split []float64, mode BlendMode) (*Portfolio, error) {
	if len(assets) != len(split) {
		return nil, fmt.Errorf("%d assets for a split of %d weights: %w",
			len(assets), len(split), domain.ErrArityMismatch)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("portfolio without assets: %w", domain.ErrArityMismatch)
	}
	if err := checkLengths(assets, assets[0].Len()); err != nil {
		return nil, err
	}

	periods := assets[0].Len()
	blended := make([]float64, periods)
	for i, asset := range assets {
		w := split[i]
		if mode == BlendReturn {
			for t, r := range asset.Returns() {
				blended[t] += w * r
			}
			continue
		}
		for t, r := range asset.Returns() {
			blended[t] += w * (1 + r)
		}
	}

	ids := make([]string, len(assets))
	for i, asset := range assets {
		ids[i] = asset.ID()
	}

	series, err := timeseries.New(strings.Join(ids, "_"), blended)
	if err != nil {
		return nil, err
	}

	return &Portfolio{
		assets:  assets,
		split:   split,
		blended: series,
	}, nil
}

// checkLengths requires every series to have the given number of periods.
func checkLengths(series []*timeseries.TimeSeries, periods int) error {
	for i, s := range series {
		if s.Len() != periods {
			return fmt.Errorf("asset %d (%q) has %d periods, expected %d: %w",
				i, s.ID(), s.Len(), periods, domain.ErrLengthMismatch)
		}
	}
	return nil
}

// Split returns the weights the portfolio was built with
func (p *Portfolio) Split() []float64 {
	return p.split
}

// Blended returns the derived portfolio series
func (p *Portfolio) Blended() *timeseries.TimeSeries {
	return p.blended
}

// Std is the sample standard deviation of the blended series
func (p *Portfolio) Std() float64 {
	return p.blended.StdReturns()
}

// Average is the mean of the blended series
func (p *Portfolio) Average() float64 {
	return p.blended.AverageReturns()
}

// CalculateValueAtEnd compounds an initial investment over the blended series
func (p *Portfolio) CalculateValueAtEnd(initial float64) float64 {
	return p.blended.CalculateValueAtEnd(initial)
}

// SharpeRatio is mean(blended - riskFree) / std(blended - riskFree).
// Zero excess volatility yields NaN or ±Inf rather than an error.
func (p *Portfolio) SharpeRatio(riskFree *timeseries.TimeSeries) (float64, error) {
	excess, err := p.blended.Subtract(riskFree)
	if err != nil {
		return 0, err
	}
	return formulas.SharpeRatio(excess.Returns()), nil
}
