// Package timeseries holds historical period-return series and their compounding multipliers.
package timeseries

import (
	"fmt"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// TimeSeries is an asset's chronologically ordered period returns.
// Multipliers (1 + return) are derived once at construction; a series is
// immutable afterwards.
type TimeSeries struct {
	id          string
	returns     []float64
	multipliers []float64
}

// New creates a series from a copy of returns. Empty series are rejected.
func New(id string, returns []float64) (*TimeSeries, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("series %q: %w", id, domain.ErrEmptySeries)
	}

	owned := make([]float64, len(returns))
	copy(owned, returns)

	return build(id, owned), nil
}

func build(id string, returns []float64) *TimeSeries {
	multipliers := make([]float64, len(returns))
	for i, r := range returns {
		multipliers[i] = 1 + r
	}

	return &TimeSeries{
		id:          id,
		returns:     returns,
		multipliers: multipliers,
	}
}

// ID returns the series identifier
func (ts *TimeSeries) ID() string {
	return ts.id
}

// Len returns the number of periods
func (ts *TimeSeries) Len() int {
	return len(ts.returns)
}

// Returns exposes the period returns. The slice must not be modified.
func (ts *TimeSeries) Returns() []float64 {
	return ts.returns
}

// Multipliers exposes 1 + return per period. The slice must not be modified.
func (ts *TimeSeries) Multipliers() []float64 {
	return ts.multipliers
}

// Subtract returns the elementwise difference ts - other under the id "ts_other".
func (ts *TimeSeries) Subtract(other *TimeSeries) (*TimeSeries, error) {
	if len(ts.returns) != len(other.returns) {
		return nil, fmt.Errorf("subtract %q (%d periods) from %q (%d periods): %w",
			other.id, len(other.returns), ts.id, len(ts.returns), domain.ErrLengthMismatch)
	}

	diff := make([]float64, len(ts.returns))
	for i := range ts.returns {
		diff[i] = ts.returns[i] - other.returns[i]
	}

	return build(ts.id+"_"+other.id, diff), nil
}

// AverageReturns is the arithmetic mean of the returns
func (ts *TimeSeries) AverageReturns() float64 {
	return formulas.Mean(ts.returns)
}

// StdReturns is the sample (Bessel-corrected) standard deviation of the returns
func (ts *TimeSeries) StdReturns() float64 {
	return formulas.StdDev(ts.returns)
}

// CalculateValueAtEnd compounds an initial investment over every period.
func (ts *TimeSeries) CalculateValueAtEnd(initial float64) float64 {
	return initial * formulas.Product(ts.multipliers)
}
