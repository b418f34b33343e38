// Package formulas provides the numeric building blocks shared by the search.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample (n-1) standard deviation of a slice of float64 values.
// A single observation yields NaN.
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.StdDev(data, nil)
}

// Product multiplies all values together. The empty product is 1.
func Product(data []float64) float64 {
	if len(data) == 0 {
		return 1
	}
	return floats.Prod(data)
}

// SharpeRatio divides the mean of an excess-return series by its sample standard
// deviation. Zero deviation follows IEEE semantics (NaN or ±Inf).
func SharpeRatio(excess []float64) float64 {
	return Mean(excess) / StdDev(excess)
}

// RoundTo rounds x to the given number of decimal places.
func RoundTo(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
