package domain

import "errors"

// Search failure taxonomy. Callers match with errors.Is; messages wrapping these
// name the violated invariant.
var (
	// ErrConfig reports an invalid granularity, fund count or search limit.
	ErrConfig = errors.New("invalid configuration")
	// ErrCandidateCeiling reports a candidate count above the configured ceiling.
	ErrCandidateCeiling = errors.New("candidate count exceeds ceiling")
	// ErrArityMismatch reports a split whose length differs from the asset count.
	ErrArityMismatch = errors.New("split and asset count differ")
	// ErrLengthMismatch reports return series of unequal period length.
	ErrLengthMismatch = errors.New("return series lengths differ")
	// ErrEmptySeries reports a time series without any returns.
	ErrEmptySeries = errors.New("time series has no returns")
	// ErrDegenerateVolatility marks zero-volatility candidates in logs. Evaluation
	// never fails with it; the candidate carries NaN or Inf statistics instead.
	ErrDegenerateVolatility = errors.New("candidate has zero volatility")
	// ErrLookupFailure reports a hull vertex that maps to no source candidate.
	ErrLookupFailure = errors.New("hull vertex has no source candidate")
	// ErrNoValidCandidate reports a batch where every Sharpe ratio is non-finite.
	ErrNoValidCandidate = errors.New("no valid candidate")
)
