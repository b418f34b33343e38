// Package search drives split generation and candidate evaluation, collecting
// index-aligned statistics for every candidate allocation.
package search

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/portfolio"
	"github.com/aristath/frontier/internal/modules/splits"
	"github.com/aristath/frontier/internal/modules/timeseries"
	"github.com/aristath/frontier/internal/progress"
)

// DefaultMaxCandidates is the ceiling used when none is configured.
const DefaultMaxCandidates = 2_000_000

// progressEvery is how many candidates a worker evaluates between progress reports
// and cancellation checks.
const progressEvery = 4096

// Config contains the search parameters. Everything is passed explicitly.
type Config struct {
	Granularity   float64             // weight quantization step in (0, 1]
	FundCount     int                 // number of assets per split, >= 2
	MaxCandidates int                 // refuse to start above this candidate count
	Workers       int                 // parallel evaluators (0 = GOMAXPROCS)
	BlendMode     portfolio.BlendMode // how asset returns are combined
}

// DefaultConfig returns sensible defaults for a search.
func DefaultConfig() Config {
	return Config{
		Granularity:   0.05,
		FundCount:     3,
		MaxCandidates: DefaultMaxCandidates,
		Workers:       0,
		BlendMode:     portfolio.BlendMultiplier,
	}
}

// Validate checks the configuration, including the exact candidate count against
// MaxCandidates, without allocating anything for the grid.
func (c Config) Validate() error {
	gen, err := splits.NewGenerator(c.Granularity, c.FundCount)
	if err != nil {
		return err
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max candidates %d must be positive: %w", c.MaxCandidates, domain.ErrConfig)
	}
	if count := gen.Count(); count > c.MaxCandidates {
		return fmt.Errorf("%d candidates for granularity %v and %d funds, ceiling %d: %w",
			count, c.Granularity, c.FundCount, c.MaxCandidates, domain.ErrCandidateCeiling)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative: %w", c.Workers, domain.ErrConfig)
	}
	if _, err := portfolio.ParseBlendMode(string(c.BlendMode)); err != nil {
		return err
	}
	return nil
}

// Result is the outcome of one search.
type Result struct {
	Assets     []string // asset ids in split order
	Statistics *Statistics
	Degenerate int // candidates whose Sharpe ratio is not finite
	Duration   time.Duration
}

// Orchestrator runs exhaustive searches.
type Orchestrator struct {
	cfg      Config
	log      zerolog.Logger
	progress progress.Callback
}

// NewOrchestrator validates cfg and creates an orchestrator.
func NewOrchestrator(cfg Config, log zerolog.Logger) (*Orchestrator, error) {
	if cfg.BlendMode == "" {
		cfg.BlendMode = portfolio.BlendMultiplier
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg: cfg,
		log: log.With().Str("component", "search").Logger(),
	}, nil
}

// SetProgressCallback installs a callback invoked as candidates complete.
// It may be called from several goroutines at once.
func (o *Orchestrator) SetProgressCallback(cb progress.Callback) {
	o.progress = cb
}

// Config returns the effective configuration
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Run evaluates every split of the configured grid over assets against riskFree.
//
// Candidates are independent, so the index domain is partitioned into contiguous
// blocks evaluated concurrently; each worker writes only its own slots of the
// pre-sized statistics arrays. Enumeration order fixes the index of every
// candidate, so identical inputs produce identical statistics.
func (o *Orchestrator) Run(
	ctx context.Context,
	assets []*timeseries.TimeSeries,
	riskFree *timeseries.TimeSeries,
) (*Result, error) {
	start := time.Now()

	if len(assets) != o.cfg.FundCount {
		return nil, fmt.Errorf("%d assets supplied for fund count %d: %w",
			len(assets), o.cfg.FundCount, domain.ErrArityMismatch)
	}

	evaluator, err := portfolio.NewEvaluator(riskFree, o.cfg.BlendMode)
	if err != nil {
		return nil, err
	}
	if err := evaluator.Validate(assets); err != nil {
		return nil, err
	}

	gen, err := splits.NewGenerator(o.cfg.Granularity, o.cfg.FundCount)
	if err != nil {
		return nil, err
	}

	candidates, err := gen.Materialize(ctx, o.cfg.MaxCandidates)
	if err != nil {
		return nil, err
	}

	total := candidates.Len()
	workers := o.workerCount(total)

	o.log.Info().
		Int("candidates", total).
		Int("workers", workers).
		Float64("granularity", o.cfg.Granularity).
		Int("fund_count", o.cfg.FundCount).
		Str("blend_mode", string(o.cfg.BlendMode)).
		Msg("Starting search")

	stats := NewStatistics(total)
	var completed, degenerate atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	blockSize := (total + workers - 1) / workers
	for lo := 0; lo < total; lo += blockSize {
		lo, hi := lo, min(lo+blockSize, total)
		g.Go(func() error {
			return o.evaluateBlock(gctx, evaluator, assets, candidates, stats, lo, hi, &completed, &degenerate, total)
		})
	}

	if err := g.Wait(); err != nil {
		o.log.Warn().Err(err).Int64("completed", completed.Load()).Msg("Search aborted")
		return nil, err
	}

	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID()
	}

	if n := degenerate.Load(); n > 0 {
		o.log.Warn().
			Err(domain.ErrDegenerateVolatility).
			Int64("degenerate", n).
			Msg("Candidates without a finite sharpe ratio")
	}

	duration := time.Since(start)
	o.log.Info().
		Int("candidates", total).
		Dur("duration", duration).
		Msg("Search complete")

	return &Result{
		Assets:     ids,
		Statistics: stats,
		Degenerate: int(degenerate.Load()),
		Duration:   duration,
	}, nil
}

func (o *Orchestrator) evaluateBlock(
	ctx context.Context,
	evaluator *portfolio.Evaluator,
	assets []*timeseries.TimeSeries,
	candidates *splits.Set,
	stats *Statistics,
	lo, hi int,
	completed, degenerate *atomic.Int64,
	total int,
) error {
	reported := 0
	for i := lo; i < hi; i++ {
		if (i-lo)%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		split := candidates.At(i)
		result, err := evaluator.Evaluate(assets, split)
		if err != nil {
			return fmt.Errorf("candidate %d %v: %w", i, split, err)
		}

		stats.Splits[i] = split
		stats.Volatilities[i] = result.Volatility
		stats.AverageReturns[i] = result.AverageReturn
		stats.ReturnsAtEnd[i] = result.ValueAtEnd
		stats.SharpeRatios[i] = result.SharpeRatio
		if result.Degenerate() {
			degenerate.Add(1)
		}

		if done := i - lo + 1; done%progressEvery == 0 || i == hi-1 {
			current := int(completed.Add(int64(done - reported)))
			reported = done
			progress.Call(o.progress, current, total, "evaluating candidates")
			o.log.Debug().Int("completed", current).Int("total", total).Msg("Search progress")
		}
	}
	return nil
}

func (o *Orchestrator) workerCount(total int) int {
	workers := o.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
