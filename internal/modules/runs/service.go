package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/allocation"
	"github.com/aristath/frontier/internal/modules/frontier"
	"github.com/aristath/frontier/internal/modules/portfolio"
	"github.com/aristath/frontier/internal/modules/search"
	"github.com/aristath/frontier/internal/modules/universe"
	"github.com/aristath/frontier/internal/progress"
	"github.com/aristath/frontier/internal/publish"
)

// Settings are the defaults a request falls back to. A zero MaxCandidates
// derives the ceiling from available memory at run time.
type Settings struct {
	Search search.Config
	Filter universe.FilterConfig

	// FlatArtifacts publishes allocation.json and frontier.json at the
	// publisher root instead of under runs/<id>/.
	FlatArtifacts bool
}

// Outcome is everything a run produced, including the full statistics batch.
type Outcome struct {
	Run        *Run
	Statistics *search.Statistics
}

// Service runs searches: it selects the asset universe, evaluates every split,
// picks the best allocation, extracts the frontier, then persists and publishes
// the result.
type Service struct {
	source    universe.Source
	repo      *Repository
	publisher publish.Publisher
	settings  Settings
	extractor *frontier.Extractor
	group     singleflight.Group
	progress  progress.Callback
	hub       *progress.Hub
	log       zerolog.Logger

	mu      sync.Mutex
	flights map[string]*flight

	availableMemory func() (uint64, error)
	now             func() time.Time
}

// NewService creates a run service. repo and publisher may be nil for one-shot
// use where results are only returned.
func NewService(
	source universe.Source,
	repo *Repository,
	publisher publish.Publisher,
	settings Settings,
	log zerolog.Logger,
) *Service {
	return &Service{
		source:          source,
		repo:            repo,
		publisher:       publisher,
		settings:        settings,
		extractor:       frontier.NewExtractor(log),
		hub:             progress.NewHub(log),
		flights:         make(map[string]*flight),
		log:             log.With().Str("service", "runs").Logger(),
		availableMemory: systemAvailableMemory,
		now:             time.Now,
	}
}

func systemAvailableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// SetProgressCallback forwards search progress to cb
func (s *Service) SetProgressCallback(cb progress.Callback) {
	s.progress = cb
}

// Subscribe streams search events (start, progress, completion, failure) of
// every run. The returned func unsubscribes.
func (s *Service) Subscribe(buffer int) (<-chan progress.Event, func()) {
	return s.hub.Subscribe(buffer)
}

// Settings returns the service defaults
func (s *Service) Settings() Settings {
	return s.settings
}

// Run executes a search and returns the stored run. Identical concurrent
// requests share one execution.
func (s *Service) Run(ctx context.Context, req Request) (*Run, error) {
	outcome, err := s.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return outcome.Run, nil
}

// Execute is Run, additionally returning the statistics batch.
func (s *Service) Execute(ctx context.Context, req Request) (*Outcome, error) {
	cfg, filter, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	key, err := json.Marshal(struct {
		Search search.Config
		Filter universe.FilterConfig
	}{cfg, filter})
	if err != nil {
		return nil, fmt.Errorf("failed to build run key: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared search outlives any single caller; it is cancelled only when
	// every caller waiting on it has gone.
	f := s.join(string(key))
	defer s.leave(string(key), f)

	ch := s.group.DoChan(string(key), func() (interface{}, error) {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		if !s.attach(f, cancel) {
			return nil, context.Canceled
		}
		return s.execute(runCtx, cfg, filter)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.log.Debug().Msg("Joined identical in-flight run")
		}
		return res.Val.(*Outcome), nil
	}
}

// flight tracks the callers waiting on one shared search.
type flight struct {
	waiters int
	cancel  context.CancelFunc
}

func (s *Service) join(key string) *flight {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flights[key]
	if !ok {
		f = &flight{}
		s.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops a waiter. The last one out cancels the search and forgets it so
// a later identical request starts afresh.
func (s *Service) leave(key string, f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	if f.cancel != nil {
		f.cancel()
	}
	if s.flights[key] == f {
		delete(s.flights, key)
		s.group.Forget(key)
	}
}

// attach records the cancel func of the search serving f. It reports false
// when every waiter has already left.
func (s *Service) attach(f *flight, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.waiters == 0 {
		return false
	}
	f.cancel = cancel
	return true
}

// waiting returns how many callers wait on the search for key
func (s *Service) waiting(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flights[key]; ok {
		return f.waiters
	}
	return 0
}

// resolve merges a request over the defaults and fixes the candidate ceiling.
func (s *Service) resolve(req Request) (search.Config, universe.FilterConfig, error) {
	cfg := s.settings.Search
	filter := s.settings.Filter

	if req.Granularity != 0 {
		cfg.Granularity = req.Granularity
	}
	if req.FundCount != 0 {
		cfg.FundCount = req.FundCount
	}
	if req.BlendMode != "" {
		mode, err := portfolio.ParseBlendMode(req.BlendMode)
		if err != nil {
			return cfg, filter, err
		}
		cfg.BlendMode = mode
	}
	if cfg.BlendMode == "" {
		cfg.BlendMode = portfolio.BlendMultiplier
	}
	if req.Include != nil {
		filter.Include = req.Include
	}
	if req.Exclude != nil {
		filter.Exclude = req.Exclude
	}
	if req.VolatilityThreshold != nil {
		filter.VolatilityThreshold = *req.VolatilityThreshold
	}

	if cfg.MaxCandidates == 0 {
		available, err := s.availableMemory()
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to read available memory, using default ceiling")
			cfg.MaxCandidates = search.DefaultMaxCandidates
		} else {
			cfg.MaxCandidates = search.CeilingFromMemory(available, max(cfg.FundCount, 1))
		}
	}

	// A request may lower the ceiling, never raise it.
	if req.MaxCandidates < 0 {
		return cfg, filter, fmt.Errorf("max candidates %d must not be negative: %w", req.MaxCandidates, domain.ErrConfig)
	}
	if req.MaxCandidates > 0 && req.MaxCandidates < cfg.MaxCandidates {
		cfg.MaxCandidates = req.MaxCandidates
	}

	if err := cfg.Validate(); err != nil {
		return cfg, filter, err
	}
	return cfg, filter, nil
}

func (s *Service) execute(ctx context.Context, cfg search.Config, filter universe.FilterConfig) (*Outcome, error) {
	runID := uuid.New().String()
	s.hub.Publish(progress.Event{Type: progress.SearchStarted, RunID: runID, Message: "loading funds"})

	outcome, err := s.pipeline(ctx, runID, cfg, filter)
	if err != nil {
		s.hub.Publish(progress.Event{Type: progress.SearchFailed, RunID: runID, Message: err.Error()})
		return nil, err
	}

	s.hub.Publish(progress.Event{
		Type:    progress.SearchCompleted,
		RunID:   runID,
		Current: outcome.Run.Candidates,
		Total:   outcome.Run.Candidates,
	})
	return outcome, nil
}

func (s *Service) pipeline(ctx context.Context, runID string, cfg search.Config, filter universe.FilterConfig) (*Outcome, error) {
	funds, err := s.source.Funds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load funds: %w", err)
	}
	riskFree, err := s.source.RiskFree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load risk-free series: %w", err)
	}

	candidates := universe.Filter(funds, filter)
	assets, err := universe.SelectTop(candidates, cfg.FundCount)
	if err != nil {
		return nil, err
	}

	orch, err := search.NewOrchestrator(cfg, s.log)
	if err != nil {
		return nil, err
	}
	cb := s.progress
	orch.SetProgressCallback(func(current, total int, message string) {
		progress.Call(cb, current, total, message)
		s.hub.Publish(progress.Event{
			Type:    progress.SearchProgress,
			RunID:   runID,
			Current: current,
			Total:   total,
			Message: message,
		})
	})

	result, err := orch.Run(ctx, assets, riskFree)
	if err != nil {
		return nil, err
	}

	best, bestIndex, err := allocation.SelectBest(result.Assets, result.Statistics)
	if err != nil {
		if errors.Is(err, domain.ErrNoValidCandidate) {
			s.log.Warn().
				Int("candidates", result.Statistics.Len()).
				Msg("No candidate has a defined sharpe ratio, nothing persisted")
		}
		return nil, err
	}

	hull, err := s.extractor.Extract(
		result.Statistics.Volatilities,
		result.Statistics.AverageReturns,
		result.Statistics.Splits,
	)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:          runID,
		Status:      StatusCompleted,
		Granularity: cfg.Granularity,
		FundCount:   cfg.FundCount,
		BlendMode:   string(cfg.BlendMode),
		Assets:      result.Assets,
		Candidates:  result.Statistics.Len(),
		Degenerate:  result.Degenerate,
		BestIndex:   bestIndex,
		Allocation:  best,
		Frontier:    hull,
		DurationMs:  result.Duration.Milliseconds(),
		CreatedAt:   s.now().UTC(),
	}

	// Artifacts are the only output of a one-shot run, so they must land before
	// anything is stored. Otherwise the stored run is authoritative.
	artifactsRequired := s.repo == nil || s.settings.FlatArtifacts
	if artifactsRequired {
		if err := s.publish(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to publish run artifacts: %w", err)
		}
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, run, result.Statistics); err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
	}

	if !artifactsRequired {
		if err := s.publish(ctx, run); err != nil {
			s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to publish run artifacts")
		}
	}

	s.log.Info().
		Str("run_id", run.ID).
		Strs("assets", run.Assets).
		Int("candidates", run.Candidates).
		Float64("sharpe_ratio", best.SharpeRatio).
		Int("frontier_vertices", len(hull.Points)).
		Msg("Run completed")

	return &Outcome{Run: run, Statistics: result.Statistics}, nil
}

// publish ships the run artifacts, attempting every one before reporting.
func (s *Service) publish(ctx context.Context, run *Run) error {
	if s.publisher == nil {
		return nil
	}

	artifacts := []struct {
		name string
		body interface{}
	}{
		{"allocation.json", run.Allocation},
		{"frontier.json", run.Frontier},
	}

	var errs []error
	for _, artifact := range artifacts {
		body, err := json.Marshal(artifact.body)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", artifact.name, err))
			continue
		}
		key := artifact.name
		if !s.settings.FlatArtifacts {
			key = "runs/" + run.ID + "/" + artifact.name
		}
		if err := s.publisher.Publish(ctx, key, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
