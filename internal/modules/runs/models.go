// Package runs executes allocation searches end to end and keeps their results.
package runs

import (
	"errors"
	"time"

	"github.com/aristath/frontier/internal/modules/allocation"
	"github.com/aristath/frontier/internal/modules/frontier"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// StatusCompleted marks a run whose results were persisted.
const StatusCompleted = "completed"

// Request asks for a search. Zero values fall back to the service settings.
type Request struct {
	Granularity         float64  `json:"granularity,omitempty"`
	FundCount           int      `json:"fund_count,omitempty"`
	BlendMode           string   `json:"blend_mode,omitempty"`
	MaxCandidates       int      `json:"max_candidates,omitempty"`
	Include             []string `json:"include,omitempty"`
	Exclude             []string `json:"exclude,omitempty"`
	VolatilityThreshold *float64 `json:"volatility_threshold,omitempty"`
}

// Run is a completed search.
type Run struct {
	ID          string                 `json:"id"`
	Status      string                 `json:"status"`
	Granularity float64                `json:"granularity"`
	FundCount   int                    `json:"fund_count"`
	BlendMode   string                 `json:"blend_mode"`
	Assets      []string               `json:"assets"`
	Candidates  int                    `json:"candidates"`
	Degenerate  int                    `json:"degenerate"`
	BestIndex   int                    `json:"best_index"`
	Allocation  *allocation.Allocation `json:"allocation"`
	Frontier    *frontier.Extraction   `json:"frontier"`
	DurationMs  int64                  `json:"duration_ms"`
	CreatedAt   time.Time              `json:"created_at"`
}
