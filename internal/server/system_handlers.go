package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/runs"
	"github.com/aristath/frontier/internal/modules/search"
	"github.com/aristath/frontier/internal/modules/splits"
	"github.com/aristath/frontier/internal/respond"
)

// SystemHandlers reports host and service status
type SystemHandlers struct {
	log       zerolog.Logger
	runsDB    *database.DB
	repo      *runs.Repository
	service   *runs.Service
	startedAt time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, runsDB *database.DB, repo *runs.Repository, service *runs.Service) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		runsDB:    runsDB,
		repo:      repo,
		service:   service,
		startedAt: time.Now(),
	}
}

// SearchCapacity describes how large a search the host can take right now.
type SearchCapacity struct {
	FundCount       int     `json:"fund_count"`
	Granularity     float64 `json:"granularity"`
	Candidates      int     `json:"candidates"`
	ConfiguredLimit int     `json:"configured_limit"` // 0 = memory derived
	MemoryCeiling   int     `json:"memory_ceiling"`
	WithinCeiling   bool    `json:"within_ceiling"`
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status         string          `json:"status"`
	UptimeSeconds  int64           `json:"uptime_seconds"`
	Goroutines     int             `json:"goroutines"`
	CPUPercent     float64         `json:"cpu_percent"`
	RAMPercent     float64         `json:"ram_percent"`
	RAMAvailableMB float64         `json:"ram_available_mb"`
	RunsStored     int             `json:"runs_stored"`
	DatabaseSizeMB float64         `json:"database_size_mb"`
	DefaultSearch  *SearchCapacity `json:"default_search,omitempty"`
	LastUpdated    string          `json:"last_updated"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		LastUpdated:   time.Now().Format(time.RFC3339),
	}

	response.CPUPercent = h.cpuPercent()

	var available uint64
	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		available = memStat.Available
		response.RAMPercent = memStat.UsedPercent
		response.RAMAvailableMB = float64(memStat.Available) / 1024 / 1024
	}

	if h.repo != nil {
		if n, err := h.repo.Count(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Failed to count runs")
			response.Status = "degraded"
		} else {
			response.RunsStored = n
		}
	}

	if h.runsDB != nil {
		if err := h.runsDB.QuickCheck(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Runs database unreachable")
			response.Status = "degraded"
		}
		if stats, err := h.runsDB.GetStats(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Failed to get database statistics")
			response.Status = "degraded"
		} else {
			response.DatabaseSizeMB = float64(stats.SizeBytes) / 1024 / 1024
		}
	}

	if h.service != nil {
		response.DefaultSearch = capacity(h.service.Settings().Search, available)
	}

	respond.JSON(w, http.StatusOK, response, h.log)
}

// cpuPercent samples CPU usage over a short window
func (h *SystemHandlers) cpuPercent() float64 {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	percent, err := cpu.PercentWithContext(ctx, 100*time.Millisecond, false)
	if err != nil || len(percent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		return 0
	}
	return percent[0]
}

// capacity sizes the default search against memory. It returns nil when the
// defaults do not describe a valid grid.
func capacity(cfg search.Config, available uint64) *SearchCapacity {
	gen, err := splits.NewGenerator(cfg.Granularity, cfg.FundCount)
	if err != nil {
		return nil
	}

	ceiling := search.CeilingFromMemory(available, cfg.FundCount)
	limit := ceiling
	if cfg.MaxCandidates > 0 {
		limit = cfg.MaxCandidates
	}

	return &SearchCapacity{
		FundCount:       cfg.FundCount,
		Granularity:     cfg.Granularity,
		Candidates:      gen.Count(),
		ConfiguredLimit: cfg.MaxCandidates,
		MemoryCeiling:   ceiling,
		WithinCeiling:   gen.Count() <= limit,
	}
}
