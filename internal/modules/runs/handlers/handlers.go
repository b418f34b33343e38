// Package handlers provides HTTP handlers for search runs.
package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/frontier"
	"github.com/aristath/frontier/internal/modules/runs"
	"github.com/aristath/frontier/internal/respond"
)

// Handler handles run HTTP requests
type Handler struct {
	service *runs.Service
	repo    *runs.Repository
	log     zerolog.Logger
}

// NewHandler creates a new runs handler
func NewHandler(service *runs.Service, repo *runs.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "runs").Logger(),
	}
}

// HandleCreateRun handles POST /api/runs
func (h *Handler) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req runs.Request
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	run, err := h.service.Run(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err, "Run failed")
		return
	}

	h.writeJSON(w, http.StatusCreated, run)
}

// HandleListRuns handles GET /api/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, 500)
	}

	list, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		h.writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if list == nil {
		list = []*runs.Run{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  list,
		"count": len(list),
	})
}

// HandleGetRun handles GET /api/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request, id string) {
	run, ok := h.loadRun(w, r, id)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// HandleGetAllocation handles GET /api/runs/{id}/allocation
func (h *Handler) HandleGetAllocation(w http.ResponseWriter, r *http.Request, id string) {
	run, ok := h.loadRun(w, r, id)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, run.Allocation)
}

// HandleGetFrontier handles GET /api/runs/{id}/frontier. With ?efficient=true
// only the Pareto-efficient vertices are returned.
func (h *Handler) HandleGetFrontier(w http.ResponseWriter, r *http.Request, id string) {
	run, ok := h.loadRun(w, r, id)
	if !ok {
		return
	}

	extraction := run.Frontier
	if extraction == nil {
		extraction = &frontier.Extraction{}
	}

	points := extraction.Points
	if efficient, _ := strconv.ParseBool(r.URL.Query().Get("efficient")); efficient {
		points = frontier.Efficient(points)
	}
	if points == nil {
		points = []frontier.Point{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"assets":   run.Assets,
		"points":   points,
		"skipped":  extraction.Skipped,
		"excluded": extraction.Excluded,
	})
}

// HandleGetStatistics handles GET /api/runs/{id}/statistics
func (h *Handler) HandleGetStatistics(w http.ResponseWriter, r *http.Request, id string) {
	stats, err := h.repo.GetStatistics(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err, "Failed to load statistics")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"splits":          stats.Splits,
		"volatilities":    nullableFloats(stats.Volatilities),
		"average_returns": nullableFloats(stats.AverageReturns),
		"returns_at_end":  nullableFloats(stats.ReturnsAtEnd),
		"sharpe_ratios":   nullableFloats(stats.SharpeRatios),
	})
}

// HandleDeleteRun handles DELETE /api/runs/{id}
func (h *Handler) HandleDeleteRun(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, err, "Failed to delete run")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request, id string) (*runs.Run, bool) {
	run, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err, "Failed to load run")
		return nil, false
	}
	return run, true
}

// statusFor maps a domain error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, runs.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConfig), errors.Is(err, domain.ErrCandidateCeiling):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrArityMismatch),
		errors.Is(err, domain.ErrLengthMismatch),
		errors.Is(err, domain.ErrEmptySeries),
		errors.Is(err, domain.ErrNoValidCandidate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(message)
		h.writeError(w, status, message)
		return
	}
	h.writeError(w, status, err.Error())
}

// nullableFloats encodes non-finite values as null
type nullableFloats []float64

func (f nullableFloats) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(f)*12+2)
	buf = append(buf, '[')
	for i, v := range f {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	respond.JSON(w, status, data, h.log)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	respond.Error(w, status, message, h.log)
}
