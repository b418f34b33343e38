package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers run routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/runs", func(r chi.Router) {
		// Searches can take minutes at fine granularity
		r.With(middleware.Timeout(10*time.Minute)).Post("/", h.HandleCreateRun)

		// Long-lived; no deadline
		r.Get("/progress", h.HandleProgressStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/", h.HandleListRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", withID(h.HandleGetRun))
				r.Delete("/", withID(h.HandleDeleteRun))
				r.Get("/allocation", withID(h.HandleGetAllocation))
				r.Get("/frontier", withID(h.HandleGetFrontier))
				r.Get("/statistics", withID(h.HandleGetStatistics))
			})
		})
	})
}

func withID(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, chi.URLParam(r, "id"))
	}
}
