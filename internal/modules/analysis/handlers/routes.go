// Package handlers exposes the analysis service over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/analysis"
)

// Handlers handles analysis HTTP endpoints.
type Handlers struct {
	service *analysis.Service
	log     zerolog.Logger
}

// New creates analysis handlers.
func New(service *analysis.Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("component", "analysis_handlers").Logger(),
	}
}

// RegisterRoutes registers analysis routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/analysis", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Get("/latest", h.HandleLatest)
	})
}

// HandleRun runs the analysis for the configured universe.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Run()
	if err != nil {
		h.log.Error().Err(err).Msg("Analysis run failed")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, report)
}

// HandleLatest returns the most recent report, if one exists.
func (h *Handlers) HandleLatest(w http.ResponseWriter, r *http.Request) {
	report, ok := h.service.Latest()
	if !ok {
		http.Error(w, "no analysis has been run yet", http.StatusNotFound)
		return
	}

	h.writeJSON(w, report)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// statusFor maps the error taxonomy onto HTTP statuses: malformed input is
// the caller's fault, numerical failures are unprocessable.
func statusFor(err error) int {
	var alignment *domain.AlignmentError
	var insufficient *domain.InsufficientDataError
	var illConditioned *domain.IllConditionedCovarianceError
	var convergence *domain.ConvergenceError
	var degenerate *domain.DegenerateBenchmarkError

	switch {
	case errors.As(err, &alignment), errors.As(err, &insufficient):
		return http.StatusBadRequest
	case errors.As(err, &illConditioned), errors.As(err, &convergence), errors.As(err, &degenerate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
