// Package handlers exposes the price history store over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/historical"
)

// Handlers handles price history HTTP endpoints.
type Handlers struct {
	repo *historical.Repository
	log  zerolog.Logger
}

// New creates price history handlers.
func New(repo *historical.Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("component", "history_handlers").Logger(),
	}
}

// RegisterRoutes registers price history routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/prices", func(r chi.Router) {
		r.Get("/{symbol}", h.HandleGetSeries)
		r.Put("/{symbol}", h.HandlePutSeries)
	})
}

// HandleGetSeries returns a symbol's stored prices, optionally bounded by
// start/end query parameters (YYYY-MM-DD).
func (h *Handlers) HandleGetSeries(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	series, err := h.repo.GetSeries(symbol, start, end)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch price series")
		http.Error(w, "Failed to fetch price series", http.StatusInternalServerError)
		return
	}
	if len(series.Points) == 0 {
		http.Error(w, "no prices stored for symbol", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(series); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// HandlePutSeries replaces or extends a symbol's stored prices.
func (h *Handlers) HandlePutSeries(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var points []domain.PricePoint
	if err := json.NewDecoder(r.Body).Decode(&points); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(points) == 0 {
		http.Error(w, "no price points supplied", http.StatusBadRequest)
		return
	}

	series := domain.PriceSeries{Symbol: symbol, Points: points}
	if err := h.repo.SaveSeries(series); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to save price series")
		http.Error(w, "Failed to save price series", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"symbol": symbol,
		"saved":  len(points),
	})
}
