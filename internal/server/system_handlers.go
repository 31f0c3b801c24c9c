package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves health and system status endpoints.
type SystemHandlers struct {
	log     zerolog.Logger
	dataDir string
	started time.Time
}

// NewSystemHandlers creates system handlers.
func NewSystemHandlers(log zerolog.Logger, dataDir string) *SystemHandlers {
	return &SystemHandlers{
		log:     log.With().Str("component", "system_handlers").Logger(),
		dataDir: dataDir,
		started: time.Now(),
	}
}

// RegisterRoutes registers system routes.
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
}

// HandleHealth reports process uptime and host CPU/RAM usage.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.systemStats()

	response := map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(h.started).String(),
		"data_dir":    h.dataDir,
		"cpu_percent": cpuPercent,
		"ram_percent": memPercent,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode health response")
	}
}

// systemStats samples CPU over a short interval so the endpoint stays fast.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
