package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service/dueset"
)

// StatsHandler serves progress statistics.
type StatsHandler struct {
	due    dueset.Service
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(due dueset.Service, logger *slog.Logger) *StatsHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for StatsHandler")
	}
	return &StatsHandler{
		due:    due,
		logger: logger.With(slog.String("component", "stats_handler")),
	}
}

// Progress handles GET /api/progress?pool_id=.
func (h *StatsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	poolID, err := shared.QueryUUID(r, "pool_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if poolID == nil {
		HandleAPIError(w, r, domain.NewValidationError("pool_id", "is required", domain.ErrValidation), "")
		return
	}

	stats, err := h.due.PoolStats(r.Context(), userID, *poolID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get progress")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// Dashboard handles GET /api/dashboard.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	dashboard, err := h.due.Dashboard(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get dashboard")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dashboard)
}
