package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
)

// PoolHandler handles pool management and item generation requests.
type PoolHandler struct {
	pools  service.PoolService
	logger *slog.Logger
}

// NewPoolHandler creates a new PoolHandler.
func NewPoolHandler(pools service.PoolService, logger *slog.Logger) *PoolHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for PoolHandler")
	}

	return &PoolHandler{
		pools:  pools,
		logger: logger.With(slog.String("component", "pool_handler")),
	}
}

// CreatePool handles POST /api/pools.
func (h *PoolHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	var req CreatePoolRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	spaced := true
	if req.SpacedRepetition != nil {
		spaced = *req.SpacedRepetition
	}

	pool, err := h.pools.CreatePool(r.Context(), userID, req.Title, conceptsFromRequest(req.Concepts), spaced)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create pool")
		return
	}

	log.Debug("pool created",
		slog.String("user_id", userID.String()),
		slog.String("pool_id", pool.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, poolToResponse(pool))
}

// ListPools handles GET /api/pools.
func (h *PoolHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	pools, err := h.pools.ListPools(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list pools")
		return
	}

	resp := make([]PoolResponse, 0, len(pools))
	for _, p := range pools {
		resp = append(resp, poolToResponse(p))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetPool handles GET /api/pools/{id}.
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, poolID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	pool, err := h.pools.GetPool(r.Context(), userID, poolID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get pool")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, poolToResponse(pool))
}

// DeletePool handles DELETE /api/pools/{id}. Items, sittings and
// submissions of the pool go with it.
func (h *PoolHandler) DeletePool(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, poolID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.pools.DeletePool(r.Context(), userID, poolID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete pool")
		return
	}

	log.Info("pool deleted",
		slog.String("user_id", userID.String()),
		slog.String("pool_id", poolID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// AddConcepts handles POST /api/pools/{id}/concepts.
func (h *PoolHandler) AddConcepts(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, poolID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req AddConceptsRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	pool, err := h.pools.AddConcepts(r.Context(), userID, poolID, conceptsFromRequest(req.Concepts))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add concepts")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, poolToResponse(pool))
}

// Generate handles POST /api/generate. It creates one item for every
// concept of the pool that has none and returns the pool's new items, or
// all of its items when nothing was missing.
func (h *PoolHandler) Generate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	var req GenerateRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}
	poolID := uuid.MustParse(req.PoolID)

	items, err := h.pools.Generate(r.Context(), userID, poolID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate questions")
		return
	}

	resp := QuestionsResponse{
		PoolID:    &poolID,
		Count:     len(items),
		Questions: make([]QuestionResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Questions = append(resp.Questions, itemToQuestion(item, ""))
	}

	log.Info("questions generated",
		slog.String("user_id", userID.String()),
		slog.String("pool_id", poolID.String()),
		slog.Int("count", len(items)))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
