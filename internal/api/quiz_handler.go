package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/dueset"
	"github.com/phrazzld/recall-api/internal/service/evaluation"
	"github.com/phrazzld/recall-api/internal/service/quiz"
)

// submissionAccepted is the status reported for an answer queued for evaluation.
const submissionAccepted = "accepted"

// QuizHandler handles question listing, sittings, answer submission and results.
type QuizHandler struct {
	quiz       quiz.Service
	pools      service.PoolService
	due        dueset.Service
	evaluation evaluation.Service
	logger     *slog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(
	quizService quiz.Service,
	pools service.PoolService,
	due dueset.Service,
	eval evaluation.Service,
	logger *slog.Logger,
) *QuizHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for QuizHandler")
	}

	return &QuizHandler{
		quiz:       quizService,
		pools:      pools,
		due:        due,
		evaluation: eval,
		logger:     logger.With(slog.String("component", "quiz_handler")),
	}
}

// GetQuestions handles GET /api/questions?pool_id=&due_only=&resume=.
//
// With resume=true the newest open sitting of the pool is resumed, or a new
// one is created, and its view is returned. Otherwise the pool's items are
// listed, restricted to the due ones when due_only=true.
func (h *QuizHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
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
	dueOnly, err := shared.QueryBool(r, "due_only")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	resume, err := shared.QueryBool(r, "resume")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if resume {
		view, err := h.quiz.ResumeOrCreateForPool(r.Context(), userID, *poolID)
		if err != nil {
			HandleAPIError(w, r, err, "Failed to resume sitting")
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, view)
		return
	}

	var items []*domain.Item
	if dueOnly {
		items, err = h.due.DuePerPool(r.Context(), userID, *poolID)
	} else {
		items, err = h.pools.ListItems(r.Context(), userID, *poolID)
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get questions")
		return
	}

	resp := QuestionsResponse{
		PoolID:    poolID,
		DueOnly:   dueOnly,
		Count:     len(items),
		Questions: make([]QuestionResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Questions = append(resp.Questions, itemToQuestion(item, ""))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetGlobalQuestions handles GET /api/questions/global. It returns the due
// items of every spaced-repetition pool, most overdue first.
func (h *QuizHandler) GetGlobalQuestions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	due, err := h.due.DueGlobal(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get due questions")
		return
	}

	resp := QuestionsResponse{
		DueOnly:   true,
		Count:     len(due),
		Questions: make([]QuestionResponse, 0, len(due)),
	}
	for _, d := range due {
		resp.Questions = append(resp.Questions, itemToQuestion(d.Item, d.PoolTitle))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// CreateSitting handles POST /api/sittings.
func (h *QuizHandler) CreateSitting(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	// An empty body asks for a global sitting.
	var req CreateSittingRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req, log) {
		return
	}

	view, err := h.quiz.Create(r.Context(), userID, parseOptionalUUID(req.PoolID))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create sitting")
		return
	}

	log.Info("sitting created",
		slog.String("user_id", userID.String()),
		slog.String("sitting_id", view.SittingID.String()),
		slog.Int("items", view.Total))
	shared.RespondWithJSON(w, r, http.StatusCreated, view)
}

// GetSitting handles GET /api/sittings/{id}. The cursor is recomputed from
// the stored answers, so an already answered question is never asked again.
func (h *QuizHandler) GetSitting(w http.ResponseWriter, r *http.Request) {
	h.sittingAction(w, r, "Failed to resume sitting", h.quiz.Resume)
}

// AbandonSitting handles POST /api/sittings/{id}/abandon.
func (h *QuizHandler) AbandonSitting(w http.ResponseWriter, r *http.Request) {
	h.sittingAction(w, r, "Failed to abandon sitting", h.quiz.Abandon)
}

// AcknowledgeSitting handles POST /api/sittings/{id}/acknowledge.
func (h *QuizHandler) AcknowledgeSitting(w http.ResponseWriter, r *http.Request) {
	h.sittingAction(w, r, "Failed to acknowledge sitting", h.quiz.Acknowledge)
}

func (h *QuizHandler) sittingAction(
	w http.ResponseWriter,
	r *http.Request,
	failureMsg string,
	action func(ctx context.Context, ownerID, sittingID uuid.UUID) (*quiz.View, error),
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, sittingID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	view, err := action(r.Context(), userID, sittingID)
	if err != nil {
		HandleAPIError(w, r, err, failureMsg)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// CompleteSitting handles POST /api/sittings/{id}/complete and returns the
// results. While verdicts are outstanding the sitting stays in
// awaiting_evaluation and the results report them as pending.
func (h *QuizHandler) CompleteSitting(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, sittingID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	results, err := h.quiz.Complete(r.Context(), userID, sittingID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete sitting")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, results)
}

// Submit handles POST /api/submit. The answer is stored and queued for
// evaluation; the response does not wait for the verdict.
func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	var req SubmitRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}
	sittingID := uuid.MustParse(req.SittingID)

	var (
		submissionID uuid.UUID
		view         *quiz.View
		err          error
	)
	if itemID := parseOptionalUUID(req.ItemID); itemID != nil {
		submissionID, view, err = h.quiz.SubmitItem(r.Context(), userID, sittingID, *itemID, req.Answer)
	} else {
		submissionID, view, err = h.quiz.SubmitCurrent(r.Context(), userID, sittingID, req.Answer)
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	resp := SubmitResponse{Status: submissionAccepted, SubmissionID: submissionID}
	if view != nil && view.Current != nil {
		next := view.Current.ItemID
		resp.NextItemID = &next
	}

	log.Debug("answer accepted",
		slog.String("user_id", userID.String()),
		slog.String("sitting_id", sittingID.String()),
		slog.String("submission_id", submissionID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, resp)
}

// RetrySubmission handles POST /api/submissions/{id}/retry. Only failed
// submissions that were not superseded by a newer answer can be retried.
func (h *QuizHandler) RetrySubmission(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, submissionID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	sub, err := h.evaluation.RetryFailed(r.Context(), userID, submissionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retry evaluation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmissionResponse{
		ID:        sub.ID,
		SittingID: sub.SittingID,
		ItemID:    sub.ItemID,
		Status:    string(sub.Status),
		Attempts:  sub.Attempts,
	})
}

// GetResults handles GET /api/results. With sitting_id the results of that
// sitting are returned; with pool_id those of the pool's newest sitting;
// with neither those of the newest global sitting.
func (h *QuizHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	sittingID, err := shared.QueryUUID(r, "sitting_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	poolID, err := shared.QueryUUID(r, "pool_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if sittingID == nil {
		latest, err := h.quiz.Latest(r.Context(), userID, poolID)
		if err != nil {
			HandleAPIError(w, r, err, "Failed to get results")
			return
		}
		sittingID = &latest.ID
	}

	results, err := h.evaluation.GetResults(r.Context(), userID, *sittingID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get results")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, results)
}
