package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/generation"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/auth"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"missing uid", auth.ErrMissingSubject, http.StatusUnauthorized},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"unknown item", service.ErrUnknownItem, http.StatusNotFound},
		{"unknown sitting", service.ErrUnknownSitting, http.StatusNotFound},
		{"unknown pool", service.ErrUnknownPool, http.StatusNotFound},
		{"unknown submission", service.ErrUnknownSubmission, http.StatusNotFound},
		{"store pool not found", store.ErrPoolNotFound, http.StatusNotFound},
		{"duplicate submission", service.ErrDuplicateSubmission, http.StatusConflict},
		{"invalid transition", service.ErrInvalidTransition, http.StatusConflict},
		{"sitting not finished", service.ErrSittingNotFinished, http.StatusConflict},
		{"not retryable", service.ErrNotRetryable, http.StatusConflict},
		{"nothing due", service.ErrNothingDue, http.StatusUnprocessableEntity},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest},
		{"empty answer", domain.ErrSubmissionAnswerEmpty, http.StatusBadRequest},
		{"field error", domain.NewValidationError("answer", "cannot be blank", domain.ErrSubmissionAnswerEmpty), http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"wrapped service error", service.NewServiceError("submit", "failed", service.ErrUnknownSitting), http.StatusNotFound},
		{"wrapped twice", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", service.ErrNothingDue)), http.StatusUnprocessableEntity},
		{"judgment unavailable", service.ErrJudgmentUnavailable, http.StatusInternalServerError},
		{"inconsistent commit", service.ErrInconsistentCommit, http.StatusInternalServerError},
		{"generation failed", generation.ErrTransientFailure, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, "An unexpected error occurred"},
		{auth.ErrExpiredToken, "Token expired"},
		{auth.ErrInvalidToken, "Invalid token"},
		{service.ErrUnknownItem, "Item not found"},
		{service.ErrUnknownSitting, "Sitting not found"},
		{service.ErrUnknownPool, "Pool not found"},
		{service.ErrUnknownSubmission, "Submission not found"},
		{service.ErrDuplicateSubmission, "Item already answered in this sitting"},
		{service.ErrSittingNotFinished, "Sitting has unanswered items"},
		{service.ErrInvalidTransition, "Sitting does not allow this operation in its current state"},
		{service.ErrNotRetryable, "Submission cannot be retried"},
		{service.ErrNothingDue, "Nothing is due for review"},
		{domain.ErrInvalidID, "Invalid ID"},
		{domain.ErrValidation, "Validation failed"},
		{errors.New("pq: relation \"items\" does not exist"), "An unexpected error occurred"},
	}

	for _, tc := range tests {
		name := "nil"
		if tc.err != nil {
			name = tc.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		defaultMsg     string
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "not found ignores default",
			err:            service.NewServiceError("resume", "lookup failed", service.ErrUnknownSitting),
			defaultMsg:     "Failed to resume sitting",
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "Sitting not found",
		},
		{
			name:           "field validation error",
			err:            domain.NewValidationError("pool_id", "has invalid format", domain.ErrInvalidID),
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid pool_id: has invalid format",
		},
		{
			name:           "bare validation sentinel",
			err:            domain.ErrValidation,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Validation failed",
		},
		{
			name:           "server error uses default",
			err:            errors.New("dial tcp 10.0.0.3:5432: connection refused"),
			defaultMsg:     "Failed to submit answer",
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "Failed to submit answer",
		},
		{
			name:           "server error without default",
			err:            service.ErrJudgmentUnavailable,
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "An unexpected error occurred",
		},
		{
			name:           "nothing due",
			err:            fmt.Errorf("create sitting: %w", service.ErrNothingDue),
			defaultMsg:     "Failed to create sitting",
			expectedStatus: http.StatusUnprocessableEntity,
			expectedMsg:    "Nothing is due for review",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
			req = req.WithContext(shared.WithTraceID(req.Context(), "trace-1"))
			w := httptest.NewRecorder()

			HandleAPIError(w, req, tc.err, tc.defaultMsg)

			assert.Equal(t, tc.expectedStatus, w.Code)
			var body shared.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.expectedMsg, body.Error)
			assert.Equal(t, "trace-1", body.TraceID)
			assert.NotContains(t, w.Body.String(), "10.0.0.3")
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  interface{}
		want string
	}{
		{
			name: "missing answer",
			req:  &SubmitRequest{SittingID: "00000000-0000-0000-0000-000000000001"},
			want: "Invalid answer: required field",
		},
		{
			name: "malformed sitting id",
			req:  &SubmitRequest{SittingID: "abc", Answer: "x"},
			want: "Invalid sitting_id: invalid ID format",
		},
		{
			name: "empty concepts",
			req:  &CreatePoolRequest{Title: "Cells"},
			want: "Invalid concepts: required field",
		},
		{
			name: "blank concept name",
			req:  &CreatePoolRequest{Title: "Cells", Concepts: []ConceptRequest{{Content: "text"}}},
			want: "Invalid concept: required field",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := shared.ValidateRequest(tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.want, SanitizeValidationError(err))
		})
	}

	t.Run("text fallback", func(t *testing.T) {
		t.Parallel()
		err := errors.New("Key: 'SubmitRequest.SittingID' Error:Field validation for 'SittingID' failed on the 'required' tag")
		assert.Equal(t, "Invalid sitting_id: required field", SanitizeValidationError(err))
		assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("odd")))
	})
}
