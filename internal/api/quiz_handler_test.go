package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/evaluation"
	"github.com/phrazzld/recall-api/internal/service/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleView(sittingID uuid.UUID, next *uuid.UUID) *quiz.View {
	v := &quiz.View{
		SittingID: sittingID,
		Status:    domain.SittingStatusInProgress,
		Total:     2,
	}
	if next != nil {
		v.Current = &quiz.ViewItem{Position: 1, ItemID: *next, Question: "Q2"}
	}
	return v
}

func TestQuizHandler_GetQuestions(t *testing.T) {
	t.Parallel()

	t.Run("all items of pool", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		poolID := uuid.New()
		s.pools.ListItemsFn = func(_ context.Context, _ uuid.UUID, id uuid.UUID) ([]*domain.Item, error) {
			return []*domain.Item{sampleItem(s.owner, id, "a"), sampleItem(s.owner, id, "b")}, nil
		}

		w := s.do(t, http.MethodGet, "/api/questions?pool_id="+poolID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp QuestionsResponse
		decodeBody(t, w, &resp)
		assert.Equal(t, 2, resp.Count)
		assert.False(t, resp.DueOnly)
		assert.NotContains(t, w.Body.String(), "reference")
	})

	t.Run("due only", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		poolID := uuid.New()
		s.due.DuePerPoolFn = func(_ context.Context, _ uuid.UUID, id uuid.UUID) ([]*domain.Item, error) {
			assert.Equal(t, poolID, id)
			return []*domain.Item{sampleItem(s.owner, id, "a")}, nil
		}

		w := s.do(t, http.MethodGet, "/api/questions?due_only=true&pool_id="+poolID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp QuestionsResponse
		decodeBody(t, w, &resp)
		assert.Equal(t, 1, resp.Count)
		assert.True(t, resp.DueOnly)
	})

	t.Run("resume returns sitting view", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		poolID := uuid.New()
		sittingID := uuid.New()
		s.quiz.ResumeOrCreateForPoolFn = func(_ context.Context, _ uuid.UUID, id uuid.UUID) (*quiz.View, error) {
			assert.Equal(t, poolID, id)
			return sampleView(sittingID, nil), nil
		}

		w := s.do(t, http.MethodGet, "/api/questions?resume=1&pool_id="+poolID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var view quiz.View
		decodeBody(t, w, &view)
		assert.Equal(t, sittingID, view.SittingID)
	})

	t.Run("bad queries", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			query   string
			wantMsg string
		}{
			{"missing pool", "", "Invalid pool_id: is required"},
			{"malformed pool", "?pool_id=x", "Invalid pool_id: has invalid format"},
			{"malformed flag", "?pool_id=" + uuid.NewString() + "&due_only=sometimes", `Invalid due_only: must be a boolean, got "sometimes"`},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()
				s := newTestServer(t)
				w := s.do(t, http.MethodGet, "/api/questions"+tc.query, nil)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, tc.wantMsg, errorMessage(t, w))
			})
		}
	})
}

func TestQuizHandler_GetGlobalQuestions(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	poolA, poolB := uuid.New(), uuid.New()
	s.due.DueGlobalFn = func(_ context.Context, owner uuid.UUID) ([]domain.ItemWithOrigin, error) {
		return []domain.ItemWithOrigin{
			{PoolID: poolA, PoolTitle: "Biology", Item: sampleItem(owner, poolA, "cell")},
			{PoolID: poolB, PoolTitle: "History", Item: sampleItem(owner, poolB, "rome")},
		}, nil
	}

	w := s.do(t, http.MethodGet, "/api/questions/global", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp QuestionsResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Questions, 2)
	assert.Nil(t, resp.PoolID)
	assert.Equal(t, "Biology", resp.Questions[0].PoolTitle)
	assert.Equal(t, "History", resp.Questions[1].PoolTitle)
}

func TestQuizHandler_CreateSitting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       interface{}
		wantPool   bool
		err        error
		wantStatus int
	}{
		{name: "global with empty body", body: nil, wantStatus: http.StatusCreated},
		{name: "global with empty object", body: `{}`, wantStatus: http.StatusCreated},
		{name: "pool scoped", body: map[string]string{"pool_id": uuid.NewString()}, wantPool: true, wantStatus: http.StatusCreated},
		{name: "nothing due", body: `{}`, err: service.ErrNothingDue, wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown pool", body: map[string]string{"pool_id": uuid.NewString()}, wantPool: true, err: service.ErrUnknownPool, wantStatus: http.StatusNotFound},
		{name: "malformed pool", body: `{"pool_id":"p"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t)
			s.quiz.CreateFn = func(_ context.Context, _ uuid.UUID, poolID *uuid.UUID) (*quiz.View, error) {
				assert.Equal(t, tc.wantPool, poolID != nil)
				if tc.err != nil {
					return nil, tc.err
				}
				return sampleView(uuid.New(), nil), nil
			}

			w := s.do(t, http.MethodPost, "/api/sittings", tc.body)
			assert.Equal(t, tc.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestQuizHandler_SittingActions(t *testing.T) {
	t.Parallel()

	sittingID := uuid.New()

	tests := []struct {
		name       string
		method     string
		path       string
		setup      func(m *mockQuizService, err error)
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:   "resume",
			method: http.MethodGet,
			path:   "/api/sittings/" + sittingID.String(),
			setup: func(m *mockQuizService, err error) {
				m.ResumeFn = func(context.Context, uuid.UUID, uuid.UUID) (*quiz.View, error) {
					return sampleView(sittingID, nil), err
				}
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "resume foreign sitting",
			method: http.MethodGet,
			path:   "/api/sittings/" + sittingID.String(),
			setup: func(m *mockQuizService, err error) {
				m.ResumeFn = func(context.Context, uuid.UUID, uuid.UUID) (*quiz.View, error) { return nil, err }
			},
			err:        service.ErrUnknownSitting,
			wantStatus: http.StatusNotFound,
			wantMsg:    "Sitting not found",
		},
		{
			name:   "abandon",
			method: http.MethodPost,
			path:   "/api/sittings/" + sittingID.String() + "/abandon",
			setup: func(m *mockQuizService, err error) {
				m.AbandonFn = func(context.Context, uuid.UUID, uuid.UUID) (*quiz.View, error) {
					return sampleView(sittingID, nil), err
				}
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "abandon closed sitting",
			method: http.MethodPost,
			path:   "/api/sittings/" + sittingID.String() + "/abandon",
			setup: func(m *mockQuizService, err error) {
				m.AbandonFn = func(context.Context, uuid.UUID, uuid.UUID) (*quiz.View, error) { return nil, err }
			},
			err:        service.ErrInvalidTransition,
			wantStatus: http.StatusConflict,
			wantMsg:    "Sitting does not allow this operation in its current state",
		},
		{
			name:   "acknowledge",
			method: http.MethodPost,
			path:   "/api/sittings/" + sittingID.String() + "/acknowledge",
			setup: func(m *mockQuizService, err error) {
				m.AcknowledgeFn = func(context.Context, uuid.UUID, uuid.UUID) (*quiz.View, error) {
					return sampleView(sittingID, nil), err
				}
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "complete early",
			method: http.MethodPost,
			path:   "/api/sittings/" + sittingID.String() + "/complete",
			setup: func(m *mockQuizService, err error) {
				m.CompleteFn = func(context.Context, uuid.UUID, uuid.UUID) (*evaluation.Results, error) { return nil, err }
			},
			err:        service.ErrSittingNotFinished,
			wantStatus: http.StatusConflict,
			wantMsg:    "Sitting has unanswered items",
		},
		{
			name:   "complete",
			method: http.MethodPost,
			path:   "/api/sittings/" + sittingID.String() + "/complete",
			setup: func(m *mockQuizService, err error) {
				m.CompleteFn = func(context.Context, uuid.UUID, uuid.UUID) (*evaluation.Results, error) {
					return &evaluation.Results{SittingID: sittingID, Pending: 1}, err
				}
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed id",
			method:     http.MethodPost,
			path:       "/api/sittings/xyz/complete",
			setup:      func(*mockQuizService, error) {},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid id: has invalid format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t)
			tc.setup(s.quiz, tc.err)

			w := s.do(t, tc.method, tc.path, nil)

			assert.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, errorMessage(t, w))
			}
		})
	}
}

func TestQuizHandler_Submit(t *testing.T) {
	t.Parallel()

	t.Run("current item", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		sittingID, subID, nextItem := uuid.New(), uuid.New(), uuid.New()
		s.quiz.SubmitCurrentFn = func(_ context.Context, owner, id uuid.UUID, answer string) (uuid.UUID, *quiz.View, error) {
			assert.Equal(t, s.owner, owner)
			assert.Equal(t, sittingID, id)
			assert.Equal(t, "ATP synthesis", answer)
			return subID, sampleView(id, &nextItem), nil
		}

		w := s.do(t, http.MethodPost, "/api/submit", map[string]string{
			"sitting_id": sittingID.String(),
			"answer":     "ATP synthesis",
		})

		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		var resp SubmitResponse
		decodeBody(t, w, &resp)
		assert.Equal(t, "accepted", resp.Status)
		assert.Equal(t, subID, resp.SubmissionID)
		require.NotNil(t, resp.NextItemID)
		assert.Equal(t, nextItem, *resp.NextItemID)
	})

	t.Run("explicit item, last of sitting", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		sittingID, itemID, subID := uuid.New(), uuid.New(), uuid.New()
		s.quiz.SubmitItemFn = func(_ context.Context, _ uuid.UUID, sid, iid uuid.UUID, _ string) (uuid.UUID, *quiz.View, error) {
			assert.Equal(t, sittingID, sid)
			assert.Equal(t, itemID, iid)
			return subID, sampleView(sid, nil), nil
		}

		w := s.do(t, http.MethodPost, "/api/submit", map[string]string{
			"sitting_id": sittingID.String(),
			"item_id":    itemID.String(),
			"answer":     "a",
		})

		require.Equal(t, http.StatusAccepted, w.Code)
		var resp SubmitResponse
		decodeBody(t, w, &resp)
		assert.Nil(t, resp.NextItemID)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name       string
			err        error
			wantStatus int
			wantMsg    string
		}{
			{"duplicate", service.ErrDuplicateSubmission, http.StatusConflict, "Item already answered in this sitting"},
			{"unknown item", service.ErrUnknownItem, http.StatusNotFound, "Item not found"},
			{"unknown sitting", service.ErrUnknownSitting, http.StatusNotFound, "Sitting not found"},
			{"closed sitting", service.ErrInvalidTransition, http.StatusConflict, "Sitting does not allow this operation in its current state"},
			{"blank answer", domain.NewValidationError("answer", "cannot be blank", domain.ErrSubmissionAnswerEmpty), http.StatusBadRequest, "Invalid answer: cannot be blank"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()
				s := newTestServer(t)
				s.quiz.SubmitItemFn = func(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, string) (uuid.UUID, *quiz.View, error) {
					return uuid.Nil, nil, tc.err
				}
				w := s.do(t, http.MethodPost, "/api/submit", map[string]string{
					"sitting_id": uuid.NewString(),
					"item_id":    uuid.NewString(),
					"answer":     " ",
				})
				assert.Equal(t, tc.wantStatus, w.Code)
				assert.Equal(t, tc.wantMsg, errorMessage(t, w))
			})
		}
	})

	t.Run("missing answer never reaches the service", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/api/submit", map[string]string{"sitting_id": uuid.NewString()})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid answer: required field", errorMessage(t, w))
	})
}

func TestQuizHandler_RetrySubmission(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	subID := uuid.New()
	s.eval.RetryFailedFn = func(_ context.Context, owner, id uuid.UUID) (*domain.Submission, error) {
		if id != subID {
			return nil, service.ErrNotRetryable
		}
		return &domain.Submission{ID: id, OwnerID: owner, Status: domain.SubmissionStatusPending, Attempts: 3}, nil
	}

	w := s.do(t, http.MethodPost, "/api/submissions/"+subID.String()+"/retry", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp SubmissionResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, 3, resp.Attempts)

	w = s.do(t, http.MethodPost, "/api/submissions/"+uuid.NewString()+"/retry", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Submission cannot be retried", errorMessage(t, w))
}

func TestQuizHandler_GetResults(t *testing.T) {
	t.Parallel()

	sittingID := uuid.New()
	latestID := uuid.New()
	poolID := uuid.New()

	tests := []struct {
		name        string
		query       string
		latestErr   error
		wantPool    *uuid.UUID
		wantSitting uuid.UUID
		wantStatus  int
	}{
		{name: "by sitting", query: "?sitting_id=" + sittingID.String(), wantSitting: sittingID, wantStatus: http.StatusOK},
		{name: "newest of pool", query: "?pool_id=" + poolID.String(), wantPool: &poolID, wantSitting: latestID, wantStatus: http.StatusOK},
		{name: "newest global", query: "", wantSitting: latestID, wantStatus: http.StatusOK},
		{name: "no sittings yet", query: "", latestErr: service.ErrUnknownSitting, wantStatus: http.StatusNotFound},
		{name: "malformed", query: "?sitting_id=1", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t)
			s.quiz.LatestFn = func(_ context.Context, _ uuid.UUID, p *uuid.UUID) (*domain.Sitting, error) {
				assert.Equal(t, tc.wantPool, p)
				if tc.latestErr != nil {
					return nil, tc.latestErr
				}
				return &domain.Sitting{ID: latestID}, nil
			}
			var got uuid.UUID
			s.eval.GetResultsFn = func(_ context.Context, _ uuid.UUID, id uuid.UUID) (*evaluation.Results, error) {
				got = id
				return &evaluation.Results{SittingID: id, Evaluated: 2, Correct: 1}, nil
			}

			w := s.do(t, http.MethodGet, "/api/results"+tc.query, nil)

			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			if tc.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tc.wantSitting, got)
			var res evaluation.Results
			decodeBody(t, w, &res)
			assert.Equal(t, 1, res.Correct)
		})
	}
}
