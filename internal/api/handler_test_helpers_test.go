package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer wires the handlers behind a stand-in for the auth middleware.
type testServer struct {
	owner  uuid.UUID
	pools  *mockPoolService
	due    *mockDueService
	quiz   *mockQuizService
	eval   *mockEvaluationService
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{
		owner: uuid.New(),
		pools: &mockPoolService{},
		due:   &mockDueService{},
		quiz:  &mockQuizService{},
		eval:  &mockEvaluationService{},
	}
	log := testLogger(t)
	handlers := Handlers{
		Pools: NewPoolHandler(s.pools, log),
		Quiz:  NewQuizHandler(s.quiz, s.pools, s.due, s.eval, log),
		Stats: NewStatsHandler(s.due, log),
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := shared.WithTraceID(req.Context(), "trace-test")
				next.ServeHTTP(w, req.WithContext(shared.WithUserID(ctx, s.owner)))
			})
		})
		RegisterRoutes(r, handlers)
	})
	s.router = r
	return s
}

// do sends a request with an optional JSON body and returns the recorder.
func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body shared.ErrorResponse
	decodeBody(t, w, &body)
	return body.Error
}
