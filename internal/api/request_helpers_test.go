package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGetPathUUID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	tests := []struct {
		name    string
		value   string
		want    uuid.UUID
		wantErr error
	}{
		{name: "valid", value: id.String(), want: id},
		{name: "missing", value: "", wantErr: domain.ErrValidation},
		{name: "malformed", value: "sitting-1", wantErr: domain.ErrInvalidID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := withPathParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", tc.value)
			got, err := getPathUUID(req, "id")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHandleUserIDAndPathUUID(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	pathID := uuid.New()

	tests := []struct {
		name       string
		owner      *uuid.UUID
		pathValue  string
		wantOK     bool
		wantStatus int
		wantMsg    string
	}{
		{name: "both present", owner: &owner, pathValue: pathID.String(), wantOK: true},
		{name: "no owner", pathValue: pathID.String(), wantStatus: http.StatusUnauthorized, wantMsg: "User ID not found or invalid"},
		{name: "bad path", owner: &owner, pathValue: "nope", wantStatus: http.StatusBadRequest, wantMsg: "Invalid id: has invalid format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/sittings/"+tc.pathValue, nil)
			if tc.owner != nil {
				req = req.WithContext(shared.WithUserID(req.Context(), *tc.owner))
			}
			req = withPathParam(req, "id", tc.pathValue)
			w := httptest.NewRecorder()

			gotOwner, gotPath, ok := handleUserIDAndPathUUID(w, req, "id", nil)

			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, owner, gotOwner)
				assert.Equal(t, pathID, gotPath)
				return
			}
			assert.Equal(t, tc.wantStatus, w.Code)
			var body shared.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.wantMsg, body.Error)
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantOK  bool
		wantMsg string
	}{
		{name: "valid", body: `{"pool_id":"` + uuid.NewString() + `"}`, wantOK: true},
		{name: "malformed json", body: `{"pool_id":`, wantMsg: "Invalid request format"},
		{name: "unknown field", body: `{"pool":"x"}`, wantMsg: "Invalid request format"},
		{name: "invalid uuid", body: `{"pool_id":"x"}`, wantMsg: "Invalid pool_id: invalid ID format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			var got GenerateRequest

			ok := decodeAndValidate(w, req, &got, testLogger(t))

			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				return
			}
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body shared.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.wantMsg, body.Error)
		})
	}
}

func TestParseOptionalUUID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	raw := id.String()
	empty := ""

	assert.Nil(t, parseOptionalUUID(nil))
	assert.Nil(t, parseOptionalUUID(&empty))
	assert.Equal(t, &id, parseOptionalUUID(&raw))
}
