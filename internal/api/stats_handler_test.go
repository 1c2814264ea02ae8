package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/dueset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsHandler_Progress(t *testing.T) {
	t.Parallel()

	poolID := uuid.New()

	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
	}{
		{name: "ok", query: "?pool_id=" + poolID.String(), wantStatus: http.StatusOK},
		{name: "missing pool", query: "", wantStatus: http.StatusBadRequest},
		{name: "foreign pool", query: "?pool_id=" + poolID.String(), err: service.ErrUnknownPool, wantStatus: http.StatusNotFound},
		{name: "store down", query: "?pool_id=" + poolID.String(), err: errors.New("conn reset"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t)
			s.due.PoolStatsFn = func(_ context.Context, _ uuid.UUID, id uuid.UUID) (*dueset.Stats, error) {
				if tc.err != nil {
					return nil, tc.err
				}
				return &dueset.Stats{PoolID: &id, Total: 4, DueCount: 1, Mastered: 2, MasteryPercentage: 50,
					BoxDistribution: map[int]int{1: 1, 2: 1, 5: 2}}, nil
			}

			w := s.do(t, http.MethodGet, "/api/progress"+tc.query, nil)

			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			if tc.wantStatus != http.StatusOK {
				return
			}
			var stats dueset.Stats
			decodeBody(t, w, &stats)
			assert.Equal(t, 4, stats.Total)
			assert.Equal(t, 2, stats.BoxDistribution[5])
		})
	}
}

func TestStatsHandler_Dashboard(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.due.DashboardFn = func(_ context.Context, owner uuid.UUID) (*dueset.Dashboard, error) {
		assert.Equal(t, s.owner, owner)
		return &dueset.Dashboard{
			Global: dueset.Stats{Total: 3, DueCount: 2},
			Pools:  []dueset.Stats{{PoolTitle: "Biology", SpacedRepetition: true, Total: 3, DueCount: 2}},
		}, nil
	}

	w := s.do(t, http.MethodGet, "/api/dashboard", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var d dueset.Dashboard
	decodeBody(t, w, &d)
	assert.Equal(t, 2, d.Global.DueCount)
	require.Len(t, d.Pools, 1)
	assert.Equal(t, "Biology", d.Pools[0].PoolTitle)
	assert.True(t, d.Pools[0].SpacedRepetition)
}
