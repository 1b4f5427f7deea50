package diagweb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netposture/netposture/internal/adapters/cache"
	"github.com/netposture/netposture/internal/core/domain"
)

type stubStore struct {
	count int64
	err   error
}

func (s *stubStore) FindByPlatform(context.Context, domain.Platform, domain.VulnType) ([]domain.VulnerabilityRecord, error) {
	return nil, nil
}

func (s *stubStore) CountRecords(context.Context) (int64, error) {
	return s.count, s.err
}

func (s *stubStore) Close() error { return nil }

func TestHealthz(t *testing.T) {
	srv := New(":0", &stubStore{}, cache.NewMemory(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestStatus(t *testing.T) {
	mem := cache.NewMemory()
	require.NoError(t, mem.Put(context.Background(), domain.AdvisoryCacheEntry{
		AdvisoryID: "cisco-sa-1",
		Platform:   domain.PlatformIOSXE,
		Confidence: 0.9,
	}))

	srv := New(":0", &stubStore{count: 42}, mem, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Status       string `json:"status"`
		RecordCount  int64  `json:"record_count"`
		CacheEntries int    `json:"cache_entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, int64(42), payload.RecordCount)
	assert.Equal(t, 1, payload.CacheEntries)
}

func TestStatusDegradedWhenStoreDown(t *testing.T) {
	srv := New(":0", &stubStore{err: errors.New("locked")}, cache.NewMemory(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "degraded", payload.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := New(":0", &stubStore{}, cache.NewMemory(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}
