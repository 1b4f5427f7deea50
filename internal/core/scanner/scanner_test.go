package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netposture/netposture/internal/adapters/cache"
	"github.com/netposture/netposture/internal/core/domain"
)

// fakeStore serves canned records, filtered the way the real store filters.
type fakeStore struct {
	records []domain.VulnerabilityRecord
	err     error
}

func (f *fakeStore) FindByPlatform(_ context.Context, platform domain.Platform, vulnType domain.VulnType) ([]domain.VulnerabilityRecord, error) {
	if f.err != nil {
		return nil, domain.NewStorageError("find by platform", f.err)
	}
	var out []domain.VulnerabilityRecord
	for _, rec := range f.records {
		if rec.Platform == platform && rec.VulnType == vulnType {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) CountRecords(context.Context) (int64, error) {
	return int64(len(f.records)), nil
}

func (f *fakeStore) Close() error { return nil }

func strPtr(s string) *string { return &s }

func trainBugs(n int, train string) []domain.VulnerabilityRecord {
	bugs := make([]domain.VulnerabilityRecord, 0, n)
	for i := 0; i < n; i++ {
		bugs = append(bugs, domain.VulnerabilityRecord{
			ID:                  fmt.Sprintf("BUG-%03d", i),
			Platform:            domain.PlatformIOSXE,
			Severity:            1 + i%4,
			AffectedVersionsRaw: fmt.Sprintf("%s.%d", train, i),
			VulnType:            domain.VulnTypeBug,
		})
	}
	return bugs
}

func newTestScanner(store *fakeStore) *Scanner {
	return New(store, cache.NewMemory(), WithClock(clock.NewMockClock()))
}

func TestScanDeviceAllTiersPass(t *testing.T) {
	store := &fakeStore{records: trainBugs(10, "17.10")}
	s := newTestScanner(store)

	result, err := s.ScanDevice(context.Background(), ScanRequest{
		Platform: domain.PlatformIOSXE,
		Version:  "17.10.1",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, result.VersionMatches)
	assert.Equal(t, 10, result.HardwareFiltered)
	assert.Equal(t, 0, result.HardwareFilteredCount)
	assert.Equal(t, 10, result.FeatureFiltered)
	assert.Len(t, result.Vulnerabilities, 10)
}

func TestScanDeviceHardwareTier(t *testing.T) {
	bugs := trainBugs(10, "17.10")
	for i := 0; i < 3; i++ {
		bugs[i].HardwareModel = strPtr("Cat9300")
	}
	store := &fakeStore{records: bugs}
	s := newTestScanner(store)

	result, err := s.ScanDevice(context.Background(), ScanRequest{
		Platform:      domain.PlatformIOSXE,
		Version:       "17.10.1",
		HardwareModel: "Cat9200",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, result.VersionMatches)
	assert.Equal(t, 7, result.HardwareFiltered)
	assert.Equal(t, 3, result.HardwareFilteredCount)
}

func TestScanDeviceGenericHardwareNeverFiltered(t *testing.T) {
	bugs := trainBugs(4, "17.10")
	bugs[0].HardwareModel = strPtr("Cat9300")
	// bugs[1..3] stay generic (nil hardware)
	store := &fakeStore{records: bugs}
	s := newTestScanner(store)

	result, err := s.ScanDevice(context.Background(), ScanRequest{
		Platform:      domain.PlatformIOSXE,
		Version:       "17.10.1",
		HardwareModel: "ISR4431",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.HardwareFiltered)
	for _, rec := range result.Vulnerabilities {
		assert.Nil(t, rec.HardwareModel)
	}
}

func TestScanDeviceFeatureTier(t *testing.T) {
	bugs := trainBugs(4, "17.10")
	bugs[0].Labels = []string{"MGMT_SSH_HTTP"}
	bugs[1].Labels = []string{"ROUTING_BGP"}
	bugs[2].Labels = []string{"ROUTING_BGP", "MGMT_SSH_HTTP"}
	// bugs[3] unlabeled: conservatively kept
	store := &fakeStore{records: bugs}
	s := newTestScanner(store)

	result, err := s.ScanDevice(context.Background(), ScanRequest{
		Platform: domain.PlatformIOSXE,
		Version:  "17.10.1",
		Labels:   []string{"MGMT_SSH_HTTP"},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.VersionMatches)
	assert.Equal(t, 3, result.FeatureFiltered)
}

func TestScanDevicePlatformInvariant(t *testing.T) {
	bugs := trainBugs(3, "17.10")
	// A defective record claiming the right query platform at the store
	// level but carrying another one must never leak through.
	bugs = append(bugs, domain.VulnerabilityRecord{
		ID:                  "LEAK-1",
		Platform:            domain.PlatformIOSXR,
		Severity:            1,
		AffectedVersionsRaw: "17.10.1",
		VulnType:            domain.VulnTypeBug,
	})
	store := &fakeStore{records: bugs}
	s := newTestScanner(store)

	result, err := s.ScanDevice(context.Background(), ScanRequest{
		Platform: domain.PlatformIOSXE,
		Version:  "17.10.1",
	})
	require.NoError(t, err)

	for _, rec := range result.Vulnerabilities {
		assert.Equal(t, domain.PlatformIOSXE, rec.Platform)
	}
}

func TestScanDeviceSeverityOrdering(t *testing.T) {
	store := &fakeStore{records: trainBugs(8, "17.10")}
	s := newTestScanner(store)

	result, err := s.ScanDevice(context.Background(), ScanRequest{
		Platform: domain.PlatformIOSXE,
		Version:  "17.10.1",
	})
	require.NoError(t, err)

	for i := 1; i < len(result.Vulnerabilities); i++ {
		assert.LessOrEqual(t,
			result.Vulnerabilities[i-1].Severity,
			result.Vulnerabilities[i].Severity)
	}
}

func TestScanDeviceIgnoresPSIRTRecords(t *testing.T) {
	store := &fakeStore{records: []domain.VulnerabilityRecord{
		{
			ID:                  "PSIRT-1",
			Platform:            domain.PlatformIOSXE,
			Severity:            1,
			AffectedVersionsRaw: "17.10.1",
			VulnType:            domain.VulnTypePSIRT,
		},
	}}
	s := newTestScanner(store)

	result, err := s.ScanDevice(context.Background(), ScanRequest{
		Platform: domain.PlatformIOSXE,
		Version:  "17.10.1",
	})
	require.NoError(t, err)
	assert.Zero(t, result.VersionMatches)
}

func TestScanDeviceStorageErrorPropagates(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}
	s := newTestScanner(store)

	result, err := s.ScanDevice(context.Background(), ScanRequest{
		Platform: domain.PlatformIOSXE,
		Version:  "17.10.1",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, domain.IsStorageError(err))
}

func TestScanDeviceUnparsableVersionMatchesNothing(t *testing.T) {
	store := &fakeStore{records: trainBugs(5, "17.10")}
	s := newTestScanner(store)

	result, err := s.ScanDevice(context.Background(), ScanRequest{
		Platform: domain.PlatformIOSXE,
		Version:  "not-a-version",
	})
	require.NoError(t, err)
	assert.Zero(t, result.VersionMatches)
	assert.Empty(t, result.Vulnerabilities)
}

func TestScanDeviceQueryTime(t *testing.T) {
	mockClock := clock.NewMockClock()
	store := &fakeStore{records: trainBugs(1, "17.10")}

	// Advance the clock from inside the store call so the elapsed time is
	// deterministic.
	s := New(&tickingStore{fakeStore: store, clock: mockClock, tick: 250 * time.Millisecond},
		cache.NewMemory(), WithClock(mockClock))

	result, err := s.ScanDevice(context.Background(), ScanRequest{
		Platform: domain.PlatformIOSXE,
		Version:  "17.10.1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(250), result.QueryTimeMs)
}

type tickingStore struct {
	*fakeStore
	clock *clock.MockClock
	tick  time.Duration
}

func (t *tickingStore) FindByPlatform(ctx context.Context, platform domain.Platform, vulnType domain.VulnType) ([]domain.VulnerabilityRecord, error) {
	t.clock.AddTime(t.tick)
	return t.fakeStore.FindByPlatform(ctx, platform, vulnType)
}

func TestCacheConfidenceGate(t *testing.T) {
	ctx := context.Background()
	s := newTestScanner(&fakeStore{})

	low := domain.AdvisoryCacheEntry{
		AdvisoryID: "cisco-sa-low",
		Platform:   domain.PlatformIOSXE,
		Confidence: 0.60,
	}
	require.NoError(t, s.CacheResult(ctx, low))

	entry, err := s.CheckCache(ctx, "cisco-sa-low", domain.PlatformIOSXE)
	require.NoError(t, err)
	assert.Nil(t, entry, "below-threshold results must not be cached")
}

func TestCachePlatformIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestScanner(&fakeStore{})

	require.NoError(t, s.CacheResult(ctx, domain.AdvisoryCacheEntry{
		AdvisoryID:      "cisco-sa-20230101",
		Platform:        domain.PlatformIOSXE,
		PredictedLabels: []string{"MGMT_SSH_HTTP"},
		Confidence:      0.85,
	}))

	hit, err := s.CheckCache(ctx, "cisco-sa-20230101", domain.PlatformIOSXE)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, []string{"MGMT_SSH_HTTP"}, hit.PredictedLabels)

	miss, err := s.CheckCache(ctx, "cisco-sa-20230101", domain.PlatformIOSXR)
	require.NoError(t, err)
	assert.Nil(t, miss, "same advisory on another platform must miss")
}

func TestCacheUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestScanner(&fakeStore{})

	first := domain.AdvisoryCacheEntry{
		AdvisoryID: "cisco-sa-upsert",
		Platform:   domain.PlatformASA,
		Confidence: 0.80,
	}
	second := first
	second.Confidence = 0.95

	require.NoError(t, s.CacheResult(ctx, first))
	require.NoError(t, s.CacheResult(ctx, second))

	entry, err := s.CheckCache(ctx, "cisco-sa-upsert", domain.PlatformASA)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 0.95, entry.Confidence)
}

func TestCacheCustomThreshold(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeStore{}, cache.NewMemory(),
		WithClock(clock.NewMockClock()),
		WithConfidenceThreshold(0.9))

	require.NoError(t, s.CacheResult(ctx, domain.AdvisoryCacheEntry{
		AdvisoryID: "cisco-sa-strict",
		Platform:   domain.PlatformFTD,
		Confidence: 0.85,
	}))

	entry, err := s.CheckCache(ctx, "cisco-sa-strict", domain.PlatformFTD)
	require.NoError(t, err)
	assert.Nil(t, entry)
}
