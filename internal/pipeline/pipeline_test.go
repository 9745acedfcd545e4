package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
	"vonatradar.hu/internal/appconf"
	"vonatradar.hu/internal/clock"
	"vonatradar.hu/internal/metrics"
	"vonatradar.hu/internal/models"
)

type fakeFetcher struct {
	reports []models.VehicleReport
	err     error
}

func (f *fakeFetcher) FetchVehiclePositions(ctx context.Context) ([]models.VehicleReport, error) {
	return f.reports, f.err
}

type fakeStore struct {
	mu       sync.Mutex
	snapshot *models.Snapshot
	setErr   error
	setCalls int
	lastTTL  time.Duration
}

func (f *fakeStore) SetSnapshot(ctx context.Context, snapshot models.Snapshot, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.snapshot = &snapshot
	f.lastTTL = ttl
	return nil
}

func (f *fakeStore) GetSnapshot(ctx context.Context) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, nil
}

func (f *fakeStore) GetVehicle(ctx context.Context, vehicleID string) (*models.ProcessedVehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return nil, nil
	}
	for i := range f.snapshot.Locations {
		if f.snapshot.Locations[i].VehicleID == vehicleID {
			return &f.snapshot.Locations[i], nil
		}
	}
	return nil, nil
}

type noCounties struct{}

func (noCounties) Query(lat, lon float64) *string { return nil }

func testPipelineConfig() appconf.Config {
	return appconf.Config{
		FeedTimeout:        5 * time.Second,
		CacheTTL:           15 * time.Minute,
		MaxStaleDataAge:    15 * time.Minute,
		RevalidateInterval: 60 * time.Second,
		RemovalThreshold:   120 * time.Minute,
	}
}

// feedReport builds a raw report on a simple northward route with stops
// at both ends, last updated at the given time.
func feedReport(t *testing.T, id string, lastUpdated time.Time) models.VehicleReport {
	t.Helper()
	encoded := string(polyline.EncodeCoords([][]float64{{47.0, 19.0}, {47.5, 19.0}, {48.0, 19.0}}))
	return models.VehicleReport{
		VehicleID:   id,
		Lat:         47.5,
		Lon:         19.0,
		LastUpdated: lastUpdated.Unix(),
		Trip: models.Trip{
			ServiceDate:  lastUpdated.Format("2006-01-02"),
			TripGeometry: models.TripGeometry{Points: encoded},
			StopTimes: []models.StopTime{
				{ScheduledArrival: 0, ScheduledDeparture: 0, Stop: models.Stop{Name: "Start", Lat: 47.0, Lon: 19.0}},
				{ScheduledArrival: 86000, ScheduledDeparture: 86000, Stop: models.Stop{Name: "End", Lat: 48.0, Lon: 19.0}},
			},
		},
	}
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(now)
	store := &fakeStore{}
	fetcher := &fakeFetcher{reports: []models.VehicleReport{
		feedReport(t, "V1", now.Add(-time.Minute)),
		feedReport(t, "V2", now.Add(-2*time.Minute)),
	}}

	p := New(fetcher, store, noCounties{}, clk, metrics.New(), testPipelineConfig(), nil)

	require.NoError(t, p.Refresh(context.Background()))

	require.NotNil(t, store.snapshot)
	assert.Equal(t, now.UnixMilli(), store.snapshot.Timestamp)
	assert.False(t, store.snapshot.NoDataReceived)
	assert.Len(t, store.snapshot.Locations, 2)
	assert.Equal(t, 15*time.Minute, store.lastTTL)
}

func TestRefreshComputesProgressAndPosition(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(now)
	store := &fakeStore{}
	fetcher := &fakeFetcher{reports: []models.VehicleReport{feedReport(t, "V1", now.Add(-time.Minute))}}

	p := New(fetcher, store, noCounties{}, clk, nil, testPipelineConfig(), nil)

	require.NoError(t, p.Refresh(context.Background()))
	require.NotNil(t, store.snapshot)
	require.Len(t, store.snapshot.Locations, 1)

	v := store.snapshot.Locations[0]
	assert.Equal(t, "Start", v.VehicleProgress.LastStop)
	assert.Equal(t, "End", v.VehicleProgress.NextStop)
	assert.InDelta(t, 0.5, v.VehicleProgress.Progress, 1e-6)
	assert.InDelta(t, 0.5, v.TrainPosition, 1e-6)
	assert.InDelta(t, 1.0, v.TotalRouteDistance, 1e-6)
	require.Len(t, v.ProcessedStops, 2)
	assert.Equal(t, "Start", v.ProcessedStops[0].ID)
}

func TestRefreshFiltersVehiclesPastRemovalThreshold(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(now)
	store := &fakeStore{}
	fetcher := &fakeFetcher{reports: []models.VehicleReport{
		feedReport(t, "alive", now.Add(-time.Minute)),
		feedReport(t, "dead", now.Add(-125*time.Minute)),
	}}

	p := New(fetcher, store, noCounties{}, clk, nil, testPipelineConfig(), nil)

	require.NoError(t, p.Refresh(context.Background()))
	require.NotNil(t, store.snapshot)
	require.Len(t, store.snapshot.Locations, 1)
	assert.Equal(t, "alive", store.snapshot.Locations[0].VehicleID)
}

func TestRefreshFetchFailureLeavesCacheUntouched(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(now)
	previous := &models.Snapshot{Timestamp: now.Add(-5 * time.Minute).UnixMilli()}
	store := &fakeStore{snapshot: previous}
	fetcher := &fakeFetcher{err: errors.New("upstream down")}

	p := New(fetcher, store, noCounties{}, clk, nil, testPipelineConfig(), nil)

	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Zero(t, store.setCalls)
	assert.Same(t, previous, store.snapshot)
}

func TestRefreshEmptyFeedLeavesCacheUntouched(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(now)
	previous := &models.Snapshot{Timestamp: now.Add(-5 * time.Minute).UnixMilli()}
	store := &fakeStore{snapshot: previous}
	fetcher := &fakeFetcher{reports: nil}

	p := New(fetcher, store, noCounties{}, clk, nil, testPipelineConfig(), nil)

	require.NoError(t, p.Refresh(context.Background()))
	assert.Zero(t, store.setCalls)
	assert.Equal(t, previous.Timestamp, store.snapshot.Timestamp,
		"an empty feed must not overwrite the previous snapshot")
}

func TestRefreshPublishFailurePropagates(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(now)
	store := &fakeStore{setErr: errors.New("redis down")}
	fetcher := &fakeFetcher{reports: []models.VehicleReport{feedReport(t, "V1", now)}}

	p := New(fetcher, store, noCounties{}, clk, nil, testPipelineConfig(), nil)

	assert.Error(t, p.Refresh(context.Background()))
}

func TestRefreshBrokenGeometryIsContainedPerVehicle(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(now)
	store := &fakeStore{}

	broken := feedReport(t, "broken", now.Add(-time.Minute))
	broken.Trip.TripGeometry.Points = "\x01"
	healthy := feedReport(t, "healthy", now.Add(-time.Minute))

	fetcher := &fakeFetcher{reports: []models.VehicleReport{broken, healthy}}
	p := New(fetcher, store, noCounties{}, clk, nil, testPipelineConfig(), nil)

	require.NoError(t, p.Refresh(context.Background()))
	require.NotNil(t, store.snapshot)
	require.Len(t, store.snapshot.Locations, 2)

	for _, v := range store.snapshot.Locations {
		if v.VehicleID == "broken" {
			assert.Zero(t, v.TrainPosition)
			assert.Equal(t, models.VehicleProgress{}, v.VehicleProgress)
		}
	}
}

func TestRefreshDeduplicatesBeforePublishing(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(now)
	store := &fakeStore{}

	older := feedReport(t, "V1", now.Add(-10*time.Minute))
	newer := feedReport(t, "V1", now.Add(-time.Minute))
	fetcher := &fakeFetcher{reports: []models.VehicleReport{older, newer}}

	p := New(fetcher, store, noCounties{}, clk, nil, testPipelineConfig(), nil)

	require.NoError(t, p.Refresh(context.Background()))
	require.NotNil(t, store.snapshot)
	require.Len(t, store.snapshot.Locations, 1)
	assert.Equal(t, newer.LastUpdated, store.snapshot.Locations[0].LastUpdated)
}
