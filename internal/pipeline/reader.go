package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"vonatradar.hu/internal/appconf"
	"vonatradar.hu/internal/clock"
	"vonatradar.hu/internal/metrics"
	"vonatradar.hu/internal/models"
)

// RefreshTrigger accepts fire-and-forget refresh requests.
type RefreshTrigger interface {
	TriggerRefresh(source string)
}

// Reader serves the best currently cached snapshot and decides, per read,
// whether the data is fresh, stale but usable, or too old to show.
// Reads never block on a refresh they trigger.
type Reader struct {
	store   SnapshotStore
	trigger RefreshTrigger
	clock   clock.Clock
	metrics *metrics.Metrics
	cfg     appconf.Config
	logger  *slog.Logger

	// revalidateLimiter throttles reader-triggered revalidation so a
	// burst of stale reads requests one refresh, not one per reader.
	revalidateLimiter *rate.Limiter
}

// NewReader builds the snapshot reader.
func NewReader(store SnapshotStore, trigger RefreshTrigger, clk clock.Clock, m *metrics.Metrics, cfg appconf.Config, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		store:             store,
		trigger:           trigger,
		clock:             clk,
		metrics:           m,
		cfg:               cfg,
		logger:            logger.With(slog.String("component", "snapshot_reader")),
		revalidateLimiter: rate.NewLimiter(rate.Every(cfg.RevalidateLock), 1),
	}
}

// GetSnapshot reads the cache and applies the staleness policy:
//
//   - absent: noDataReceived=true, age 0, empty list
//   - older than the hard maximum: noDataReceived=true with the computed
//     age and an empty list, plus a background refresh
//   - older than the soft revalidate threshold: data served as-is, plus a
//     background refresh
//   - otherwise: data served as fresh
//
// Store errors propagate; they never clear or corrupt the cache.
func (r *Reader) GetSnapshot(ctx context.Context) (models.TrainsResponse, error) {
	snapshot, err := r.store.GetSnapshot(ctx)
	if err != nil {
		return models.TrainsResponse{}, err
	}

	now := r.clock.NowUnixMilli()

	if snapshot == nil {
		r.observeRead("miss")
		r.logger.Info("no cached snapshot, returning empty response")
		return models.TrainsResponse{
			Timestamp:      r.clock.Now().UTC().Format(time.RFC3339),
			NoDataReceived: true,
			DataAgeMinutes: 0,
			Locations:      []models.ProcessedVehicle{},
		}, nil
	}

	ageMs := now - snapshot.Timestamp
	ageMinutes := ageMs / 60_000
	timestamp := time.UnixMilli(snapshot.Timestamp).UTC().Format(time.RFC3339)

	if ageMs > r.cfg.MaxStaleDataAge.Milliseconds() {
		// Never serve data judged too stale to be meaningful.
		r.observeRead("expired")
		r.logger.Info("snapshot past maximum age, serving empty response",
			slog.Int64("age_minutes", ageMinutes))
		r.requestRevalidate()
		return models.TrainsResponse{
			Timestamp:      timestamp,
			NoDataReceived: true,
			DataAgeMinutes: ageMinutes,
			Locations:      []models.ProcessedVehicle{},
		}, nil
	}

	if ageMs > r.cfg.RevalidateInterval.Milliseconds() {
		r.observeRead("stale")
		r.requestRevalidate()
	} else {
		r.observeRead("fresh")
	}

	return models.TrainsResponse{
		Timestamp:      timestamp,
		NoDataReceived: snapshot.NoDataReceived,
		DataAgeMinutes: ageMinutes,
		Locations:      snapshot.Locations,
	}, nil
}

// GetVehicle returns the processed vehicle with the given id from the
// latest snapshot, or nil if it is not present.
func (r *Reader) GetVehicle(ctx context.Context, vehicleID string) (*models.ProcessedVehicle, error) {
	return r.store.GetVehicle(ctx, vehicleID)
}

// TriggerRefresh requests one pipeline cycle asynchronously. It does not
// return pipeline results to the caller.
func (r *Reader) TriggerRefresh() {
	r.trigger.TriggerRefresh("api")
}

func (r *Reader) requestRevalidate() {
	if !r.revalidateLimiter.Allow() {
		return
	}
	r.trigger.TriggerRefresh("reader")
}

func (r *Reader) observeRead(freshness string) {
	if r.metrics == nil {
		return
	}
	r.metrics.SnapshotReadsTotal.WithLabelValues(freshness).Inc()
}
