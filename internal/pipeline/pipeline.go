// Package pipeline orchestrates the ingestion cycle that turns the raw
// vehicle-position feed into the published snapshot: fetch, dedupe,
// county annotation, per-vehicle map matching, staleness filtering, and
// an all-or-nothing cache publish. It also owns the refresh coordination
// between the interval scheduler and reader-triggered revalidation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"vonatradar.hu/internal/appconf"
	"vonatradar.hu/internal/clock"
	"vonatradar.hu/internal/matching"
	"vonatradar.hu/internal/metrics"
	"vonatradar.hu/internal/models"
)

// processConcurrency bounds the per-vehicle matching workers. Matching is
// CPU-bound; a small fan-out keeps a large feed from serializing the
// cycle without oversubscribing the host.
const processConcurrency = 8

// Fetcher retrieves the raw vehicle reports from the upstream feed.
type Fetcher interface {
	FetchVehiclePositions(ctx context.Context) ([]models.VehicleReport, error)
}

// SnapshotStore persists and serves the published snapshot.
type SnapshotStore interface {
	SetSnapshot(ctx context.Context, snapshot models.Snapshot, ttl time.Duration) error
	GetSnapshot(ctx context.Context) (*models.Snapshot, error)
	GetVehicle(ctx context.Context, vehicleID string) (*models.ProcessedVehicle, error)
}

// Pipeline runs one full refresh cycle at a time. Concurrent cycles are
// safe (each publish is a complete overwrite) but wasteful; coordination
// lives in Refresher.
type Pipeline struct {
	fetcher  Fetcher
	store    SnapshotStore
	counties CountyResolver
	clock    clock.Clock
	metrics  *metrics.Metrics
	cfg      appconf.Config
	logger   *slog.Logger
}

// New assembles a pipeline from its collaborators.
func New(fetcher Fetcher, store SnapshotStore, counties CountyResolver, clk clock.Clock, m *metrics.Metrics, cfg appconf.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:  fetcher,
		store:    store,
		counties: counties,
		clock:    clk,
		metrics:  m,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "refresh_pipeline")),
	}
}

// Refresh executes one full cycle. A fetch failure or an empty feed
// leaves the previously published snapshot untouched; the cache is only
// written after every step has succeeded.
func (p *Pipeline) Refresh(ctx context.Context) error {
	start := p.clock.Now()
	publishedAt := p.clock.NowUnixMilli()

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FeedTimeout)
	raw, err := p.fetcher.FetchVehiclePositions(fetchCtx)
	cancel()
	if err != nil {
		p.observeCycle("failure", start)
		return fmt.Errorf("fetching vehicle positions: %w", err)
	}

	p.logger.Info("fetched vehicle positions",
		slog.Int("count", len(raw)),
		slog.Bool("proxy", p.cfg.SOCKS5ProxyEnable))

	if len(raw) == 0 {
		// Transient upstream gap: stale data keeps serving rather than
		// being wiped.
		p.logger.Warn("feed returned no data, keeping existing cache")
		p.observeCycle("empty", start)
		return nil
	}

	deduped := DedupeByVehicleID(raw)
	p.logger.Info("deduplicated reports",
		slog.Int("raw", len(raw)),
		slog.Int("deduped", len(deduped)))

	annotated := AnnotateCounties(deduped, p.counties)

	processed, filtered := p.processReports(ctx, annotated)
	p.logger.Info("processed delays and filtered stale vehicles",
		slog.Int("processed", len(annotated)),
		slog.Int("published", len(processed)),
		slog.Int("filtered", filtered))

	snapshot := models.Snapshot{
		Timestamp:      publishedAt,
		NoDataReceived: false,
		Locations:      processed,
	}

	if err := p.store.SetSnapshot(ctx, snapshot, p.cfg.CacheTTL); err != nil {
		p.observeCycle("failure", start)
		return fmt.Errorf("publishing snapshot: %w", err)
	}

	if p.metrics != nil {
		p.metrics.VehiclesPublished.Set(float64(len(processed)))
		p.metrics.VehiclesFiltered.Add(float64(filtered))
	}
	p.observeCycle("success", start)

	p.logger.Info("refresh cycle complete",
		slog.Int("vehicles", len(processed)),
		slog.Int64("duration_ms", p.clock.Now().Sub(start).Milliseconds()))

	return nil
}

// processReports runs the matching engine for each report and drops
// vehicles whose last update exceeds the removal threshold. Per-vehicle
// problems degrade that vehicle to zero values; they never fail the
// cycle.
func (p *Pipeline) processReports(ctx context.Context, reports []models.VehicleReport) ([]models.ProcessedVehicle, int) {
	now := p.clock.Now()
	results := make([]*models.ProcessedVehicle, len(reports))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(processConcurrency)

	for i := range reports {
		g.Go(func() error {
			results[i] = p.processReport(reports[i], now)
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes them.
	_ = g.Wait()

	processed := make([]models.ProcessedVehicle, 0, len(reports))
	filtered := 0
	for _, r := range results {
		if r == nil {
			filtered++
			continue
		}
		processed = append(processed, *r)
	}
	return processed, filtered
}

// processReport matches one vehicle. It returns nil when the vehicle is
// past the removal threshold and should not be published.
func (p *Pipeline) processReport(report models.VehicleReport, now time.Time) *models.ProcessedVehicle {
	if p.removable(report, now) {
		return nil
	}

	routeCoords, err := matching.DecodePolyline(report.Trip.TripGeometry.Points)
	if err != nil {
		// Contained per-vehicle: a broken geometry degrades this vehicle
		// to zero position data instead of failing the cycle.
		p.logger.Warn("failed to decode trip geometry",
			slog.String("vehicle_id", report.VehicleID),
			slog.Any("error", err))
		routeCoords = nil
	}

	lastUpdated := time.Unix(report.LastUpdated, 0)
	result := matching.DelayAndPosition(
		lastUpdated,
		report.Trip.ServiceDate,
		report.Trip.StopTimes,
		routeCoords,
		report.Lat,
		report.Lon,
		report.Heading,
	)

	return &models.ProcessedVehicle{
		VehicleReport:      report,
		Delay:              int64(math.Round(result.Delay / 60)),
		TrainPosition:      result.TrainPosition,
		TotalRouteDistance: result.TotalRouteDistance,
		ProcessedStops:     result.ProcessedStops,
		VehicleProgress:    result.VehicleProgress,
	}
}

// removable reports whether the vehicle's last update is older than the
// removal threshold. Such vehicles are dead or out of service, not merely
// stale.
func (p *Pipeline) removable(report models.VehicleReport, now time.Time) bool {
	age := now.Sub(time.Unix(report.LastUpdated, 0))
	return age > p.cfg.RemovalThreshold
}

func (p *Pipeline) observeCycle(outcome string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RefreshCyclesTotal.WithLabelValues(outcome).Inc()
	p.metrics.RefreshCycleDuration.Observe(p.clock.Now().Sub(start).Seconds())
}
