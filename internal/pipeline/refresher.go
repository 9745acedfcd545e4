package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vonatradar.hu/internal/logging"
	"vonatradar.hu/internal/metrics"
)

// Refresher serializes refresh execution. Requests arrive from the
// interval scheduler and from readers that saw stale data; both enqueue
// the same idempotent operation. A single worker drains the queue, and
// the one-slot buffer coalesces bursts: while a cycle runs, any number of
// overlapping requests collapse into at most one follow-up cycle.
type Refresher struct {
	pipeline *Pipeline
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger

	requests chan string
	wg       sync.WaitGroup
}

// NewRefresher wraps a pipeline with refresh coordination. interval is
// the scheduled full-refresh period.
func NewRefresher(p *Pipeline, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		pipeline: p,
		interval: interval,
		metrics:  m,
		logger:   logger.With(slog.String("component", "refresher")),
		requests: make(chan string, 1),
	}
}

// Start launches the worker and the interval scheduler. Both stop when
// ctx is cancelled; Wait blocks until they have exited.
func (r *Refresher) Start(ctx context.Context) {
	r.wg.Add(2)
	go r.runWorker(ctx)
	go r.runScheduler(ctx)
}

// Wait blocks until the worker and scheduler goroutines have exited.
func (r *Refresher) Wait() {
	r.wg.Wait()
}

// TriggerRefresh enqueues one refresh without blocking. The caller never
// observes the cycle's result; a full queue means a refresh is already
// pending and the request is dropped.
func (r *Refresher) TriggerRefresh(source string) {
	if r.metrics != nil {
		r.metrics.RefreshTriggersTotal.WithLabelValues(source).Inc()
	}
	select {
	case r.requests <- source:
	default:
		// A refresh is already queued; this request rides along with it.
	}
}

func (r *Refresher) runWorker(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case source := <-r.requests:
			logging.LogOperation(r.logger, "running refresh cycle", slog.String("source", source))
			if err := r.pipeline.Refresh(ctx); err != nil {
				logging.LogError(r.logger, "refresh cycle failed", err, slog.String("source", source))
			}
		}
	}
}

func (r *Refresher) runScheduler(ctx context.Context) {
	defer r.wg.Done()

	// Prime the cache immediately so the first readers after startup do
	// not wait a full interval for data.
	r.TriggerRefresh("startup")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.LogOperation(r.logger, "shutting down scheduled refreshes")
			return
		case <-ticker.C:
			r.TriggerRefresh("scheduler")
		}
	}
}
