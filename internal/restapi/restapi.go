// Package restapi exposes the cached train snapshot over HTTP.
package restapi

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vonatradar.hu/internal/app"
	"vonatradar.hu/internal/models"
)

// SnapshotReader is the serving-side surface of the pipeline: the cached
// snapshot with staleness policy applied, plus point lookups.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context) (models.TrainsResponse, error)
	GetVehicle(ctx context.Context, vehicleID string) (*models.ProcessedVehicle, error)
}

// Pinger reports whether the backing cache is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RestAPI carries the handler dependencies.
type RestAPI struct {
	*app.Application
	reader SnapshotReader
	pinger Pinger
}

// NewRestAPI builds the API from an assembled application.
func NewRestAPI(application *app.Application) *RestAPI {
	api := &RestAPI{Application: application}
	if application != nil {
		if application.Reader != nil {
			api.reader = application.Reader
		}
		if application.Store != nil {
			api.pinger = application.Store
		}
	}
	return api
}

// SetRoutes registers all endpoints on the given mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	// Snapshot routes refresh every minute upstream; a short shared
	// cache keeps bursty map clients off the server.
	mux.Handle("GET /trains", CacheControlMiddleware(10, http.HandlerFunc(api.trainsHandler)))
	mux.Handle("GET /trains/{id}", CacheControlMiddleware(10, http.HandlerFunc(api.vehicleHandler)))
	mux.Handle("GET /healthz", CacheControlMiddleware(0, http.HandlerFunc(api.healthHandler)))
	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// Handler returns the complete HTTP handler: routes wrapped in the
// middleware chain (request IDs, request logging, rate limiting, CORS,
// metrics).
func (api *RestAPI) Handler() http.Handler {
	mux := http.NewServeMux()
	api.SetRoutes(mux)

	var handler http.Handler = mux
	handler = MetricsHandler(api.Metrics)(handler)
	handler = CORSMiddleware(handler)
	if api.Config.RateLimitPerSecond > 0 {
		limiter := NewRateLimitMiddleware(api.Config.RateLimitPerSecond, api.Clock)
		handler = limiter.Handler()(handler)
	}
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}
