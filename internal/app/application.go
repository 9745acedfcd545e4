package app

import (
	"log/slog"

	"vonatradar.hu/internal/appconf"
	"vonatradar.hu/internal/cache"
	"vonatradar.hu/internal/clock"
	"vonatradar.hu/internal/geo"
	"vonatradar.hu/internal/metrics"
	"vonatradar.hu/internal/pipeline"
)

// Application holds the shared dependencies for the HTTP handlers,
// middleware, and background refresh machinery.
type Application struct {
	Config    appconf.Config
	Logger    *slog.Logger
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	Store     *cache.Store
	Counties  *geo.CountyIndex
	Reader    *pipeline.Reader
	Refresher *pipeline.Refresher
}
