package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"vonatradar.hu/internal/app"
	"vonatradar.hu/internal/appconf"
	"vonatradar.hu/internal/cache"
	"vonatradar.hu/internal/clock"
	"vonatradar.hu/internal/feed"
	"vonatradar.hu/internal/geo"
	"vonatradar.hu/internal/logging"
	"vonatradar.hu/internal/metrics"
	"vonatradar.hu/internal/pipeline"
	"vonatradar.hu/internal/restapi"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := appconf.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel == slog.LevelDebug)
	logger.Info("starting server",
		slog.String("env", cfg.Env.String()),
		slog.String("addr", cfg.HTTPAddr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(store, logger, "redis store")

	if cfg.Debug {
		// Debug runs start from an empty cache so stale snapshots from a
		// previous configuration cannot mask pipeline changes.
		if err := store.FlushAll(ctx); err != nil {
			logger.Warn("failed to flush cache on startup", slog.Any("error", err))
		} else {
			logger.Info("flushed cache on startup (debug mode)")
		}
	}

	clk := clock.RealClock{}
	m := metrics.New()
	counties := geo.NewCountyIndex(cfg.CountiesPath, logger)
	feedClient := feed.NewClient(cfg, logger)

	pl := pipeline.New(feedClient, store, counties, clk, m, cfg, logger)
	refresher := pipeline.NewRefresher(pl, cfg.RevalidateInterval, m, logger)
	reader := pipeline.NewReader(store, refresher, clk, m, cfg, logger)

	application := &app.Application{
		Config:    cfg,
		Logger:    logger,
		Clock:     clk,
		Metrics:   m,
		Store:     store,
		Counties:  counties,
		Reader:    reader,
		Refresher: refresher,
	}

	refresher.Start(ctx)

	api := restapi.NewRestAPI(application)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		stop()
		refresher.Wait()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "http server shutdown failed", err)
	}

	refresher.Wait()
	logger.Info("shutdown complete")
	return nil
}
