package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freedom_case_2/fire-router/internal/app"
	"github.com/freedom_case_2/fire-router/internal/config"
	httpapi "github.com/freedom_case_2/fire-router/internal/http"
	"github.com/freedom_case_2/fire-router/internal/http/handlers"
	"github.com/freedom_case_2/fire-router/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "fire-router").Logger()

	ctx := context.Background()
	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	collector := metrics.NewPrometheus(reg, "fire")

	processing, err := app.NewProcessing(cfg, store, collector, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build routing engine")
	}

	h := &handlers.Handler{
		Store:      store,
		Processing: processing,
		Geocoding:  app.NewGeocoding(cfg, store, logger),
		Validator:  validator.New(),
		Logger:     logger,
	}
	if cfg.AdminKey == "" {
		logger.Warn().Msg("ADMIN_KEY not set, admin routes are open")
	}
	router := httpapi.Router(cfg, h, reg, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("driver", cfg.StoreDriver).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
