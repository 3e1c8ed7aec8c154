// Package app assembles the store, classifier and routing engine from
// configuration for the server and the routectl tool.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/freedom_case_2/fire-router/internal/ai"
	"github.com/freedom_case_2/fire-router/internal/config"
	"github.com/freedom_case_2/fire-router/internal/db"
	"github.com/freedom_case_2/fire-router/internal/geo"
	"github.com/freedom_case_2/fire-router/internal/geocode"
	"github.com/freedom_case_2/fire-router/internal/metrics"
	"github.com/freedom_case_2/fire-router/internal/routing"
	"github.com/freedom_case_2/fire-router/internal/service"
	"github.com/freedom_case_2/fire-router/internal/sqlitedb"
)

// OpenStore connects the configured driver and makes sure the schema exists.
// The returned func releases the store.
func OpenStore(ctx context.Context, cfg config.Config) (service.Store, func(), error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case config.DriverPostgres:
		s, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return s, s.Close, nil
	case config.DriverSQLite:
		s, err := sqlitedb.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func NewClassifier(cfg config.Config, logger zerolog.Logger) ai.Classifier {
	if cfg.AIURL == "" {
		logger.Info().Msg("AI_URL not set, using keyword classifier")
		return ai.KeywordAdapter{}
	}
	return ai.HTTPAdapter{
		BaseURL:    cfg.AIURL,
		Client:     &http.Client{Timeout: cfg.ClassifyTimeout},
		MaxRetries: cfg.ClassifyRetries,
	}
}

// NewEngine builds the routing engine, extending the built-in region aliases
// with the YAML file at REGION_ALIASES_PATH when set.
func NewEngine(cfg config.Config, logger zerolog.Logger) (*routing.Engine, error) {
	aliases := routing.DefaultAliases()
	if cfg.RegionAliasesPath != "" {
		f, err := os.Open(cfg.RegionAliasesPath)
		if err != nil {
			return nil, fmt.Errorf("open region aliases: %w", err)
		}
		defer f.Close()
		extra, err := routing.LoadAliases(f)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, extra...)
		logger.Info().Int("aliases", len(extra)).Str("path", cfg.RegionAliasesPath).Msg("region aliases loaded")
	}
	return routing.NewEngine(routing.Options{
		Aliases:       routing.NewAliasTable(aliases),
		DefaultOffice: cfg.DefaultOffice,
		Logger:        logger.With().Str("component", "routing").Logger(),
	}), nil
}

func NewProcessing(cfg config.Config, store service.Store, collector *metrics.Collector, logger zerolog.Logger) (*service.ProcessingService, error) {
	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &service.ProcessingService{
		Store:           store,
		Classifier:      NewClassifier(cfg, logger),
		Engine:          engine,
		Metrics:         collector,
		Logger:          logger,
		Workers:         cfg.ClassifyWorkers,
		ClassifyTimeout: cfg.ClassifyTimeout,
	}, nil
}

func NewGeocoding(cfg config.Config, store service.Store, logger zerolog.Logger) *service.GeocodingService {
	if cfg.NominatimURL == "" {
		return nil
	}
	return &service.GeocodingService{
		Store: store,
		Geocoder: &geocode.NominatimGeocoder{
			BaseURL:     cfg.NominatimURL,
			UserAgent:   cfg.GeocoderUserAgent,
			MinInterval: time.Second,
		},
		Geo:     geo.Index{},
		Country: cfg.CountryDefault,
		Logger:  logger,
	}
}
