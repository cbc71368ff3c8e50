package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/config"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/database"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/database/mariadb"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/database/postgres"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/embedder"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/logging"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/metrics"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/recognition"
)

// app holds everything a command needs to run the pipeline.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	service *recognition.Service
	store   database.FaceStore
	closer  io.Closer
}

func (a *app) Close() {
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			a.logger.WithError(err).Warn("closing database")
		}
	}
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	return cfg, nil
}

// openBackend connects the configured storage backend and registers it.
func openBackend(cfg *config.Config, logger logrus.FieldLogger) (io.Closer, error) {
	switch cfg.Database.Driver {
	case config.DriverMariaDB:
		fmt.Printf("Connecting to MariaDB database...\n")
		pool, err := mariadb.Initialize(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		return pool, nil
	default:
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := postgres.Initialize(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return pool, nil
	}
}

// newApp builds the logger, storage backend and recognition service.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log)

	closer, err := openBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := database.GetFaceStore()
	if err != nil {
		closer.Close()
		return nil, err
	}

	policy, err := facematch.NewPolicy(cfg.Match.Threshold)
	if err != nil {
		closer.Close()
		return nil, err
	}

	validator := facematch.NewValidator(cfg.Embedding.Dim, logger)
	engine := facematch.NewEngine(validator, logger).WithObserver(metrics.Observer{})
	model := embedder.NewClient(cfg.Embedding.URL, time.Duration(cfg.Embedding.TimeoutSeconds)*time.Second)

	return &app{
		cfg:     cfg,
		logger:  logger,
		service: recognition.NewService(model, store, engine, policy, logger),
		store:   store,
		closer:  closer,
	}, nil
}
