package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/chemlab/internal/config"
	"github.com/phrazzld/chemlab/internal/curriculum"
	"github.com/phrazzld/chemlab/internal/generation"
	"github.com/phrazzld/chemlab/internal/platform/metrics"
	"github.com/phrazzld/chemlab/internal/service"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	lab     *service.Lab
}

// newApplication wires the learning session around generator. The content
// oracle is built by the caller so tests can substitute it.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	generator generation.Generator,
	collector *metrics.Collector,
) (*application, error) {
	catalog, err := curriculum.DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load syllabus catalog: %w", err)
	}

	lab, err := service.NewLab(service.Deps{
		Generator: generator,
		Catalog:   catalog,
		Syllabus:  cfg.Curriculum.DefaultSyllabus,
		Logger:    logger,
		Metrics:   collector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lab: %w", err)
	}

	logger.Info("Application initialized successfully",
		"syllabi", catalog.Names(),
		"syllabus", lab.Syllabus())

	return &application{
		config:  cfg,
		logger:  logger,
		metrics: collector,
		lab:     lab,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
