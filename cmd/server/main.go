// Package main implements the entry point for the chemlab server, which
// serves the interactive chemistry learning API backed by the Gemini
// content oracle.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/chemlab/internal/config"
	"github.com/phrazzld/chemlab/internal/platform/gemini"
	"github.com/phrazzld/chemlab/internal/platform/logger"
	"github.com/phrazzld/chemlab/internal/platform/metrics"
)

// metricsNamespace prefixes every exported metric name.
const metricsNamespace = "chemlab"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("chemlab server failed: %v", err)
	}
}

// run loads configuration, wires the application and serves until ctx is
// cancelled.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"model", cfg.LLM.ModelName,
		"syllabus", cfg.Curriculum.DefaultSyllabus)

	collector := metrics.NewCollector(metricsNamespace)

	generator, err := gemini.NewGeminiGenerator(
		ctx,
		appLogger.With(slog.String("component", "llm_generator")),
		cfg.LLM,
		cfg.Oracle,
		gemini.WithMetrics(collector),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	appLogger.Info("LLM generator initialized successfully")

	app, err := newApplication(cfg, appLogger, generator, collector)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
