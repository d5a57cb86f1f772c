package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/flowgrid/internal/artifact"
	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/engine"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	model      *config.Model
	engine     *engine.Engine
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and engine.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loadModel(ctx, cfg.WorkflowPath)
	if err != nil {
		// A failure to load the definition is a fatal startup error.
		panic(fmt.Errorf("failed to load workflow definition: %w", err))
	}
	logger.Debug("Definition loaded and translated into unified model.",
		"workflow", model.Workflow.Name, "jobs", len(model.Workflow.Jobs))

	eng := engine.New(engine.Config{
		Workers:  cfg.Workers,
		WorkDir:  cfg.WorkDir,
		NewStore: storeFactory(cfg),
	})
	logger.Debug("Engine initialized.", "workers", cfg.Workers)

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		model:  model,
		engine: eng,
	}
}

// Model returns the loaded workflow model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// storeFactory selects the artifact backend: MinIO when an endpoint is
// configured, in-memory otherwise. Nil tells the engine to use its default.
func storeFactory(cfg *Config) engine.StoreFactory {
	if cfg.MinioEndpoint == "" {
		return nil
	}
	mc := artifact.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Region:    cfg.MinioRegion,
		UseSSL:    cfg.MinioUseSSL,
		Bucket:    cfg.MinioBucket,
		Retain:    cfg.MinioRetain,
	}
	return func(ctx context.Context, runID string) (artifact.Store, error) {
		return artifact.NewMinioStore(ctx, mc, runID)
	}
}
