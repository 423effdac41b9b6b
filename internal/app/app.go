// Package app wires configuration into the shared runtime dependencies
// used by every CLI command.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/flbest/standards-crawler/internal/config"
	"github.com/flbest/standards-crawler/internal/logging"
	"github.com/flbest/standards-crawler/internal/store"
	"github.com/flbest/standards-crawler/internal/store/postgres"
)

// App holds the process-wide dependencies.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Store      store.CrawlStore
	Checkpoint store.CheckpointStore
}

// New builds an App from cfg: logger, database store with schema
// migration, and the checkpoint file.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	dbStore, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := dbStore.Migrate(ctx); err != nil {
		dbStore.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	checkpoint, err := store.NewFileCheckpoint(cfg.Checkpoint.Path)
	if err != nil {
		dbStore.Close()
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      dbStore,
		Checkpoint: checkpoint,
	}, nil
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config { return a.Config }

// GetLogger returns the process logger.
func (a *App) GetLogger() *zap.Logger { return a.Logger }

// GetStore returns the crawl state store.
func (a *App) GetStore() store.CrawlStore { return a.Store }

// GetCheckpoint returns the resume-point store.
func (a *App) GetCheckpoint() store.CheckpointStore { return a.Checkpoint }

// Close releases the database pool and flushes the logger.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
