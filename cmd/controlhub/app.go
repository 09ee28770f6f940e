package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/controlhub-core/internal/audit"
	"github.com/nerrad567/controlhub-core/internal/backend"
	"github.com/nerrad567/controlhub-core/internal/controller"
	"github.com/nerrad567/controlhub-core/internal/infrastructure/config"
	"github.com/nerrad567/controlhub-core/internal/infrastructure/database"
	"github.com/nerrad567/controlhub-core/internal/infrastructure/logging"
	"github.com/nerrad567/controlhub-core/internal/layout"
	"github.com/nerrad567/controlhub-core/internal/rulegroup"
)

// app holds the components every subcommand shares.
type app struct {
	cfg        *config.Config
	log        *logging.Logger
	db         *database.DB
	backend    *backend.Client
	registry   *controller.Registry
	rules      *rulegroup.Service
	dashboards *layout.Service
	audit      *audit.Recorder
}

// newApp loads config, opens and migrates the database, and wires the
// domain services. The caller must Close the result.
func newApp(ctx context.Context, configPath string) (*app, error) {
	path := resolveConfigPath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("configuration loaded", "path", path)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	client := backend.New(cfg.Backend)
	client.SetLogger(log.Component("backend"))

	registry := controller.NewRegistry(client, controller.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("controller"))

	rules := rulegroup.NewService(registry, client)
	rules.SetLogger(log.Component("rulegroup"))

	dashboards := layout.NewService(registry, layout.NewSQLiteRepository(db.DB), cfg.Dashboard.Columns)
	dashboards.SetLogger(log.Component("layout"))

	recorder := audit.NewRecorder(audit.NewSQLiteRepository(db.DB))
	recorder.SetLogger(log.Component("audit"))
	rules.SetAudit(recorder)
	dashboards.SetAudit(recorder)

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		backend:    client,
		registry:   registry,
		rules:      rules,
		dashboards: dashboards,
		audit:      recorder,
	}, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// Close releases the database.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Error("error closing database", "error", err)
	}
}
