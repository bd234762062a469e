package app

import (
	"context"
	"fmt"
	"strings"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/markupsync/internal/config"
	"github.com/yungbote/markupsync/internal/data/db"
	"github.com/yungbote/markupsync/internal/data/repos"
	"github.com/yungbote/markupsync/internal/modules/markup"
	"github.com/yungbote/markupsync/internal/observability"
	"github.com/yungbote/markupsync/internal/platform/gcp"
	"github.com/yungbote/markupsync/internal/platform/logger"
	"github.com/yungbote/markupsync/internal/temporalx"
)

var _ markup.ObjectStore = (*gcp.Store)(nil)

// App holds the process-wide dependencies. Each CLI command wires only what it touches, so
// the heavier pieces (Postgres, the bucket, Temporal) are opened on first use.
type App struct {
	Log     *logger.Logger
	Cfg     *config.Configuration
	Metrics *observability.Metrics

	pg       *db.PostgresService
	clients  *Clients
	temporal temporalsdkclient.Client
	pipeline *markup.Pipeline

	shutdownOtel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	if _, err := config.LoadEnv([]string{".env", ".env.local"}); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &App{
		Log:          log,
		Cfg:          cfg,
		Metrics:      observability.NewMetrics(),
		shutdownOtel: observability.InitOTel(ctx, log, cfg.Telemetry.Otel()),
	}, nil
}

func (a *App) DB() (*gorm.DB, error) {
	if a.pg != nil {
		return a.pg.DB(), nil
	}
	pg, err := db.NewPostgresService(a.Log, a.Cfg.Database.Postgres())
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.pg = pg
	return pg.DB(), nil
}

func (a *App) Migrate() error {
	theDB, err := a.DB()
	if err != nil {
		return err
	}
	a.Log.Info("Running migrations...")
	return db.AutoMigrateAll(theDB)
}

func (a *App) Clients(ctx context.Context) (*Clients, error) {
	if a.clients != nil {
		return a.clients, nil
	}
	c, err := wireClients(ctx, a.Log, a.Cfg)
	if err != nil {
		return nil, err
	}
	a.clients = c
	return c, nil
}

func (a *App) Pipeline(ctx context.Context) (*markup.Pipeline, error) {
	if a.pipeline != nil {
		return a.pipeline, nil
	}
	theDB, err := a.DB()
	if err != nil {
		return nil, err
	}
	clients, err := a.Clients(ctx)
	if err != nil {
		return nil, err
	}
	if clients.AuthAPI == nil {
		return nil, fmt.Errorf("AUTH_API_URL is required for ingest runs")
	}
	sources, err := markup.LoadSources(a.Cfg.Ingest.SourcesFile)
	if err != nil {
		return nil, err
	}
	locker, err := chooseLocker(a.Log, a.Cfg, clients.Redis, theDB)
	if err != nil {
		return nil, err
	}
	p, err := markup.NewPipeline(markup.Deps{
		Log:     a.Log,
		Store:   clients.Store,
		Eshops:  clients.AuthAPI,
		Repos:   repos.New(theDB, a.Log),
		Locker:  locker,
		Metrics: a.Metrics,
		Sources: sources,
	}, a.Cfg.Pipeline())
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	a.pipeline = p
	return p, nil
}

func (a *App) Purger(ctx context.Context) (*markup.Purger, error) {
	clients, err := a.Clients(ctx)
	if err != nil {
		return nil, err
	}
	return markup.NewPurger(a.Log, clients.Store), nil
}

// Temporal dials the configured frontend. It errors when TEMPORAL_ADDRESS is unset.
func (a *App) Temporal() (temporalsdkclient.Client, temporalx.Config, error) {
	tcfg := a.Cfg.Temporal.Client()
	if a.temporal != nil {
		return a.temporal, tcfg, nil
	}
	if strings.TrimSpace(tcfg.Address) == "" {
		return nil, tcfg, fmt.Errorf("TEMPORAL_ADDRESS is not set")
	}
	c, err := temporalx.NewClient(a.Log, tcfg)
	if err != nil {
		return nil, tcfg, err
	}
	a.temporal = c
	return c, tcfg, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.temporal != nil {
		a.temporal.Close()
	}
	if a.clients != nil {
		a.clients.Close()
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("postgres close failed", "error", err)
		}
	}
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
