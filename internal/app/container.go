// Package app wires the gateway's components together: configuration,
// storage, the provider registry, the selector, and the HTTP surface.
// There are no package-level singletons; everything flows through
// Container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/llm-gateway/internal/admin"
	"github.com/upb/llm-gateway/internal/config"
	"github.com/upb/llm-gateway/internal/credentials"
	"github.com/upb/llm-gateway/internal/events"
	"github.com/upb/llm-gateway/internal/httpapi"
	"github.com/upb/llm-gateway/internal/logging"
	"github.com/upb/llm-gateway/internal/metrics"
	"github.com/upb/llm-gateway/internal/registry"
	"github.com/upb/llm-gateway/internal/retention"
	"github.com/upb/llm-gateway/internal/selector"
	"github.com/upb/llm-gateway/internal/storage"
	"github.com/upb/llm-gateway/internal/tracelog"

	"github.com/prometheus/client_golang/prometheus"
)

// Container holds every wired dependency the gateway needs to serve
// traffic and run its background sweeps.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *storage.DB
	Registry  *registry.Registry
	Selector  *selector.Selector
	Admin     *admin.Service
	Server    *httpapi.Server
	Retention *retention.Scheduler
	Metrics   *metrics.Metrics

	credentials credentials.Store
	events      events.Store
	traces      tracelog.Store
}

// New builds a fully wired Container from configuration.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	db, err := storage.New(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	c.DB = db

	if err := db.Migrate("file://migrations"); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	c.credentials = credentials.NewPostgresStore(db, logger)
	c.events = events.NewPostgresStore(db, logger, cfg.Events)
	c.traces = tracelog.NewPostgresStore(db, logger)

	if err := c.seedCredentials(ctx); err != nil {
		return nil, fmt.Errorf("seed credentials: %w", err)
	}

	c.Registry = registry.New(cfg, c.credentials, c.traces)

	c.Metrics = metrics.New(prometheus.DefaultRegisterer)

	c.Selector = selector.New(c.Registry, c.events, logger).WithMetrics(c.Metrics)
	c.Admin = admin.New(c.Registry, c.credentials, c.events)
	c.Server = httpapi.NewServer(c.Selector, c.Admin, c.DB, logger)

	c.Retention = retention.NewScheduler(logger)
	if err := c.Retention.Register("events", c.events); err != nil {
		return nil, fmt.Errorf("register events sweeper: %w", err)
	}
	if err := c.Retention.Register("provider_logs", c.traces); err != nil {
		return nil, fmt.Errorf("register provider_logs sweeper: %w", err)
	}

	return c, nil
}

// seedCredentials writes any <PROVIDER>_API_KEY environment values into
// the credential store on first boot, without overwriting a row the
// admin API has already written.
func (c *Container) seedCredentials(ctx context.Context) error {
	for _, descriptor := range c.Config.Providers {
		key := config.SeedAPIKey(descriptor.ID)
		if key == "" {
			continue
		}
		if _, ok, err := c.credentials.Get(ctx, descriptor.ID); err != nil {
			return err
		} else if ok {
			continue
		}
		if err := c.credentials.Upsert(ctx, descriptor.ID, key); err != nil {
			return err
		}
	}
	return nil
}

// StartBackgroundJobs starts the retention sweep on a daily schedule.
func (c *Container) StartBackgroundJobs() error {
	return c.Retention.Start("0 3 * * *")
}

// Close releases the container's held resources.
func (c *Container) Close() error {
	c.Retention.Stop()
	_ = c.Logger.Sync()
	return c.DB.Close()
}
