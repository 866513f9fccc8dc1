// Package app wires the table backend, the meeting service and the session
// manager from configuration. Both cmd/api and cmd/meetingctl build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/observability"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/router"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/session"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table/repo"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/throttle"
	"github.com/ovaphlow/pitchfork/service-meeting/pkg/database"
	"github.com/ovaphlow/pitchfork/service-meeting/pkg/utilities"
)

// Config gathers the per-package configs.
type Config struct {
	Table       table.Config
	Database    database.Config
	Meeting     meeting.Config
	Session     session.Config
	CORSOrigins []string
}

// ConfigFromEnv reads every section from the environment.
func ConfigFromEnv() Config {
	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Config{
		Table:       table.ConfigFromEnv(),
		Database:    database.ConfigFromEnv(),
		Meeting:     meeting.ConfigFromEnv(),
		Session:     session.ConfigFromEnv(),
		CORSOrigins: origins,
	}
}

// App holds the wired components.
type App struct {
	Config   Config
	Table    *table.Table
	Service  *meeting.Service
	Sessions *session.Manager
	Metrics  *observability.Collector
	logger   *zap.SugaredLogger
	closers  []func() error
}

// New opens the configured backend and builds the service on top of it.
func New(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	a := &App{Config: cfg, Metrics: observability.NewCollector("meeting"), logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc := time.Local
	if tz := cfg.Meeting.TimeZone; tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			a.Close()
			return nil, fmt.Errorf("meeting timezone %q: %w", tz, err)
		}
	}

	breaker := cfg.Table.Breaker
	if breaker.Name == "" {
		breaker = table.DefaultBreakerConfig()
	}
	a.Table = table.New(store, table.Options{
		Limiter:    throttle.New(cfg.Table.Cooldown, nil),
		Optimistic: cfg.Table.Optimistic,
		Breaker:    breaker,
		Metrics:    a.Metrics,
		Logger:     logger.Named("table"),
	})
	a.Service = meeting.NewService(a.Table, meeting.Options{
		Location:          loc,
		NewID:             utilities.NewIDGenerator(cfg.Meeting.IDStrategy),
		Hasher:            cfg.Meeting.Hasher(),
		KeepExpiredOnList: !cfg.Meeting.SweepOnList,
		Metrics:           a.Metrics,
		Logger:            logger.Named("meeting"),
	})
	a.Sessions, err = session.NewManager(cfg.Session, nil)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("session keys: %w", err)
	}
	logger.Infow("table ready",
		"backend", cfg.Table.Backend,
		"name", cfg.Table.Name,
		"cooldown", cfg.Table.Cooldown.String(),
		"optimistic", cfg.Table.Optimistic,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (table.Store, error) {
	cfg := a.Config.Table
	switch cfg.Backend {
	case table.BackendMemory:
		return table.NewMemoryStore(), nil
	case table.BackendRedis:
		r, err := repo.NewRedisRepo(ctx, cfg.RedisURL, cfg.Name, cfg.RedisChannel)
		if err != nil {
			return nil, fmt.Errorf("redis backend: %w", err)
		}
		a.closers = append(a.closers, r.Close)
		return r, nil
	case table.BackendPostgres, table.BackendSQLite:
		dbCfg := a.Config.Database
		dbCfg.Driver = cfg.Backend
		db, err := database.Connect(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		r, err := repo.NewSQLRepo(db, cfg.Name)
		if err != nil {
			return nil, err
		}
		if err := r.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("ensure table %s: %w", cfg.Name, err)
		}
		return r, nil
	}
	return nil, fmt.Errorf("unknown table backend %q", cfg.Backend)
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	h := meeting.NewHandler(a.Service, a.Sessions, a.Config.Meeting.AdminUser, a.Table.Limiter().Remaining, a.logger.Named("http"))
	return router.RegisterRoutes(router.Deps{
		Meeting:     h,
		Sessions:    a.Sessions,
		Metrics:     a.Metrics,
		CORSOrigins: a.Config.CORSOrigins,
		Logger:      a.logger.Named("http"),
	})
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
