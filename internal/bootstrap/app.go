// Package bootstrap assembles the timetable services from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/example/lab-timetable/internal/application"
	"github.com/example/lab-timetable/internal/cache"
	"github.com/example/lab-timetable/internal/config"
	httpapi "github.com/example/lab-timetable/internal/http"
	"github.com/example/lab-timetable/internal/metrics"
	"github.com/example/lab-timetable/internal/persistence/sqlite"
)

// App holds the wired services sharing one database pool.
type App struct {
	Config      config.Config
	Logger      *slog.Logger
	Pool        *sqlite.ConnectionPool
	Registry    *prometheus.Registry
	Metrics     *metrics.Recorder
	Rooms       *application.RoomService
	Rosters     *application.RosterService
	Overrides   *application.OverrideService
	Timetable   *application.TimetableService
	Utilization *application.UtilizationService

	redis redis.UniversalClient
}

// Options tune Build for callers other than the server.
type Options struct {
	// SQLite overrides the connection settings derived from cfg.SQLitePath.
	SQLite *sqlite.Config
	// SkipSeed leaves the rooms table untouched.
	SkipSeed bool
}

// Build opens the database, applies migrations, seeds the default rooms and
// wires every service. Close releases what Build opened.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbConfig := sqlite.DefaultConfig(cfg.SQLitePath)
	if opts.SQLite != nil {
		dbConfig = *opts.SQLite
	}
	pool, err := sqlite.Open(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app := &App{Config: cfg, Logger: logger, Pool: pool}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if _, err = pool.Migrate(logger); err != nil {
		return nil, err
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if app.Metrics, err = metrics.NewRecorderWithRegistry(app.Registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	rooms := NewRoomRepositoryAdapter(sqlite.NewRoomRepository(pool))
	rosters := NewRosterRepositoryAdapter(sqlite.NewRosterRepository(pool))
	sessions := NewSessionRepositoryAdapter(sqlite.NewSessionRepository(pool))
	overrides := NewOverrideRepositoryAdapter(sqlite.NewOverrideRepository(pool))

	app.Rooms = application.NewRoomServiceWithLogger(rooms, logger)
	app.Rosters = application.NewRosterServiceWithLogger(rosters, logger)
	app.Overrides = application.NewOverrideServiceWithLogger(overrides, logger)
	app.Timetable = application.NewTimetableServiceWithLogger(
		sessions, app.Rooms, app.Rosters, app.Overrides, cfg.Semester, uuid.NewString, logger)
	app.Timetable.SetMetrics(app.Metrics)
	app.Utilization = application.NewUtilizationServiceWithLogger(
		app.Rooms, sessions, app.Overrides, app.summaryCache(ctx), logger)

	if !opts.SkipSeed {
		inserted, seedErr := app.Rooms.Seed(ctx, application.DefaultRooms())
		if seedErr != nil {
			return nil, fmt.Errorf("seed rooms: %w", seedErr)
		}
		logger.InfoContext(ctx, "rooms seeded", "inserted", inserted)
	}

	return app, nil
}

// summaryCache picks Redis when an address is configured and the in-process
// LRU otherwise. A zero TTL disables caching.
func (a *App) summaryCache(ctx context.Context) application.SummaryCache {
	if a.Config.CacheTTL <= 0 {
		a.Logger.InfoContext(ctx, "utilization cache disabled")
		return nil
	}
	if a.Config.RedisAddr == "" {
		return cache.NewMemoryCache(a.Config.CacheSize, a.Config.CacheTTL, a.Metrics)
	}

	a.redis = redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.redis.Ping(pingCtx).Err(); err != nil {
		a.Logger.WarnContext(ctx, "redis unreachable, lookups will miss until it recovers",
			"addr", a.Config.RedisAddr, "error", err)
	}
	return cache.NewRedisCache(a.redis, a.Config.CacheTTL, a.Metrics, a.Logger)
}

// Handler returns the HTTP API with request logging and metrics.
func (a *App) Handler() http.Handler {
	return httpapi.NewRouter(httpapi.RouterConfig{
		Rooms:       httpapi.NewRoomHandler(a.Rooms, a.Logger),
		Rosters:     httpapi.NewRosterHandler(a.Rosters, a.Logger),
		Timetable:   httpapi.NewTimetableHandler(a.Timetable, a.Logger),
		Calendar:    httpapi.NewCalendarHandler(a.Overrides, a.Logger),
		Utilization: httpapi.NewUtilizationHandler(a.Utilization, a.Logger),
		Metrics:     promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}),
		Observer:    a.Metrics,
		Health:      a.Pool.Ping,
		Middleware:  []func(http.Handler) http.Handler{httpapi.RequestLogger(a.Logger)},
	})
}

// Close releases the Redis client and the database pool.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Pool != nil {
		errs = append(errs, a.Pool.Close())
	}
	return errors.Join(errs...)
}
