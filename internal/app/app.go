package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-tracker/external/espn"
	"github.com/riskibarqy/sports-tracker/external/mlbstats"
	"github.com/riskibarqy/sports-tracker/external/upstream"
	"github.com/riskibarqy/sports-tracker/external/webpush"
	"github.com/riskibarqy/sports-tracker/internal/config"
	repocache "github.com/riskibarqy/sports-tracker/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/sports-tracker/internal/interfaces/httpapi"
	"github.com/riskibarqy/sports-tracker/internal/interfaces/scheduler"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/id"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/platform/metrics"
	"github.com/riskibarqy/sports-tracker/internal/platform/resilience"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

// App holds the wired process: the HTTP server, the optional background
// scheduler and everything that must be released on shutdown.
type App struct {
	Server    *http.Server
	Scheduler *scheduler.Scheduler
	Store     cache.Store

	closers []func(context.Context) error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	a := &App{}

	store := newStore(ctx, cfg, logger)
	a.Store = store
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	recorder, metricsHandler, shutdownMetrics, err := metrics.Setup(ctx, metrics.Config{
		Enabled:     cfg.MetricsEnabled,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("setup metrics: %w", err)
	}
	a.closers = append(a.closers, shutdownMetrics)

	breakers := resilience.NewRegistry(resilience.BreakerConfig{
		Enabled:          cfg.UpstreamCircuitEnabled,
		FailureThreshold: cfg.UpstreamCircuitFailureCount,
		OpenTimeout:      cfg.UpstreamCircuitOpenTimeout,
		HalfOpenMaxReq:   cfg.UpstreamCircuitHalfOpenMaxReq,
	}, func(name string, from, to resilience.CircuitState) {
		recorder.RecordBreakerTransition(name, string(from), string(to))
		logger.Warn("upstream circuit state changed", "breaker", name, "from", from, "to", to)
	})

	upstreamClient := upstream.NewClient(upstream.Config{
		Timeout:    cfg.UpstreamTimeout,
		MaxRetries: cfg.UpstreamMaxRetries,
		UserAgent:  cfg.ServiceName + "/" + cfg.ServiceVersion,
		Breakers:   breakers,
		Metrics:    recorder,
		Logger:     logger,
	})
	sender := webpush.NewSender(webpush.Config{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subject:    cfg.VAPIDSubject,
		Logger:     logger,
	})

	favoritesRepo := repocache.NewFavoriteRepository(store)
	subscriptionRepo := repocache.NewSubscriptionRepository(store)

	data := usecase.NewSportsDataService(
		espn.NewClient(upstreamClient, cfg.ESPNBaseURL),
		mlbstats.NewClient(upstreamClient, cfg.MLBBaseURL),
		store,
		usecase.SportsDataConfig{
			ShortTTL:       cfg.CacheTTL,
			LongTTL:        cfg.LongCacheTTL,
			SoccerLeagues:  cfg.SoccerLeagues,
			NFLSeasonStart: cfg.NFLSeasonStart,
		},
		recorder,
		logger,
	)
	notifications := usecase.NewNotificationService(subscriptionRepo, favoritesRepo, data, store, sender, cfg.NotificationWorkers, recorder, logger)
	jobs := usecase.NewBackgroundJobsService(favoritesRepo, data, notifications, store, usecase.JobIntervals{
		LiveGames:     cfg.JobLiveGamesInterval,
		UpcomingGames: cfg.JobUpcomingInterval,
		Notifications: cfg.JobNotificationInterval,
		UserSummaries: cfg.JobSummaryInterval,
		CacheCleanup:  cfg.JobCleanupInterval,
	}, cfg.NotificationWorkers, recorder, logger)

	handler := httpapi.NewHandler(httpapi.HandlerDeps{
		Sports:               usecase.NewSportsService(data, store, recorder, logger),
		Favorites:            usecase.NewFavoritesService(favoritesRepo, data, store, id.NewUUIDGenerator(), recorder, logger),
		Notifications:        notifications,
		Jobs:                 jobs,
		Store:                store,
		Breakers:             breakers,
		Logger:               logger,
		ExposeInternalErrors: cfg.AppEnv != config.EnvProd,
	})
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		Logger:               logger,
		Metrics:              recorder,
		MetricsHandler:       metricsHandler,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		RateLimitStore:       store,
		RateLimitWindow:      cfg.RateLimitWindow,
		RateLimitMaxRequests: cfg.RateLimitMaxRequests,
	})

	a.Server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	if cfg.SchedulerEnabled {
		sched, err := scheduler.New(jobs, logger)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("build scheduler: %w", err)
		}
		a.Scheduler = sched
	} else {
		logger.Info("background jobs disabled", "reason", "SCHEDULER_ENABLED=false")
	}

	return a, nil
}

func newStore(ctx context.Context, cfg config.Config, logger *logging.Logger) cache.Store {
	if cfg.RedisURL == "" {
		logger.Info("cache store: in-memory", "reason", "REDIS_URL empty")
		return cache.NewMemoryStore()
	}
	logger.Info("cache store: redis")
	return cache.NewRedisStore(ctx, cfg.RedisURL, logger)
}

// Close releases resources in reverse acquisition order and reports every
// failure.
func (a *App) Close(ctx context.Context) error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = crerr.CombineErrors(err, a.closers[i](ctx))
	}
	a.closers = nil
	return err
}
