package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/platform/metrics"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

type RouterConfig struct {
	Logger             *logging.Logger
	Metrics            *metrics.Recorder
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimitStore backs the /api limiter; nil disables it.
	RateLimitStore       cache.Store
	RateLimitWindow      time.Duration
	RateLimitMaxRequests int
}

func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler { return RequestLogging(logger, cfg.Metrics, next) })
	r.Use(func(next http.Handler) http.Handler { return recoverPanic(logger, next) })

	registerSystemRoutes(r, handler, cfg.MetricsHandler)
	r.Route("/api", func(api chi.Router) {
		api.Use(RateLimit(cfg.RateLimitStore, cfg.RateLimitWindow, cfg.RateLimitMaxRequests, cfg.Metrics, logger))
		registerSportsRoutes(api, handler)
		registerFavoritesRoutes(api, handler)
		registerNotificationRoutes(api, handler)
		registerJobRoutes(api, handler)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(req.Context(), w, fmt.Errorf("%w: Route not found", usecase.ErrNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(req.Context(), w, fmt.Errorf("%w: Route not found", usecase.ErrNotFound))
	})

	return RequestTracing(CORS(cfg.CORSAllowedOrigins, r))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
