package httpapi

import (
	"net/http"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/domain/delta"
	"github.com/riskibarqy/sports-tracker/internal/platform/resilience"
)

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

type cacheHealthResponse struct {
	Status    string                             `json:"status"`
	Cache     string                             `json:"cache"`
	Timestamp string                             `json:"timestamp"`
	Breakers  map[string]resilience.CircuitState `json:"breakers,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Health")
	defer span.End()

	now := h.now()
	writeSuccess(ctx, w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: delta.FormatTimestamp(now),
		Uptime:    now.Sub(h.startedAt).Round(time.Millisecond).Seconds(),
	})
}

// CacheHealth answers 503 while the cache is unreachable; the API itself
// keeps serving uncached.
func (h *Handler) CacheHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CacheHealth")
	defer span.End()

	out := cacheHealthResponse{
		Status:    "ok",
		Cache:     "connected",
		Timestamp: delta.FormatTimestamp(h.now()),
	}
	if h.breakers != nil {
		out.Breakers = h.breakers.States()
	}

	status := http.StatusOK
	if h.store == nil || !h.store.Healthy(ctx) {
		out.Status = "degraded"
		out.Cache = "disconnected"
		status = http.StatusServiceUnavailable
	}
	writeSuccess(ctx, w, status, out)
}
