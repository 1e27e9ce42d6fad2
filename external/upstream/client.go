package upstream

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v5"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/platform/metrics"
	"github.com/riskibarqy/sports-tracker/internal/platform/resilience"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout       = 5 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	maxBodyBytes         = 8 << 20
	defaultUserAgent     = "sports-tracker/1.0"
)

// ErrTransient marks failures worth retrying and counting against the breaker.
var ErrTransient = crerr.New("upstream transient failure")

type Config struct {
	HTTPClient    *http.Client
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
	UserAgent     string
	Breakers      *resilience.Registry
	Metrics       *metrics.Recorder
	Logger        *logging.Logger
}

// Request names the upstream source and sport so breakers and metrics are
// kept per feed.
type Request struct {
	Source string
	Sport  string
	URL    string
}

func (r Request) breakerName() string {
	if r.Sport == "" {
		return r.Source
	}
	return r.Source + ":" + r.Sport
}

// Client is a JSON-over-HTTP client shared by the sport data providers.
type Client struct {
	httpClient    *http.Client
	maxRetries    int
	retryInterval time.Duration
	userAgent     string
	breakers      *resilience.Registry
	metrics       *metrics.Recorder
	logger        *logging.Logger
	flight        resilience.SingleFlight
}

func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	breakers := cfg.Breakers
	if breakers == nil {
		breakers = resilience.NewRegistry(resilience.DefaultBreakerConfig(), nil)
	}

	return &Client{
		httpClient:    httpClient,
		maxRetries:    max(cfg.MaxRetries, 0),
		retryInterval: retryInterval,
		userAgent:     userAgent,
		breakers:      breakers,
		metrics:       cfg.Metrics,
		logger:        logger,
	}
}

// GetJSON fetches req.URL and decodes the body into target. Concurrent
// calls for the same URL share one request.
func (c *Client) GetJSON(ctx context.Context, req Request, target any) error {
	raw, err := c.Get(ctx, req)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", req.Source, err)
	}
	return nil
}

// Get returns the raw response body of a successful GET. A caller that goes
// away does not cancel the request other callers are waiting on.
func (c *Client) Get(ctx context.Context, req Request) ([]byte, error) {
	breaker := c.breakers.Get(req.breakerName())
	if err := breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "upstream circuit breaker rejected request",
			"source", req.Source,
			"sport", req.Sport,
			"state", breaker.State(),
		)
		return nil, fmt.Errorf("%w: %s is temporarily unavailable", usecase.ErrDependencyUnavailable, req.breakerName())
	}

	started := time.Now()
	out, err, _ := c.flight.Do(req.URL, func() (any, error) {
		// Shared by every waiter; bounded by the client timeout, not the caller.
		raw, reqErr := c.executeRequest(context.WithoutCancel(ctx), req)
		if reqErr != nil && IsTransient(reqErr) {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
		return raw, reqErr
	})
	c.metrics.RecordUpstream(req.Source, req.Sport, time.Since(started), err)
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, req Request) ([]byte, error) {
	attempt := func() ([]byte, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		httpReq.Header.Set("accept", "application/json")
		httpReq.Header.Set("user-agent", c.userAgent)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, fmt.Errorf("%w: send request: %v", ErrTransient, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: read response body: %v", ErrTransient, err)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return raw, nil
		}
		if isRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: %s status=%d body=%s", ErrTransient, req.Source, resp.StatusCode, abbreviateBody(raw))
		}
		return nil, backoff.Permanent(&StatusError{Source: req.Source, StatusCode: resp.StatusCode, Body: abbreviateBody(raw)})
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	raw, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
	)
	if err != nil {
		c.logger.WarnContext(ctx, "upstream request failed", "source", req.Source, "sport", req.Sport, "url", req.URL, "error", err)
		return nil, err
	}
	return raw, nil
}

// StatusError is a non-retryable HTTP status from an upstream.
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status=%d body=%s", e.Source, e.StatusCode, e.Body)
}

// IsTransient reports whether err was caused by a retryable upstream failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return crerr.Is(err, ErrTransient)
}

// IsNotFound reports whether the upstream answered 404.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
