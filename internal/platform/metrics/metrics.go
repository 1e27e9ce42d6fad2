package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "sports-tracker"

type Config struct {
	Enabled     bool
	ServiceName string
}

// Recorder records service metrics. A nil or zero Recorder is a no-op.
type Recorder struct {
	inst *instruments
}

type instruments struct {
	httpRequests     metric.Int64Counter
	httpLatencyMs    metric.Float64Histogram
	upstreamCalls    metric.Int64Counter
	upstreamErrors   metric.Int64Counter
	upstreamLatency  metric.Float64Histogram
	cacheLookups     metric.Int64Counter
	deltaResponses   metric.Int64Counter
	jobRuns          metric.Int64Counter
	jobErrors        metric.Int64Counter
	jobLatencyMs     metric.Float64Histogram
	pushDeliveries   metric.Int64Counter
	breakerChanges   metric.Int64Counter
	rateLimitRejects metric.Int64Counter
}

// Setup builds an OpenTelemetry meter provider exported through a private
// Prometheus registry. It returns the recorder, the scrape handler, and a
// shutdown func. When disabled the handler is nil.
func Setup(ctx context.Context, cfg Config) (*Recorder, http.Handler, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return &Recorder{}, nil, noop, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = meterName
	}

	registry := prometheus.NewRegistry()
	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, noop, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)))
	if err != nil {
		return nil, nil, noop, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	inst, err := newInstruments(provider.Meter(meterName))
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, nil, noop, err
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return &Recorder{inst: inst}, handler, provider.Shutdown, nil
}

// NewRecorder builds a recorder on an arbitrary meter provider.
func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	inst, err := newInstruments(provider.Meter(meterName))
	if err != nil {
		return nil, err
	}
	return &Recorder{inst: inst}, nil
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	var (
		out instruments
		err error
	)
	counters := []struct {
		target *metric.Int64Counter
		name   string
	}{
		{&out.httpRequests, "http_requests_total"},
		{&out.upstreamCalls, "upstream_requests_total"},
		{&out.upstreamErrors, "upstream_errors_total"},
		{&out.cacheLookups, "cache_lookups_total"},
		{&out.deltaResponses, "delta_responses_total"},
		{&out.jobRuns, "background_job_runs_total"},
		{&out.jobErrors, "background_job_errors_total"},
		{&out.pushDeliveries, "push_deliveries_total"},
		{&out.breakerChanges, "circuit_breaker_transitions_total"},
		{&out.rateLimitRejects, "rate_limit_rejections_total"},
	}
	for _, c := range counters {
		if *c.target, err = meter.Int64Counter(c.name); err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		target *metric.Float64Histogram
		name   string
	}{
		{&out.httpLatencyMs, "http_request_duration_ms"},
		{&out.upstreamLatency, "upstream_request_duration_ms"},
		{&out.jobLatencyMs, "background_job_duration_ms"},
	}
	for _, h := range histograms {
		if *h.target, err = meter.Float64Histogram(h.name, metric.WithUnit("ms")); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (r *Recorder) enabled() bool {
	return r != nil && r.inst != nil
}

func (r *Recorder) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !r.enabled() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	r.inst.httpRequests.Add(context.Background(), 1, attrs)
	r.inst.httpLatencyMs.Record(context.Background(), float64(duration.Milliseconds()), attrs)
}

func (r *Recorder) RecordUpstream(source, sport string, duration time.Duration, err error) {
	if !r.enabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source), attribute.String("sport", sport))
	r.inst.upstreamCalls.Add(context.Background(), 1, attrs)
	r.inst.upstreamLatency.Record(context.Background(), float64(duration.Milliseconds()), attrs)
	if err != nil {
		r.inst.upstreamErrors.Add(context.Background(), 1, attrs)
	}
}

func (r *Recorder) RecordCacheLookup(kind string, hit bool) {
	if !r.enabled() {
		return
	}
	r.inst.cacheLookups.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("hit", hit),
	))
}

func (r *Recorder) RecordDelta(endpoint, deltaType string) {
	if !r.enabled() {
		return
	}
	r.inst.deltaResponses.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("delta_type", deltaType),
	))
}

func (r *Recorder) RecordJob(name string, duration time.Duration, err error) {
	if !r.enabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("job", name))
	r.inst.jobRuns.Add(context.Background(), 1, attrs)
	r.inst.jobLatencyMs.Record(context.Background(), float64(duration.Milliseconds()), attrs)
	if err != nil {
		r.inst.jobErrors.Add(context.Background(), 1, attrs)
	}
}

func (r *Recorder) RecordPush(outcome string) {
	if !r.enabled() {
		return
	}
	r.inst.pushDeliveries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (r *Recorder) RecordBreakerTransition(name, from, to string) {
	if !r.enabled() {
		return
	}
	r.inst.breakerChanges.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (r *Recorder) RecordRateLimited(route string) {
	if !r.enabled() {
		return
	}
	r.inst.rateLimitRejects.Add(context.Background(), 1, metric.WithAttributes(attribute.String("route", route)))
}
