package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline instruments. Instruments are created lazily
// against the global meter provider so packages can record without wiring.
type Metrics struct {
	RequestCount      metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	LLMRequestCount   metric.Int64Counter
	LLMRequestErrors  metric.Int64Counter
	LLMDuration       metric.Float64Histogram
	RateLimitWait     metric.Float64Histogram
	PageExtractions   metric.Int64Counter
	RetrievalDuration metric.Float64Histogram
	CacheHitCount     metric.Int64Counter
	CacheMissCount    metric.Int64Counter
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// GetMetrics returns the process-wide instruments, or nil when they could not
// be created.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		m, err := initMetrics()
		if err == nil {
			metrics = m
		}
	})
	return metrics
}

func initMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}
	var err error

	if m.RequestCount, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.LLMRequestCount, err = meter.Int64Counter(
		"ai.request.count",
		metric.WithDescription("Number of LLM and embedding requests"),
	); err != nil {
		return nil, err
	}
	if m.LLMRequestErrors, err = meter.Int64Counter(
		"ai.request.errors",
		metric.WithDescription("Number of failed LLM and embedding requests"),
	); err != nil {
		return nil, err
	}
	if m.LLMDuration, err = meter.Float64Histogram(
		"ai.request.duration",
		metric.WithDescription("LLM request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.RateLimitWait, err = meter.Float64Histogram(
		"ai.rate_limit.wait",
		metric.WithDescription("Time spent waiting for a rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.PageExtractions, err = meter.Int64Counter(
		"pipeline.page_extraction.count",
		metric.WithDescription("Page extraction outcomes"),
	); err != nil {
		return nil, err
	}
	if m.RetrievalDuration, err = meter.Float64Histogram(
		"retrieval.search.duration",
		metric.WithDescription("Similarity search duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.CacheHitCount, err = meter.Int64Counter(
		"cache.hit.count",
		metric.WithDescription("Number of cache hits"),
	); err != nil {
		return nil, err
	}
	if m.CacheMissCount, err = meter.Int64Counter(
		"cache.miss.count",
		metric.WithDescription("Number of cache misses"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRequestMetric records an HTTP request
func RecordRequestMetric(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	m := GetMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	)
	m.RequestCount.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordLLMRequest records one call to a generation or embedding service.
func RecordLLMRequest(ctx context.Context, provider, model string, statusCode int, duration time.Duration, err error) {
	m := GetMetrics()
	if m == nil {
		return
	}
	kv := []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		kv = append(kv, attribute.Int("http.status_code", statusCode))
	}
	attrs := metric.WithAttributes(kv...)
	m.LLMRequestCount.Add(ctx, 1, attrs)
	m.LLMDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.LLMRequestErrors.Add(ctx, 1, attrs)
	}
}

// RecordRateLimitWait records time spent blocked on a limiter or pacer.
func RecordRateLimitWait(ctx context.Context, provider, model string, wait time.Duration) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.RateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	))
}

// RecordPageExtraction counts a page outcome: merged, malformed, failed or empty.
func RecordPageExtraction(ctx context.Context, outcome string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.PageExtractions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordRetrieval records a similarity search
func RecordRetrieval(ctx context.Context, duration time.Duration, results int) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.RetrievalDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.Int("retrieval.results", results),
	))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(ctx context.Context, cache string) {
	if m := GetMetrics(); m != nil {
		m.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.name", cache)))
	}
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(ctx context.Context, cache string) {
	if m := GetMetrics(); m != nil {
		m.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.name", cache)))
	}
}
