package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
)

// ObservabilityMiddleware adds OpenTelemetry tracing and metrics to HTTP
// requests. It must wrap a handler registered on a ServeMux so the matched
// pattern is known; otherwise spans fall back to the raw path.
func ObservabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeName(r)

		ctx, span := observability.StartSpan(r.Context(), route,
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("http.user_agent", r.UserAgent()),
		)
		defer span.End()

		rw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rw, r.WithContext(ctx))

		observability.RecordRequestMetric(ctx, r.Method, route, rw.statusCode, time.Since(start))
		span.SetAttributes(attribute.Int("http.status_code", rw.statusCode))
	})
}

// routeName prefers the matched mux pattern over the raw path to keep metric
// cardinality bounded.
func routeName(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}
