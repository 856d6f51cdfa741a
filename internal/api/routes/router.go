package routes

import (
	"net/http"

	"github.com/zatekoja/clinicalrag/internal/api/handlers"
	"github.com/zatekoja/clinicalrag/internal/api/middleware"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	diagnosisHandler *handlers.DiagnosisHandler
	allowedOrigins   []string
}

// NewRouter creates a new router
func NewRouter(diagnosisHandler *handlers.DiagnosisHandler, allowedOrigins []string) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		diagnosisHandler: diagnosisHandler,
		allowedOrigins:   allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.handle("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	r.handle("POST /api/diagnose", r.diagnosisHandler.Diagnose)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

// handle registers fn with tracing applied per route, where the mux has
// already set the matched pattern on the request.
func (r *Router) handle(pattern string, fn http.HandlerFunc) {
	r.mux.Handle(pattern, middleware.ObservabilityMiddleware(fn))
}
