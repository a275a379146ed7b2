package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ontograph/interfaces/http/rest/handlers"
	"ontograph/interfaces/http/rest/middleware"
	pkgerrors "ontograph/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether the backing store can serve requests
type ReadinessCheck func(ctx context.Context) error

// Options configures the router
type Options struct {
	Auth        middleware.AuthOptions
	CORSOrigins []string
	Metrics     http.Handler
	Recorder    middleware.RequestRecorder
	Ready       ReadinessCheck
	Debug       bool
}

// Router creates and configures the HTTP router
type Router struct {
	service handlers.SnapshotService
	opts    Options
	logger  *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(service handlers.SnapshotService, opts Options, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{service: service, opts: opts, logger: logger}
}

// Setup configures all routes and middleware. It returns the concrete mux
// because the Lambda adapter needs one.
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()
	errs := pkgerrors.NewErrorHandler(rt.logger, rt.opts.Debug)

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger, rt.opts.Recorder))

	origins := rt.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match", "X-Request-ID"},
		ExposedHeaders:   []string{"ETag", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.opts.Auth, errs, rt.logger))

		h := handlers.NewSnapshotHandler(rt.service, errs, rt.logger)
		r.Route("/ontologies/{iri}", func(r chi.Router) {
			r.Patch("/", h.RenameOntology)
			r.Delete("/", h.DeleteOntology)
			r.Get("/snapshot", h.GetSnapshot)
			r.Put("/snapshot", h.PutSnapshot)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck probes the store with a short deadline
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	if rt.opts.Ready == nil {
		writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := rt.opts.Ready(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
