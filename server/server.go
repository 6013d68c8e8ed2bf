// Package server exposes the engine as a small JSON HTTP API for exploring a
// catalog: listing and describing endpoints, preparing requests, sending
// them to a target and browsing what was sent.
package server

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/broady/restcat"
	"github.com/broady/restcat/history"
	"github.com/broady/restcat/internal/metrics"
	"github.com/broady/restcat/middleware"
	"github.com/broady/restcat/openapi"
	"github.com/broady/restcat/transport"
)

const maxRequestBytes = 1 << 20

var (
	validate      = validator.New()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// Server serves the explorer API. The engine can be replaced while serving.
type Server struct {
	engine   atomic.Pointer[restcat.Engine]
	client   *transport.Client
	history  *history.Store
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	cors     *middleware.CORSConfig
	info     openapi.Options
	errors   restcat.ErrorTransformer
}

// New returns a server for e.
func New(e *restcat.Engine) *Server {
	s := &Server{logger: slog.Default()}
	s.engine.Store(e)
	return s
}

// WithLogger sets the logger used for request and error logging.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClient enables /api/call against c's target.
func (s *Server) WithClient(c *transport.Client) *Server {
	s.client = c
	return s
}

// WithHistory records calls in h and enables /api/history.
func (s *Server) WithHistory(h *history.Store) *Server {
	s.history = h
	return s
}

// WithMetrics records validation and call metrics in m and serves g on
// /metrics.
func (s *Server) WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) *Server {
	s.metrics = m
	s.gatherer = g
	return s
}

// WithErrorTransformer sets a custom error transformer. Errors it returns
// nil for fall back to restcat.DefaultErrorTransformer.
func (s *Server) WithErrorTransformer(fn restcat.ErrorTransformer) *Server {
	s.errors = fn
	return s
}

// WithCORS sets the CORS policy. Without it the default policy applies.
func (s *Server) WithCORS(cfg *middleware.CORSConfig) *Server {
	s.cors = cfg
	return s
}

// WithOpenAPIInfo sets the info block of /api/openapi.json.
func (s *Server) WithOpenAPIInfo(opts openapi.Options) *Server {
	s.info = opts
	return s
}

// Engine returns the engine currently serving requests.
func (s *Server) Engine() *restcat.Engine {
	return s.engine.Load()
}

// SetEngine replaces the engine. Requests already running keep the engine
// they started with.
func (s *Server) SetEngine(e *restcat.Engine) {
	s.engine.Store(e)
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(s.cors))
	r.Use(chimw.RequestSize(maxRequestBytes))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, restcat.Errorf(restcat.CodeNotFound, "no route for %s", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, restcat.Errorf(restcat.CodeMethodNotAllowed, "%s not allowed on %s", r.Method, r.URL.Path))
	})

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/endpoints", s.handleListEndpoints)
		r.Get("/endpoints/describe", s.handleDescribe)
		r.Post("/prepare", s.handlePrepare)
		r.Post("/call", s.handleCall)
		r.Get("/history", s.handleHistory)
		r.Get("/openapi.json", s.handleOpenAPI)
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
