// Package api provides the HTTP server: typed JSON operations registered
// with huma, plus plain chi handlers for multipart uploads and CSV streams.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/bulkmeta/internal/metrics"
	"github.com/listenupapp/bulkmeta/internal/store"
)

// Options configures the server.
type Options struct {
	Name           string
	Version        string
	AllowedOrigins []string
	// MaxUploadBytes caps the CSV file. The request body may exceed it by
	// the multipart framing overhead.
	MaxUploadBytes int64
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    store.Store
	services *Services
	metrics  *metrics.Metrics
	router   *chi.Mux
	api      huma.API
	opts     Options
	logger   *slog.Logger
}

// NewServer creates the server with every route registered. metrics may be
// nil.
func NewServer(st store.Store, services *Services, m *metrics.Metrics, opts Options, logger *slog.Logger) *Server {
	if opts.Name == "" {
		opts.Name = "bulkmeta API"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	s := &Server{
		store:    st,
		services: services,
		metrics:  m,
		router:   chi.NewRouter(),
		opts:     opts,
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig(opts.Name, opts.Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerNoticeRoutes()
	s.registerRunRoutes()
	s.registerContentRoutes()
	s.registerToolRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware() {
	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.instrument)
	}

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "Content-Disposition", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(authMiddleware(s.services.Auth))

	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
}
