// Package api provides the HTTP API server and handlers for the showcase engine.
package api

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/showcase-server/internal/ratelimit"
	"github.com/listenupapp/showcase-server/internal/store"
)

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins           []string
	AdminUserIDs          []string
	HTTPRequestsPerMinute int
	HTTPBurst             int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	docs     store.DocumentStore
	services *Services
	router   *chi.Mux
	api      huma.API
	limiter  *ratelimit.KeyedRateLimiter
	admins   []string
	logger   *slog.Logger
	started  time.Time
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(docs store.DocumentStore, services *Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	perMinute := opts.HTTPRequestsPerMinute
	if perMinute <= 0 {
		perMinute = 120
	}
	burst := opts.HTTPBurst
	if burst <= 0 {
		burst = 20
	}

	s := &Server{
		docs:     docs,
		services: services,
		router:   chi.NewRouter(),
		limiter:  ratelimit.PerInterval(perMinute, time.Minute, burst),
		admins:   slices.Clone(opts.AdminUserIDs),
		logger:   logger,
		started:  time.Now(),
	}

	s.setupMiddleware(opts.CORSOrigins)

	humaConfig := huma.DefaultConfig("Showcase API", "1.0.0")
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
	s.registerActorRoutes()
	s.registerShowcaseRoutes()
	s.registerSocialRoutes()
	s.registerItemRoutes()
	s.registerSearchRoutes()
	s.registerAdminRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(actorMiddleware(s.services.Tokens))
}

// socialLimit wraps social write operations with the per-IP limiter.
func (s *Server) socialLimit() huma.Middlewares {
	return huma.Middlewares{RateLimitMiddleware(s.api, s.limiter, s.logger)}
}

func (s *Server) isAdmin(userID string) bool {
	return userID != "" && slices.Contains(s.admins, userID)
}
