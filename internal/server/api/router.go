package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/observability"
	"github.com/flood-ai/flood-memory/internal/server/service"
)

// RouterConfig holds what the HTTP surface is built from.
type RouterConfig struct {
	Service   *service.Service
	MCP       http.Handler
	Metrics   *observability.Collector
	Logger    *zap.Logger
	AuthToken string
}

// NewRouter wires middleware, the MCP endpoint and the REST API.
func NewRouter(cfg RouterConfig) http.Handler {
	api := New(cfg.Service, cfg.Logger)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(observability.MetricsMiddleware(cfg.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Mcp-Session-Id"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
		MaxAge:         300,
	}))

	// Routes
	r.Get("/health", api.HealthCheck)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))

		if cfg.MCP != nil {
			r.Handle("/mcp", cfg.MCP)
		}

		r.Route("/api", func(r chi.Router) {
			r.Post("/nodes", api.CreateNode)
			r.Get("/nodes", api.ListNodes)
			r.Get("/nodes/{id}/connections", api.GetConnections)
			r.Patch("/nodes/{id}", api.UpdateNode)
			r.Delete("/nodes/{id}", api.DeleteNode)
		})
	})

	return r
}
