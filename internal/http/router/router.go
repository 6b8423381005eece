package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"github.com/tork-crm/tork-api/internal/auth"
	"github.com/tork-crm/tork-api/internal/config"
	"github.com/tork-crm/tork-api/internal/database"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/http/handler"
	"github.com/tork-crm/tork-api/internal/http/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/tork-crm/tork-api/docs" // Import generated swagger docs
)

// Pinger is a dependency the readiness probe checks besides the database
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Lead     *handler.LeadHandler
	Helpdesk *handler.HelpdeskHandler
	Auth     *handler.AuthHandler
	Contact  *handler.ContactHandler
	Deal     *handler.DealHandler
	Stage    *handler.StageHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
	readiness      map[string]Pinger
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
	readiness map[string]Pinger,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
		readiness:      readiness,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally
	if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", rt.databaseHealth)

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", rt.readinessHealth)

	if rt.cfg.Metrics.Enabled {
		r.Handle(rt.cfg.Metrics.Path, promhttp.Handler())
	}

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// Public contract used by capture forms, the helpdesk and the login page
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.rateLimiter.LimitWebhooks)
			r.Use(rt.authMiddleware.WebhookGuard)

			r.Post("/leads", rt.handlers.Lead.IngestLead)
			r.Delete("/leads", rt.handlers.Lead.DeleteLead)
			r.Post("/webhooks/helpdesk", rt.handlers.Helpdesk.Webhook)
		})

		r.Post("/auth/login", rt.handlers.Auth.Login)
		r.Post("/auth/register", rt.handlers.Auth.Register)

		r.With(rt.authMiddleware.Authenticate).Post("/logout", rt.handlers.Auth.Logout)

		// API v1 routes
		r.Route("/v1", func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			r.Get("/auth/me", rt.handlers.Auth.Me)

			// Contacts
			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", rt.handlers.Contact.ListContacts)
				r.Get("/{id}", rt.handlers.Contact.GetContact)
				r.Delete("/{id}", rt.handlers.Contact.DeleteContact)
			})

			// Deals
			r.Route("/deals", func(r chi.Router) {
				r.Get("/", rt.handlers.Deal.List)
				r.Get("/{id}", rt.handlers.Deal.GetByID)
				r.Put("/{id}", rt.handlers.Deal.Update)
				r.Delete("/{id}", rt.handlers.Deal.Delete)
				r.Patch("/{id}/stage", rt.handlers.Deal.MoveStage)
				r.Get("/{id}/history", rt.handlers.Deal.GetStageHistory)
			})

			// Pipeline configuration; changes are admin only
			r.Route("/crm/stages", func(r chi.Router) {
				r.Get("/", rt.handlers.Stage.List)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireRole(domain.UserRoleAdmin))
					r.Post("/", rt.handlers.Stage.Create)
					r.Patch("/{id}", rt.handlers.Stage.Update)
					r.Delete("/{id}", rt.handlers.Stage.Delete)
				})
			})

			// Helpdesk bulk import
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRole(domain.UserRoleAdmin))
				r.Get("/integrations/helpdesk/import", rt.handlers.Helpdesk.Import)
				r.Post("/integrations/helpdesk/import", rt.handlers.Helpdesk.Import)
			})
		})
	})

	return r
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}

func (rt *Router) readinessHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	record := func(name string, err error) {
		if err != nil {
			rt.logger.Error("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			allHealthy = false
			return
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	record("database", database.HealthCheck(rt.db))

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for name, dep := range rt.readiness {
		record(name, dep.Ping(ctx))
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeHealth(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func writeHealth(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
