package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/access"
	"github.com/atinyakov/realtivo/internal/middleware"
)

// RouterConfig bundles the dependencies of NewRouter.
type RouterConfig struct {
	Auth     *AuthHandler
	Leads    *LeadHandler
	Verifier middleware.TokenVerifier
	Logger   *zap.Logger
	// AllowedOrigins enables CORS for browser front ends. Empty disables it.
	AllowedOrigins []string
}

// NewRouter constructs the HTTP handler that serves the Realtivo API.
//
// The API is mounted both at the root and under /api. Health and metrics
// endpoints sit outside authentication.
//
// Middleware chain (applied in order):
//  1. Recoverer and RequestID
//  2. CORS, when origins are configured
//  3. Metrics and WithRequestLogging
//  4. AllowContentType("application/json") on API routes
//  5. BearerAuth and RequireCapability on lead routes
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(middleware.Metrics)
	r.Use(middleware.WithRequestLogging(cfg.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	api := apiRoutes(cfg)
	r.Mount("/api", api)
	r.Mount("/", api)

	return r
}

func apiRoutes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Public endpoints
	r.Post("/auth/signup", cfg.Auth.Signup)
	r.Post("/auth/login", cfg.Auth.Login)

	// Protected group: requires a valid bearer token
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.Verifier, cfg.Logger))

		view := middleware.RequireCapability(access.ViewLeads)
		manage := middleware.RequireCapability(access.ManageLeads)
		annotate := middleware.RequireCapability(access.AnnotateLeads)
		h := cfg.Leads

		r.With(view).Get("/tags", h.AllTags)
		r.Route("/leads", func(r chi.Router) {
			r.With(view).Get("/", h.List)
			r.With(manage).Post("/", h.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.With(view).Get("/", h.Get)
				r.With(manage).Put("/", h.Update)
				r.With(manage).Delete("/", h.Delete)

				r.With(view).Get("/notes", h.Notes)
				r.With(annotate).Post("/notes", h.AddNote)
				r.With(annotate).Delete("/notes/{noteId}", h.DeleteNote)

				r.With(view).Get("/tags", h.Tags)
				r.With(annotate).Post("/tags", h.AddTag)
				r.With(annotate).Delete("/tags/{tagId}", h.RemoveTag)
			})
		})
	})
	return r
}
