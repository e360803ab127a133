package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/loyalty-admin/internal/api/handlers"
	"github.com/baharkarakas/loyalty-admin/internal/auth"
	"github.com/baharkarakas/loyalty-admin/internal/config"
	"github.com/baharkarakas/loyalty-admin/internal/metrics"
	"github.com/baharkarakas/loyalty-admin/internal/middleware"
	"github.com/baharkarakas/loyalty-admin/internal/models"
)

type RouterDeps struct {
	TM      *auth.TokenManager
	Users   handlers.UserService
	Records handlers.RecordService
}

func NewRouter(cfg config.Config, d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(cfg.IPRateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.TM, d.Users)
	userH := handlers.NewUserHandler(d.Users)
	recH := handlers.NewRecordHandler(d.Records)
	am := middleware.NewAuthMiddleware(d.TM)

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(am.Auth, middleware.UserRateLimit(cfg.RateRPS))

			// ---------- users ----------
			r.With(middleware.RequireRole(models.RoleSuperAdmin)).Get("/users", userH.List)
			r.With(middleware.RequireRole(models.RoleSuperAdmin)).Post("/users", userH.Register)

			// ---------- ledgers ----------
			r.Route("/{ledger}", func(r chi.Router) {
				r.Use(handlers.Ledger)
				r.Get("/", recH.List)
				r.Get("/{id}", recH.Get)
				r.With(middleware.RequireRole(models.RoleSuperAdmin, models.RoleApprover)).Put("/{id}", recH.Set)
				r.With(middleware.RequireRole(models.RoleSuperAdmin)).Post("/bulk-update", recH.Bulk)
			})
		})
	})

	return r
}
