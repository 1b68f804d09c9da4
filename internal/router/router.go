package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"school-tables/internal/config"
	"school-tables/internal/handler"
	"school-tables/internal/middleware"
	"school-tables/internal/resource"
)

func New(
	cfg *config.Config,
	registry *resource.Registry,
	authMiddleware *middleware.AuthMiddleware,
	healthHandler *handler.HealthHandler,
	authHandler *handler.AuthHandler,
	listHandler *handler.ListHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health", healthHandler.Health)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", authHandler.Login)
			auth.Post("/refresh", authHandler.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", authHandler.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		api.With(authMiddleware.RequireAuth).Get("/resources", listHandler.Resources)

		for _, name := range registry.Names() {
			res, _ := registry.Lookup(name)
			api.With(authMiddleware.RequireAuth, authMiddleware.RequirePermission(res.Permission)).
				Get("/"+res.Name, listHandler.List(res.Name))
		}
	})

	return r
}
