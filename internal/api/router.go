/**
 * @description
 * This file sets up the chi router for the distribution service. It mounts
 * the public webhook ingress, the shared-key internal endpoints, and the
 * JWT-protected admin endpoints.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: The HTTP router.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the secrets each route group needs.
type RouterConfig struct {
	InternalAPIKey string
	AdminJWKSURL   string
}

// NewRouter creates the service router.
func NewRouter(handlers *DistributionHandlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public webhook ingress. Authenticated by HMAC signature, not middleware.
	r.Route("/webhooks/twitter", func(r chi.Router) {
		r.Get("/", handlers.CRCHandler)
		r.Post("/", handlers.WebhookHandler)
	})

	// Service-to-service endpoints.
	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAPIKeyMiddleware(cfg.InternalAPIKey))
		r.Post("/campaigns/{campaignID}/assets", handlers.ImportAssetsHandler)
	})

	// Dashboard endpoints, hit from the browser.
	r.Route("/admin", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*", "http://*"},
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300, // Maximum value not ignored by any major browsers
		}))
		r.Use(AdminAuthMiddleware(cfg.AdminJWKSURL))
		r.Get("/campaigns", handlers.ListCampaignsHandler)
		r.Get("/campaigns/{campaignID}/deliveries", handlers.ListDeliveriesHandler)
	})

	return r
}
