package http

import (
	"net/http"

	"github.com/edudash-core/internal/application/certificate"
	"github.com/edudash-core/internal/application/feed"
	"github.com/edudash-core/internal/application/session"
	"github.com/edudash-core/internal/config"
	"github.com/edudash-core/internal/domain"
	"github.com/edudash-core/internal/infrastructure/upstream"
	"github.com/edudash-core/internal/pkg/bus"
	"github.com/edudash-core/internal/transport/http/handler"
	appmiddleware "github.com/edudash-core/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds the services the router exposes.
type Deps struct {
	Sessions     *session.Service
	Feeds        map[domain.Scope]*feed.Feed
	Certificates *certificate.Service
	Upstream     *upstream.Client
	Bus          *bus.Bus
}

// NewRouter builds and returns the dashboard API router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Sessions)

	// 5 requests/second, burst of 10 — applied to mutation endpoints.
	mutationRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	feedH := handler.NewFeedHandler(deps.Feeds)
	certH := handler.NewCertificateHandler(deps.Certificates)
	actionH := handler.NewActionHandler(deps.Upstream, deps.Bus)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/feeds", feedH.List)
			r.Get("/feeds/{scope}", feedH.Get)
			r.With(mutationRL.Limit).Put("/feeds/{scope}/notifications/{id}/read", feedH.MarkAsRead)

			r.Get("/certificates", certH.List)
			r.Post("/certificates/{id}/session", certH.Open)
			r.Get("/certificates/{id}/session", certH.View)
			r.With(mutationRL.Limit).Put("/certificates/{id}/fields/{field}", certH.SetField)
			r.With(mutationRL.Limit).Post("/certificates/{id}/fields/{field}/move", certH.MoveField)
			r.With(mutationRL.Limit).Put("/certificates/{id}/pages", certH.SetPages)
			r.With(mutationRL.Limit).Post("/certificates/{id}/save", certH.Save)
			r.With(mutationRL.Limit).Post("/certificates/{id}/discard", certH.Discard)
			r.With(mutationRL.Limit).Post("/certificates/{id}/files", certH.Upload)
			r.Get("/certificates/{id}/files/{page}/{filename}", certH.PageFile)
			r.Get("/certificates/{id}/files/{page}/{filename}/url", certH.PageURL)
			r.With(mutationRL.Limit).Delete("/certificates/{id}/files/{page}/{filename}", certH.DeletePage)
			r.Get("/audit/{kind}", certH.AuditTrail)

			r.With(mutationRL.Limit).Post("/account/change-password", actionH.ChangePassword)

			// Approval actions are scoped to the roles that own them.
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(string(domain.ScopeState), string(domain.ScopeCenter)))
				r.With(mutationRL.Limit).Put("/batches/{id}/status", actionH.SetBatchStatus)
				r.With(mutationRL.Limit).Post("/influencers", actionH.AddInfluencer)
			})
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(string(domain.ScopeCardAdmin)))
				r.With(mutationRL.Limit).Put("/card-requests/{id}/status", actionH.SetCardRequestStatus)
			})
		})
	})

	return r
}
