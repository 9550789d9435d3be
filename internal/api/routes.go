package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/funnel-monitor/internal/auth"
	"github.com/ignite/funnel-monitor/internal/pkg/httputil"
)

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// SetupRoutes configures all routes. /api is protected when authManager is set.
func SetupRoutes(h *Handlers, health *HealthChecker, authManager *auth.AuthManager, origins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)

	if len(origins) == 0 {
		origins = defaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/live", health.HandleLiveness)
		r.Get("/health/ready", health.HandleReadiness)
	}

	if authManager != nil {
		r.Get("/auth/login", authManager.HandleLogin)
		r.Get("/auth/callback", authManager.HandleCallback)
		r.Get("/auth/logout", authManager.HandleLogout)
		r.Get("/auth/user", authManager.HandleUserInfo)
	}

	r.Route("/api", func(r chi.Router) {
		if authManager != nil {
			r.Use(authManager.RequireAuth)
		}

		r.Get("/payments", h.ListPayments)
		r.Get("/payments/overview", h.PaymentsOverview)
		r.Get("/payments/products", h.PaymentProducts)

		r.Get("/subscriptions", h.ListSubscriptions)
		r.Get("/subscriptions/plans", h.SubscriptionPlans)

		r.Get("/funnel", h.GetFunnel)
		r.Post("/funnel/refresh", h.RefreshFunnel)
		r.Get("/funnel/lists/{list}", h.FunnelList)
		r.Get("/funnel/paid-not-signed", h.PaidNotSigned)
		r.Get("/funnel/lookup", h.Lookup)
		r.Get("/funnel/history", h.History)
		r.Get("/funnel/reports/{id}", h.Report)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httputil.NotFound(w, "route not found")
	})

	return r
}
