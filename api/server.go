/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/contracts/*      Contract lifecycle, payments, advances, refunds
  /api/admin/*          Administrative operations

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.ListContracts)
			r.Post("/", h.CreateContract)
			r.Get("/{id}", h.GetContract)
			r.Post("/{id}/activate", h.ActivateContract)
			r.Post("/{id}/rescind", h.RescindContract)

			r.Post("/{id}/payments", h.SubmitPayment)
			r.Post("/{id}/payments/backfill", h.BackfillPayment)
			r.Post("/{id}/corrections", h.CorrectContribution)

			r.Post("/{id}/advance", h.GrantAdvance)

			r.Route("/{id}/refunds", func(r chi.Router) {
				r.Post("/", h.OpenRefund)
				r.Post("/{refundID}/document", h.AttachRefundDocument)
				r.Post("/{refundID}/approve", h.ApproveRefund)
				r.Post("/{refundID}/cancel", h.CancelRefund)
				r.Post("/{refundID}/paid", h.MarkRefundPaid)
			})
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/refresh-statuses", h.RefreshStatuses)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Caisse Settlement Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Caisse Settlement Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/contracts">/api/contracts</a> - List contracts</li>
</ul>
</body>
</html>`))
	})

	return r
}
