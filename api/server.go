/*
server.go - HTTP router, middleware and the role gate

PURPOSE:
  Configures the chi router, middleware stack and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     request logging
  2. Recoverer:  panic recovery (500 instead of crash)
  3. RequestID:  unique ID per request for tracing
  4. CORS:       cross-origin requests for the dashboard frontend

ROLE GATE:
  Authentication lives upstream; this service trusts the X-Actor-Role
  header an authenticating gateway sets after verifying the session.
  Owner and accountant may create, amend and delete transactions; staff
  may create only; item creation is owner-only. Reads are open to any
  recognized role. The ledger itself performs no authorization.

ROUTE GROUPS:
  /api/inventory/*     Inventory items
  /api/transactions/*  Transaction lifecycle
  /api/reports/*       Read-only aggregates

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// =============================================================================
// ROLE GATE
// =============================================================================

// Role is the caller's role as asserted by the upstream gateway.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleAccountant Role = "accountant"
	RoleStaff      Role = "staff"
)

// roleHeader carries the verified role of the authenticated caller.
const roleHeader = "X-Actor-Role"

func known(r Role) bool {
	return r == RoleOwner || r == RoleAccountant || r == RoleStaff
}

// requireRole rejects callers whose asserted role is not in allowed.
func requireRole(allowed ...Role) func(http.Handler) http.Handler {
	permitted := make(map[Role]bool, len(allowed))
	for _, r := range allowed {
		permitted[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(r.Header.Get(roleHeader))
			if !known(role) {
				writeError(w, http.StatusForbidden, "Unknown caller role", nil)
				return
			}
			if !permitted[role] {
				writeError(w, http.StatusForbidden, "Role not permitted for this operation", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// ROUTER
// =============================================================================

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", roleHeader},
		AllowCredentials: true,
	}))

	anyRole := requireRole(RoleOwner, RoleAccountant, RoleStaff)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Inventory routes
		r.Route("/inventory", func(r chi.Router) {
			r.With(requireRole(RoleOwner)).Post("/", h.CreateItem)
			r.With(requireRole(RoleOwner)).Get("/", h.ListItems)
			r.With(anyRole).Get("/available", h.ListAvailableItems)
			r.With(anyRole).Get("/low_stock", h.ListLowStockItems)
			r.With(anyRole).Get("/{id}", h.GetItem)
			r.With(requireRole(RoleOwner)).Put("/{id}/cost_price", h.UpdateCostPrice)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.With(anyRole).Post("/", h.CreateTransaction)
			r.With(anyRole).Get("/", h.ListTransactions)
			r.With(anyRole).Get("/{id}", h.GetTransaction)
			r.With(requireRole(RoleOwner, RoleAccountant)).Put("/{id}", h.AmendTransaction)
			r.With(requireRole(RoleOwner, RoleAccountant)).Delete("/{id}", h.DeleteTransaction)
		})

		// Reporting routes (read-only)
		r.Route("/reports", func(r chi.Router) {
			r.Use(anyRole)
			r.Get("/summary", h.GetSummary)
			r.Get("/weekly", h.GetWeekly)
			r.Get("/monthly", h.GetMonthly)
			r.Get("/categories", h.GetCategories)
		})
	})

	return r
}
