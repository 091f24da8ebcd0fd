package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/harborops/fleetledger/internal/audit"
	"github.com/harborops/fleetledger/internal/auth"
	"github.com/harborops/fleetledger/internal/cashledger"
	"github.com/harborops/fleetledger/internal/category"
	"github.com/harborops/fleetledger/internal/expense"
	"github.com/harborops/fleetledger/internal/transport/middleware"
	"github.com/harborops/fleetledger/internal/transport/swagger"
	"github.com/harborops/fleetledger/internal/user"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Expense  *expense.Handler
	Cash     *cashledger.Handler
	Category *category.Handler
	Audit    *audit.Handler
	User     *user.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, permissions auth.PermissionChecker, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Everything below needs a resolved identity from the gateway.
		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Actor(logger))

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
				pr.Get("/crew", h.User.ListCrew)
			}

			if h.Category != nil {
				pr.Route("/categories", func(cr chi.Router) {
					cr.Get("/", h.Category.GetCategories)

					cr.Group(func(mr chi.Router) {
						mr.Use(middleware.RequireCapability(permissions, auth.CapManageCatalog))
						mr.Post("/", h.Category.CreateCategory)
						mr.Patch("/{id}/activate", h.Category.ActivateCategory)
						mr.Patch("/{id}/deactivate", h.Category.DeactivateCategory)
					})
				})
			}

			if h.Expense != nil {
				pr.Route("/expenses", func(er chi.Router) {
					er.Post("/", h.Expense.CreateExpense)
					er.Get("/", h.Expense.ListExpenses)
					er.Get("/{id}", h.Expense.GetExpense)
					er.Patch("/{id}", h.Expense.UpdateExpense)
					er.Post("/{id}/submit", h.Expense.SubmitExpense)

					er.Group(func(mr chi.Router) {
						mr.Use(middleware.RequireCapability(permissions, auth.CapDeleteExpenses))
						mr.Delete("/{id}", h.Expense.DeleteExpense)
					})
				})
			}

			if h.Cash != nil {
				pr.Route("/cash", func(cr chi.Router) {
					cr.Get("/balance", h.Cash.GetBalance)
					cr.Get("/transactions", h.Cash.ListTransactions)

					cr.Group(func(mr chi.Router) {
						mr.Use(middleware.RequireCapability(permissions, auth.CapManageCash))
						mr.Post("/deposits", h.Cash.CreateDeposit)
					})
				})
			}

			if h.Audit != nil {
				pr.Group(func(ar chi.Router) {
					ar.Use(middleware.RequireCapability(permissions, auth.CapViewAudit))
					ar.Get("/audit", h.Audit.ListEntries)
				})
			}
		})
	})
}
