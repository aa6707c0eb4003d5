/**
 * @description
 * HTTP router for the ledger API. CORS is open for the dashboard frontend,
 * mirroring the permissive /api/* policy the service has always shipped
 * with. When a JWT secret is configured, every /api route requires a valid
 * bearer token.
 *
 * @dependencies
 * - net/http: Standard Go library.
 * - github.com/go-chi/chi/v5: HTTP routing and standard middleware.
 * - github.com/go-chi/cors: CORS middleware.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes builds the service router. jwtSecret may be empty, which disables
// authentication (local single-user mode).
func Routes(h *LedgerHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(BearerAuthMiddleware(jwtSecret))
		}

		r.Post("/link/token", h.CreateLinkTokenHandler)
		r.Post("/link/exchange", h.ExchangeTokenHandler)
		r.Get("/accounts", h.ListAccountsHandler)
		r.Post("/sync", h.SyncHandler)

		r.Get("/expenses", h.ListExpensesHandler)
		r.Post("/expenses", h.CreateExpenseHandler)
		r.Get("/expenses/summary", h.ExpensesSummaryHandler)

		r.Get("/investments", h.ListInvestmentsHandler)
		r.Get("/portfolio", h.PortfolioHandler)

		r.Get("/goals", h.ListGoalsHandler)
		r.Post("/goals", h.CreateGoalHandler)
	})

	return r
}
