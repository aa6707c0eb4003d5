/**
 * @description
 * HTTP handlers for the ledger API. Handlers parse incoming requests, call
 * the application service, and write JSON responses. The presentation layer
 * (dashboard UI) consumes these endpoints and renders the results; every
 * failure comes back as a typed JSON error message.
 *
 * @dependencies
 * - encoding/json, net/http, time: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: Service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Adamhepburn/WealthWise/internal/app"
	"github.com/Adamhepburn/WealthWise/internal/domain"
	"github.com/Adamhepburn/WealthWise/internal/store"
)

const dateLayout = "2006-01-02"

// The original dashboard is single-user; link tokens fall back to this
// identity when the client does not send one.
const defaultLinkUserID = "user-1"

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
	logger  *slog.Logger
}

// NewLedgerHandlers creates the handler set.
func NewLedgerHandlers(service *app.Service, logger *slog.Logger) *LedgerHandlers {
	return &LedgerHandlers{service: service, logger: logger}
}

type createLinkTokenRequest struct {
	UserID string `json:"user_id"`
}

// CreateLinkTokenHandler issues a short-lived link token for the client-side
// widget.
func (h *LedgerHandlers) CreateLinkTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req createLinkTokenRequest
	if r.Body != nil {
		// An empty body is fine; the single-user default applies.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.UserID == "" {
		req.UserID = defaultLinkUserID
	}

	token, err := h.service.CreateLinkToken(r.Context(), req.UserID)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"link_token": token})
}

type exchangeTokenRequest struct {
	PublicToken string                   `json:"public_token"`
	Accounts    []domain.AccountMetadata `json:"accounts"`
}

// ExchangeTokenHandler exchanges a public token for a durable credential and
// persists the linked accounts reported by the widget.
func (h *LedgerHandlers) ExchangeTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req exchangeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accounts, err := h.service.ExchangeAndLink(r.Context(), req.PublicToken, req.Accounts)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"accounts": accounts,
	})
}

// ListAccountsHandler returns all linked accounts. Access credentials never
// appear in this payload.
func (h *LedgerHandlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListLinkedAccounts(r.Context())
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// SyncHandler triggers a synchronization run across all linked accounts. A
// partial failure still returns the report, with 207 signalling that some
// accounts failed.
func (h *LedgerHandlers) SyncHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SyncTransactions(r.Context())
	if err != nil {
		var partial *domain.PartialSyncFailure
		if errors.As(err, &partial) {
			h.writeJSON(w, http.StatusMultiStatus, report)
			return
		}
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// ListExpensesHandler returns all manual expense rows.
func (h *LedgerHandlers) ListExpensesHandler(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.service.ListExpenses(r.Context())
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, expenses)
}

type createExpenseRequest struct {
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// CreateExpenseHandler appends one manual expense row.
func (h *LedgerHandlers) CreateExpenseHandler(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return
	}

	expense, err := h.service.AddExpense(r.Context(), date, req.Category, req.Amount, req.Description)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, expense)
}

// ExpensesSummaryHandler returns the total and the per-category breakdown of
// all expenses, manual and synchronized combined.
func (h *LedgerHandlers) ExpensesSummaryHandler(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalExpenses(r.Context())
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	byCategory, err := h.service.ExpensesByCategory(r.Context())
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":       total,
		"by_category": byCategory,
	})
}

// ListInvestmentsHandler returns all investments with derived returns.
func (h *LedgerHandlers) ListInvestmentsHandler(w http.ResponseWriter, r *http.Request) {
	investments, err := h.service.ListInvestments(r.Context())
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, investments)
}

// PortfolioHandler returns the portfolio's total value and overall return.
func (h *LedgerHandlers) PortfolioHandler(w http.ResponseWriter, r *http.Request) {
	value, err := h.service.PortfolioValue(r.Context())
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	ret, err := h.service.PortfolioReturn(r.Context())
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"value":          value,
		"return_percent": ret,
	})
}

// ListGoalsHandler returns all financial goals.
func (h *LedgerHandlers) ListGoalsHandler(w http.ResponseWriter, r *http.Request) {
	goals, err := h.service.Goals(r.Context())
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, goals)
}

type createGoalRequest struct {
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target"`
	Current  decimal.Decimal `json:"current"`
	Deadline string          `json:"deadline"`
}

// CreateGoalHandler appends one financial goal row.
func (h *LedgerHandlers) CreateGoalHandler(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	deadline, err := time.Parse(dateLayout, req.Deadline)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "deadline must be formatted YYYY-MM-DD")
		return
	}

	goal, err := h.service.AddGoal(r.Context(), req.Name, req.Target, req.Current, deadline)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, goal)
}

// respondWithServiceError maps the service error taxonomy onto HTTP statuses.
func (h *LedgerHandlers) respondWithServiceError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var externalErr *domain.ExternalServiceError

	switch {
	case errors.As(err, &validationErr):
		h.respondWithError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, app.ErrLinkTokenRateLimited):
		h.respondWithError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, store.ErrAccountAlreadyLinked):
		h.respondWithError(w, http.StatusConflict, err.Error())
	case errors.As(err, &externalErr):
		h.respondWithError(w, http.StatusBadGateway, externalErr.Error())
	default:
		h.logger.Error("request failed", "error", err)
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *LedgerHandlers) respondWithError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
