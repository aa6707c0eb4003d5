package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Adamhepburn/WealthWise/internal/app"
	"github.com/Adamhepburn/WealthWise/internal/domain"
	"github.com/Adamhepburn/WealthWise/internal/store"
	"github.com/Adamhepburn/WealthWise/pkg/aggclient"
)

// memRepo is the in-memory Repository backing the handler tests.
// Unimplemented interface methods panic via the embedded nil interface.
type memRepo struct {
	store.Repository

	creds       []store.AccountCredential
	txs         map[string]domain.Transaction
	expenses    []domain.ManualExpense
	goals       []domain.FinancialGoal
	investments []domain.Investment

	linkErr error
}

func newMemRepo() *memRepo {
	return &memRepo{txs: make(map[string]domain.Transaction)}
}

func (m *memRepo) CreateLinkedAccounts(ctx context.Context, accessToken string, accounts []domain.LinkedAccount) ([]domain.LinkedAccount, error) {
	if m.linkErr != nil {
		return nil, m.linkErr
	}
	created := make([]domain.LinkedAccount, 0, len(accounts))
	for _, a := range accounts {
		a.ID = uuid.New()
		m.creds = append(m.creds, store.AccountCredential{
			AccountID:   a.ID,
			ExternalID:  a.ExternalID,
			AccessToken: accessToken,
		})
		created = append(created, a)
	}
	return created, nil
}

func (m *memRepo) ListAccountCredentials(ctx context.Context) ([]store.AccountCredential, error) {
	return m.creds, nil
}

func (m *memRepo) StoreAccountTransactions(ctx context.Context, accountID uuid.UUID, txs []domain.Transaction, syncedAt time.Time) (int, error) {
	inserted := 0
	for _, t := range txs {
		if _, exists := m.txs[t.ExternalID]; exists {
			continue
		}
		m.txs[t.ExternalID] = t
		inserted++
	}
	return inserted, nil
}

func (m *memRepo) SumManualExpenses(ctx context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range m.expenses {
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

func (m *memRepo) SumTransactionAmounts(ctx context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range m.txs {
		sum = sum.Add(t.Amount)
	}
	return sum, nil
}

func (m *memRepo) ManualExpensesByCategory(ctx context.Context) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal)
	for _, e := range m.expenses {
		result[e.Category] = result[e.Category].Add(e.Amount)
	}
	return result, nil
}

func (m *memRepo) TransactionsByCategory(ctx context.Context) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal)
	for _, t := range m.txs {
		result[t.Category] = result[t.Category].Add(t.Amount)
	}
	return result, nil
}

func (m *memRepo) PortfolioTotals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	current, initial := decimal.Zero, decimal.Zero
	for _, inv := range m.investments {
		current = current.Add(inv.CurrentValue)
		initial = initial.Add(inv.InitialValue)
	}
	return current, initial, nil
}

func (m *memRepo) ListExpenses(ctx context.Context) ([]domain.ManualExpense, error) {
	return m.expenses, nil
}

func (m *memRepo) ListGoals(ctx context.Context) ([]domain.FinancialGoal, error) {
	return m.goals, nil
}

func (m *memRepo) CreateExpense(ctx context.Context, expense *domain.ManualExpense) error {
	m.expenses = append(m.expenses, *expense)
	return nil
}

func (m *memRepo) CreateGoal(ctx context.Context, goal *domain.FinancialGoal) error {
	m.goals = append(m.goals, *goal)
	return nil
}

// stubAgg is a canned aggregation client.
type stubAgg struct {
	linkToken  string
	txsByToken map[string][]aggclient.ExternalTransaction
	errByToken map[string]error
}

func (s *stubAgg) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	return s.linkToken, nil
}

func (s *stubAgg) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	return "access-1", nil
}

func (s *stubAgg) GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]aggclient.ExternalTransaction, error) {
	if err := s.errByToken[accessToken]; err != nil {
		return nil, err
	}
	return s.txsByToken[accessToken], nil
}

func newTestRouter(t *testing.T, repo *memRepo, agg app.AggregationClient, jwtSecret string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewService(repo, agg, nil, logger, 30)
	return Routes(NewLedgerHandlers(service, logger), jwtSecret)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateLinkTokenHandler_DefaultsUser(t *testing.T) {
	router := newTestRouter(t, newMemRepo(), &stubAgg{linkToken: "link-abc"}, "")

	rec := doRequest(t, router, http.MethodPost, "/api/link/token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["link_token"] != "link-abc" {
		t.Fatalf("unexpected link token %q", resp["link_token"])
	}
}

func TestExchangeTokenHandler_CreatesAccounts(t *testing.T) {
	repo := newMemRepo()
	router := newTestRouter(t, repo, &stubAgg{}, "")

	body := `{"public_token":"public-1","accounts":[{"id":"ext-1","name":"Checking","type":"depository","institution":"First Bank"}]}`
	rec := doRequest(t, router, http.MethodPost, "/api/link/exchange", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if len(repo.creds) != 1 || repo.creds[0].ExternalID != "ext-1" {
		t.Fatalf("expected one linked account, got %+v", repo.creds)
	}
}

func TestExchangeTokenHandler_ValidationIs400(t *testing.T) {
	router := newTestRouter(t, newMemRepo(), &stubAgg{}, "")

	rec := doRequest(t, router, http.MethodPost, "/api/link/exchange", `{"public_token":"","accounts":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body)
	}
}

func TestExchangeTokenHandler_DuplicateAccountIs409(t *testing.T) {
	repo := newMemRepo()
	repo.linkErr = store.ErrAccountAlreadyLinked
	router := newTestRouter(t, repo, &stubAgg{}, "")

	body := `{"public_token":"public-1","accounts":[{"id":"ext-1"}]}`
	rec := doRequest(t, router, http.MethodPost, "/api/link/exchange", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body)
	}
}

func TestSyncHandler_PartialFailureIs207(t *testing.T) {
	repo := newMemRepo()
	repo.creds = []store.AccountCredential{
		{AccountID: uuid.New(), ExternalID: "ext-good", AccessToken: "access-good"},
		{AccountID: uuid.New(), ExternalID: "ext-bad", AccessToken: "access-bad"},
	}
	agg := &stubAgg{
		txsByToken: map[string][]aggclient.ExternalTransaction{
			"access-good": {{ID: "txn-1", Date: "2024-05-01", Amount: json.Number("10.00"), Category: []string{"Food"}}},
		},
		errByToken: map[string]error{"access-bad": errors.New("item login required")},
	}
	router := newTestRouter(t, repo, agg, "")

	rec := doRequest(t, router, http.MethodPost, "/api/sync", "")
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d: %s", rec.Code, rec.Body)
	}
	var report domain.SyncReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.AccountsAttempted != 2 || report.AccountsFailed != 1 || report.TransactionsInserted != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestCreateExpenseHandler_UnknownCategoryIs400(t *testing.T) {
	repo := newMemRepo()
	router := newTestRouter(t, repo, &stubAgg{}, "")

	body := `{"date":"2024-05-01","category":"Gambling","amount":10,"description":"x"}`
	rec := doRequest(t, router, http.MethodPost, "/api/expenses", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body)
	}
	if len(repo.expenses) != 0 {
		t.Fatalf("expected no expense persisted, got %d", len(repo.expenses))
	}
}

func TestCreateExpenseHandler_BadDateIs400(t *testing.T) {
	router := newTestRouter(t, newMemRepo(), &stubAgg{}, "")

	body := `{"date":"05/01/2024","category":"Food","amount":10}`
	rec := doRequest(t, router, http.MethodPost, "/api/expenses", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body)
	}
}

func TestCreateExpenseHandler_Persists(t *testing.T) {
	repo := newMemRepo()
	router := newTestRouter(t, repo, &stubAgg{}, "")

	body := `{"date":"2024-05-01","category":"Food","amount":12.34,"description":"lunch"}`
	rec := doRequest(t, router, http.MethodPost, "/api/expenses", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if len(repo.expenses) != 1 || !repo.expenses[0].Amount.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("unexpected persisted expenses: %+v", repo.expenses)
	}
}

func TestExpensesSummaryHandler(t *testing.T) {
	repo := newMemRepo()
	repo.expenses = []domain.ManualExpense{
		{ID: uuid.New(), Category: "Food", Amount: decimal.RequireFromString("50")},
		{ID: uuid.New(), Category: "Transport", Amount: decimal.RequireFromString("30")},
	}
	router := newTestRouter(t, repo, &stubAgg{}, "")

	rec := doRequest(t, router, http.MethodGet, "/api/expenses/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Total      decimal.Decimal            `json:"total"`
		ByCategory map[string]decimal.Decimal `json:"by_category"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if !resp.Total.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("expected total 80, got %s", resp.Total)
	}
	if !resp.ByCategory["Food"].Equal(decimal.RequireFromString("50")) {
		t.Fatalf("unexpected by_category: %+v", resp.ByCategory)
	}
}

func TestPortfolioHandler_EmptyPortfolioIsZero(t *testing.T) {
	router := newTestRouter(t, newMemRepo(), &stubAgg{}, "")

	rec := doRequest(t, router, http.MethodGet, "/api/portfolio", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Value         decimal.Decimal `json:"value"`
		ReturnPercent decimal.Decimal `json:"return_percent"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Value.IsZero() || !resp.ReturnPercent.IsZero() {
		t.Fatalf("expected zero value and return, got %s %s", resp.Value, resp.ReturnPercent)
	}
}

func TestCreateGoalHandler_RoundTrip(t *testing.T) {
	repo := newMemRepo()
	router := newTestRouter(t, repo, &stubAgg{}, "")

	body := `{"name":"Car","target":20000,"current":1000,"deadline":"2026-01-01"}`
	rec := doRequest(t, router, http.MethodPost, "/api/goals", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/goals", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var goals []domain.FinancialGoal
	if err := json.Unmarshal(rec.Body.Bytes(), &goals); err != nil {
		t.Fatalf("failed to decode goals: %v", err)
	}
	if len(goals) != 1 || goals[0].Name != "Car" {
		t.Fatalf("unexpected goals: %+v", goals)
	}
}

func TestHealthEndpoint_OpenWithoutAuth(t *testing.T) {
	router := newTestRouter(t, newMemRepo(), &stubAgg{}, "test-secret")

	rec := doRequest(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	const secret = "test-secret"
	router := newTestRouter(t, newMemRepo(), &stubAgg{}, secret)

	t.Run("missing token", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/goals", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte("other-secret"))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
	})
}
