package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Adamhepburn/WealthWise/internal/domain"
	"github.com/Adamhepburn/WealthWise/internal/store"
	"github.com/Adamhepburn/WealthWise/pkg/aggclient"
)

// fakeRepo is an in-memory Repository used across the app package tests.
// Unimplemented interface methods panic via the embedded nil interface.
type fakeRepo struct {
	store.Repository

	creds          []store.AccountCredential
	txByExternalID map[string]domain.Transaction
	lastSync       map[uuid.UUID]time.Time
	expenses       []domain.ManualExpense
	goals          []domain.FinancialGoal
	investments    []domain.Investment
	linkedAccounts []domain.LinkedAccount
	accessTokens   map[string]string // external account id -> credential

	failCreateExpense bool
	failCreateLinked  bool
	failStoreTxs      bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		txByExternalID: make(map[string]domain.Transaction),
		lastSync:       make(map[uuid.UUID]time.Time),
		accessTokens:   make(map[string]string),
	}
}

func (f *fakeRepo) CreateLinkedAccounts(ctx context.Context, accessToken string, accounts []domain.LinkedAccount) ([]domain.LinkedAccount, error) {
	if f.failCreateLinked {
		return nil, errors.New("insert failed")
	}
	created := make([]domain.LinkedAccount, 0, len(accounts))
	for _, a := range accounts {
		a.ID = uuid.New()
		a.CreatedAt = time.Now()
		f.linkedAccounts = append(f.linkedAccounts, a)
		f.accessTokens[a.ExternalID] = accessToken
		f.creds = append(f.creds, store.AccountCredential{
			AccountID:   a.ID,
			ExternalID:  a.ExternalID,
			AccessToken: accessToken,
		})
		created = append(created, a)
	}
	return created, nil
}

func (f *fakeRepo) ListLinkedAccounts(ctx context.Context) ([]domain.LinkedAccount, error) {
	return f.linkedAccounts, nil
}

func (f *fakeRepo) ListAccountCredentials(ctx context.Context) ([]store.AccountCredential, error) {
	return f.creds, nil
}

func (f *fakeRepo) StoreAccountTransactions(ctx context.Context, accountID uuid.UUID, txs []domain.Transaction, syncedAt time.Time) (int, error) {
	if f.failStoreTxs {
		return 0, errors.New("storage unavailable")
	}
	inserted := 0
	for _, t := range txs {
		if _, exists := f.txByExternalID[t.ExternalID]; exists {
			continue
		}
		t.AccountID = accountID
		f.txByExternalID[t.ExternalID] = t
		inserted++
	}
	f.lastSync[accountID] = syncedAt
	return inserted, nil
}

func (f *fakeRepo) SumManualExpenses(ctx context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range f.expenses {
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

func (f *fakeRepo) SumTransactionAmounts(ctx context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range f.txByExternalID {
		sum = sum.Add(t.Amount)
	}
	return sum, nil
}

func (f *fakeRepo) ManualExpensesByCategory(ctx context.Context) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal)
	for _, e := range f.expenses {
		result[e.Category] = result[e.Category].Add(e.Amount)
	}
	return result, nil
}

func (f *fakeRepo) TransactionsByCategory(ctx context.Context) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal)
	for _, t := range f.txByExternalID {
		category := t.Category
		if category == "" {
			category = domain.Uncategorized
		}
		result[category] = result[category].Add(t.Amount)
	}
	return result, nil
}

func (f *fakeRepo) PortfolioTotals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	current, initial := decimal.Zero, decimal.Zero
	for _, inv := range f.investments {
		current = current.Add(inv.CurrentValue)
		initial = initial.Add(inv.InitialValue)
	}
	return current, initial, nil
}

func (f *fakeRepo) ListExpenses(ctx context.Context) ([]domain.ManualExpense, error) {
	return f.expenses, nil
}

func (f *fakeRepo) ListInvestments(ctx context.Context) ([]domain.Investment, error) {
	return f.investments, nil
}

func (f *fakeRepo) ListGoals(ctx context.Context) ([]domain.FinancialGoal, error) {
	return f.goals, nil
}

func (f *fakeRepo) CreateExpense(ctx context.Context, expense *domain.ManualExpense) error {
	if f.failCreateExpense {
		return errors.New("insert failed")
	}
	f.expenses = append(f.expenses, *expense)
	return nil
}

func (f *fakeRepo) CreateGoal(ctx context.Context, goal *domain.FinancialGoal) error {
	f.goals = append(f.goals, *goal)
	return nil
}

// fakeAgg is a stub aggregation client keyed by access token.
type fakeAgg struct {
	linkToken   string
	createErr   error
	accessToken string
	exchangeErr error

	txsByToken map[string][]aggclient.ExternalTransaction
	errByToken map[string]error
	fetchCalls int
}

func (f *fakeAgg) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.linkToken, nil
}

func (f *fakeAgg) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return f.accessToken, nil
}

func (f *fakeAgg) GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]aggclient.ExternalTransaction, error) {
	f.fetchCalls++
	if err := f.errByToken[accessToken]; err != nil {
		return nil, err
	}
	return f.txsByToken[accessToken], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo store.Repository, agg AggregationClient) *Service {
	return NewService(repo, agg, nil, testLogger(), 30)
}

func TestCreateLinkToken_RejectsEmptyUserID(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeAgg{linkToken: "link-abc"})

	_, err := svc.CreateLinkToken(context.Background(), "  ")
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateLinkToken_ReturnsTokenUnchanged(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeAgg{linkToken: "link-sandbox-123"})

	token, err := svc.CreateLinkToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateLinkToken returned error: %v", err)
	}
	if token != "link-sandbox-123" {
		t.Fatalf("expected token passed through unchanged, got %q", token)
	}
}

func TestCreateLinkToken_WrapsRemoteFailure(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeAgg{createErr: errors.New("boom")})

	_, err := svc.CreateLinkToken(context.Background(), "user-1")
	var externalErr *domain.ExternalServiceError
	if !errors.As(err, &externalErr) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}
}

type stubRateLimiter struct {
	count int
}

func (s *stubRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	return s.count, 30, nil
}

func TestCreateLinkToken_RateLimited(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeAgg{linkToken: "link-abc"})
	svc.SetLinkTokenRateLimiter(&stubRateLimiter{count: 11}, 10)

	_, err := svc.CreateLinkToken(context.Background(), "user-1")
	if !errors.Is(err, ErrLinkTokenRateLimited) {
		t.Fatalf("expected ErrLinkTokenRateLimited, got %v", err)
	}
}

func TestExchangeAndLink_Validations(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeAgg{accessToken: "access-1"})

	cases := []struct {
		name        string
		publicToken string
		accounts    []domain.AccountMetadata
	}{
		{"empty public token", "", []domain.AccountMetadata{{ExternalID: "ext-1"}}},
		{"no accounts", "public-1", nil},
		{"account without external id", "public-1", []domain.AccountMetadata{{Name: "Checking"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ExchangeAndLink(context.Background(), tc.publicToken, tc.accounts)
			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestExchangeAndLink_OneAccountPerMetadataSharingCredential(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeAgg{accessToken: "access-shared"})

	meta := []domain.AccountMetadata{
		{ExternalID: "ext-1", Name: "Checking", AccountType: "depository", Institution: "First Bank"},
		{ExternalID: "ext-2", Name: "Savings", AccountType: "depository", Institution: "First Bank"},
	}
	created, err := svc.ExchangeAndLink(context.Background(), "public-1", meta)
	if err != nil {
		t.Fatalf("ExchangeAndLink returned error: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 linked accounts, got %d", len(created))
	}
	for _, externalID := range []string{"ext-1", "ext-2"} {
		if repo.accessTokens[externalID] != "access-shared" {
			t.Fatalf("account %s does not share the exchanged credential", externalID)
		}
	}
}

func TestExchangeAndLink_PersistenceFailureReportsNothingPersisted(t *testing.T) {
	repo := newFakeRepo()
	repo.failCreateLinked = true
	svc := newTestService(repo, &fakeAgg{accessToken: "access-1"})

	_, err := svc.ExchangeAndLink(context.Background(), "public-1", []domain.AccountMetadata{{ExternalID: "ext-1"}})
	var persistenceErr *domain.PersistenceError
	if !errors.As(err, &persistenceErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if len(repo.linkedAccounts) != 0 {
		t.Fatalf("expected no accounts persisted, got %d", len(repo.linkedAccounts))
	}
}

func TestExchangeAndLink_ExchangeFailure(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeAgg{exchangeErr: errors.New("invalid public token")})

	_, err := svc.ExchangeAndLink(context.Background(), "public-1", []domain.AccountMetadata{{ExternalID: "ext-1"}})
	var externalErr *domain.ExternalServiceError
	if !errors.As(err, &externalErr) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}
}
