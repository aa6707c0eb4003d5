/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access operations required by the ledger service. Defining an interface
 * decouples the business logic from the PostgreSQL implementation and lets
 * the app package tests substitute in-memory stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - github.com/shopspring/decimal: Monetary aggregates.
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Adamhepburn/WealthWise/internal/domain"
)

// AccountCredential pairs a linked account with its durable access
// credential. It exists only so the synchronizer can fetch transactions; it
// must never be serialized or returned past the app layer.
type AccountCredential struct {
	AccountID   uuid.UUID
	ExternalID  string
	AccessToken string
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Linked account methods
	CreateLinkedAccounts(ctx context.Context, accessToken string, accounts []domain.LinkedAccount) ([]domain.LinkedAccount, error)
	ListLinkedAccounts(ctx context.Context) ([]domain.LinkedAccount, error)
	ListAccountCredentials(ctx context.Context) ([]AccountCredential, error)

	// Synchronization methods. StoreAccountTransactions inserts the given
	// rows (skipping any whose external id already exists) and stamps the
	// account's last_sync, all within one transaction. It returns the number
	// of rows actually inserted.
	StoreAccountTransactions(ctx context.Context, accountID uuid.UUID, txs []domain.Transaction, syncedAt time.Time) (int, error)

	// Aggregate reads
	SumManualExpenses(ctx context.Context) (decimal.Decimal, error)
	SumTransactionAmounts(ctx context.Context) (decimal.Decimal, error)
	ManualExpensesByCategory(ctx context.Context) (map[string]decimal.Decimal, error)
	TransactionsByCategory(ctx context.Context) (map[string]decimal.Decimal, error)
	PortfolioTotals(ctx context.Context) (current, initial decimal.Decimal, err error)

	// Entity reads
	ListExpenses(ctx context.Context) ([]domain.ManualExpense, error)
	ListInvestments(ctx context.Context) ([]domain.Investment, error)
	ListGoals(ctx context.Context) ([]domain.FinancialGoal, error)

	// Manual entry writes
	CreateExpense(ctx context.Context, expense *domain.ManualExpense) error
	CreateGoal(ctx context.Context, goal *domain.FinancialGoal) error
}
