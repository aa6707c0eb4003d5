/**
 * @description
 * This file defines the core domain models for the WealthWise ledger service:
 * linked bank accounts, synchronized transactions, manually entered expenses,
 * investments, and financial goals. These structs are persisted by the store
 * layer and returned to the presentation layer by the API.
 *
 * Note that LinkedAccount deliberately carries no access credential field.
 * The durable credential obtained during token exchange lives only inside the
 * store layer and never appears in any read result.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: Surrogate keys.
 * - github.com/shopspring/decimal: Monetary amounts.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Uncategorized is the distinguished bucket used when the aggregation service
// returns a transaction with no category.
const Uncategorized = "Uncategorized"

// ExpenseCategories is the fixed set of categories accepted for manual expenses.
var ExpenseCategories = []string{"Food", "Transport", "Shopping", "Entertainment", "Bills"}

// ValidExpenseCategory reports whether c is one of the accepted manual
// expense categories.
func ValidExpenseCategory(c string) bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// LinkedAccount is a bank account connected through the aggregation service.
// ExternalID is the aggregation service's account identifier and is unique.
type LinkedAccount struct {
	ID          uuid.UUID  `json:"id"`
	ExternalID  string     `json:"external_id"`
	Name        string     `json:"name"`
	AccountType string     `json:"account_type"`
	Institution string     `json:"institution"`
	LastSync    *time.Time `json:"last_sync,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AccountMetadata describes one account reported by the client-side link
// widget alongside a public token.
type AccountMetadata struct {
	ExternalID  string `json:"id"`
	Name        string `json:"name"`
	AccountType string `json:"type"`
	Institution string `json:"institution"`
}

// Transaction is a bank transaction fetched from the aggregation service.
// ExternalID is the deduplication key; rows are immutable once written.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	ExternalID  string          `json:"external_id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Merchant    string          `json:"merchant"`
	Description string          `json:"description"`
}

// ManualExpense is a user-entered expense row.
type ManualExpense struct {
	ID          uuid.UUID       `json:"id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Investment is a portfolio position. Return is derived from the stored
// values on every read and is never persisted.
type Investment struct {
	ID           uuid.UUID       `json:"id"`
	Asset        string          `json:"asset"`
	CurrentValue decimal.Decimal `json:"current_value"`
	InitialValue decimal.Decimal `json:"initial_value"`
	Return       decimal.Decimal `json:"return"`
}

// FinancialGoal is a savings goal with a target amount and deadline.
type FinancialGoal struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target"`
	Current  decimal.Decimal `json:"current"`
	Deadline time.Time       `json:"deadline"`
}

// AccountSyncFailure records why a single account failed during a sync run.
type AccountSyncFailure struct {
	AccountID  uuid.UUID `json:"account_id"`
	ExternalID string    `json:"external_id"`
	Error      string    `json:"error"`
}

// SyncReport summarizes one full synchronization run across all linked
// accounts.
type SyncReport struct {
	AccountsAttempted    int                  `json:"accounts_attempted"`
	AccountsFailed       int                  `json:"accounts_failed"`
	TransactionsInserted int                  `json:"transactions_inserted"`
	Failures             []AccountSyncFailure `json:"failures,omitempty"`
}
