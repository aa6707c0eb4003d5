/**
 * @description
 * Ledger aggregates: pure read operations over the persisted entities.
 * Expense figures always reflect the union of manual expenses and
 * synchronized transactions. All monetary results are rounded to two
 * decimal places for display.
 */

package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Adamhepburn/WealthWise/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// TotalExpenses returns the sum of all manual expenses and all synchronized
// transactions. Zero when both tables are empty.
func (s *Service) TotalExpenses(ctx context.Context) (decimal.Decimal, error) {
	manual, err := s.repo.SumManualExpenses(ctx)
	if err != nil {
		return decimal.Zero, &domain.PersistenceError{Op: "sum_manual_expenses", Err: err}
	}
	synced, err := s.repo.SumTransactionAmounts(ctx)
	if err != nil {
		return decimal.Zero, &domain.PersistenceError{Op: "sum_transaction_amounts", Err: err}
	}
	return manual.Add(synced).Round(2), nil
}

// ExpensesByCategory merges the per-category sums of manual expenses and
// synchronized transactions, adding amounts for categories present in both.
// Uncategorized transactions land in the distinguished Uncategorized bucket.
func (s *Service) ExpensesByCategory(ctx context.Context) (map[string]decimal.Decimal, error) {
	manual, err := s.repo.ManualExpensesByCategory(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "manual_expenses_by_category", Err: err}
	}
	synced, err := s.repo.TransactionsByCategory(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "transactions_by_category", Err: err}
	}

	merged := make(map[string]decimal.Decimal, len(manual)+len(synced))
	for category, amount := range manual {
		merged[category] = amount
	}
	for category, amount := range synced {
		merged[category] = merged[category].Add(amount)
	}
	for category, amount := range merged {
		merged[category] = amount.Round(2)
	}
	return merged, nil
}

// PortfolioValue returns the summed current value of all investments.
func (s *Service) PortfolioValue(ctx context.Context) (decimal.Decimal, error) {
	current, _, err := s.repo.PortfolioTotals(ctx)
	if err != nil {
		return decimal.Zero, &domain.PersistenceError{Op: "portfolio_totals", Err: err}
	}
	return current.Round(2), nil
}

// PortfolioReturn returns the overall portfolio return as a percentage.
// When the summed initial value is zero (including the empty-portfolio
// case) it returns 0 rather than failing; see DESIGN.md.
func (s *Service) PortfolioReturn(ctx context.Context) (decimal.Decimal, error) {
	current, initial, err := s.repo.PortfolioTotals(ctx)
	if err != nil {
		return decimal.Zero, &domain.PersistenceError{Op: "portfolio_totals", Err: err}
	}
	if initial.IsZero() {
		return decimal.Zero, nil
	}
	return current.Sub(initial).Div(initial).Mul(oneHundred).Round(2), nil
}

// Goals returns all financial goals in stable insertion order.
func (s *Service) Goals(ctx context.Context) ([]domain.FinancialGoal, error) {
	goals, err := s.repo.ListGoals(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list_goals", Err: err}
	}
	return goals, nil
}

// ListExpenses returns all manual expense rows in insertion order.
func (s *Service) ListExpenses(ctx context.Context) ([]domain.ManualExpense, error) {
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list_expenses", Err: err}
	}
	return expenses, nil
}

// ListInvestments returns all investments with the derived return percent
// recomputed on every call, never cached. An investment with a zero initial
// value reports a zero return.
func (s *Service) ListInvestments(ctx context.Context) ([]domain.Investment, error) {
	investments, err := s.repo.ListInvestments(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list_investments", Err: err}
	}
	for i := range investments {
		inv := &investments[i]
		if inv.InitialValue.IsZero() {
			inv.Return = decimal.Zero
			continue
		}
		inv.Return = inv.CurrentValue.Sub(inv.InitialValue).Div(inv.InitialValue).Mul(oneHundred).Round(2)
	}
	return investments, nil
}
