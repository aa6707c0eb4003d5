/**
 * @description
 * Manual entry writers: user-entered expenses and financial goals. Input is
 * validated before anything touches storage, so a validation failure never
 * leaves a partial write behind.
 */

package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Adamhepburn/WealthWise/internal/domain"
)

// AddExpense validates and persists one manual expense row.
func (s *Service) AddExpense(ctx context.Context, date time.Time, category string, amount decimal.Decimal, description string) (*domain.ManualExpense, error) {
	if !domain.ValidExpenseCategory(category) {
		return nil, &domain.ValidationError{Field: "category", Reason: "must be one of " + strings.Join(domain.ExpenseCategories, ", ")}
	}
	if amount.IsNegative() {
		return nil, &domain.ValidationError{Field: "amount", Reason: "must not be negative"}
	}

	expense := &domain.ManualExpense{
		ID:          uuid.New(),
		Date:        date,
		Category:    category,
		Amount:      amount.Round(2),
		Description: description,
	}
	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return nil, &domain.PersistenceError{Op: "create_expense", Err: err}
	}
	return expense, nil
}

// AddGoal validates and persists one financial goal row. Goal names are not
// required to be unique.
func (s *Service) AddGoal(ctx context.Context, name string, target, current decimal.Decimal, deadline time.Time) (*domain.FinancialGoal, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if target.IsNegative() {
		return nil, &domain.ValidationError{Field: "target", Reason: "must not be negative"}
	}
	if current.IsNegative() {
		return nil, &domain.ValidationError{Field: "current", Reason: "must not be negative"}
	}

	goal := &domain.FinancialGoal{
		ID:       uuid.New(),
		Name:     name,
		Target:   target.Round(2),
		Current:  current.Round(2),
		Deadline: deadline,
	}
	if err := s.repo.CreateGoal(ctx, goal); err != nil {
		return nil, &domain.PersistenceError{Op: "create_goal", Err: err}
	}
	return goal, nil
}
