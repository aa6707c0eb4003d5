/**
 * @description
 * Demo-data seeding for local development. Each table is seeded only when it
 * is empty, so running the service repeatedly never duplicates sample rows.
 * Enabled by the SEED_DEMO_DATA config flag.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type seedSpec struct {
	countQuery string
	insert     string
	rows       func() [][]interface{}
}

// SeedDemoData inserts sample expenses, investments, and goals into empty
// tables.
func (r *PostgresRepository) SeedDemoData(ctx context.Context) error {
	specs := []seedSpec{
		{
			countQuery: `SELECT COUNT(*) FROM expenses`,
			insert:     `INSERT INTO expenses (id, date, category, amount, description) VALUES ($1, $2, $3, $4, $5)`,
			rows: func() [][]interface{} {
				return [][]interface{}{
					{uuid.New(), time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), "Food", "50.00", "Groceries"},
					{uuid.New(), time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), "Transport", "30.00", "Bus fare"},
				}
			},
		},
		{
			countQuery: `SELECT COUNT(*) FROM investments`,
			insert:     `INSERT INTO investments (id, asset, current_value, initial_value) VALUES ($1, $2, $3, $4)`,
			rows: func() [][]interface{} {
				return [][]interface{}{
					{uuid.New(), "Stocks", "10000.00", "9000.00"},
					{uuid.New(), "Bonds", "5000.00", "5100.00"},
				}
			},
		},
		{
			countQuery: `SELECT COUNT(*) FROM financial_goals`,
			insert:     `INSERT INTO financial_goals (id, name, target, current, deadline) VALUES ($1, $2, $3, $4, $5)`,
			rows: func() [][]interface{} {
				return [][]interface{}{
					{uuid.New(), "Emergency Fund", "10000.00", "7500.00", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
					{uuid.New(), "House Down Payment", "50000.00", "15000.00", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
				}
			},
		},
	}

	for _, spec := range specs {
		var count int64
		if err := r.db.QueryRow(ctx, spec.countQuery).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		for _, args := range spec.rows() {
			if _, err := r.db.Exec(ctx, spec.insert, args...); err != nil {
				return err
			}
		}
	}
	return nil
}
