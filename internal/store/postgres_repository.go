/**
 * @description
 * PostgreSQL implementation of the `Repository` interface. Monetary columns
 * are NUMERIC(14,2); they are sent as decimal strings and read back through
 * ::text casts so no floating point conversion ever touches an amount.
 *
 * Every mutating method runs inside a single pgx transaction so a failure
 * partway leaves nothing half-written.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - github.com/shopspring/decimal: Monetary amounts.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Adamhepburn/WealthWise/internal/domain"
)

var (
	ErrAccountAlreadyLinked = errors.New("account already linked")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateLinkedAccounts inserts one row per account, all sharing the same
// access credential, in a single transaction. Either every account is
// persisted or none are.
func (r *PostgresRepository) CreateLinkedAccounts(ctx context.Context, accessToken string, accounts []domain.LinkedAccount) ([]domain.LinkedAccount, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created := make([]domain.LinkedAccount, 0, len(accounts))
	query := `
		INSERT INTO linked_accounts (id, external_id, access_token, name, account_type, institution, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	for _, account := range accounts {
		account.ID = uuid.New()
		now := time.Now().UTC()
		err := tx.QueryRow(ctx, query,
			account.ID, account.ExternalID, accessToken,
			account.Name, account.AccountType, account.Institution, now,
		).Scan(&account.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, fmt.Errorf("%w: %s", ErrAccountAlreadyLinked, account.ExternalID)
			}
			return nil, err
		}
		created = append(created, account)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// ListLinkedAccounts returns all linked accounts. The access credential
// column is never selected here.
func (r *PostgresRepository) ListLinkedAccounts(ctx context.Context) ([]domain.LinkedAccount, error) {
	query := `
		SELECT id, external_id, name, account_type, institution, last_sync, created_at
		FROM linked_accounts
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.LinkedAccount
	for rows.Next() {
		var a domain.LinkedAccount
		if err := rows.Scan(&a.ID, &a.ExternalID, &a.Name, &a.AccountType, &a.Institution, &a.LastSync, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListAccountCredentials returns the access credential for every linked
// account. Used by the synchronizer only.
func (r *PostgresRepository) ListAccountCredentials(ctx context.Context) ([]AccountCredential, error) {
	rows, err := r.db.Query(ctx, `SELECT id, external_id, access_token FROM linked_accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []AccountCredential
	for rows.Next() {
		var c AccountCredential
		if err := rows.Scan(&c.AccountID, &c.ExternalID, &c.AccessToken); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// StoreAccountTransactions inserts the fetched transactions for one account,
// skipping rows whose external id is already present, and stamps last_sync.
// One transaction per account, per the partial-failure model of the sync run.
func (r *PostgresRepository) StoreAccountTransactions(ctx context.Context, accountID uuid.UUID, txs []domain.Transaction, syncedAt time.Time) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO transactions (id, account_id, external_id, date, amount, category, merchant, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO NOTHING
	`
	inserted := 0
	for _, t := range txs {
		ct, err := tx.Exec(ctx, insert,
			uuid.New(), accountID, t.ExternalID, t.Date,
			t.Amount.String(), t.Category, t.Merchant, t.Description,
		)
		if err != nil {
			return 0, err
		}
		inserted += int(ct.RowsAffected())
	}

	if _, err := tx.Exec(ctx, `UPDATE linked_accounts SET last_sync = $1 WHERE id = $2`, syncedAt, accountID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return inserted, nil
}

// SumManualExpenses returns the sum of all manually entered expense amounts.
func (r *PostgresRepository) SumManualExpenses(ctx context.Context) (decimal.Decimal, error) {
	return r.sumQuery(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM expenses`)
}

// SumTransactionAmounts returns the sum of all synchronized transaction amounts.
func (r *PostgresRepository) SumTransactionAmounts(ctx context.Context) (decimal.Decimal, error) {
	return r.sumQuery(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM transactions`)
}

func (r *PostgresRepository) sumQuery(ctx context.Context, query string) (decimal.Decimal, error) {
	var raw string
	if err := r.db.QueryRow(ctx, query).Scan(&raw); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// ManualExpensesByCategory group-sums manual expenses by category.
func (r *PostgresRepository) ManualExpensesByCategory(ctx context.Context) (map[string]decimal.Decimal, error) {
	query := `SELECT category, SUM(amount)::text FROM expenses GROUP BY category`
	return r.categoryQuery(ctx, query)
}

// TransactionsByCategory group-sums synchronized transactions by category,
// folding NULL categories into the Uncategorized bucket.
func (r *PostgresRepository) TransactionsByCategory(ctx context.Context) (map[string]decimal.Decimal, error) {
	query := `SELECT COALESCE(category, '` + domain.Uncategorized + `'), SUM(amount)::text FROM transactions GROUP BY 1`
	return r.categoryQuery(ctx, query)
}

func (r *PostgresRepository) categoryQuery(ctx context.Context, query string) (map[string]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category, raw string
		if err := rows.Scan(&category, &raw); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		result[category] = amount
	}
	return result, rows.Err()
}

// PortfolioTotals returns the summed current and initial values across all
// investments.
func (r *PostgresRepository) PortfolioTotals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(current_value), 0)::text, COALESCE(SUM(initial_value), 0)::text FROM investments`
	var rawCurrent, rawInitial string
	if err := r.db.QueryRow(ctx, query).Scan(&rawCurrent, &rawInitial); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	current, err := decimal.NewFromString(rawCurrent)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	initial, err := decimal.NewFromString(rawInitial)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return current, initial, nil
}

// ListExpenses returns all manual expenses in insertion order.
func (r *PostgresRepository) ListExpenses(ctx context.Context) ([]domain.ManualExpense, error) {
	query := `SELECT id, date, category, amount::text, description FROM expenses ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []domain.ManualExpense
	for rows.Next() {
		var e domain.ManualExpense
		var raw string
		if err := rows.Scan(&e.ID, &e.Date, &e.Category, &raw, &e.Description); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(raw); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// ListInvestments returns all investments in insertion order. The derived
// Return field is computed by the app layer, not here.
func (r *PostgresRepository) ListInvestments(ctx context.Context) ([]domain.Investment, error) {
	query := `SELECT id, asset, current_value::text, initial_value::text FROM investments ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var investments []domain.Investment
	for rows.Next() {
		var inv domain.Investment
		var rawCurrent, rawInitial string
		if err := rows.Scan(&inv.ID, &inv.Asset, &rawCurrent, &rawInitial); err != nil {
			return nil, err
		}
		if inv.CurrentValue, err = decimal.NewFromString(rawCurrent); err != nil {
			return nil, err
		}
		if inv.InitialValue, err = decimal.NewFromString(rawInitial); err != nil {
			return nil, err
		}
		investments = append(investments, inv)
	}
	return investments, rows.Err()
}

// ListGoals returns all financial goals in insertion order.
func (r *PostgresRepository) ListGoals(ctx context.Context) ([]domain.FinancialGoal, error) {
	query := `SELECT id, name, target::text, current::text, deadline FROM financial_goals ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.FinancialGoal
	for rows.Next() {
		var g domain.FinancialGoal
		var rawTarget, rawCurrent string
		if err := rows.Scan(&g.ID, &g.Name, &rawTarget, &rawCurrent, &g.Deadline); err != nil {
			return nil, err
		}
		if g.Target, err = decimal.NewFromString(rawTarget); err != nil {
			return nil, err
		}
		if g.Current, err = decimal.NewFromString(rawCurrent); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// CreateExpense persists a new manual expense row.
func (r *PostgresRepository) CreateExpense(ctx context.Context, expense *domain.ManualExpense) error {
	query := `
		INSERT INTO expenses (id, date, category, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		expense.ID, expense.Date, expense.Category, expense.Amount.String(), expense.Description, time.Now().UTC())
	return err
}

// CreateGoal persists a new financial goal row.
func (r *PostgresRepository) CreateGoal(ctx context.Context, goal *domain.FinancialGoal) error {
	query := `
		INSERT INTO financial_goals (id, name, target, current, deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		goal.ID, goal.Name, goal.Target.String(), goal.Current.String(), goal.Deadline, time.Now().UTC())
	return err
}

var _ Repository = (*PostgresRepository)(nil)
