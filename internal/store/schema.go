/**
 * @description
 * Schema bootstrap for the five ledger tables. Applied at startup with
 * CREATE TABLE IF NOT EXISTS so a fresh database is usable immediately.
 * transactions.external_id carries the uniqueness constraint that backs the
 * at-most-once ingestion guarantee of the synchronizer.
 */

package store

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS linked_accounts (
		id UUID PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		access_token TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		account_type TEXT NOT NULL DEFAULT '',
		institution TEXT NOT NULL DEFAULT '',
		last_sync TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES linked_accounts(id),
		external_id TEXT NOT NULL UNIQUE,
		date DATE NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		category TEXT,
		merchant TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id UUID PRIMARY KEY,
		date DATE NOT NULL,
		category TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS investments (
		id UUID PRIMARY KEY,
		asset TEXT NOT NULL,
		current_value NUMERIC(14,2) NOT NULL,
		initial_value NUMERIC(14,2) NOT NULL,
		purchase_date DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS financial_goals (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		target NUMERIC(14,2) NOT NULL CHECK (target >= 0),
		current NUMERIC(14,2) NOT NULL CHECK (current >= 0),
		deadline DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions(account_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category)`,
}

// EnsureSchema creates any missing tables and indexes.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
