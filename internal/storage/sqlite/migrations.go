package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		if err := migrateV1(ctx, tx); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return tx.Commit()
}

func migrateV1(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id          TEXT PRIMARY KEY,
			code        TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			type        TEXT NOT NULL CHECK (type IN ('ASSET','LIABILITY','EQUITY','REVENUE','EXPENSE')),
			subtype     TEXT NOT NULL DEFAULT '',
			parent_id   TEXT REFERENCES accounts(id),
			status      INTEGER NOT NULL DEFAULT 1,
			description TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			seq              INTEGER PRIMARY KEY AUTOINCREMENT,
			id               TEXT NOT NULL UNIQUE,
			account_code     TEXT NOT NULL REFERENCES accounts(code),
			side             TEXT NOT NULL CHECK (side IN ('debit','credit')),
			amount_minor     INTEGER NOT NULL CHECK (amount_minor > 0),
			currency         TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			transaction_date TEXT NOT NULL,
			transaction_no   TEXT NOT NULL,
			status           INTEGER NOT NULL DEFAULT 1,
			created_at       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_txn ON ledger_entries(transaction_no)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_date ON ledger_entries(transaction_date, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_account ON ledger_entries(account_code, transaction_date)`,

		// Posted amounts are immutable; only the status column may change.
		`CREATE TRIGGER IF NOT EXISTS trg_immutable_entries
		BEFORE UPDATE OF id, account_code, side, amount_minor, currency, transaction_date, transaction_no ON ledger_entries
		BEGIN
			SELECT RAISE(ABORT, 'ledger entries are immutable');
		END`,
		`CREATE TRIGGER IF NOT EXISTS trg_no_delete_entries
		BEFORE DELETE ON ledger_entries
		BEGIN
			SELECT RAISE(ABORT, 'ledger entries cannot be deleted');
		END`,

		`CREATE TABLE IF NOT EXISTS transaction_sequences (
			prefix TEXT    NOT NULL,
			period INTEGER NOT NULL,
			value  INTEGER NOT NULL,
			PRIMARY KEY (prefix, period)
		)`,

		`CREATE TABLE IF NOT EXISTS documents (
			id              TEXT PRIMARY KEY,
			kind            TEXT NOT NULL CHECK (kind IN ('sale','purchase','expense')),
			number          TEXT NOT NULL UNIQUE,
			counterparty    TEXT NOT NULL DEFAULT '',
			doc_date        TEXT NOT NULL,
			currency        TEXT NOT NULL,
			total_minor     INTEGER NOT NULL,
			paid_minor      INTEGER NOT NULL,
			status          INTEGER NOT NULL,
			payment_numbers TEXT NOT NULL DEFAULT '',
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind, doc_date)`,

		`INSERT INTO schema_version (version) VALUES (1)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
