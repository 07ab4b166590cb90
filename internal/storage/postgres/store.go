// Package postgres provides a pgx-backed storage.Store.
//
// The schema is embedded and applied by Migrate. Amounts are stored as minor
// units with their currency code.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/storage"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	queries
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.Open: %w", err)
	}
	return &Store{queries: queries{db: pool}, pool: pool}, nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.Migrate: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// InTx runs fn in a database transaction, committing on nil and rolling back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres.InTx begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.InTx commit: %w", err)
	}
	return nil
}

// Reset truncates every table. Intended for tests.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `truncate table ledger_entries, documents, transaction_sequences, accounts`)
	return err
}

// queries implements storage.Tx over a pool or a transaction.
type queries struct{ db querier }

const accountColumns = `id, code, name, type, subtype, parent_id, status, description, created_at, updated_at`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var (
		a      ledger.Account
		typ    string
		status int16
	)
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &typ, &a.Subtype, &a.ParentID, &status, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return ledger.Account{}, err
	}
	a.Type = ledger.AccountType(typ)
	a.Status = ledger.Status(status)
	a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
	return a, nil
}

func (q queries) AccountByCode(ctx context.Context, code string) (ledger.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx, `select `+accountColumns+` from accounts where code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

func (q queries) AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx, `select `+accountColumns+` from accounts where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

func (q queries) Accounts(ctx context.Context, f storage.AccountFilter) ([]ledger.Account, error) {
	var (
		where []string
		args  []any
	)
	if !f.IncludeInactive {
		args = append(args, int16(ledger.StatusActive))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if f.Type != nil {
		args = append(args, string(*f.Type))
		where = append(where, "type = $"+strconv.Itoa(len(args)))
	}
	sql := `select ` + accountColumns + ` from accounts`
	if len(where) > 0 {
		sql += ` where ` + strings.Join(where, " and ")
	}
	rows, err := q.db.Query(ctx, sql+` order by code`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q queries) CreateAccount(ctx context.Context, a ledger.Account) error {
	_, err := q.db.Exec(ctx, `
		insert into accounts (`+accountColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, a.ID, a.Code, a.Name, string(a.Type), a.Subtype, a.ParentID, int16(a.Status), a.Description, a.CreatedAt, a.UpdatedAt)
	return mapErr(err)
}

// UpdateAccount writes the mutable fields; code and type never change.
func (q queries) UpdateAccount(ctx context.Context, a ledger.Account) error {
	ct, err := q.db.Exec(ctx, `
		update accounts
		set name=$1, subtype=$2, parent_id=$3, status=$4, description=$5, updated_at=$6
		where id=$7
	`, a.Name, a.Subtype, a.ParentID, int16(a.Status), a.Description, a.UpdatedAt, a.ID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

const entryColumns = `id, account_code, side, amount_minor, currency, description, transaction_date, transaction_no, status, created_at`

// entryWhere renders f as a where clause. Limit and offset are left to the caller.
func entryWhere(f storage.EntryFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.Start != nil {
		add("transaction_date >= ?", *f.Start)
	}
	if f.End != nil {
		add("transaction_date <= ?", *f.End)
	}
	if f.AccountCode != "" {
		add("account_code = ?", f.AccountCode)
	}
	if f.TransactionNo != "" {
		add("transaction_no = ?", f.TransactionNo)
	}
	if f.Status != 0 {
		add("status = ?", int16(f.Status))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("(description ilike ? or transaction_no ilike ?)", "%"+s+"%")
	}
	if len(where) == 0 {
		return "", args
	}
	return " where " + strings.Join(where, " and "), args
}

func (q queries) Entries(ctx context.Context, f storage.EntryFilter) ([]ledger.LedgerEntry, error) {
	where, args := entryWhere(f)
	sql := `select ` + entryColumns + ` from ledger_entries` + where + ` order by transaction_date, seq`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += ` limit $` + strconv.Itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sql += ` offset $` + strconv.Itoa(len(args))
	}
	return q.entries(ctx, sql, args...)
}

// TransactionForUpdate locks the rows of transactionNo so a concurrent reversal
// waits and then sees them already reversed.
func (q queries) TransactionForUpdate(ctx context.Context, transactionNo string) ([]ledger.LedgerEntry, error) {
	return q.entries(ctx, `select `+entryColumns+` from ledger_entries where transaction_no = $1 order by transaction_date, seq for update`, transactionNo)
}

func (q queries) entries(ctx context.Context, sql string, args ...any) ([]ledger.LedgerEntry, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.LedgerEntry, 0)
	for rows.Next() {
		var (
			e      ledger.LedgerEntry
			side   string
			minor  int64
			curr   string
			status int16
		)
		if err := rows.Scan(&e.ID, &e.AccountCode, &side, &minor, &curr, &e.Description, &e.Date, &e.TransactionNo, &status, &e.CreatedAt); err != nil {
			return nil, err
		}
		amt, err := money.NewAmountFromMinorUnits(curr, minor)
		if err != nil {
			return nil, fmt.Errorf("entry %s amount: %w", e.ID, err)
		}
		e.Side, e.Amount, e.Status = ledger.Side(side), amt, ledger.Status(status)
		e.Date, e.CreatedAt = e.Date.UTC(), e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q queries) CountEntries(ctx context.Context, f storage.EntryFilter) (int, error) {
	where, args := entryWhere(f)
	var n int
	err := q.db.QueryRow(ctx, `select count(*) from ledger_entries`+where, args...).Scan(&n)
	return n, err
}

func (q queries) InsertEntries(ctx context.Context, entries []ledger.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.ID, e.AccountCode, string(e.Side), ledger.MinorUnits(e.Amount), e.Amount.Curr().Code(),
			e.Description, e.Date, e.TransactionNo, int16(e.Status), e.CreatedAt,
		})
	}
	// One multi-row insert keeps the batch atomic even outside InTx.
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`insert into ledger_entries (` + entryColumns + `) values `)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(")
		for j := range r {
			if j > 0 {
				sb.WriteString(",")
			}
			args = append(args, r[j])
			sb.WriteString("$" + strconv.Itoa(len(args)))
		}
		sb.WriteString(")")
	}
	_, err := q.db.Exec(ctx, sb.String(), args...)
	return mapErr(err)
}

func (q queries) SetEntryStatus(ctx context.Context, ids []uuid.UUID, status ledger.Status) error {
	if len(ids) == 0 {
		return nil
	}
	ct, err := q.db.Exec(ctx, `update ledger_entries set status = $1 where id = any($2)`, int16(status), ids)
	if err != nil {
		return err
	}
	if int(ct.RowsAffected()) != len(ids) {
		return errs.ErrNotFound
	}
	return nil
}

// NextSequence relies on the row lock taken by the upsert, so concurrent callers
// for the same (prefix, period) serialize and never see the same value.
func (q queries) NextSequence(ctx context.Context, prefix string, period int) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		insert into transaction_sequences (prefix, period, value)
		values ($1, $2, 1)
		on conflict (prefix, period) do update set value = transaction_sequences.value + 1
		returning value
	`, prefix, period).Scan(&n)
	return n, err
}

const documentColumns = `id, kind, number, counterparty, doc_date, currency, total_minor, paid_minor, status, payment_numbers, created_at, updated_at`

func scanDocument(row pgx.Row) (ledger.Document, error) {
	var (
		d           ledger.Document
		kind, curr  string
		total, paid int64
		status      int16
	)
	if err := row.Scan(&d.ID, &kind, &d.Number, &d.Counterparty, &d.Date, &curr, &total, &paid, &status, &d.PaymentNumbers, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return ledger.Document{}, err
	}
	var err error
	if d.Total, err = money.NewAmountFromMinorUnits(curr, total); err != nil {
		return ledger.Document{}, err
	}
	if d.Paid, err = money.NewAmountFromMinorUnits(curr, paid); err != nil {
		return ledger.Document{}, err
	}
	d.Kind, d.Status = ledger.DocumentKind(kind), ledger.DocumentStatus(status)
	d.Date, d.CreatedAt, d.UpdatedAt = d.Date.UTC(), d.CreatedAt.UTC(), d.UpdatedAt.UTC()
	return d, nil
}

func (q queries) DocumentByNumber(ctx context.Context, number string) (ledger.Document, error) {
	d, err := scanDocument(q.db.QueryRow(ctx, `select `+documentColumns+` from documents where number = $1`, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Document{}, errs.ErrNotFound
	}
	return d, err
}

// DocumentForUpdate locks the document row until the transaction ends, so
// concurrent payments against one document apply one after the other.
func (q queries) DocumentForUpdate(ctx context.Context, number string) (ledger.Document, error) {
	d, err := scanDocument(q.db.QueryRow(ctx, `select `+documentColumns+` from documents where number = $1 for update`, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Document{}, errs.ErrNotFound
	}
	return d, err
}

func (q queries) Documents(ctx context.Context, f storage.DocumentFilter) ([]ledger.Document, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.Kind != "" {
		add("kind = ?", string(f.Kind))
	}
	if f.OpenOnly {
		add("status <> ? and total_minor > paid_minor", int16(ledger.DocumentVoid))
	}
	if f.ExcludeVoid {
		add("status <> ?", int16(ledger.DocumentVoid))
	}
	if f.Start != nil {
		add("doc_date >= ?", *f.Start)
	}
	if f.End != nil {
		add("doc_date <= ?", *f.End)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("(number ilike ? or counterparty ilike ?)", "%"+s+"%")
	}
	sql := `select ` + documentColumns + ` from documents`
	if len(where) > 0 {
		sql += ` where ` + strings.Join(where, " and ")
	}
	rows, err := q.db.Query(ctx, sql+` order by doc_date, number`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q queries) CreateDocument(ctx context.Context, d ledger.Document) error {
	payments := d.PaymentNumbers
	if payments == nil {
		payments = []string{}
	}
	_, err := q.db.Exec(ctx, `
		insert into documents (`+documentColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, d.ID, string(d.Kind), d.Number, d.Counterparty, d.Date, d.Total.Curr().Code(),
		ledger.MinorUnits(d.Total), ledger.MinorUnits(d.Paid), int16(d.Status), payments, d.CreatedAt, d.UpdatedAt)
	return mapErr(err)
}

func (q queries) UpdateDocument(ctx context.Context, d ledger.Document) error {
	payments := d.PaymentNumbers
	if payments == nil {
		payments = []string{}
	}
	ct, err := q.db.Exec(ctx, `
		update documents
		set paid_minor=$1, status=$2, payment_numbers=$3, updated_at=$4
		where number=$5
	`, ledger.MinorUnits(d.Paid), int16(d.Status), payments, d.UpdatedAt, d.Number)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// mapErr turns constraint violations into storage sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", errs.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

var _ storage.Store = (*Store)(nil)
