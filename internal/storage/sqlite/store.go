// Package sqlite provides a single-file storage.Store on modernc.org/sqlite.
//
// Writes go through one connection; reads use a separate pool so WAL readers
// never wait on the writer.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/storage"
)

// timeLayout is fixed width so text comparison orders like time.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	queries
	writer *sql.DB
	reader *sql.DB
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(runtime.NumCPU())

	s := &Store{queries: queries{r: reader, w: writer}, writer: writer, reader: reader}
	if err := s.migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	err1 := s.writer.Close()
	err2 := s.reader.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *Store) Ready(ctx context.Context) error { return s.reader.PingContext(ctx) }

// InTx runs fn on the writer connection; reads inside fn see its own writes.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := fn(queries{r: tx, w: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// InsertEntries wraps the batch in a transaction when called outside InTx.
func (s *Store) InsertEntries(ctx context.Context, entries []ledger.LedgerEntry) error {
	return s.InTx(ctx, func(tx storage.Tx) error { return tx.InsertEntries(ctx, entries) })
}

type queries struct {
	r dbtx
	w dbtx
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

type rowScanner interface{ Scan(dest ...any) error }

const accountColumns = `id, code, name, type, subtype, parent_id, status, description, created_at, updated_at`

func scanAccount(row rowScanner) (ledger.Account, error) {
	var (
		a                ledger.Account
		typ              string
		parent           uuid.NullUUID
		created, updated string
	)
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &typ, &a.Subtype, &parent, &a.Status, &a.Description, &created, &updated); err != nil {
		return ledger.Account{}, err
	}
	a.Type = ledger.AccountType(typ)
	if parent.Valid {
		id := parent.UUID
		a.ParentID = &id
	}
	var err error
	if a.CreatedAt, err = parseTime(created); err != nil {
		return ledger.Account{}, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

func nullID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (q queries) AccountByCode(ctx context.Context, code string) (ledger.Account, error) {
	a, err := scanAccount(q.r.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

func (q queries) AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(q.r.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
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
		where = append(where, "status = ?")
		args = append(args, int(ledger.StatusActive))
	}
	if f.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*f.Type))
	}
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	rows, err := q.r.QueryContext(ctx, query+` ORDER BY code`, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
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
	_, err := q.w.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Code, a.Name, string(a.Type), a.Subtype, nullID(a.ParentID), int(a.Status), a.Description,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	return mapErr(err)
}

func (q queries) UpdateAccount(ctx context.Context, a ledger.Account) error {
	res, err := q.w.ExecContext(ctx,
		`UPDATE accounts SET name = ?, subtype = ?, parent_id = ?, status = ?, description = ?, updated_at = ? WHERE id = ?`,
		a.Name, a.Subtype, nullID(a.ParentID), int(a.Status), a.Description, formatTime(a.UpdatedAt), a.ID,
	)
	if err != nil {
		return mapErr(err)
	}
	return affected(res)
}

const entryColumns = `id, account_code, side, amount_minor, currency, description, transaction_date, transaction_no, status, created_at`

func entryWhere(f storage.EntryFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Start != nil {
		where = append(where, "transaction_date >= ?")
		args = append(args, formatTime(*f.Start))
	}
	if f.End != nil {
		where = append(where, "transaction_date <= ?")
		args = append(args, formatTime(*f.End))
	}
	if f.AccountCode != "" {
		where = append(where, "account_code = ?")
		args = append(args, f.AccountCode)
	}
	if f.TransactionNo != "" {
		where = append(where, "transaction_no = ?")
		args = append(args, f.TransactionNo)
	}
	if f.Status != 0 {
		where = append(where, "status = ?")
		args = append(args, int(f.Status))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		// LIKE is case-insensitive for ASCII in SQLite.
		where = append(where, "(description LIKE ? OR transaction_no LIKE ?)")
		args = append(args, "%"+s+"%", "%"+s+"%")
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (q queries) Entries(ctx context.Context, f storage.EntryFilter) ([]ledger.LedgerEntry, error) {
	where, args := entryWhere(f)
	query := `SELECT ` + entryColumns + ` FROM ledger_entries` + where + ` ORDER BY transaction_date, seq`
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}
	rows, err := q.r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	out := make([]ledger.LedgerEntry, 0)
	for rows.Next() {
		var (
			e                 ledger.LedgerEntry
			side, curr        string
			minor             int64
			txDate, createdAt string
		)
		if err := rows.Scan(&e.ID, &e.AccountCode, &side, &minor, &curr, &e.Description, &txDate, &e.TransactionNo, &e.Status, &createdAt); err != nil {
			return nil, err
		}
		if e.Amount, err = money.NewAmountFromMinorUnits(curr, minor); err != nil {
			return nil, fmt.Errorf("entry %s amount: %w", e.ID, err)
		}
		if e.Date, err = parseTime(txDate); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		e.Side = ledger.Side(side)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q queries) CountEntries(ctx context.Context, f storage.EntryFilter) (int, error) {
	where, args := entryWhere(f)
	var n int
	err := q.r.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries`+where, args...).Scan(&n)
	return n, err
}

func (q queries) InsertEntries(ctx context.Context, entries []ledger.LedgerEntry) error {
	for i, e := range entries {
		_, err := q.w.ExecContext(ctx,
			`INSERT INTO ledger_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.AccountCode, string(e.Side), ledger.MinorUnits(e.Amount), e.Amount.Curr().Code(),
			e.Description, formatTime(e.Date), e.TransactionNo, int(e.Status), formatTime(e.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert entry %d: %w", i, mapErr(err))
		}
	}
	return nil
}

func (q queries) SetEntryStatus(ctx context.Context, ids []uuid.UUID, status ledger.Status) error {
	for _, id := range ids {
		res, err := q.w.ExecContext(ctx, `UPDATE ledger_entries SET status = ? WHERE id = ?`, int(status), id)
		if err != nil {
			return err
		}
		if err := affected(res); err != nil {
			return err
		}
	}
	return nil
}

func (q queries) NextSequence(ctx context.Context, prefix string, period int) (int64, error) {
	var n int64
	err := q.w.QueryRowContext(ctx, `
		INSERT INTO transaction_sequences (prefix, period, value) VALUES (?, ?, 1)
		ON CONFLICT (prefix, period) DO UPDATE SET value = value + 1
		RETURNING value`, prefix, period).Scan(&n)
	return n, err
}

const documentColumns = `id, kind, number, counterparty, doc_date, currency, total_minor, paid_minor, status, payment_numbers, created_at, updated_at`

func scanDocument(row rowScanner) (ledger.Document, error) {
	var (
		d                      ledger.Document
		kind, curr, payments   string
		date, created, updated string
		total, paid            int64
	)
	if err := row.Scan(&d.ID, &kind, &d.Number, &d.Counterparty, &date, &curr, &total, &paid, &d.Status, &payments, &created, &updated); err != nil {
		return ledger.Document{}, err
	}
	var err error
	if d.Total, err = money.NewAmountFromMinorUnits(curr, total); err != nil {
		return ledger.Document{}, err
	}
	if d.Paid, err = money.NewAmountFromMinorUnits(curr, paid); err != nil {
		return ledger.Document{}, err
	}
	for _, p := range []struct {
		dst *time.Time
		src string
	}{{&d.Date, date}, {&d.CreatedAt, created}, {&d.UpdatedAt, updated}} {
		if *p.dst, err = parseTime(p.src); err != nil {
			return ledger.Document{}, err
		}
	}
	d.Kind = ledger.DocumentKind(kind)
	if payments != "" {
		d.PaymentNumbers = strings.Split(payments, ",")
	}
	return d, nil
}

func (q queries) DocumentByNumber(ctx context.Context, number string) (ledger.Document, error) {
	d, err := scanDocument(q.r.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE number = ?`, number))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Document{}, errs.ErrNotFound
	}
	return d, err
}

// DocumentForUpdate is a plain read: InTx holds the only writer connection, so
// no other transaction can change the row before this one commits.
func (q queries) DocumentForUpdate(ctx context.Context, number string) (ledger.Document, error) {
	return q.DocumentByNumber(ctx, number)
}

func (q queries) TransactionForUpdate(ctx context.Context, transactionNo string) ([]ledger.LedgerEntry, error) {
	return q.Entries(ctx, storage.EntryFilter{TransactionNo: transactionNo})
}

func (q queries) Documents(ctx context.Context, f storage.DocumentFilter) ([]ledger.Document, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.OpenOnly {
		where = append(where, "status <> ? AND total_minor > paid_minor")
		args = append(args, int(ledger.DocumentVoid))
	}
	if f.ExcludeVoid {
		where = append(where, "status <> ?")
		args = append(args, int(ledger.DocumentVoid))
	}
	if f.Start != nil {
		where = append(where, "doc_date >= ?")
		args = append(args, formatTime(*f.Start))
	}
	if f.End != nil {
		where = append(where, "doc_date <= ?")
		args = append(args, formatTime(*f.End))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(number LIKE ? OR counterparty LIKE ?)")
		args = append(args, "%"+s+"%", "%"+s+"%")
	}
	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	rows, err := q.r.QueryContext(ctx, query+` ORDER BY doc_date, number`, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
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
	_, err := q.w.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.Kind), d.Number, d.Counterparty, formatTime(d.Date), d.Total.Curr().Code(),
		ledger.MinorUnits(d.Total), ledger.MinorUnits(d.Paid), int(d.Status), strings.Join(d.PaymentNumbers, ","),
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	return mapErr(err)
}

func (q queries) UpdateDocument(ctx context.Context, d ledger.Document) error {
	res, err := q.w.ExecContext(ctx,
		`UPDATE documents SET paid_minor = ?, status = ?, payment_numbers = ?, updated_at = ? WHERE number = ?`,
		ledger.MinorUnits(d.Paid), int(d.Status), strings.Join(d.PaymentNumbers, ","), formatTime(d.UpdatedAt), d.Number,
	)
	if err != nil {
		return err
	}
	return affected(res)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %s", errs.ErrConflict, se.Error())
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %s", errs.ErrNotFound, se.Error())
	}
	return err
}

var _ storage.Store = (*Store)(nil)
