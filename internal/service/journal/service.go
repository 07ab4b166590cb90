package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/service/numbering"
	"github.com/tinoosan/shopledger/internal/storage"
)

// EntryInput is one requested debit or credit.
type EntryInput struct {
	AccountCode string
	Side        ledger.Side
	Amount      money.Amount
}

// PostRequest is the full set of entries for one transaction number.
type PostRequest struct {
	Entries       []EntryInput
	TransactionNo string
	Description   string
	Date          time.Time
}

// ListFilter selects a page of the general ledger.
type ListFilter struct {
	Start       *time.Time
	End         *time.Time
	Search      string
	AccountCode string
	// IncludeReversed lists reversed pairs too.
	IncludeReversed bool
	Page            int
	PageSize        int
}

// Page is one page of ledger rows.
type Page struct {
	Entries    []ledger.LedgerEntry
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// Service exposes the posting and reversal engines and the ledger listing.
type Service interface {
	Validate(ctx context.Context, req PostRequest) error
	Post(ctx context.Context, req PostRequest) ([]ledger.LedgerEntry, error)
	Reverse(ctx context.Context, transactionNo string, at time.Time) ([]ledger.LedgerEntry, error)
	Transaction(ctx context.Context, transactionNo string) ([]ledger.LedgerEntry, error)
	List(ctx context.Context, f ListFilter) (Page, error)
}

type service struct {
	store    storage.Store
	currency string
	log      *slog.Logger
}

func New(store storage.Store, currency string, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, currency: currency, log: logger}
}

func (s *service) Validate(ctx context.Context, req PostRequest) error {
	return ValidateTx(ctx, s.store, s.currency, req)
}

func (s *service) Post(ctx context.Context, req PostRequest) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		rows, err := PostTx(ctx, tx, s.currency, req)
		out = rows
		return err
	})
	if err != nil {
		return nil, err
	}
	CountPosted(req.TransactionNo)
	s.log.Info("ledger posted", "transaction_no", req.TransactionNo, "rows", len(out))
	return out, nil
}

// Reverse reverses a standalone transaction. Numbers that belong to a sale,
// expense or purchase order, or to a payment against one, are refused: the
// document would stay open while its postings disappear. Void the document.
func (s *service) Reverse(ctx context.Context, transactionNo string, at time.Time) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if err := checkStandalone(ctx, tx, transactionNo); err != nil {
			return err
		}
		rows, err := ReverseTx(ctx, tx, transactionNo, at)
		out = rows
		return err
	})
	if err != nil {
		return nil, err
	}
	CountReversed(transactionNo)
	s.log.Info("ledger reversed", "transaction_no", transactionNo, "rows", len(out))
	return out, nil
}

// Transaction returns every row, active or reversed, stamped with transactionNo.
func (s *service) Transaction(ctx context.Context, transactionNo string) ([]ledger.LedgerEntry, error) {
	rows, err := s.store.Entries(ctx, storage.EntryFilter{TransactionNo: transactionNo})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.ErrNotFound
	}
	return rows, nil
}

func (s *service) List(ctx context.Context, f ListFilter) (Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 10
	}
	q := storage.EntryFilter{Start: f.Start, End: f.End, Search: f.Search, AccountCode: f.AccountCode}
	if !f.IncludeReversed {
		q.Status = ledger.StatusActive
	}
	total, err := s.store.CountEntries(ctx, q)
	if err != nil {
		return Page{}, err
	}
	q.Limit = f.PageSize
	q.Offset = (f.Page - 1) * f.PageSize
	rows, err := s.store.Entries(ctx, q)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Entries:    rows,
		Page:       f.Page,
		PageSize:   f.PageSize,
		Total:      total,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
	}, nil
}

// ValidateTx checks req against the chart without writing. Balance is a hard precondition.
func ValidateTx(ctx context.Context, r storage.Reader, currency string, req PostRequest) error {
	if strings.TrimSpace(req.TransactionNo) == "" {
		return errs.Invalid("transaction_no", "required")
	}
	if len(req.Entries) == 0 {
		return errs.Invalid("entries", "at least one entry is required")
	}
	var debits, credits int64
	checked := make(map[string]struct{}, len(req.Entries))
	for i, e := range req.Entries {
		if !e.Side.Valid() {
			return fieldErr(i, "side", "must be debit or credit")
		}
		if currency != "" && e.Amount.Curr().Code() != currency {
			return fieldErr(i, "amount", "currency must be "+currency)
		}
		units, err := ledger.ExactMinorUnits(e.Amount)
		if err != nil {
			return fieldErr(i, "amount", "out of range")
		}
		if units <= 0 {
			return fieldErr(i, "amount", "must be > 0")
		}
		curr := e.Amount.Curr().Code()
		if e.Side == ledger.SideDebit {
			debits, err = ledger.AddMulMinor(curr, debits, units, 1)
		} else {
			credits, err = ledger.AddMulMinor(curr, credits, units, 1)
		}
		if err != nil {
			return fieldErr(i, "amount", "running total out of range")
		}
		if _, ok := checked[e.AccountCode]; ok {
			continue
		}
		acc, err := r.AccountByCode(ctx, e.AccountCode)
		if err != nil {
			if isNotFound(err) {
				return fieldErr(i, "account_code", "account "+e.AccountCode+" not found")
			}
			return err
		}
		if !acc.Active() {
			return fieldErr(i, "account_code", "account "+e.AccountCode+" is inactive")
		}
		checked[e.AccountCode] = struct{}{}
	}
	if debits != credits {
		curr := req.Entries[0].Amount.Curr().Code()
		return &errs.BalanceError{
			TransactionNo: req.TransactionNo,
			Debits:        formatMinor(curr, debits),
			Credits:       formatMinor(curr, credits),
		}
	}
	return nil
}

// PostTx validates req and writes one active row per entry through tx.
func PostTx(ctx context.Context, tx storage.Tx, currency string, req PostRequest) ([]ledger.LedgerEntry, error) {
	if err := ValidateTx(ctx, tx, currency, req); err != nil {
		return nil, err
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	now := time.Now().UTC()
	rows := make([]ledger.LedgerEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		rows = append(rows, ledger.LedgerEntry{
			ID:            uuid.New(),
			AccountCode:   e.AccountCode,
			Side:          e.Side,
			Amount:        e.Amount,
			Description:   req.Description,
			Date:          date,
			TransactionNo: req.TransactionNo,
			Status:        ledger.StatusActive,
			CreatedAt:     now,
		})
	}
	if err := tx.InsertEntries(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReverseTx writes mirror rows for every active row of transactionNo and marks
// originals and mirrors reversed together, so active balances exclude the pair.
func ReverseTx(ctx context.Context, tx storage.Tx, transactionNo string, at time.Time) ([]ledger.LedgerEntry, error) {
	if strings.TrimSpace(transactionNo) == "" {
		return nil, errs.Invalid("transaction_no", "required")
	}
	rows, err := tx.TransactionForUpdate(ctx, transactionNo)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.ErrNotFound
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	now := time.Now().UTC()
	mirrors := make([]ledger.LedgerEntry, 0, len(rows))
	originals := make([]uuid.UUID, 0, len(rows))
	for _, e := range rows {
		if !e.Active() {
			continue
		}
		originals = append(originals, e.ID)
		mirrors = append(mirrors, ledger.LedgerEntry{
			ID:            uuid.New(),
			AccountCode:   e.AccountCode,
			Side:          e.Side.Opposite(),
			Amount:        e.Amount,
			Description:   "Reversal of " + e.Description,
			Date:          at,
			TransactionNo: e.TransactionNo,
			Status:        ledger.StatusVoid,
			CreatedAt:     now,
		})
	}
	if len(mirrors) == 0 {
		return nil, errs.ErrConflict
	}
	if err := tx.InsertEntries(ctx, mirrors); err != nil {
		return nil, err
	}
	if err := tx.SetEntryStatus(ctx, originals, ledger.StatusVoid); err != nil {
		return nil, err
	}
	return mirrors, nil
}

// checkStandalone refuses transaction numbers owned by a document.
func checkStandalone(ctx context.Context, tx storage.Reader, transactionNo string) error {
	switch prefixOf(transactionNo) {
	case numbering.PrefixCustomerPayment, numbering.PrefixSupplierPayment:
		return fmt.Errorf("%w: %s is a payment against a document; void the document instead", errs.ErrConflict, transactionNo)
	}
	doc, err := tx.DocumentByNumber(ctx, transactionNo)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is a %s document; void the document instead", errs.ErrConflict, transactionNo, doc.Kind)
}

func fieldErr(i int, field, reason string) error {
	return errs.Invalid("entries["+strconv.Itoa(i)+"]."+field, reason)
}

func formatMinor(curr string, units int64) string {
	a, err := ledger.AmountFromMinor(curr, units)
	if err != nil {
		return strconv.FormatInt(units, 10)
	}
	return a.Decimal().String()
}

func prefixOf(transactionNo string) string {
	// {PREFIX}-{YEAR}-{SEQ}; the prefix itself may contain dashes.
	parts := strings.Split(transactionNo, "-")
	if len(parts) < 3 {
		return "other"
	}
	return strings.Join(parts[:len(parts)-2], "-")
}
