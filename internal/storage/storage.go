// Package storage defines the persistence contract shared by the memory, postgres and sqlite backends.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/shopledger/internal/ledger"
)

// AccountFilter narrows account listings. Accounts are returned ordered by code.
type AccountFilter struct {
	Type            *ledger.AccountType
	IncludeInactive bool
}

// EntryFilter narrows ledger queries. Zero values mean "no constraint";
// Status zero matches every status. Start and End are inclusive.
type EntryFilter struct {
	Start         *time.Time
	End           *time.Time
	AccountCode   string
	TransactionNo string
	Search        string
	Status        ledger.Status
	Limit         int
	Offset        int
}

// DocumentFilter narrows document listings. Documents are returned ordered by date, then number.
// Start and End bound the document date inclusively. Search matches number or
// counterparty, case-insensitively.
type DocumentFilter struct {
	Kind        ledger.DocumentKind
	OpenOnly    bool
	ExcludeVoid bool
	Start       *time.Time
	End         *time.Time
	Search      string
}

// Reader is the read side of the store.
type Reader interface {
	AccountByCode(ctx context.Context, code string) (ledger.Account, error)
	AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	Accounts(ctx context.Context, f AccountFilter) ([]ledger.Account, error)
	// Entries returns rows ordered by date, then insertion order.
	Entries(ctx context.Context, f EntryFilter) ([]ledger.LedgerEntry, error)
	CountEntries(ctx context.Context, f EntryFilter) (int, error)
	DocumentByNumber(ctx context.Context, number string) (ledger.Document, error)
	Documents(ctx context.Context, f DocumentFilter) ([]ledger.Document, error)
}

// Writer is the write side of the store.
type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) error
	UpdateAccount(ctx context.Context, a ledger.Account) error
	// InsertEntries writes all rows or none.
	InsertEntries(ctx context.Context, entries []ledger.LedgerEntry) error
	SetEntryStatus(ctx context.Context, ids []uuid.UUID, status ledger.Status) error
	// NextSequence atomically increments and returns the counter for (prefix, period).
	NextSequence(ctx context.Context, prefix string, period int) (int64, error)
	CreateDocument(ctx context.Context, d ledger.Document) error
	UpdateDocument(ctx context.Context, d ledger.Document) error
}

// Locker reads rows and holds them against concurrent writers until the
// enclosing transaction ends. Read-modify-write paths must read through it.
type Locker interface {
	DocumentForUpdate(ctx context.Context, number string) (ledger.Document, error)
	// TransactionForUpdate returns every row of transactionNo, ordered like Entries.
	TransactionForUpdate(ctx context.Context, transactionNo string) ([]ledger.LedgerEntry, error)
}

// Tx is a unit of work. Everything written through it commits or rolls back together.
type Tx interface {
	Reader
	Writer
	Locker
}

// Store is a backend. Its own Reader/Writer methods run in implicit single-statement transactions.
type Store interface {
	Reader
	Writer
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ready(ctx context.Context) error
	Close() error
}
