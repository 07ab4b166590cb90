package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/storage"
	"github.com/tinoosan/shopledger/internal/storage/storagetest"
)

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return open(t) })
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(ctx, path)
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateAccount(ctx, ledger.Account{
		ID: uuid.New(), Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset,
		Status: ledger.StatusActive, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.AccountByCode(ctx, "1000")
	require.NoError(t, err)
	assert.Equal(t, "Cash", got.Name)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestEntriesAreImmutable(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateAccount(ctx, ledger.Account{
		ID: uuid.New(), Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset,
		Status: ledger.StatusActive, CreatedAt: now, UpdatedAt: now,
	}))
	e := ledger.LedgerEntry{
		ID: uuid.New(), AccountCode: "1000", Side: ledger.SideDebit,
		Amount: ledger.MustAmount("USD", 100), Date: now, TransactionNo: "JRN-2024-000001",
		Status: ledger.StatusActive, CreatedAt: now,
	}
	require.NoError(t, s.InsertEntries(ctx, []ledger.LedgerEntry{e}))

	_, err := s.writer.ExecContext(ctx, `UPDATE ledger_entries SET amount_minor = 1 WHERE id = ?`, e.ID)
	assert.Error(t, err)
	_, err = s.writer.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, e.ID)
	assert.Error(t, err)
	assert.NoError(t, s.SetEntryStatus(ctx, []uuid.UUID{e.ID}, ledger.StatusVoid))
}

func TestInsertEntriesIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateAccount(ctx, ledger.Account{
		ID: uuid.New(), Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset,
		Status: ledger.StatusActive, CreatedAt: now, UpdatedAt: now,
	}))
	good := ledger.LedgerEntry{
		ID: uuid.New(), AccountCode: "1000", Side: ledger.SideDebit,
		Amount: ledger.MustAmount("USD", 100), Date: now, TransactionNo: "JRN-2024-000001",
		Status: ledger.StatusActive, CreatedAt: now,
	}
	bad := good
	bad.ID = uuid.New()
	bad.AccountCode = "9999"

	err := s.InsertEntries(ctx, []ledger.LedgerEntry{good, bad})
	require.Error(t, err)
	n, err := s.CountEntries(ctx, storage.EntryFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}
