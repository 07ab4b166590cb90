package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/storage"
	"github.com/tinoosan/shopledger/internal/storage/storagetest"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func entry(code string, side ledger.Side, minor int64, date time.Time, txn string) ledger.LedgerEntry {
	return ledger.LedgerEntry{
		ID:            uuid.New(),
		AccountCode:   code,
		Side:          side,
		Amount:        ledger.MustAmount("USD", minor),
		Description:   "Sale " + txn,
		Date:          date,
		TransactionNo: txn,
		Status:        ledger.StatusActive,
	}
}

func TestAccountsCodeUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	cash := ledger.Account{ID: uuid.New(), Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Status: ledger.StatusActive}
	require.NoError(t, s.CreateAccount(ctx, cash))

	dup := cash
	dup.ID = uuid.New()
	assert.ErrorIs(t, s.CreateAccount(ctx, dup), errs.ErrConflict)

	got, err := s.AccountByCode(ctx, "1000")
	require.NoError(t, err)
	assert.Equal(t, cash.ID, got.ID)

	_, err = s.AccountByCode(ctx, "9999")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	cash.Status = ledger.StatusVoid
	require.NoError(t, s.UpdateAccount(ctx, cash))
	active, err := s.Accounts(ctx, storage.AccountFilter{})
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := s.Accounts(ctx, storage.AccountFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEntriesOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InsertEntries(ctx, []ledger.LedgerEntry{
		entry("1000", ledger.SideDebit, 100, day(5), "INV-2024-000002"),
		entry("4000", ledger.SideCredit, 100, day(5), "INV-2024-000002"),
	}))
	require.NoError(t, s.InsertEntries(ctx, []ledger.LedgerEntry{
		entry("1000", ledger.SideDebit, 50, day(1), "INV-2024-000001"),
		entry("4000", ledger.SideCredit, 50, day(1), "INV-2024-000001"),
	}))

	all, err := s.Entries(ctx, storage.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "INV-2024-000001", all[0].TransactionNo)
	assert.Equal(t, ledger.SideDebit, all[2].Side)
	assert.Equal(t, ledger.SideCredit, all[3].Side)

	start, end := day(2), day(5)
	ranged, err := s.Entries(ctx, storage.EntryFilter{Start: &start, End: &end})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	byCode, err := s.Entries(ctx, storage.EntryFilter{AccountCode: "4000", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, "INV-2024-000002", byCode[0].TransactionNo)

	n, err := s.CountEntries(ctx, storage.EntryFilter{Search: "000002", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSetEntryStatus(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := entry("1000", ledger.SideDebit, 100, day(1), "JRN-2024-000001")
	require.NoError(t, s.InsertEntries(ctx, []ledger.LedgerEntry{e}))
	require.NoError(t, s.SetEntryStatus(ctx, []uuid.UUID{e.ID}, ledger.StatusVoid))

	active, err := s.Entries(ctx, storage.EntryFilter{Status: ledger.StatusActive})
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.ErrorIs(t, s.SetEntryStatus(ctx, []uuid.UUID{uuid.New()}, ledger.StatusVoid), errs.ErrNotFound)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.NextSequence(ctx, "INV", 2024); err != nil {
			return err
		}
		if err := tx.InsertEntries(ctx, []ledger.LedgerEntry{entry("1000", ledger.SideDebit, 1, day(1), "X")}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := s.Entries(ctx, storage.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err := s.NextSequence(ctx, "INV", 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNextSequenceIsPerPrefixAndPeriod(t *testing.T) {
	ctx := context.Background()
	s := New()
	for want := int64(1); want <= 3; want++ {
		n, err := s.NextSequence(ctx, "INV", 2024)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	n, err := s.NextSequence(ctx, "INV", 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.NextSequence(ctx, "EXP", 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	s := New()
	open := ledger.Document{ID: uuid.New(), Kind: ledger.DocumentSale, Number: "INV-2024-000001", Counterparty: "alice",
		Date: day(1), Total: ledger.MustAmount("USD", 1000), Paid: ledger.MustAmount("USD", 0), Status: ledger.DocumentCredit}
	paid := open
	paid.ID, paid.Number, paid.Paid, paid.Status = uuid.New(), "INV-2024-000002", ledger.MustAmount("USD", 1000), ledger.DocumentPaid
	require.NoError(t, s.CreateDocument(ctx, open))
	require.NoError(t, s.CreateDocument(ctx, paid))
	assert.ErrorIs(t, s.CreateDocument(ctx, open), errs.ErrConflict)

	docs, err := s.Documents(ctx, storage.DocumentFilter{Kind: ledger.DocumentSale, OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "INV-2024-000001", docs[0].Number)

	open.PaymentNumbers = []string{"CREDIT-PAY-2024-000001"}
	require.NoError(t, s.UpdateDocument(ctx, open))
	got, err := s.DocumentByNumber(ctx, open.Number)
	require.NoError(t, err)
	assert.Equal(t, []string{"CREDIT-PAY-2024-000001"}, got.PaymentNumbers)
}

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(*testing.T) storage.Store { return New() })
}
