// Package storagetest holds behavioural tests every storage backend must pass.
package storagetest

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
)

// Factory returns an empty store. Cleanup is the factory's responsibility.
type Factory func(t *testing.T) storage.Store

var errAbort = errors.New("abort")

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func account(code, name string, typ ledger.AccountType) ledger.Account {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return ledger.Account{
		ID: uuid.New(), Code: code, Name: name, Type: typ,
		Status: ledger.StatusActive, CreatedAt: now, UpdatedAt: now,
	}
}

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
		CreatedAt:     date,
	}
}

func seed(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()
	for _, a := range []ledger.Account{
		account("1000", "Cash", ledger.AccountTypeAsset),
		account("4000", "Sales", ledger.AccountTypeRevenue),
	} {
		require.NoError(t, s.CreateAccount(ctx, a))
	}
}

// Run exercises the storage contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("accounts", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		seed(t, s)

		dup := account("1000", "Cash again", ledger.AccountTypeAsset)
		assert.ErrorIs(t, s.CreateAccount(ctx, dup), errs.ErrConflict)

		cash, err := s.AccountByCode(ctx, "1000")
		require.NoError(t, err)
		byID, err := s.AccountByID(ctx, cash.ID)
		require.NoError(t, err)
		assert.Equal(t, "Cash", byID.Name)

		_, err = s.AccountByCode(ctx, "9999")
		assert.ErrorIs(t, err, errs.ErrNotFound)

		child := account("1010", "Till", ledger.AccountTypeAsset)
		child.ParentID = &cash.ID
		child.Subtype = "cash"
		require.NoError(t, s.CreateAccount(ctx, child))

		asset := ledger.AccountTypeAsset
		assets, err := s.Accounts(ctx, storage.AccountFilter{Type: &asset})
		require.NoError(t, err)
		require.Len(t, assets, 2)
		assert.Equal(t, "1000", assets[0].Code)
		require.NotNil(t, assets[1].ParentID)
		assert.Equal(t, cash.ID, *assets[1].ParentID)

		child.Status = ledger.StatusVoid
		child.Name = "Old till"
		require.NoError(t, s.UpdateAccount(ctx, child))
		active, err := s.Accounts(ctx, storage.AccountFilter{})
		require.NoError(t, err)
		assert.Len(t, active, 2)
		all, err := s.Accounts(ctx, storage.AccountFilter{IncludeInactive: true})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		missing := account("1020", "Ghost", ledger.AccountTypeAsset)
		assert.ErrorIs(t, s.UpdateAccount(ctx, missing), errs.ErrNotFound)
	})

	t.Run("entries", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		seed(t, s)

		require.NoError(t, s.InsertEntries(ctx, []ledger.LedgerEntry{
			entry("1000", ledger.SideDebit, 500, day(5), "INV-2024-000002"),
			entry("4000", ledger.SideCredit, 500, day(5), "INV-2024-000002"),
		}))
		require.NoError(t, s.InsertEntries(ctx, []ledger.LedgerEntry{
			entry("1000", ledger.SideDebit, 1250, day(1), "INV-2024-000001"),
			entry("4000", ledger.SideCredit, 1250, day(1), "INV-2024-000001"),
		}))

		all, err := s.Entries(ctx, storage.EntryFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "INV-2024-000001", all[0].TransactionNo)
		assert.Equal(t, ledger.SideDebit, all[0].Side)
		assert.Equal(t, int64(1250), all[0].Minor())
		assert.Equal(t, "USD", all[0].Amount.Curr().Code())
		assert.True(t, all[0].Date.Equal(day(1)))

		start, end := day(2), day(5)
		ranged, err := s.Entries(ctx, storage.EntryFilter{Start: &start, End: &end, AccountCode: "4000"})
		require.NoError(t, err)
		require.Len(t, ranged, 1)
		assert.Equal(t, "INV-2024-000002", ranged[0].TransactionNo)

		found, err := s.Entries(ctx, storage.EntryFilter{Search: "inv-2024-000001"})
		require.NoError(t, err)
		assert.Len(t, found, 2)

		n, err := s.CountEntries(ctx, storage.EntryFilter{AccountCode: "1000"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		page, err := s.Entries(ctx, storage.EntryFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, all[1].ID, page[0].ID)

		ids := []uuid.UUID{all[0].ID, all[1].ID}
		require.NoError(t, s.SetEntryStatus(ctx, ids, ledger.StatusVoid))
		active, err := s.Entries(ctx, storage.EntryFilter{Status: ledger.StatusActive})
		require.NoError(t, err)
		assert.Len(t, active, 2)
		assert.ErrorIs(t, s.SetEntryStatus(ctx, []uuid.UUID{uuid.New()}, ledger.StatusVoid), errs.ErrNotFound)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		seed(t, s)

		err := s.InTx(ctx, func(tx storage.Tx) error {
			if _, err := tx.NextSequence(ctx, "INV", 2024); err != nil {
				return err
			}
			if err := tx.InsertEntries(ctx, []ledger.LedgerEntry{
				entry("1000", ledger.SideDebit, 100, day(1), "INV-2024-000001"),
				entry("4000", ledger.SideCredit, 100, day(1), "INV-2024-000001"),
			}); err != nil {
				return err
			}
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)

		n, err := s.CountEntries(ctx, storage.EntryFilter{})
		require.NoError(t, err)
		assert.Zero(t, n)
		seq, err := s.NextSequence(ctx, "INV", 2024)
		require.NoError(t, err)
		assert.Equal(t, int64(1), seq)
	})

	t.Run("sequences", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		for want := int64(1); want <= 3; want++ {
			got, err := s.NextSequence(ctx, "EXP", 2024)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		other, err := s.NextSequence(ctx, "EXP", 2025)
		require.NoError(t, err)
		assert.Equal(t, int64(1), other)
		inv, err := s.NextSequence(ctx, "INV", 2024)
		require.NoError(t, err)
		assert.Equal(t, int64(1), inv)
	})

	t.Run("documents", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		d := ledger.Document{
			ID: uuid.New(), Kind: ledger.DocumentSale, Number: "INV-2024-000001",
			Counterparty: "Acme", Date: day(1),
			Total: ledger.MustAmount("USD", 10000), Paid: ledger.MustAmount("USD", 0),
			Status: ledger.DocumentCredit, CreatedAt: day(1), UpdatedAt: day(1),
		}
		require.NoError(t, s.CreateDocument(ctx, d))
		assert.ErrorIs(t, s.CreateDocument(ctx, d), errs.ErrConflict)

		po := d
		po.ID, po.Kind, po.Number = uuid.New(), ledger.DocumentPurchase, "PO-2024-000001"
		po.Paid, po.Status = po.Total, ledger.DocumentPaid
		require.NoError(t, s.CreateDocument(ctx, po))

		open, err := s.Documents(ctx, storage.DocumentFilter{OpenOnly: true})
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "INV-2024-000001", open[0].Number)

		d.Paid = ledger.MustAmount("USD", 4000)
		d.Status = ledger.DocumentPartial
		d.PaymentNumbers = []string{"CREDIT-PAY-2024-000001"}
		require.NoError(t, s.UpdateDocument(ctx, d))
		got, err := s.DocumentByNumber(ctx, d.Number)
		require.NoError(t, err)
		assert.Equal(t, ledger.DocumentPartial, got.Status)
		assert.Equal(t, int64(6000), got.BalanceMinor())
		assert.Equal(t, []string{"CREDIT-PAY-2024-000001"}, got.PaymentNumbers)

		sales, err := s.Documents(ctx, storage.DocumentFilter{Kind: ledger.DocumentSale})
		require.NoError(t, err)
		assert.Len(t, sales, 1)

		_, err = s.DocumentByNumber(ctx, "INV-2024-999999")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("document filters", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		for i, c := range []struct {
			number, who string
			date        time.Time
			status      ledger.DocumentStatus
		}{
			{"INV-2024-000001", "Acme Stores", day(1), ledger.DocumentPaid},
			{"INV-2024-000002", "Bolt Hardware", day(10), ledger.DocumentCredit},
			{"INV-2024-000003", "Acme Stores", day(20), ledger.DocumentVoid},
		} {
			require.NoError(t, s.CreateDocument(ctx, ledger.Document{
				ID: uuid.New(), Kind: ledger.DocumentSale, Number: c.number,
				Counterparty: c.who, Date: c.date,
				Total: ledger.MustAmount("USD", int64(1000*(i+1))), Paid: ledger.MustAmount("USD", 0),
				Status: c.status, CreatedAt: c.date, UpdatedAt: c.date,
			}))
		}

		live, err := s.Documents(ctx, storage.DocumentFilter{ExcludeVoid: true})
		require.NoError(t, err)
		assert.Len(t, live, 2)

		acme, err := s.Documents(ctx, storage.DocumentFilter{Search: "acme"})
		require.NoError(t, err)
		require.Len(t, acme, 2)
		assert.Equal(t, "INV-2024-000001", acme[0].Number)

		start, end := day(5), day(20)
		ranged, err := s.Documents(ctx, storage.DocumentFilter{Start: &start, End: &end, ExcludeVoid: true})
		require.NoError(t, err)
		require.Len(t, ranged, 1)
		assert.Equal(t, "INV-2024-000002", ranged[0].Number)

		byNumber, err := s.Documents(ctx, storage.DocumentFilter{Search: "000003"})
		require.NoError(t, err)
		require.Len(t, byNumber, 1)
		assert.Equal(t, ledger.DocumentVoid, byNumber[0].Status)
	})

	t.Run("locking reads", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		seed(t, s)
		require.NoError(t, s.CreateDocument(ctx, ledger.Document{
			ID: uuid.New(), Kind: ledger.DocumentSale, Number: "INV-2024-000001",
			Counterparty: "Acme", Date: day(1),
			Total: ledger.MustAmount("USD", 500), Paid: ledger.MustAmount("USD", 0),
			Status: ledger.DocumentCredit, CreatedAt: day(1), UpdatedAt: day(1),
		}))
		require.NoError(t, s.InsertEntries(ctx, []ledger.LedgerEntry{
			entry("1000", ledger.SideDebit, 500, day(1), "INV-2024-000001"),
			entry("4000", ledger.SideCredit, 500, day(1), "INV-2024-000001"),
		}))

		err := s.InTx(ctx, func(tx storage.Tx) error {
			d, err := tx.DocumentForUpdate(ctx, "INV-2024-000001")
			require.NoError(t, err)
			assert.Equal(t, int64(500), d.BalanceMinor())
			_, err = tx.DocumentForUpdate(ctx, "INV-2024-999999")
			assert.ErrorIs(t, err, errs.ErrNotFound)

			rows, err := tx.TransactionForUpdate(ctx, "INV-2024-000001")
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, ledger.SideDebit, rows[0].Side)
			none, err := tx.TransactionForUpdate(ctx, "INV-2024-999999")
			require.NoError(t, err)
			assert.Empty(t, none)
			return nil
		})
		require.NoError(t, err)
	})
}
