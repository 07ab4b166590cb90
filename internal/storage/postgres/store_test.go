package postgres

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tinoosan/shopledger/internal/config"
	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/logging"
	"github.com/tinoosan/shopledger/internal/service/account"
	"github.com/tinoosan/shopledger/internal/service/events"
	"github.com/tinoosan/shopledger/internal/service/journal"
	"github.com/tinoosan/shopledger/internal/storage"
	"github.com/tinoosan/shopledger/internal/storage/storagetest"
)

// getTestDSN prefers TEST_DATABASE_URL and falls back to a throwaway container.
func getTestDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	if testing.Short() {
		t.Skip("skipping Postgres store tests in short mode")
	}
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shopledger_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	storagetest.Run(t, func(t *testing.T) storage.Store {
		require.NoError(t, s.Reset(context.Background()))
		return s
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, s.Ready(context.Background()))
}

func TestNextSequenceConcurrent(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	ctx := context.Background()
	require.NoError(t, s.Reset(ctx))

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(ctx, func(tx storage.Tx) error {
				n, err := tx.NextSequence(ctx, "INV", 2024)
				if err != nil {
					return err
				}
				mu.Lock()
				seen[n] = true
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers)
	for n := int64(1); n <= workers; n++ {
		assert.True(t, seen[n], "missing sequence %d", n)
	}
}

// seeded resets s and loads the default chart.
func seeded(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Reset(ctx))
	_, err := account.New(s, config.DefaultRoles()).SeedDefaults(ctx)
	require.NoError(t, err)
}

func TestConcurrentPaymentsSettleOnce(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	ctx := context.Background()
	seeded(t, s)
	svc := events.New(s, config.DefaultRoles(), "USD", logging.Discard())
	sale, err := svc.RecordSale(ctx, events.Sale{
		Customer: "Ada",
		Lines:    []events.SaleLine{{Quantity: 1, UnitPrice: ledger.MustAmount("USD", 100_00)}},
	})
	require.NoError(t, err)

	const workers = 8
	var (
		wg      sync.WaitGroup
		settled atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ReceivePayment(ctx, sale.TransactionNo, events.Payment{
				Amount: ledger.MustAmount("USD", 100_00), PaymentAccount: "1000",
			})
			if err == nil {
				settled.Add(1)
				return
			}
			assert.ErrorIs(t, err, errs.ErrInvalid)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), settled.Load())

	doc, err := s.DocumentByNumber(ctx, sale.TransactionNo)
	require.NoError(t, err)
	assert.Zero(t, doc.BalanceMinor())
	assert.Len(t, doc.PaymentNumbers, 1)

	rows, err := s.Entries(ctx, storage.EntryFilter{AccountCode: "1100", Status: ledger.StatusActive})
	require.NoError(t, err)
	var receivable int64
	for _, r := range rows {
		if r.Side == ledger.SideDebit {
			receivable += r.Minor()
		} else {
			receivable -= r.Minor()
		}
	}
	assert.Zero(t, receivable)
}

func TestConcurrentReversalsMirrorOnce(t *testing.T) {
	s := mustOpen(t, getTestDSN(t))
	ctx := context.Background()
	seeded(t, s)
	svc := journal.New(s, "USD", logging.Discard())
	_, err := svc.Post(ctx, journal.PostRequest{
		TransactionNo: "JRN-2024-000001",
		Entries: []journal.EntryInput{
			{AccountCode: "1010", Side: ledger.SideDebit, Amount: ledger.MustAmount("USD", 50_00)},
			{AccountCode: "3000", Side: ledger.SideCredit, Amount: ledger.MustAmount("USD", 50_00)},
		},
	})
	require.NoError(t, err)

	const workers = 8
	var (
		wg       sync.WaitGroup
		reversed atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reverse(ctx, "JRN-2024-000001", time.Time{})
			if err == nil {
				reversed.Add(1)
				return
			}
			assert.ErrorIs(t, err, errs.ErrConflict)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), reversed.Load())

	n, err := s.CountEntries(ctx, storage.EntryFilter{TransactionNo: "JRN-2024-000001"})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestEntryWhere(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args := entryWhere(storage.EntryFilter{Start: &start, AccountCode: "1000", Search: "INV"})
	assert.Equal(t, " where transaction_date >= $1 and account_code = $2 and (description ilike $3 or transaction_no ilike $3)", where)
	assert.Equal(t, []any{start, "1000", "%INV%"}, args)

	where, args = entryWhere(storage.EntryFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}
