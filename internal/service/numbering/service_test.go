package numbering

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/storage/memory"
)

func TestNextFormatsAndIncrements(t *testing.T) {
	ctx := context.Background()
	seq := memory.New()
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	first, err := Next(ctx, seq, PrefixSale, date)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-000001", first.Display)
	assert.Equal(t, 2024, first.Period)

	second, err := Next(ctx, seq, PrefixSale, date)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)

	other, err := Next(ctx, seq, PrefixSupplierPayment, date)
	require.NoError(t, err)
	assert.Equal(t, "SUPP-PAY-2024-000001", other.Display)

	nextYear, err := Next(ctx, seq, PrefixSale, date.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-000001", nextYear.Display)
}

func TestNextRejectsBadPrefix(t *testing.T) {
	seq := memory.New()
	for _, p := range []string{"", "inv", "INV-", "IN V", "INV2"} {
		_, err := Next(context.Background(), seq, p, time.Now())
		assert.ErrorIs(t, err, errs.ErrInvalid, p)
	}
}

func TestNextConcurrentCallersGetDistinctNumbers(t *testing.T) {
	ctx := context.Background()
	seq := memory.New()
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	const n = 50
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := Next(ctx, seq, PrefixExpense, date)
			require.NoError(t, err)
			mu.Lock()
			seen[num.Display] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
