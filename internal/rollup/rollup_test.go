package rollup

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
)

func acct(code string, t ledger.AccountType, parent *ledger.Account) ledger.Account {
	a := ledger.Account{ID: uuid.New(), Code: code, Name: code, Type: t, Status: ledger.StatusActive}
	if parent != nil {
		a.ParentID = &parent.ID
	}
	return a
}

func entry(code string, side ledger.Side, units int64, date time.Time) ledger.LedgerEntry {
	return ledger.LedgerEntry{
		ID:          uuid.New(),
		AccountCode: code,
		Side:        side,
		Amount:      ledger.MustAmount("USD", units),
		Date:        date,
		Status:      ledger.StatusActive,
	}
}

func day(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

func ptr(t time.Time) *time.Time { return &t }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeOpeningMovementClosing(t *testing.T) {
	opex := acct("5100", ledger.AccountTypeExpense, nil)
	rent := acct("5110", ledger.AccountTypeExpense, &opex)
	power := acct("5120", ledger.AccountTypeExpense, &opex)
	bank := acct("1010", ledger.AccountTypeAsset, nil)
	idle := acct("5130", ledger.AccountTypeExpense, &opex)

	entries := []ledger.LedgerEntry{
		entry("5110", ledger.SideDebit, 100_00, day(1, 15)),
		entry("1010", ledger.SideCredit, 100_00, day(1, 15)),
		entry("5110", ledger.SideDebit, 100_00, time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)),
		entry("1010", ledger.SideCredit, 100_00, time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)),
		entry("5120", ledger.SideDebit, 40_50, day(2, 10)),
		entry("1010", ledger.SideCredit, 40_50, day(2, 10)),
		entry("5120", ledger.SideDebit, 99_99, day(3, 1)),
	}
	tree, err := Compute([]ledger.Account{bank, opex, rent, power, idle}, entries, Period{Start: ptr(day(2, 1)), End: ptr(day(2, 29))})
	require.NoError(t, err)

	n, ok := tree.Node("5100")
	require.True(t, ok)
	assert.True(t, dec("100").Equal(n.Total.OpeningDebit))
	assert.True(t, dec("140.50").Equal(n.Total.MovementDebit))
	assert.True(t, dec("240.50").Equal(n.Total.Closing()))
	assert.True(t, n.Own.Closing().IsZero())
	assert.Len(t, n.Children(), 3)

	z, ok := tree.Node("5130")
	require.True(t, ok)
	assert.True(t, z.Total.Closing().IsZero())
	assert.Equal(t, 1, z.Depth)
	assert.Equal(t, "5100", z.Parent().Account.Code)

	b := tree.Balances()["1010"]
	assert.True(t, dec("-240.50").Equal(b.Closing()))
	assert.True(t, dec("-100").Equal(b.Opening()))

	roots := tree.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "1010", roots[0].Account.Code)
	assert.True(t, tree.Contains("5100", "5120"))
	assert.False(t, tree.Contains("5110", "5100"))
}

func TestComputeIgnoresInactiveAndUnknown(t *testing.T) {
	parent := acct("1000", ledger.AccountTypeAsset, nil)
	parent.Status = ledger.StatusVoid
	child := acct("1001", ledger.AccountTypeAsset, &parent)
	rev := entry("1001", ledger.SideDebit, 5_00, day(1, 1))
	rev.Status = ledger.StatusVoid

	tree, err := Compute([]ledger.Account{parent, child}, []ledger.LedgerEntry{
		entry("1000", ledger.SideDebit, 7_00, day(1, 1)),
		entry("9999", ledger.SideDebit, 7_00, day(1, 1)),
		rev,
		entry("1001", ledger.SideDebit, 3_00, day(1, 2)),
	}, Period{})
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
	roots := tree.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "1001", roots[0].Account.Code)
	assert.True(t, dec("3").Equal(roots[0].Total.Closing()))
}

func TestComputeDetectsCycle(t *testing.T) {
	a := acct("5100", ledger.AccountTypeExpense, nil)
	b := acct("5110", ledger.AccountTypeExpense, &a)
	a.ParentID = &b.ID
	root := acct("1000", ledger.AccountTypeAsset, nil)

	_, err := Compute([]ledger.Account{root, a, b}, nil, Period{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestWalkSkipsSubtree(t *testing.T) {
	opex := acct("5100", ledger.AccountTypeExpense, nil)
	rent := acct("5110", ledger.AccountTypeExpense, &opex)
	cash := acct("1000", ledger.AccountTypeAsset, nil)
	tree, err := Compute([]ledger.Account{opex, rent, cash}, nil, Period{})
	require.NoError(t, err)

	var seen []string
	tree.Walk(func(n *Node) bool {
		seen = append(seen, n.Account.Code)
		return n.Account.Code != "5100"
	})
	assert.Equal(t, []string{"1000", "5100"}, seen)
}

// Rolling up the same rows in any order or grouping gives the same parent totals.
func TestComputeOrderIndependent(t *testing.T) {
	opex := acct("5100", ledger.AccountTypeExpense, nil)
	leaves := []ledger.Account{
		acct("5110", ledger.AccountTypeExpense, &opex),
		acct("5120", ledger.AccountTypeExpense, &opex),
		acct("5130", ledger.AccountTypeExpense, &opex),
	}
	accounts := append([]ledger.Account{opex}, leaves...)

	rng := rand.New(rand.NewSource(7))
	var entries []ledger.LedgerEntry
	want := decimal.Zero
	for i := 0; i < 200; i++ {
		units := rng.Int63n(100_000) + 1
		side := ledger.SideDebit
		if rng.Intn(3) == 0 {
			side = ledger.SideCredit
		}
		e := entry(leaves[rng.Intn(len(leaves))].Code, side, units, day(time.Month(rng.Intn(12)+1), 1))
		entries = append(entries, e)
		amt := decimal.New(units, -2)
		if side == ledger.SideDebit {
			want = want.Add(amt)
		} else {
			want = want.Sub(amt)
		}
	}

	for round := 0; round < 5; round++ {
		rng.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
		rng.Shuffle(len(accounts), func(i, j int) { accounts[i], accounts[j] = accounts[j], accounts[i] })
		tree, err := Compute(accounts, entries, Period{})
		require.NoError(t, err)
		n, _ := tree.Node("5100")
		assert.True(t, want.Equal(n.Total.Closing()), "round %d: got %s want %s", round, n.Total.Closing(), want)
	}
}
