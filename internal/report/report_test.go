package report

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/shopledger/internal/config"
	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/logging"
	"github.com/tinoosan/shopledger/internal/rollup"
	"github.com/tinoosan/shopledger/internal/service/account"
	"github.com/tinoosan/shopledger/internal/service/events"
	"github.com/tinoosan/shopledger/internal/service/journal"
	"github.com/tinoosan/shopledger/internal/storage/memory"
)

type fixture struct {
	store   *memory.Store
	journal journal.Service
	reports Service
	seq     int
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	_, err := account.New(store, config.DefaultRoles()).SeedDefaults(context.Background())
	require.NoError(t, err)
	return &fixture{
		store:   store,
		journal: journal.New(store, "USD", logging.Discard()),
		reports: New(store, config.DefaultRoles(), logging.Discard()),
	}
}

type leg struct {
	code  string
	side  ledger.Side
	units int64
}

func (f *fixture) post(t *testing.T, date time.Time, legs ...leg) string {
	t.Helper()
	f.seq++
	no := fmt.Sprintf("JRN-%d-%06d", date.Year(), f.seq)
	req := journal.PostRequest{TransactionNo: no, Description: "test", Date: date}
	for _, l := range legs {
		req.Entries = append(req.Entries, journal.EntryInput{AccountCode: l.code, Side: l.side, Amount: ledger.MustAmount("USD", l.units)})
	}
	_, err := f.journal.Post(context.Background(), req)
	require.NoError(t, err)
	return no
}

func dr(code string, units int64) leg { return leg{code, ledger.SideDebit, units} }
func cr(code string, units int64) leg { return leg{code, ledger.SideCredit, units} }

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func ptr(t time.Time) *time.Time { return &t }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func usd(units int64) money.Amount { return ledger.MustAmount("USD", units) }

func (f *fixture) recorder() events.Service {
	return events.New(f.store, config.DefaultRoles(), "USD", logging.Discard())
}

func (f *fixture) setNow(t time.Time) { f.reports.(*service).now = func() time.Time { return t } }

func TestTrialBalanceBalancesAcrossPostings(t *testing.T) {
	f := setup(t)
	f.post(t, date(2024, 5, 2), dr("1000", 100_00), cr("4000", 100_00), dr("5000", 60_00), cr("1200", 60_00))
	f.post(t, date(2024, 5, 3), dr("1100", 250_00), cr("4000", 250_00))
	f.post(t, date(2024, 5, 4), dr("5110", 80_00), cr("1010", 80_00))

	tb, err := f.reports.TrialBalance(context.Background(), rollup.Period{Start: ptr(date(2024, 5, 1)), End: ptr(date(2024, 5, 31))})
	require.NoError(t, err)
	assert.True(t, tb.IsBalanced)
	assert.True(t, tb.Totals.ClosingDebit.Equal(tb.Totals.ClosingCredit))
	assert.True(t, dec("490").Equal(tb.Totals.MovementDebit))
	assert.True(t, tb.Totals.MovementDebit.Equal(tb.Totals.MovementCredit))

	require.Len(t, tb.Groups, 5)
	assert.Equal(t, ledger.AccountTypeAsset, tb.Groups[0].Type)
	assert.Equal(t, ledger.AccountTypeExpense, tb.Groups[4].Type)
	revenue := tb.Groups[3]
	assert.True(t, dec("350").Equal(revenue.Subtotal.ClosingCredit))
	assert.True(t, revenue.Subtotal.ClosingDebit.IsZero())

	var opex *TrialBalanceLine
	for i, l := range tb.Groups[4].Accounts {
		if l.Code == "5100" {
			opex = &tb.Groups[4].Accounts[i]
		}
	}
	require.NotNil(t, opex)
	assert.True(t, dec("80").Equal(opex.ClosingDebit))
	assert.Len(t, opex.Children, 3)
}

func TestTrialBalanceRejectsInvertedPeriod(t *testing.T) {
	f := setup(t)
	_, err := f.reports.TrialBalance(context.Background(), rollup.Period{Start: ptr(date(2024, 6, 1)), End: ptr(date(2024, 5, 1))})
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestReversalLeavesNoTraceInBalances(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	no := f.post(t, date(2024, 2, 10), dr("1100", 100_00), cr("4000", 100_00))

	balances, err := f.reports.ComputeBalances(ctx, rollup.Period{End: ptr(date(2024, 2, 10))})
	require.NoError(t, err)
	ar := balanceByCode(t, balances, "1100")
	assert.True(t, dec("100").Equal(ar.Closing))

	_, err = f.journal.Reverse(ctx, no, date(2024, 3, 1))
	require.NoError(t, err)

	for _, p := range []rollup.Period{
		{},
		{End: ptr(date(2024, 2, 28))},
		{Start: ptr(date(2024, 3, 1)), End: ptr(date(2024, 3, 31))},
	} {
		balances, err := f.reports.ComputeBalances(ctx, p)
		require.NoError(t, err)
		assert.True(t, balanceByCode(t, balances, "1100").Closing.IsZero())
		assert.True(t, balanceByCode(t, balances, "4000").Closing.IsZero())
	}
}

func balanceByCode(t *testing.T, m map[uuid.UUID]AccountBalance, code string) AccountBalance {
	t.Helper()
	for _, b := range m {
		if b.Code == code {
			return b
		}
	}
	t.Fatalf("no balance for %s", code)
	return AccountBalance{}
}

// Random balanced postings and reversals never break the accounting equation.
func TestAccountingEquationHolds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	codes := []string{"1000", "1010", "1100", "1200", "2100", "3000", "3100", "4000", "5000", "5110", "5120", "5130"}
	rng := rand.New(rand.NewSource(42))

	var posted []string
	for i := 0; i < 150; i++ {
		d := date(2023+rng.Intn(2), time.Month(rng.Intn(12)+1), rng.Intn(28)+1)
		a, b := codes[rng.Intn(len(codes))], codes[rng.Intn(len(codes))]
		units := rng.Int63n(1_000_00) + 1
		split := rng.Int63n(units) + 1
		legs := []leg{dr(a, split), cr(b, units)}
		if split < units {
			legs = append(legs, dr(codes[rng.Intn(len(codes))], units-split))
		}
		posted = append(posted, f.post(t, d, legs...))
		if rng.Intn(5) == 0 {
			_, err := f.journal.Reverse(ctx, posted[rng.Intn(len(posted))], d)
			if err != nil {
				require.ErrorIs(t, err, errs.ErrConflict)
			}
		}
	}

	for _, asOf := range []time.Time{date(2023, 6, 30), date(2023, 12, 31), date(2024, 12, 31)} {
		bs, err := f.reports.BalanceSheet(ctx, asOf)
		require.NoError(t, err)
		assert.True(t, bs.Summary.IsBalanced, "as of %s: discrepancy %s", asOf.Format(dateLayout), bs.Summary.Discrepancy)

		tb, err := f.reports.TrialBalance(ctx, rollup.Period{Start: ptr(date(2023, 3, 1)), End: &asOf})
		require.NoError(t, err)
		assert.True(t, tb.IsBalanced)
	}
}

func TestBalanceSheetCurrentEarnings(t *testing.T) {
	f := setup(t)
	f.post(t, date(2024, 1, 5), dr("1010", 1000_00), cr("3000", 1000_00))
	f.post(t, date(2024, 1, 6), dr("1000", 300_00), cr("4000", 300_00))
	f.post(t, date(2024, 1, 7), dr("5120", 50_00), cr("1000", 50_00))

	bs, err := f.reports.BalanceSheet(context.Background(), date(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", bs.AsOf)
	assert.True(t, dec("1250").Equal(bs.Summary.TotalAssets))
	assert.True(t, dec("1250").Equal(bs.Summary.TotalEquity))
	assert.True(t, bs.Summary.IsBalanced)

	equity := bs.Sections[2]
	require.Equal(t, ledger.AccountTypeEquity, equity.Type)
	var earnings *BalanceSheetSubtype
	for i := range equity.Subtypes {
		if equity.Subtypes[i].Subtype == CurrentEarningsSubtype {
			earnings = &equity.Subtypes[i]
		}
	}
	require.NotNil(t, earnings)
	assert.True(t, dec("250").Equal(earnings.Subtotal))
}

func TestProfitAndLossSeparatesCOGS(t *testing.T) {
	f := setup(t)
	f.post(t, date(2024, 3, 1), dr("1000", 500_00), cr("4000", 500_00), dr("5000", 200_00), cr("1200", 200_00))
	f.post(t, date(2024, 3, 2), dr("5110", 100_00), cr("1010", 100_00))
	f.post(t, date(2024, 2, 28), dr("5130", 999_00), cr("1010", 999_00))

	pl, err := f.reports.ProfitAndLoss(context.Background(), rollup.Period{Start: ptr(date(2024, 3, 1)), End: ptr(date(2024, 3, 31))})
	require.NoError(t, err)
	require.NotNil(t, pl.COGS)
	assert.Equal(t, "5000", pl.COGS.Code)
	assert.True(t, dec("500").Equal(pl.Totals.Revenue))
	assert.True(t, dec("200").Equal(pl.Totals.COGS))
	assert.True(t, dec("100").Equal(pl.Totals.Expenses))
	assert.True(t, dec("200").Equal(pl.Totals.NetProfit))
	for _, e := range pl.Expenses {
		assert.NotEqual(t, "5000", e.Code)
	}
}

func TestNestedCOGSIsExcludedFromExpenses(t *testing.T) {
	accounts := []ledger.Account{}
	store := memory.New()
	acc := account.New(store, config.DefaultRoles())
	ctx := context.Background()
	for _, s := range []account.Spec{
		{Code: "5000", Name: "Cost of sales"},
		{Code: "5010", Name: "Goods", ParentCode: "5000"},
		{Code: "5900", Name: "Direct costs"},
		{Code: "5910", Name: "COGS", ParentCode: "5900"},
		{Code: "5920", Name: "Freight", ParentCode: "5900"},
	} {
		a, err := acc.Create(ctx, s)
		require.NoError(t, err)
		accounts = append(accounts, a)
	}
	entries := []ledger.LedgerEntry{
		{AccountCode: "5910", Side: ledger.SideDebit, Amount: ledger.MustAmount("USD", 40_00), Date: date(2024, 1, 1), Status: ledger.StatusActive},
		{AccountCode: "5920", Side: ledger.SideDebit, Amount: ledger.MustAmount("USD", 10_00), Date: date(2024, 1, 1), Status: ledger.StatusActive},
	}
	tree, err := rollup.Compute(accounts, entries, rollup.Period{})
	require.NoError(t, err)

	pl := BuildProfitAndLoss(tree, "5910")
	require.NotNil(t, pl.COGS)
	assert.True(t, dec("40").Equal(pl.Totals.COGS))
	assert.True(t, dec("10").Equal(pl.Totals.Expenses))
	assert.True(t, dec("-50").Equal(pl.Totals.NetProfit))
	for _, e := range pl.Expenses {
		if e.Code == "5900" {
			assert.True(t, dec("10").Equal(e.Amount))
			assert.Len(t, e.Children, 1)
		}
	}
}

func TestPeriodicAndYTDProfitAndLoss(t *testing.T) {
	f := setup(t)
	f.post(t, date(2023, 12, 15), dr("1000", 100_00), cr("4000", 100_00))
	f.post(t, date(2024, 1, 10), dr("1000", 50_00), cr("4000", 50_00))
	f.post(t, date(2024, 2, 10), dr("1000", 70_00), cr("4000", 70_00), dr("5110", 20_00), cr("1000", 20_00))

	p := rollup.Period{Start: ptr(date(2023, 12, 1)), End: ptr(date(2024, 2, 29))}
	periodic, err := f.reports.PeriodicProfitAndLoss(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, periodic.Months, 3)
	assert.Equal(t, "2023-12", periodic.Months[0].Month)
	assert.Equal(t, "2024-02", periodic.Months[2].Month)
	assert.True(t, dec("50").Equal(periodic.Months[2].Totals.NetProfit))
	assert.Nil(t, periodic.Months[0].YTDProfit)

	ytd, err := f.reports.YTDProfitAndLoss(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, ytd.Months, 3)
	assert.True(t, dec("100").Equal(*ytd.Months[0].YTDProfit))
	assert.True(t, dec("50").Equal(*ytd.Months[1].YTDProfit), "resets in January")
	assert.True(t, dec("100").Equal(*ytd.Months[2].YTDProfit))
	require.Len(t, ytd.AnnualTotals, 2)
	assert.Equal(t, 2024, ytd.AnnualTotals[1].Year)
	assert.True(t, dec("120").Equal(ytd.AnnualTotals[1].Revenue))
	assert.True(t, dec("100").Equal(ytd.AnnualTotals[1].NetProfit))
}

func TestCashFlowClassification(t *testing.T) {
	f := setup(t)
	f.post(t, date(2024, 1, 2), dr("1010", 500_00), cr("3000", 500_00))
	f.post(t, date(2024, 2, 2), dr("1000", 200_00), cr("4000", 200_00))
	f.post(t, date(2024, 2, 3), dr("5110", 80_00), cr("1010", 80_00))

	cf, err := f.reports.CashFlow(context.Background(), rollup.Period{Start: ptr(date(2024, 2, 1)), End: ptr(date(2024, 2, 29))})
	require.NoError(t, err)

	types := map[string]ledger.AccountType{}
	for _, l := range cf.Inflows {
		types[l.Code] = l.Type
		assert.Contains(t, []ledger.AccountType{ledger.AccountTypeAsset, ledger.AccountTypeRevenue}, l.Type)
	}
	for _, l := range cf.Outflows {
		assert.NotContains(t, []ledger.AccountType{ledger.AccountTypeAsset, ledger.AccountTypeRevenue}, l.Type)
	}
	assert.Equal(t, ledger.AccountTypeRevenue, types["4000"])

	// assets +120, revenue -200 on the debit-positive scale
	assert.True(t, dec("-80").Equal(cf.Totals.Inflows.Movement))
	// expense +80 and equity 0, flipped
	assert.True(t, dec("-80").Equal(cf.Totals.Outflows.Movement))
	assert.True(t, cf.Totals.Net.Movement.IsZero())
	assert.True(t, dec("500").Equal(cf.Totals.Inflows.Opening))
}

func TestAgingBuckets(t *testing.T) {
	asOf := date(2024, 6, 30)
	tests := []struct {
		days int
		want string
	}{
		{0, Bucket0To30}, {30, Bucket0To30}, {31, Bucket31To60}, {60, Bucket31To60},
		{61, Bucket61To90}, {90, Bucket61To90}, {91, BucketOver90}, {400, BucketOver90},
	}
	for _, tt := range tests {
		d := asOf.AddDate(0, 0, -tt.days)
		assert.Equal(t, tt.days, DaysOutstanding(d, asOf))
		assert.Equal(t, tt.want, BucketFor(tt.days), "days=%d", tt.days)
	}
	assert.Equal(t, 0, DaysOutstanding(asOf.AddDate(0, 0, 3), asOf))
}

func TestBuildAgingPaginatesByCounterparty(t *testing.T) {
	asOf := date(2024, 6, 30)
	doc := func(cp, no string, daysAgo int, total, paid int64, status ledger.DocumentStatus) ledger.Document {
		return ledger.Document{
			Kind: ledger.DocumentSale, Number: no, Counterparty: cp,
			Date:  asOf.AddDate(0, 0, -daysAgo),
			Total: ledger.MustAmount("USD", total), Paid: ledger.MustAmount("USD", paid),
			Status: status,
		}
	}
	docs := []ledger.Document{
		doc("Cora", "INV-2024-000004", 45, 100_00, 0, ledger.DocumentCredit),
		doc("Ada", "INV-2024-000002", 10, 200_00, 50_00, ledger.DocumentPartial),
		doc("Ada", "INV-2024-000001", 95, 80_00, 0, ledger.DocumentCredit),
		doc("Bea", "INV-2024-000003", 5, 60_00, 60_00, ledger.DocumentPaid),
		doc("Dan", "INV-2024-000005", 70, 30_00, 0, ledger.DocumentVoid),
		doc("Eve", "INV-2024-000006", 61, 25_00, 0, ledger.DocumentCredit),
	}

	first := BuildAging(docs, asOf, 1, 2)
	assert.Equal(t, 3, first.TotalCounterparties)
	assert.Equal(t, 2, first.TotalPages)
	require.Len(t, first.Report, 2)
	assert.Equal(t, "Ada", first.Report[0].Name)
	assert.Equal(t, "Cora", first.Report[1].Name)

	ada := first.Report[0]
	assert.True(t, dec("230").Equal(ada.TotalBalance))
	require.Len(t, ada.Documents, 2)
	assert.Equal(t, "INV-2024-000001", ada.Documents[0].Number)
	assert.Equal(t, 95, ada.Documents[0].DaysOutstanding)
	assert.Equal(t, BucketOver90, ada.Documents[0].Bucket)
	assert.True(t, dec("150").Equal(ada.Buckets.Days0To30))

	assert.True(t, dec("150").Equal(first.Buckets.Days0To30))
	assert.True(t, dec("100").Equal(first.Buckets.Days31To60))
	assert.True(t, dec("25").Equal(first.Buckets.Days61To90))
	assert.True(t, dec("80").Equal(first.Buckets.Over90))

	second := BuildAging(docs, asOf, 2, 2)
	require.Len(t, second.Report, 1)
	assert.Equal(t, "Eve", second.Report[0].Name)

	empty := BuildAging(docs, asOf, 5, 0)
	assert.Equal(t, DefaultPageSize, empty.PageSize)
	assert.Empty(t, empty.Report)
}

func TestOpenEndedPeriodStopsAtNow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.setNow(time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC))
	f.post(t, date(2024, 5, 10), dr("1100", 100_00), cr("4000", 100_00))
	f.post(t, date(2024, 6, 15), dr("1100", 40_00), cr("4000", 40_00))

	balances, err := f.reports.ComputeBalances(ctx, rollup.Period{})
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(balanceByCode(t, balances, "1100").Closing))

	pl, err := f.reports.ProfitAndLoss(ctx, rollup.Period{Start: ptr(date(2024, 5, 1))})
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(pl.Totals.Revenue))

	balances, err = f.reports.ComputeBalances(ctx, rollup.Period{End: ptr(date(2024, 6, 30))})
	require.NoError(t, err)
	assert.True(t, dec("140").Equal(balanceByCode(t, balances, "1100").Closing))
}

func TestExpensesReport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ev := f.recorder()
	expense := func(d time.Time, payee, code string, units int64) string {
		r, err := ev.RecordExpense(ctx, events.Expense{
			Payee: payee, Date: d, PaymentAccount: "1000",
			Items: []events.ExpenseItem{{AccountCode: code, Amount: usd(units)}},
		})
		require.NoError(t, err)
		return r.TransactionNo
	}
	expense(date(2024, 5, 10), "Landlord", "5120", 40_00)
	expense(date(2024, 5, 3), "Power Co", "5110", 25_00)
	voided := expense(date(2024, 5, 12), "Power Co", "5110", 99_00)
	expense(date(2024, 6, 2), "Landlord", "5120", 40_00)
	_, err := ev.Void(ctx, ledger.DocumentExpense, voided, date(2024, 5, 13))
	require.NoError(t, err)
	f.post(t, date(2024, 5, 20), dr("5120", 10_00), cr("1010", 10_00))

	rep, err := f.reports.Expenses(ctx, rollup.Period{Start: ptr(date(2024, 5, 1)), End: ptr(date(2024, 5, 31))})
	require.NoError(t, err)
	require.Len(t, rep.Expenses, 2)
	assert.Equal(t, 2, rep.Count)
	assert.Equal(t, "Power Co", rep.Expenses[0].Payee)
	assert.Equal(t, "2024-05-03", rep.Expenses[0].Date)
	assert.Equal(t, "Landlord", rep.Expenses[1].Payee)
	assert.True(t, dec("65").Equal(rep.Total))
	assert.True(t, dec("75").Equal(rep.Ledger))
	require.Len(t, rep.ByAccount, 1)
	assert.Equal(t, "5100", rep.ByAccount[0].Code)

	_, err = f.reports.Expenses(ctx, rollup.Period{Start: ptr(date(2024, 6, 1)), End: ptr(date(2024, 5, 1))})
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestDashboard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ev := f.recorder()
	asOf := date(2024, 5, 7)

	f.post(t, date(2024, 4, 1), dr("1010", 500_00), cr("3000", 500_00))
	_, err := ev.ReceivePurchase(ctx, events.PurchaseOrder{
		Supplier: "Wholesale Ltd", Date: date(2024, 5, 2),
		Lines: []events.PurchaseLine{{Quantity: 10, UnitCost: usd(5_00)}},
	})
	require.NoError(t, err)
	_, err = ev.RecordExpense(ctx, events.Expense{
		Payee: "Power Co", Date: date(2024, 4, 20), PaymentAccount: "1000",
		Items: []events.ExpenseItem{{AccountCode: "5110", Amount: usd(25_00)}},
	})
	require.NoError(t, err)
	_, err = ev.RecordSale(ctx, events.Sale{
		Customer: "Ada", Date: date(2024, 5, 6),
		Lines: []events.SaleLine{{Quantity: 2, UnitPrice: usd(50_00), UnitCost: usd(20_00)}},
	})
	require.NoError(t, err)
	_, err = ev.RecordSale(ctx, events.Sale{
		Customer: "Walk-in", Date: date(2024, 5, 7),
		Lines:      []events.SaleLine{{Quantity: 1, UnitPrice: usd(30_00)}},
		AmountPaid: usd(30_00), PaymentAccount: "1000",
	})
	require.NoError(t, err)
	_, err = ev.RecordSale(ctx, events.Sale{
		Customer: "Bea", Date: date(2024, 5, 9),
		Lines: []events.SaleLine{{Quantity: 1, UnitPrice: usd(70_00)}},
	})
	require.NoError(t, err)

	d, err := f.reports.Dashboard(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-07", d.AsOf)
	assert.True(t, dec("130").Equal(d.TotalSales), d.TotalSales.String())
	assert.True(t, dec("40").Equal(d.TotalCOGS))
	assert.True(t, dec("25").Equal(d.TotalExpenses))
	assert.True(t, dec("65").Equal(d.NetProfit))
	assert.True(t, dec("505").Equal(d.CashAndBank))
	assert.True(t, dec("100").Equal(d.Receivables))
	assert.True(t, dec("50").Equal(d.Payables))
	assert.True(t, d.Receivables.Equal(d.OutstandingSales))
	assert.True(t, d.Payables.Equal(d.OutstandingPurchases))
	assert.Equal(t, DocumentCounts{Sales: 2, Expenses: 1, PurchaseOrders: 1, OpenSales: 1, OpenPurchases: 1}, d.Counts)

	require.Len(t, d.Days, DashboardDays)
	assert.Equal(t, "2024-05-01", d.Days[0].Date)
	assert.True(t, d.Days[0].Sales.IsZero())
	assert.Equal(t, "2024-05-06", d.Days[5].Date)
	assert.True(t, dec("100").Equal(d.Days[5].Sales))
	assert.True(t, dec("40").Equal(d.Days[5].Expenses))
	assert.True(t, dec("30").Equal(d.Days[6].Sales))
	assert.True(t, d.Days[6].Expenses.IsZero())
}
