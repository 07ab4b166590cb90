package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/config"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/rollup"
)

// DashboardDays is how many trailing days the dashboard charts, as-of day included.
const DashboardDays = 7

type DayFigures struct {
	Date     string          `json:"date"`
	Sales    decimal.Decimal `json:"sales"`
	Expenses decimal.Decimal `json:"expenses"`
}

type DocumentCounts struct {
	Sales          int `json:"sales"`
	Expenses       int `json:"expenses"`
	PurchaseOrders int `json:"purchase_orders"`
	OpenSales      int `json:"open_sales"`
	OpenPurchases  int `json:"open_purchase_orders"`
}

// Dashboard summarises the ledger up to AsOf. Sales, COGS and expenses are
// all-time movements; balances are closings on the role accounts. Outstanding
// figures come from open documents and should agree with the role balances
// when nothing else was journaled to them.
type Dashboard struct {
	AsOf                 string          `json:"as_of"`
	TotalSales           decimal.Decimal `json:"total_sales"`
	TotalCOGS            decimal.Decimal `json:"total_cogs"`
	TotalExpenses        decimal.Decimal `json:"total_expenses"`
	NetProfit            decimal.Decimal `json:"net_profit"`
	CashAndBank          decimal.Decimal `json:"cash_and_bank"`
	Receivables          decimal.Decimal `json:"receivables"`
	Payables             decimal.Decimal `json:"payables"`
	OutstandingSales     decimal.Decimal `json:"outstanding_sales"`
	OutstandingPurchases decimal.Decimal `json:"outstanding_purchase_orders"`
	Counts               DocumentCounts  `json:"counts"`
	Days                 []DayFigures    `json:"last_days"`
}

// BuildDashboard reads totals from tree, one DayFigures per entry of days, and
// counts from docs. Void documents are ignored.
func BuildDashboard(tree *rollup.Tree, days []*rollup.Tree, docs []ledger.Document, roles config.Roles, asOf time.Time) Dashboard {
	pl := BuildProfitAndLoss(tree, roles.Code(config.RoleCOGS))
	out := Dashboard{
		AsOf:          asOf.Format(dateLayout),
		TotalSales:    pl.Totals.Revenue,
		TotalCOGS:     pl.Totals.COGS,
		TotalExpenses: pl.Totals.Expenses,
		NetProfit:     pl.Totals.NetProfit,
		CashAndBank:   closing(tree, roles.Code(config.RoleCash)).Add(closing(tree, roles.Code(config.RoleBank))),
		Receivables:   closing(tree, roles.Code(config.RoleReceivable)),
		Payables:      closing(tree, roles.Code(config.RolePayable)),
		Days:          make([]DayFigures, 0, len(days)),
	}
	for _, d := range docs {
		if d.Status == ledger.DocumentVoid || d.Date.After(endOfDay(asOf)) {
			continue
		}
		balance := ledger.Decimal(d.Total).Sub(ledger.Decimal(d.Paid))
		switch d.Kind {
		case ledger.DocumentSale:
			out.Counts.Sales++
			if d.Open() {
				out.Counts.OpenSales++
				out.OutstandingSales = out.OutstandingSales.Add(balance)
			}
		case ledger.DocumentPurchase:
			out.Counts.PurchaseOrders++
			if d.Open() {
				out.Counts.OpenPurchases++
				out.OutstandingPurchases = out.OutstandingPurchases.Add(balance)
			}
		case ledger.DocumentExpense:
			out.Counts.Expenses++
		}
	}
	for _, t := range days {
		day := BuildProfitAndLoss(t, roles.Code(config.RoleCOGS))
		var date string
		if t.Period.Start != nil {
			date = t.Period.Start.Format(dateLayout)
		}
		out.Days = append(out.Days, DayFigures{
			Date:     date,
			Sales:    day.Totals.Revenue,
			Expenses: day.Totals.COGS.Add(day.Totals.Expenses),
		})
	}
	return out
}

// closing is the account's closing balance on its normal side, zero when unbound.
func closing(tree *rollup.Tree, code string) decimal.Decimal {
	n, ok := tree.Node(code)
	if !ok {
		return decimal.Zero
	}
	b := n.Total
	return n.Account.Type.Signed(b.OpeningDebit.Add(b.MovementDebit), b.OpeningCredit.Add(b.MovementCredit))
}

// trailingDays lists the n single-day periods ending on asOf, oldest first.
func trailingDays(asOf time.Time, n int) []rollup.Period {
	end := startOfDay(asOf)
	out := make([]rollup.Period, 0, n)
	for i := n - 1; i >= 0; i-- {
		d := end.AddDate(0, 0, -i)
		out = append(out, rollup.Period{Start: &d, End: &d})
	}
	return out
}
