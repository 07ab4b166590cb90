package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/rollup"
)

type ExpenseRow struct {
	Number string          `json:"number"`
	Payee  string          `json:"payee,omitempty"`
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// ExpensesReport lists the expense documents of a period next to the ledger's
// view of operating expenses by account. The two differ when manual journals
// hit expense accounts.
type ExpensesReport struct {
	Period    PeriodInfo      `json:"period"`
	Expenses  []ExpenseRow    `json:"expenses"`
	Count     int             `json:"count"`
	Total     decimal.Decimal `json:"total"`
	ByAccount []PLLine        `json:"by_account"`
	Ledger    decimal.Decimal `json:"ledger_total"`
}

// BuildExpensesReport orders docs by date then number. Void documents are skipped.
func BuildExpensesReport(tree *rollup.Tree, docs []ledger.Document, cogsCode string) ExpensesReport {
	pl := BuildProfitAndLoss(tree, cogsCode)
	out := ExpensesReport{
		Period:    pl.Period,
		Expenses:  []ExpenseRow{},
		ByAccount: pl.Expenses,
		Ledger:    pl.Totals.Expenses,
	}
	live := make([]ledger.Document, 0, len(docs))
	for _, d := range docs {
		if d.Kind == ledger.DocumentExpense && d.Status != ledger.DocumentVoid {
			live = append(live, d)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		if !live[i].Date.Equal(live[j].Date) {
			return live[i].Date.Before(live[j].Date)
		}
		return live[i].Number < live[j].Number
	})
	for _, d := range live {
		amt := ledger.Decimal(d.Total)
		out.Expenses = append(out.Expenses, ExpenseRow{Number: d.Number, Payee: d.Counterparty, Date: d.Date.Format(dateLayout), Amount: amt})
		out.Total = out.Total.Add(amt)
	}
	out.Count = len(out.Expenses)
	return out
}
