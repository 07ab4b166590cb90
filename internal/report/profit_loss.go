package report

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/rollup"
)

// PLLine is a revenue or expense account with its period movement oriented to
// the account's normal side.
type PLLine struct {
	Code     string             `json:"code"`
	Name     string             `json:"name"`
	Type     ledger.AccountType `json:"type"`
	Subtype  string             `json:"subtype,omitempty"`
	Amount   decimal.Decimal    `json:"amount"`
	Children []PLLine           `json:"children,omitempty"`
}

type PLTotals struct {
	Revenue   decimal.Decimal `json:"total_revenue"`
	COGS      decimal.Decimal `json:"total_cogs"`
	Expenses  decimal.Decimal `json:"total_expenses"`
	NetProfit decimal.Decimal `json:"net_profit"`
}

func (t PLTotals) add(o PLTotals) PLTotals {
	return PLTotals{
		Revenue:   t.Revenue.Add(o.Revenue),
		COGS:      t.COGS.Add(o.COGS),
		Expenses:  t.Expenses.Add(o.Expenses),
		NetProfit: t.NetProfit.Add(o.NetProfit),
	}
}

// ProfitAndLoss lists revenue, then cost of goods sold, then other expenses.
type ProfitAndLoss struct {
	Period   PeriodInfo `json:"period"`
	Revenue  []PLLine   `json:"revenue"`
	COGS     *PLLine    `json:"cogs,omitempty"`
	Expenses []PLLine   `json:"expenses"`
	Totals   PLTotals   `json:"totals"`
}

// BuildProfitAndLoss reads period movement from tree. The cogs account and its
// subtree are reported on their own line and excluded from other expenses.
func BuildProfitAndLoss(tree *rollup.Tree, cogsCode string) ProfitAndLoss {
	pl := ProfitAndLoss{Period: periodInfo(tree.Period), Revenue: []PLLine{}, Expenses: []PLLine{}}

	var cogs *rollup.Node
	if n, ok := tree.Node(cogsCode); ok && n.Account.Type == ledger.AccountTypeExpense {
		cogs = n
		line := plLine(n, "")
		pl.COGS = &line
		pl.Totals.COGS = line.Amount
	}

	for _, r := range tree.Roots() {
		switch r.Account.Type {
		case ledger.AccountTypeRevenue:
			line := plLine(r, "")
			pl.Revenue = append(pl.Revenue, line)
			pl.Totals.Revenue = pl.Totals.Revenue.Add(line.Amount)
		case ledger.AccountTypeExpense:
			if cogs != nil && r == cogs {
				continue
			}
			exclude := ""
			if cogs != nil {
				exclude = cogs.Account.Code
			}
			line := plLine(r, exclude)
			pl.Expenses = append(pl.Expenses, line)
			pl.Totals.Expenses = pl.Totals.Expenses.Add(line.Amount)
		}
	}
	pl.Totals.NetProfit = pl.Totals.Revenue.Sub(pl.Totals.COGS).Sub(pl.Totals.Expenses)
	return pl
}

// plLine renders n and its children, leaving out the subtree rooted at exclude.
func plLine(n *rollup.Node, exclude string) PLLine {
	line := PLLine{
		Code:    n.Account.Code,
		Name:    n.Account.Name,
		Type:    n.Account.Type,
		Subtype: n.Account.Subtype,
		Amount:  movement(n),
	}
	for _, c := range n.Children() {
		if c.Account.Code == exclude {
			line.Amount = line.Amount.Sub(movement(c))
			continue
		}
		child := plLine(c, exclude)
		line.Amount = line.Amount.Sub(movement(c)).Add(child.Amount)
		line.Children = append(line.Children, child)
	}
	return line
}

func movement(n *rollup.Node) decimal.Decimal {
	return n.Account.Type.Signed(n.Total.MovementDebit, n.Total.MovementCredit)
}

// MonthlyProfitAndLoss is one calendar month of a periodic report.
type MonthlyProfitAndLoss struct {
	Month string `json:"month"`
	ProfitAndLoss
	YTDProfit *decimal.Decimal `json:"ytd_profit,omitempty"`
}

type PeriodicProfitAndLoss struct {
	Period PeriodInfo             `json:"period_filter"`
	Months []MonthlyProfitAndLoss `json:"months"`
}

// BuildPeriodicProfitAndLoss renders one profit and loss per monthly tree, in order.
func BuildPeriodicProfitAndLoss(period rollup.Period, monthly []*rollup.Tree, cogsCode string) PeriodicProfitAndLoss {
	out := PeriodicProfitAndLoss{Period: periodInfo(period), Months: []MonthlyProfitAndLoss{}}
	for _, t := range monthly {
		out.Months = append(out.Months, MonthlyProfitAndLoss{
			Month:         monthKey(*t.Period.Start),
			ProfitAndLoss: BuildProfitAndLoss(t, cogsCode),
		})
	}
	return out
}

type AnnualTotal struct {
	Year int `json:"year"`
	PLTotals
}

type YTDProfitAndLoss struct {
	PeriodicProfitAndLoss
	AnnualTotals []AnnualTotal `json:"annual_totals"`
}

// BuildYTDProfitAndLoss adds a running profit per month that restarts each
// calendar year, and per-year totals.
func BuildYTDProfitAndLoss(period rollup.Period, monthly []*rollup.Tree, cogsCode string) YTDProfitAndLoss {
	out := YTDProfitAndLoss{
		PeriodicProfitAndLoss: BuildPeriodicProfitAndLoss(period, monthly, cogsCode),
		AnnualTotals:          []AnnualTotal{},
	}
	var (
		year    int
		running decimal.Decimal
	)
	for i := range out.Months {
		m := &out.Months[i]
		y, _ := strconv.Atoi(m.Month[:4])
		if y != year || len(out.AnnualTotals) == 0 {
			year = y
			running = decimal.Zero
			out.AnnualTotals = append(out.AnnualTotals, AnnualTotal{Year: y})
		}
		running = running.Add(m.Totals.NetProfit)
		ytd := running
		m.YTDProfit = &ytd
		last := &out.AnnualTotals[len(out.AnnualTotals)-1]
		last.PLTotals = last.PLTotals.add(m.Totals)
	}
	return out
}
