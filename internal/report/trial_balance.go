package report

import (
	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/rollup"
)

// Columns are the six trial balance figures. Opening and movement keep their raw
// side sums; closing is split by sign into one column.
type Columns struct {
	OpeningDebit   decimal.Decimal `json:"opening_debit"`
	OpeningCredit  decimal.Decimal `json:"opening_credit"`
	MovementDebit  decimal.Decimal `json:"movement_debit"`
	MovementCredit decimal.Decimal `json:"movement_credit"`
	ClosingDebit   decimal.Decimal `json:"closing_debit"`
	ClosingCredit  decimal.Decimal `json:"closing_credit"`
}

func columnsOf(b rollup.Balance) Columns {
	c := Columns{
		OpeningDebit:   b.OpeningDebit,
		OpeningCredit:  b.OpeningCredit,
		MovementDebit:  b.MovementDebit,
		MovementCredit: b.MovementCredit,
	}
	closing := b.Closing()
	if closing.IsPositive() {
		c.ClosingDebit = closing
	} else {
		c.ClosingCredit = closing.Neg()
	}
	return c
}

func (c Columns) add(o Columns) Columns {
	return Columns{
		OpeningDebit:   c.OpeningDebit.Add(o.OpeningDebit),
		OpeningCredit:  c.OpeningCredit.Add(o.OpeningCredit),
		MovementDebit:  c.MovementDebit.Add(o.MovementDebit),
		MovementCredit: c.MovementCredit.Add(o.MovementCredit),
		ClosingDebit:   c.ClosingDebit.Add(o.ClosingDebit),
		ClosingCredit:  c.ClosingCredit.Add(o.ClosingCredit),
	}
}

type TrialBalanceLine struct {
	Code string             `json:"code"`
	Name string             `json:"name"`
	Type ledger.AccountType `json:"type"`
	Columns
	Children []TrialBalanceLine `json:"children,omitempty"`
}

type TrialBalanceGroup struct {
	Type     ledger.AccountType `json:"type"`
	Accounts []TrialBalanceLine `json:"accounts"`
	Subtotal Columns            `json:"subtotal"`
}

type TrialBalance struct {
	Period     PeriodInfo          `json:"period"`
	Groups     []TrialBalanceGroup `json:"groups"`
	Totals     Columns             `json:"totals"`
	IsBalanced bool                `json:"is_balanced"`
}

// BuildTrialBalance groups root accounts by type in chart order with subtotals and grand totals.
func BuildTrialBalance(tree *rollup.Tree) TrialBalance {
	byType := make(map[ledger.AccountType]*TrialBalanceGroup)
	for _, r := range tree.Roots() {
		g, ok := byType[r.Account.Type]
		if !ok {
			g = &TrialBalanceGroup{Type: r.Account.Type, Accounts: []TrialBalanceLine{}}
			byType[r.Account.Type] = g
		}
		line := trialBalanceLine(r)
		g.Accounts = append(g.Accounts, line)
		g.Subtotal = g.Subtotal.add(line.Columns)
	}

	tb := TrialBalance{Period: periodInfo(tree.Period), Groups: []TrialBalanceGroup{}}
	for _, t := range ledger.AccountTypes {
		g, ok := byType[t]
		if !ok {
			continue
		}
		tb.Groups = append(tb.Groups, *g)
		tb.Totals = tb.Totals.add(g.Subtotal)
	}
	tb.IsBalanced = tb.Totals.MovementDebit.Equal(tb.Totals.MovementCredit) &&
		tb.Totals.ClosingDebit.Equal(tb.Totals.ClosingCredit)
	return tb
}

func trialBalanceLine(n *rollup.Node) TrialBalanceLine {
	line := TrialBalanceLine{
		Code:    n.Account.Code,
		Name:    n.Account.Name,
		Type:    n.Account.Type,
		Columns: columnsOf(n.Total),
	}
	for _, c := range n.Children() {
		line.Children = append(line.Children, trialBalanceLine(c))
	}
	return line
}
