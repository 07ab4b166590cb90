package report

import (
	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/rollup"
)

type CashFlowLine struct {
	Code     string             `json:"code"`
	Name     string             `json:"name"`
	Type     ledger.AccountType `json:"type"`
	Opening  decimal.Decimal    `json:"opening_balance"`
	Movement decimal.Decimal    `json:"movement"`
	Closing  decimal.Decimal    `json:"closing_balance"`
	Children []CashFlowLine     `json:"children,omitempty"`
}

type CashFlowTotals struct {
	Opening  decimal.Decimal `json:"opening_balance"`
	Movement decimal.Decimal `json:"movement"`
	Closing  decimal.Decimal `json:"closing_balance"`
}

func (t CashFlowTotals) add(l CashFlowLine) CashFlowTotals {
	return CashFlowTotals{
		Opening:  t.Opening.Add(l.Opening),
		Movement: t.Movement.Add(l.Movement),
		Closing:  t.Closing.Add(l.Closing),
	}
}

type CashFlow struct {
	Period   PeriodInfo     `json:"period"`
	Inflows  []CashFlowLine `json:"inflows"`
	Outflows []CashFlowLine `json:"outflows"`
	Totals   struct {
		Inflows  CashFlowTotals `json:"inflows"`
		Outflows CashFlowTotals `json:"outflows"`
		Net      CashFlowTotals `json:"net"`
	} `json:"totals"`
}

// inflow reports whether root accounts of type t are listed as inflows.
// Every other type, equity included, is an outflow.
func inflow(t ledger.AccountType) bool {
	return t == ledger.AccountTypeAsset || t == ledger.AccountTypeRevenue
}

// BuildCashFlow classifies root accounts into inflows and outflows. Figures are
// debit-positive; outflows are sign-flipped so they read as positive amounts.
func BuildCashFlow(tree *rollup.Tree) CashFlow {
	cf := CashFlow{Period: periodInfo(tree.Period), Inflows: []CashFlowLine{}, Outflows: []CashFlowLine{}}
	for _, r := range tree.Roots() {
		if inflow(r.Account.Type) {
			line := cashFlowLine(r, false)
			cf.Inflows = append(cf.Inflows, line)
			cf.Totals.Inflows = cf.Totals.Inflows.add(line)
			continue
		}
		line := cashFlowLine(r, true)
		cf.Outflows = append(cf.Outflows, line)
		cf.Totals.Outflows = cf.Totals.Outflows.add(line)
	}
	cf.Totals.Net = CashFlowTotals{
		Opening:  cf.Totals.Inflows.Opening.Sub(cf.Totals.Outflows.Opening),
		Movement: cf.Totals.Inflows.Movement.Sub(cf.Totals.Outflows.Movement),
		Closing:  cf.Totals.Inflows.Closing.Sub(cf.Totals.Outflows.Closing),
	}
	return cf
}

func cashFlowLine(n *rollup.Node, flip bool) CashFlowLine {
	line := CashFlowLine{
		Code:     n.Account.Code,
		Name:     n.Account.Name,
		Type:     n.Account.Type,
		Opening:  n.Total.Opening(),
		Movement: n.Total.Movement(),
		Closing:  n.Total.Closing(),
	}
	if flip {
		line.Opening = line.Opening.Neg()
		line.Movement = line.Movement.Neg()
		line.Closing = line.Closing.Neg()
	}
	for _, c := range n.Children() {
		line.Children = append(line.Children, cashFlowLine(c, flip))
	}
	return line
}
