package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/rollup"
)

// CurrentEarningsSubtype holds the unclosed profit line in the equity section.
const CurrentEarningsSubtype = "current_earnings"

type BalanceSheetLine struct {
	Code    string          `json:"code,omitempty"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

type BalanceSheetSubtype struct {
	Subtype  string             `json:"subtype"`
	Accounts []BalanceSheetLine `json:"accounts"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

type BalanceSheetSection struct {
	Type     ledger.AccountType    `json:"type"`
	Subtypes []BalanceSheetSubtype `json:"subtypes"`
	Total    decimal.Decimal       `json:"total"`
}

type BalanceSheetSummary struct {
	TotalAssets            decimal.Decimal `json:"total_assets"`
	TotalLiabilities       decimal.Decimal `json:"total_liabilities"`
	TotalEquity            decimal.Decimal `json:"total_equity"`
	TotalLiabilitiesEquity decimal.Decimal `json:"total_liabilities_equity"`
	Discrepancy            decimal.Decimal `json:"discrepancy"`
	IsBalanced             bool            `json:"is_balanced"`
}

type BalanceSheet struct {
	AsOf     string                `json:"as_of"`
	Sections []BalanceSheetSection `json:"sections"`
	Summary  BalanceSheetSummary   `json:"summary"`
}

// BuildBalanceSheet lists every asset, liability and equity account by subtype with
// its own closing balance on its normal side. Revenue less expenses to date is shown
// as a Current Earnings equity line.
func BuildBalanceSheet(tree *rollup.Tree, asOf time.Time) BalanceSheet {
	sections := map[ledger.AccountType]map[string][]BalanceSheetLine{
		ledger.AccountTypeAsset:     {},
		ledger.AccountTypeLiability: {},
		ledger.AccountTypeEquity:    {},
	}
	earnings := decimal.Zero
	tree.Walk(func(n *rollup.Node) bool {
		a := n.Account
		closing := a.Type.Signed(n.Own.Closing(), decimal.Zero)
		switch a.Type {
		case ledger.AccountTypeRevenue, ledger.AccountTypeExpense:
			earnings = earnings.Sub(n.Own.Closing())
			return true
		}
		subs, ok := sections[a.Type]
		if !ok {
			return true
		}
		st := a.Subtype
		if st == "" {
			st = "uncategorized"
		}
		subs[st] = append(subs[st], BalanceSheetLine{Code: a.Code, Name: a.Name, Balance: closing})
		return true
	})
	sections[ledger.AccountTypeEquity][CurrentEarningsSubtype] = []BalanceSheetLine{{Name: "Current Earnings", Balance: earnings}}

	bs := BalanceSheet{AsOf: asOf.Format(dateLayout)}
	totals := make(map[ledger.AccountType]decimal.Decimal, 3)
	for _, t := range []ledger.AccountType{ledger.AccountTypeAsset, ledger.AccountTypeLiability, ledger.AccountTypeEquity} {
		sec := BalanceSheetSection{Type: t, Subtypes: []BalanceSheetSubtype{}}
		names := make([]string, 0, len(sections[t]))
		for st := range sections[t] {
			names = append(names, st)
		}
		sort.Strings(names)
		for _, st := range names {
			sub := BalanceSheetSubtype{Subtype: st, Accounts: sections[t][st]}
			for _, l := range sub.Accounts {
				sub.Subtotal = sub.Subtotal.Add(l.Balance)
			}
			sec.Total = sec.Total.Add(sub.Subtotal)
			sec.Subtypes = append(sec.Subtypes, sub)
		}
		totals[t] = sec.Total
		bs.Sections = append(bs.Sections, sec)
	}

	s := &bs.Summary
	s.TotalAssets = totals[ledger.AccountTypeAsset]
	s.TotalLiabilities = totals[ledger.AccountTypeLiability]
	s.TotalEquity = totals[ledger.AccountTypeEquity]
	s.TotalLiabilitiesEquity = s.TotalLiabilities.Add(s.TotalEquity)
	s.Discrepancy = s.TotalAssets.Sub(s.TotalLiabilitiesEquity)
	s.IsBalanced = s.Discrepancy.IsZero()
	return bs
}
