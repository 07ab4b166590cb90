package dictionary

import (
	"regexp"
	"strings"

	"github.com/tinoosan/shopledger/internal/ledger"
)

// SubtypeDef describes a curated account subtype.
type SubtypeDef struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	// Liquid subtypes are offered as payment accounts.
	Liquid bool `json:"liquid"`
}

var curated = map[ledger.AccountType][]SubtypeDef{
	ledger.AccountTypeAsset: {
		{Code: "cash", Label: "Cash", Liquid: true},
		{Code: "bank", Label: "Bank", Liquid: true},
		{Code: "receivable", Label: "Accounts Receivable"},
		{Code: "inventory", Label: "Inventory"},
		{Code: "fixed_asset", Label: "Fixed Asset"},
		{Code: "other_asset", Label: "Other Asset"},
	},
	ledger.AccountTypeLiability: {
		{Code: "payable", Label: "Accounts Payable"},
		{Code: "loan", Label: "Loan"},
		{Code: "tax", Label: "Tax Payable"},
		{Code: "other_liability", Label: "Other Liability"},
	},
	ledger.AccountTypeEquity: {
		{Code: "owner_equity", Label: "Owner Equity"},
		{Code: "retained_earnings", Label: "Retained Earnings"},
	},
	ledger.AccountTypeRevenue: {
		{Code: "sales", Label: "Sales"},
		{Code: "other_income", Label: "Other Income"},
	},
	ledger.AccountTypeExpense: {
		{Code: "cogs", Label: "Cost of Goods Sold"},
		{Code: "operating", Label: "Operating Expense"},
		{Code: "payroll", Label: "Payroll"},
		{Code: "general", Label: "General"},
	},
}

var reSubtype = regexp.MustCompile(`^[a-z0-9_]{2,40}$`)

// Normalize lowercases s and folds runs of other characters into a single '_'.
func Normalize(s string) string {
	out := make([]rune, 0, len(s))
	prevUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !ok {
			if !prevUnderscore {
				out = append(out, '_')
				prevUnderscore = true
			}
			continue
		}
		prevUnderscore = false
		out = append(out, r)
		if len(out) >= 40 {
			break
		}
	}
	return strings.Trim(string(out), "_")
}

// IsValid reports whether s is a well-formed subtype slug. Custom subtypes are allowed.
func IsValid(s string) bool { return reSubtype.MatchString(s) }

// IsLiquid reports whether subtype code denotes a cash or bank account.
func IsLiquid(code string) bool {
	for _, d := range curated[ledger.AccountTypeAsset] {
		if d.Code == code {
			return d.Liquid
		}
	}
	return false
}

// SubtypesFor returns curated subtypes for t, or all of them when t is nil.
func SubtypesFor(t *ledger.AccountType) []SubtypeDef {
	if t == nil {
		out := make([]SubtypeDef, 0)
		for _, typ := range ledger.AccountTypes {
			out = append(out, curated[typ]...)
		}
		return out
	}
	return curated[*t]
}
