package account

import "github.com/tinoosan/shopledger/internal/ledger"

// DefaultChart is the standard retail chart. Its codes match config.DefaultRoles.
func DefaultChart() []Spec {
	return []Spec{
		{Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Subtype: "cash"},
		{Code: "1010", Name: "Bank", Type: ledger.AccountTypeAsset, Subtype: "bank"},
		{Code: "1100", Name: "Accounts Receivable", Type: ledger.AccountTypeAsset, Subtype: "receivable"},
		{Code: "1200", Name: "Inventory", Type: ledger.AccountTypeAsset, Subtype: "inventory"},
		{Code: "2100", Name: "Accounts Payable", Type: ledger.AccountTypeLiability, Subtype: "payable"},
		{Code: "3000", Name: "Owner Equity", Type: ledger.AccountTypeEquity, Subtype: "owner_equity"},
		{Code: "3100", Name: "Retained Earnings", Type: ledger.AccountTypeEquity, Subtype: "retained_earnings"},
		{Code: "4000", Name: "Sales Revenue", Type: ledger.AccountTypeRevenue, Subtype: "sales"},
		{Code: "5000", Name: "Cost of Goods Sold", Type: ledger.AccountTypeExpense, Subtype: "cogs"},
		{Code: "5100", Name: "Operating Expenses", Type: ledger.AccountTypeExpense, Subtype: "operating"},
		{Code: "5110", Name: "Rent", Type: ledger.AccountTypeExpense, Subtype: "operating", ParentCode: "5100"},
		{Code: "5120", Name: "Utilities", Type: ledger.AccountTypeExpense, Subtype: "operating", ParentCode: "5100"},
		{Code: "5130", Name: "Salaries", Type: ledger.AccountTypeExpense, Subtype: "payroll", ParentCode: "5100"},
	}
}
