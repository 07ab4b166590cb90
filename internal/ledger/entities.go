package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/errs"
)

// Side represents the accounting position of a ledger entry.
type Side string

const (
	// SideDebit records a value on the debit side of an account.
	SideDebit Side = "debit"
	// SideCredit records a value on the credit side of an account.
	SideCredit Side = "credit"
)

// Valid reports whether s is debit or credit.
func (s Side) Valid() bool { return s == SideDebit || s == SideCredit }

// Opposite swaps debit and credit.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// ParseSide accepts "debit"/"credit" in any case.
func ParseSide(s string) (Side, error) {
	side := Side(strings.ToLower(strings.TrimSpace(s)))
	if !side.Valid() {
		return "", errs.Invalid("side", "must be debit or credit")
	}
	return side, nil
}

// AccountType enumerates the broad classification of an account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// AccountTypes lists the types in chart order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

type typeInfo struct {
	prefix byte
	normal Side
}

// typeTable is the single source for code prefixes and normal balance sides.
var typeTable = map[AccountType]typeInfo{
	AccountTypeAsset:     {prefix: '1', normal: SideDebit},
	AccountTypeLiability: {prefix: '2', normal: SideCredit},
	AccountTypeEquity:    {prefix: '3', normal: SideCredit},
	AccountTypeRevenue:   {prefix: '4', normal: SideCredit},
	AccountTypeExpense:   {prefix: '5', normal: SideDebit},
}

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

// NormalBalance returns the side on which balances of this type increase.
// Unknown types are treated as debit-normal.
func (t AccountType) NormalBalance() Side {
	if info, ok := typeTable[t]; ok {
		return info.normal
	}
	return SideDebit
}

// CodePrefix returns the leading code digit for the type, or 0 if unknown.
func (t AccountType) CodePrefix() byte { return typeTable[t].prefix }

// Signed orients a debit/credit pair to the type's normal balance side.
func (t AccountType) Signed(debit, credit decimal.Decimal) decimal.Decimal {
	if t.NormalBalance() == SideCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// ParseAccountType accepts type names in any case.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errs.Invalid("type", "must be one of ASSET, LIABILITY, EQUITY, REVENUE, EXPENSE")
	}
	return t, nil
}

// TypeForCode derives the account type from the leading digit of code.
func TypeForCode(code string) (AccountType, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", errs.Invalid("code", "required")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", errs.Invalid("code", "must be numeric")
		}
	}
	for _, t := range AccountTypes {
		if typeTable[t].prefix == code[0] {
			return t, nil
		}
	}
	return "", errs.Invalid("code", "leading digit must be 1-5")
}

// Status is the lifecycle marker shared by accounts and ledger entries.
type Status int

const (
	StatusActive Status = 1
	// StatusVoid marks soft-deleted accounts and reversed ledger entries.
	StatusVoid Status = 9
)

// Account is a node in the chart of accounts.
type Account struct {
	ID          uuid.UUID
	Code        string
	Name        string
	Type        AccountType
	Subtype     string
	ParentID    *uuid.UUID
	Status      Status
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Active reports whether the account participates in postings and roll-ups.
func (a Account) Active() bool { return a.Status == StatusActive }

// ValidateCode checks that the code's leading digit matches the account type.
func (a Account) ValidateCode() error {
	t, err := TypeForCode(a.Code)
	if err != nil {
		return err
	}
	if t != a.Type {
		return errs.Invalid("code", "leading digit "+a.Code[:1]+" does not match type "+string(a.Type))
	}
	return nil
}
