package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gdecimal "github.com/govalues/decimal"
	"github.com/govalues/money"
	"github.com/shopspring/decimal"
)

// ErrAmountRange marks an amount, sum or product that does not fit in int64 minor units.
var ErrAmountRange = errors.New("amount out of range")

// LedgerEntry is one debit or credit row of the general ledger.
// Entries reference accounts by code.
type LedgerEntry struct {
	ID            uuid.UUID
	AccountCode   string
	Side          Side
	Amount        money.Amount
	Description   string
	Date          time.Time
	TransactionNo string
	Status        Status
	CreatedAt     time.Time
}

// Active reports whether the entry counts towards balances.
func (e LedgerEntry) Active() bool { return e.Status == StatusActive }

// Minor returns the amount in minor units of its currency.
func (e LedgerEntry) Minor() int64 { return MinorUnits(e.Amount) }

// MinorUnits returns a in minor units; amounts with more precision are truncated by the library.
func MinorUnits(a money.Amount) int64 {
	units, _ := a.MinorUnits()
	return units
}

// ExactMinorUnits is MinorUnits for untrusted input: it fails instead of truncating.
func ExactMinorUnits(a money.Amount) (int64, error) {
	units, ok := a.MinorUnits()
	if !ok {
		return 0, ErrAmountRange
	}
	return units, nil
}

// AddMulMinor returns acc + unit*qty in minor units of curr using checked decimal
// arithmetic, so an overflowing line or running total fails with ErrAmountRange.
func AddMulMinor(curr string, acc, unit, qty int64) (int64, error) {
	a, err := money.NewAmountFromMinorUnits(curr, acc)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAmountRange, err)
	}
	u, err := money.NewAmountFromMinorUnits(curr, unit)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAmountRange, err)
	}
	q, err := gdecimal.New(qty, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAmountRange, err)
	}
	sum, err := a.AddMul(u, q)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAmountRange, err)
	}
	return ExactMinorUnits(sum)
}

// AmountFromMinor builds an amount in curr from minor units.
func AmountFromMinor(curr string, units int64) (money.Amount, error) {
	return money.NewAmountFromMinorUnits(curr, units)
}

// MustAmount is AmountFromMinor for constants and tests.
func MustAmount(curr string, units int64) money.Amount {
	a, err := money.NewAmountFromMinorUnits(curr, units)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal converts a to a shopspring decimal in major units.
func Decimal(a money.Amount) decimal.Decimal {
	return decimal.New(MinorUnits(a), -int32(a.Curr().Scale()))
}

// TransactionNumber is a reserved, human-readable transaction identifier.
type TransactionNumber struct {
	Prefix  string
	Period  int
	Seq     int64
	Display string
}

// FormatTransactionNo renders {PREFIX}-{YEAR}-{seq} with a six digit zero-padded sequence.
func FormatTransactionNo(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%06d", prefix, year, seq)
}
