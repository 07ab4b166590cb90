package numbering

import (
	"context"
	"regexp"
	"time"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
)

// Prefixes used by business events.
const (
	PrefixSale            = "INV"
	PrefixCustomerPayment = "CREDIT-PAY"
	PrefixExpense         = "EXP"
	PrefixPurchaseOrder   = "PO"
	PrefixSupplierPayment = "SUPP-PAY"
	PrefixJournal         = "JRN"
)

var rePrefix = regexp.MustCompile(`^[A-Z]+(-[A-Z]+)*$`)

// Sequencer is the atomic counter a store provides.
type Sequencer interface {
	NextSequence(ctx context.Context, prefix string, period int) (int64, error)
}

// Next reserves the next number for prefix in the calendar year of date.
// Called with a storage transaction, the reservation commits or rolls back with it.
func Next(ctx context.Context, seq Sequencer, prefix string, date time.Time) (ledger.TransactionNumber, error) {
	if !rePrefix.MatchString(prefix) {
		return ledger.TransactionNumber{}, errs.Invalid("prefix", "must be uppercase letters separated by dashes")
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}
	period := date.Year()
	n, err := seq.NextSequence(ctx, prefix, period)
	if err != nil {
		return ledger.TransactionNumber{}, err
	}
	return ledger.TransactionNumber{
		Prefix:  prefix,
		Period:  period,
		Seq:     n,
		Display: ledger.FormatTransactionNo(prefix, period, n),
	}, nil
}
