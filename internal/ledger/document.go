package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// DocumentKind distinguishes customer invoices from supplier purchase orders.
type DocumentKind string

const (
	DocumentSale     DocumentKind = "sale"
	DocumentPurchase DocumentKind = "purchase"
	DocumentExpense  DocumentKind = "expense"
)

// DocumentStatus tracks settlement of a document.
type DocumentStatus int

const (
	DocumentPaid    DocumentStatus = 1
	DocumentCredit  DocumentStatus = 3
	DocumentPartial DocumentStatus = 4
	DocumentVoid    DocumentStatus = 9
)

// SettlementStatus derives paid/partial/credit from the paid share of total.
func SettlementStatus(totalMinor, paidMinor int64) DocumentStatus {
	switch {
	case paidMinor <= 0:
		return DocumentCredit
	case paidMinor < totalMinor:
		return DocumentPartial
	default:
		return DocumentPaid
	}
}

// Document is the header of a business event: a sale, a purchase order or an expense.
// Payment transaction numbers are kept so a void can reverse them too.
type Document struct {
	ID             uuid.UUID
	Kind           DocumentKind
	Number         string
	Counterparty   string
	Date           time.Time
	Total          money.Amount
	Paid           money.Amount
	Status         DocumentStatus
	PaymentNumbers []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BalanceMinor returns total minus paid in minor units.
func (d Document) BalanceMinor() int64 { return MinorUnits(d.Total) - MinorUnits(d.Paid) }

// Open reports whether the document still carries an outstanding balance.
func (d Document) Open() bool { return d.Status != DocumentVoid && d.BalanceMinor() > 0 }
