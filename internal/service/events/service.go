// Package events translates retail business events into balanced ledger postings.
//
// Every event runs in one storage transaction: reserve the number, write the
// document, post the entries. Account codes come from the role mapping.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/shopledger/internal/config"
	"github.com/tinoosan/shopledger/internal/dictionary"
	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/service/journal"
	"github.com/tinoosan/shopledger/internal/service/numbering"
	"github.com/tinoosan/shopledger/internal/storage"
)

// SaleLine is one product line of a sale. UnitCost may be zero when cost is not tracked.
type SaleLine struct {
	Quantity  int64
	UnitPrice money.Amount
	UnitCost  money.Amount
}

type Sale struct {
	Customer       string
	Date           time.Time
	Description    string
	Lines          []SaleLine
	AmountPaid     money.Amount
	PaymentAccount string
}

// Payment settles part or all of an open sale or purchase.
type Payment struct {
	Amount         money.Amount
	PaymentAccount string
	Date           time.Time
}

type ExpenseItem struct {
	AccountCode string
	Amount      money.Amount
	Description string
}

type Expense struct {
	Payee          string
	Date           time.Time
	Description    string
	Items          []ExpenseItem
	PaymentAccount string
}

type PurchaseLine struct {
	Quantity int64
	UnitCost money.Amount
}

// PurchaseOrder records goods received on credit.
type PurchaseOrder struct {
	Supplier    string
	Date        time.Time
	Description string
	Lines       []PurchaseLine
}

// JournalEntry is a manual posting; the JRN number is assigned on post.
type JournalEntry struct {
	Date        time.Time
	Description string
	Entries     []journal.EntryInput
}

// Receipt is what an event wrote.
type Receipt struct {
	TransactionNo string
	Document      *ledger.Document
	Entries       []ledger.LedgerEntry
}

// Revision is an edited document: the one it replaced, now void, and the
// receipt of the replacement posted under a new number.
type Revision struct {
	Replaced ledger.Document
	Receipt
}

// DocumentQuery narrows a document listing. Dates are inclusive.
type DocumentQuery struct {
	Start       *time.Time
	End         *time.Time
	Search      string
	IncludeVoid bool
}

type Service interface {
	RecordSale(ctx context.Context, s Sale) (Receipt, error)
	ReceivePayment(ctx context.Context, saleNumber string, p Payment) (Receipt, error)
	RecordExpense(ctx context.Context, e Expense) (Receipt, error)
	ReceivePurchase(ctx context.Context, po PurchaseOrder) (Receipt, error)
	PaySupplier(ctx context.Context, purchaseNumber string, p Payment) (Receipt, error)
	PostJournal(ctx context.Context, j JournalEntry) (Receipt, error)
	Void(ctx context.Context, kind ledger.DocumentKind, number string, at time.Time) (ledger.Document, error)

	// Revise* replace a document: its own posting is reversed, the document is
	// voided and the new version is posted under a fresh number in the same
	// transaction. Payments already made against it move to the replacement.
	ReviseSale(ctx context.Context, number string, s Sale) (Revision, error)
	ReviseExpense(ctx context.Context, number string, e Expense) (Revision, error)
	RevisePurchase(ctx context.Context, number string, po PurchaseOrder) (Revision, error)

	Document(ctx context.Context, kind ledger.DocumentKind, number string) (ledger.Document, error)
	Documents(ctx context.Context, kind ledger.DocumentKind, q DocumentQuery) ([]ledger.Document, error)
}

type service struct {
	store    storage.Store
	roles    config.Roles
	currency string
	log      *slog.Logger
	now      func() time.Time
}

func New(store storage.Store, roles config.Roles, currency string, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		store:    store,
		roles:    roles,
		currency: currency,
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// saleDraft is a validated sale ready to post.
type saleDraft struct {
	in                Sale
	total, cogs, paid int64
	date              time.Time
}

func (s *service) draftSale(in Sale) (saleDraft, error) {
	if len(in.Lines) == 0 {
		return saleDraft{}, errs.Invalid("lines", "at least one line is required")
	}
	d := saleDraft{in: in, date: s.dateOr(in.Date)}
	for i, l := range in.Lines {
		if l.Quantity <= 0 {
			return saleDraft{}, errs.Invalid(lineField(i, "quantity"), "must be > 0")
		}
		price, err := s.units(lineField(i, "unit_price"), l.UnitPrice, false)
		if err != nil {
			return saleDraft{}, err
		}
		cost, err := s.units(lineField(i, "unit_cost"), l.UnitCost, true)
		if err != nil {
			return saleDraft{}, err
		}
		if d.total, err = s.extend(lineField(i, "quantity"), d.total, price, l.Quantity); err != nil {
			return saleDraft{}, err
		}
		if d.cogs, err = s.extend(lineField(i, "quantity"), d.cogs, cost, l.Quantity); err != nil {
			return saleDraft{}, err
		}
	}
	var err error
	if d.paid, err = s.units("amount_paid", in.AmountPaid, true); err != nil {
		return saleDraft{}, err
	}
	if d.paid > d.total {
		return saleDraft{}, errs.Invalid("amount_paid", "exceeds sale total")
	}
	return d, nil
}

func (s *service) RecordSale(ctx context.Context, in Sale) (Receipt, error) {
	d, err := s.draftSale(in)
	if err != nil {
		return Receipt{}, err
	}
	var r Receipt
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		r, err = s.postSale(ctx, tx, d, carried{})
		return err
	})
	if err != nil {
		return Receipt{}, err
	}
	s.record("sale", r)
	return r, nil
}

// postSale writes the sale document and its posting. Payments carried over from
// a replaced sale count as paid but post nothing; they already cleared receivables.
func (s *service) postSale(ctx context.Context, tx storage.Tx, d saleDraft, prior carried) (Receipt, error) {
	if d.paid+prior.amount > d.total {
		return Receipt{}, errs.Invalid("lines", "sale total is below the amount already paid")
	}
	if d.paid > 0 {
		if err := checkPaymentAccount(ctx, tx, d.in.PaymentAccount); err != nil {
			return Receipt{}, err
		}
	}
	num, err := numbering.Next(ctx, tx, numbering.PrefixSale, d.date)
	if err != nil {
		return Receipt{}, err
	}
	var legs []journal.EntryInput
	switch {
	case d.paid >= d.total:
		legs = append(legs, s.leg(d.in.PaymentAccount, ledger.SideDebit, d.total))
	case d.paid > 0:
		legs = append(legs,
			s.leg(d.in.PaymentAccount, ledger.SideDebit, d.paid),
			s.leg(s.roles.Code(config.RoleReceivable), ledger.SideDebit, d.total-d.paid))
	default:
		legs = append(legs, s.leg(s.roles.Code(config.RoleReceivable), ledger.SideDebit, d.total))
	}
	legs = append(legs, s.leg(s.roles.Code(config.RoleSales), ledger.SideCredit, d.total))
	if d.cogs > 0 {
		legs = append(legs,
			s.leg(s.roles.Code(config.RoleCOGS), ledger.SideDebit, d.cogs),
			s.leg(s.roles.Code(config.RoleInventory), ledger.SideCredit, d.cogs))
	}

	doc := s.document(ledger.DocumentSale, num.Display, d.in.Customer, d.date, d.total, d.paid+prior.amount)
	doc.PaymentNumbers = prior.numbers
	return s.write(ctx, tx, doc, num.Display, describe(d.in.Description, "Sale "+num.Display), d.date, legs)
}

func (s *service) ReceivePayment(ctx context.Context, saleNumber string, p Payment) (Receipt, error) {
	return s.settle(ctx, ledger.DocumentSale, saleNumber, p)
}

func (s *service) PaySupplier(ctx context.Context, purchaseNumber string, p Payment) (Receipt, error) {
	return s.settle(ctx, ledger.DocumentPurchase, purchaseNumber, p)
}

// settle posts a payment against an open sale (Dr payment, Cr receivable) or
// purchase (Dr payable, Cr payment) and updates the document's paid amount.
func (s *service) settle(ctx context.Context, kind ledger.DocumentKind, number string, p Payment) (Receipt, error) {
	amount, err := s.units("amount", p.Amount, false)
	if err != nil {
		return Receipt{}, err
	}
	date := s.dateOr(p.Date)

	var r Receipt
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		doc, err := documentOf(ctx, tx, kind, number)
		if err != nil {
			return err
		}
		if doc.Status == ledger.DocumentVoid {
			return errs.Invalid("number", number+" is void")
		}
		if amount > doc.BalanceMinor() {
			return errs.Invalid("amount", "exceeds outstanding balance")
		}
		if err := checkPaymentAccount(ctx, tx, p.PaymentAccount); err != nil {
			return err
		}

		prefix, desc := numbering.PrefixCustomerPayment, "Payment for "+number
		legs := []journal.EntryInput{
			s.leg(p.PaymentAccount, ledger.SideDebit, amount),
			s.leg(s.roles.Code(config.RoleReceivable), ledger.SideCredit, amount),
		}
		if kind == ledger.DocumentPurchase {
			prefix, desc = numbering.PrefixSupplierPayment, "Supplier payment for "+number
			legs = []journal.EntryInput{
				s.leg(s.roles.Code(config.RolePayable), ledger.SideDebit, amount),
				s.leg(p.PaymentAccount, ledger.SideCredit, amount),
			}
		}
		num, err := numbering.Next(ctx, tx, prefix, date)
		if err != nil {
			return err
		}
		entries, err := journal.PostTx(ctx, tx, s.currency, journal.PostRequest{
			Entries: legs, TransactionNo: num.Display, Description: desc, Date: date,
		})
		if err != nil {
			return err
		}

		paid := ledger.MinorUnits(doc.Paid) + amount
		if doc.Paid, err = ledger.AmountFromMinor(s.currency, paid); err != nil {
			return err
		}
		doc.Status = ledger.SettlementStatus(ledger.MinorUnits(doc.Total), paid)
		doc.PaymentNumbers = append(doc.PaymentNumbers, num.Display)
		doc.UpdatedAt = s.now()
		if err := tx.UpdateDocument(ctx, doc); err != nil {
			return err
		}
		r = Receipt{TransactionNo: num.Display, Document: &doc, Entries: entries}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.record(string(kind)+"_payment", r)
	return r, nil
}

// expenseDraft is a validated expense ready to post.
type expenseDraft struct {
	in    Expense
	total int64
	legs  []journal.EntryInput
	date  time.Time
}

func (s *service) draftExpense(in Expense) (expenseDraft, error) {
	if len(in.Items) == 0 {
		return expenseDraft{}, errs.Invalid("items", "at least one item is required")
	}
	d := expenseDraft{in: in, date: s.dateOr(in.Date), legs: make([]journal.EntryInput, 0, len(in.Items)+1)}
	for i, it := range in.Items {
		units, err := s.units(itemField(i, "amount"), it.Amount, false)
		if err != nil {
			return expenseDraft{}, err
		}
		if strings.TrimSpace(it.AccountCode) == "" {
			return expenseDraft{}, errs.Invalid(itemField(i, "account_code"), "required")
		}
		if d.total, err = s.extend(itemField(i, "amount"), d.total, units, 1); err != nil {
			return expenseDraft{}, err
		}
		d.legs = append(d.legs, s.leg(it.AccountCode, ledger.SideDebit, units))
	}
	d.legs = append(d.legs, s.leg(in.PaymentAccount, ledger.SideCredit, d.total))
	return d, nil
}

func (s *service) RecordExpense(ctx context.Context, in Expense) (Receipt, error) {
	d, err := s.draftExpense(in)
	if err != nil {
		return Receipt{}, err
	}
	var r Receipt
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		r, err = s.postExpense(ctx, tx, d)
		return err
	})
	if err != nil {
		return Receipt{}, err
	}
	s.record("expense", r)
	return r, nil
}

func (s *service) postExpense(ctx context.Context, tx storage.Tx, d expenseDraft) (Receipt, error) {
	for i, it := range d.in.Items {
		a, err := tx.AccountByCode(ctx, it.AccountCode)
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return Receipt{}, err
		}
		if err == nil && a.Type != ledger.AccountTypeExpense {
			return Receipt{}, errs.Invalid(itemField(i, "account_code"), it.AccountCode+" is not an expense account")
		}
	}
	if err := checkPaymentAccount(ctx, tx, d.in.PaymentAccount); err != nil {
		return Receipt{}, err
	}
	num, err := numbering.Next(ctx, tx, numbering.PrefixExpense, d.date)
	if err != nil {
		return Receipt{}, err
	}
	doc := s.document(ledger.DocumentExpense, num.Display, d.in.Payee, d.date, d.total, d.total)
	return s.write(ctx, tx, doc, num.Display, describe(d.in.Description, "Expense "+num.Display), d.date, d.legs)
}

// purchaseDraft is a validated purchase order ready to post.
type purchaseDraft struct {
	in    PurchaseOrder
	total int64
	date  time.Time
}

func (s *service) draftPurchase(in PurchaseOrder) (purchaseDraft, error) {
	if len(in.Lines) == 0 {
		return purchaseDraft{}, errs.Invalid("lines", "at least one line is required")
	}
	d := purchaseDraft{in: in, date: s.dateOr(in.Date)}
	for i, l := range in.Lines {
		if l.Quantity <= 0 {
			return purchaseDraft{}, errs.Invalid(lineField(i, "quantity"), "must be > 0")
		}
		cost, err := s.units(lineField(i, "unit_cost"), l.UnitCost, false)
		if err != nil {
			return purchaseDraft{}, err
		}
		if d.total, err = s.extend(lineField(i, "quantity"), d.total, cost, l.Quantity); err != nil {
			return purchaseDraft{}, err
		}
	}
	return d, nil
}

func (s *service) ReceivePurchase(ctx context.Context, in PurchaseOrder) (Receipt, error) {
	d, err := s.draftPurchase(in)
	if err != nil {
		return Receipt{}, err
	}
	var r Receipt
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		r, err = s.postPurchase(ctx, tx, d, carried{})
		return err
	})
	if err != nil {
		return Receipt{}, err
	}
	s.record("purchase", r)
	return r, nil
}

func (s *service) postPurchase(ctx context.Context, tx storage.Tx, d purchaseDraft, prior carried) (Receipt, error) {
	if prior.amount > d.total {
		return Receipt{}, errs.Invalid("lines", "order total is below the amount already paid")
	}
	num, err := numbering.Next(ctx, tx, numbering.PrefixPurchaseOrder, d.date)
	if err != nil {
		return Receipt{}, err
	}
	legs := []journal.EntryInput{
		s.leg(s.roles.Code(config.RoleInventory), ledger.SideDebit, d.total),
		s.leg(s.roles.Code(config.RolePayable), ledger.SideCredit, d.total),
	}
	doc := s.document(ledger.DocumentPurchase, num.Display, d.in.Supplier, d.date, d.total, prior.amount)
	doc.PaymentNumbers = prior.numbers
	return s.write(ctx, tx, doc, num.Display, describe(d.in.Description, "Purchase "+num.Display), d.date, legs)
}

func (s *service) PostJournal(ctx context.Context, j JournalEntry) (Receipt, error) {
	date := s.dateOr(j.Date)
	var r Receipt
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		num, err := numbering.Next(ctx, tx, numbering.PrefixJournal, date)
		if err != nil {
			return err
		}
		entries, err := journal.PostTx(ctx, tx, s.currency, journal.PostRequest{
			Entries:       j.Entries,
			TransactionNo: num.Display,
			Description:   describe(j.Description, "Journal "+num.Display),
			Date:          date,
		})
		if err != nil {
			return err
		}
		r = Receipt{TransactionNo: num.Display, Entries: entries}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.record("journal", r)
	return r, nil
}

// Void marks the document void and reverses its own transaction and every payment
// made against it. Transactions that are already reversed are skipped.
func (s *service) Void(ctx context.Context, kind ledger.DocumentKind, number string, at time.Time) (ledger.Document, error) {
	at = s.dateOr(at)
	var (
		out      ledger.Document
		reversed []string
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		doc, err := documentOf(ctx, tx, kind, number)
		if err != nil {
			return err
		}
		if doc.Status == ledger.DocumentVoid {
			return fmt.Errorf("%w: %s is already void", errs.ErrConflict, doc.Number)
		}
		reversed = reversed[:0]
		for _, no := range append([]string{doc.Number}, doc.PaymentNumbers...) {
			_, err := journal.ReverseTx(ctx, tx, no, at)
			if errors.Is(err, errs.ErrConflict) {
				continue
			}
			if err != nil {
				return err
			}
			reversed = append(reversed, no)
		}
		out, err = s.retire(ctx, tx, doc)
		return err
	})
	if err != nil {
		return ledger.Document{}, err
	}
	for _, no := range reversed {
		journal.CountReversed(no)
	}
	eventsTotal.WithLabelValues("void_" + string(kind)).Inc()
	s.log.Info("document voided", "kind", kind, "number", number, "reversed", len(reversed))
	return out, nil
}

func (s *service) ReviseSale(ctx context.Context, number string, in Sale) (Revision, error) {
	d, err := s.draftSale(in)
	if err != nil {
		return Revision{}, err
	}
	return s.revise(ctx, ledger.DocumentSale, number, func(tx storage.Tx, prior carried) (Receipt, error) {
		return s.postSale(ctx, tx, d, prior)
	})
}

func (s *service) ReviseExpense(ctx context.Context, number string, in Expense) (Revision, error) {
	d, err := s.draftExpense(in)
	if err != nil {
		return Revision{}, err
	}
	return s.revise(ctx, ledger.DocumentExpense, number, func(tx storage.Tx, _ carried) (Receipt, error) {
		return s.postExpense(ctx, tx, d)
	})
}

func (s *service) RevisePurchase(ctx context.Context, number string, in PurchaseOrder) (Revision, error) {
	d, err := s.draftPurchase(in)
	if err != nil {
		return Revision{}, err
	}
	return s.revise(ctx, ledger.DocumentPurchase, number, func(tx storage.Tx, prior carried) (Receipt, error) {
		return s.postPurchase(ctx, tx, d, prior)
	})
}

// revise reverses the document's own posting, voids it and posts the
// replacement. Payments stay posted and are handed to post as carried.
func (s *service) revise(ctx context.Context, kind ledger.DocumentKind, number string, post func(storage.Tx, carried) (Receipt, error)) (Revision, error) {
	var rev Revision
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		doc, err := documentOf(ctx, tx, kind, number)
		if err != nil {
			return err
		}
		if doc.Status == ledger.DocumentVoid {
			return fmt.Errorf("%w: %s is void", errs.ErrConflict, doc.Number)
		}
		prior, err := carriedPayments(ctx, tx, doc)
		if err != nil {
			return err
		}
		if _, err := journal.ReverseTx(ctx, tx, doc.Number, s.now()); err != nil {
			return err
		}
		if rev.Replaced, err = s.retire(ctx, tx, doc); err != nil {
			return err
		}
		rev.Receipt, err = post(tx, prior)
		return err
	})
	if err != nil {
		return Revision{}, err
	}
	journal.CountReversed(rev.Replaced.Number)
	s.record(string(kind)+"_revision", rev.Receipt)
	s.log.Info("document revised", "kind", kind, "replaced", rev.Replaced.Number, "by", rev.TransactionNo)
	return rev, nil
}

func (s *service) Document(ctx context.Context, kind ledger.DocumentKind, number string) (ledger.Document, error) {
	doc, err := s.store.DocumentByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return ledger.Document{}, err
	}
	return ofKind(doc, kind)
}

func (s *service) Documents(ctx context.Context, kind ledger.DocumentKind, q DocumentQuery) ([]ledger.Document, error) {
	if q.Start != nil && q.End != nil && q.Start.After(*q.End) {
		return nil, errs.Invalid("start_date", "must not be after end_date")
	}
	return s.store.Documents(ctx, storage.DocumentFilter{
		Kind:        kind,
		ExcludeVoid: !q.IncludeVoid,
		Start:       q.Start,
		End:         q.End,
		Search:      q.Search,
	})
}

// retire marks doc void.
func (s *service) retire(ctx context.Context, tx storage.Tx, doc ledger.Document) (ledger.Document, error) {
	doc.Status = ledger.DocumentVoid
	doc.UpdatedAt = s.now()
	if err := tx.UpdateDocument(ctx, doc); err != nil {
		return ledger.Document{}, err
	}
	return doc, nil
}

// carried is the part of a replaced document already settled by separate payments.
type carried struct {
	amount  int64
	numbers []string
}

// carriedPayments sums the payments against doc that are still on the books.
// Each payment transaction has exactly one debit row carrying its amount.
func carriedPayments(ctx context.Context, tx storage.Tx, doc ledger.Document) (carried, error) {
	var c carried
	for _, no := range doc.PaymentNumbers {
		rows, err := tx.TransactionForUpdate(ctx, no)
		if err != nil {
			return carried{}, err
		}
		for _, r := range rows {
			if r.Active() && r.Side == ledger.SideDebit {
				c.amount += r.Minor()
				c.numbers = append(c.numbers, no)
			}
		}
	}
	return c, nil
}

func (s *service) write(ctx context.Context, tx storage.Tx, doc ledger.Document, number, desc string, date time.Time, legs []journal.EntryInput) (Receipt, error) {
	if err := tx.CreateDocument(ctx, doc); err != nil {
		return Receipt{}, err
	}
	entries, err := journal.PostTx(ctx, tx, s.currency, journal.PostRequest{
		Entries: legs, TransactionNo: number, Description: desc, Date: date,
	})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{TransactionNo: number, Document: &doc, Entries: entries}, nil
}

func (s *service) document(kind ledger.DocumentKind, number, counterparty string, date time.Time, total, paid int64) ledger.Document {
	now := s.now()
	return ledger.Document{
		ID:           uuid.New(),
		Kind:         kind,
		Number:       number,
		Counterparty: strings.TrimSpace(counterparty),
		Date:         date,
		Total:        ledger.MustAmount(s.currency, total),
		Paid:         ledger.MustAmount(s.currency, paid),
		Status:       ledger.SettlementStatus(total, paid),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *service) leg(code string, side ledger.Side, units int64) journal.EntryInput {
	return journal.EntryInput{AccountCode: code, Side: side, Amount: ledger.MustAmount(s.currency, units)}
}

// units checks a's currency and sign and returns it in minor units.
func (s *service) units(field string, a money.Amount, allowZero bool) (int64, error) {
	if a == (money.Amount{}) {
		if allowZero {
			return 0, nil
		}
		return 0, errs.Invalid(field, "required")
	}
	if a.Curr().Code() != s.currency {
		return 0, errs.Invalid(field, "currency must be "+s.currency)
	}
	n, err := ledger.ExactMinorUnits(a)
	if err != nil {
		return 0, errs.Invalid(field, "out of range")
	}
	if n < 0 || (n == 0 && !allowZero) {
		return 0, errs.Invalid(field, "must be > 0")
	}
	return n, nil
}

func (s *service) dateOr(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

// extend returns acc + unit*qty. A result past the int64 minor-unit range is a
// validation error on field rather than a silent wrap.
func (s *service) extend(field string, acc, unit, qty int64) (int64, error) {
	n, err := ledger.AddMulMinor(s.currency, acc, unit, qty)
	if err != nil {
		return 0, errs.Invalid(field, "total out of range")
	}
	return n, nil
}

// record runs after commit.
func (s *service) record(event string, r Receipt) {
	journal.CountPosted(r.TransactionNo)
	eventsTotal.WithLabelValues(event).Inc()
	s.log.Info("event posted", "event", event, "transaction_no", r.TransactionNo, "rows", len(r.Entries))
}

// checkPaymentAccount requires an active cash or bank asset account.
func checkPaymentAccount(ctx context.Context, tx storage.Reader, code string) error {
	if strings.TrimSpace(code) == "" {
		return errs.Invalid("payment_account", "required")
	}
	a, err := tx.AccountByCode(ctx, code)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Invalid("payment_account", "account "+code+" not found")
	}
	if err != nil {
		return err
	}
	if !a.Active() || a.Type != ledger.AccountTypeAsset || !dictionary.IsLiquid(a.Subtype) {
		return errs.Invalid("payment_account", "account "+code+" is not an active cash or bank account")
	}
	return nil
}

// documentOf loads and locks a document of kind, so read-modify-write
// sequences on one document never interleave.
func documentOf(ctx context.Context, tx storage.Tx, kind ledger.DocumentKind, number string) (ledger.Document, error) {
	doc, err := tx.DocumentForUpdate(ctx, strings.TrimSpace(number))
	if err != nil {
		return ledger.Document{}, err
	}
	return ofKind(doc, kind)
}

func ofKind(doc ledger.Document, kind ledger.DocumentKind) (ledger.Document, error) {
	if doc.Kind != kind {
		return ledger.Document{}, errs.ErrNotFound
	}
	return doc, nil
}

func describe(desc, fallback string) string {
	if d := strings.TrimSpace(desc); d != "" {
		return d
	}
	return fallback
}

func lineField(i int, f string) string { return "lines[" + itoa(i) + "]." + f }
func itemField(i int, f string) string { return "items[" + itoa(i) + "]." + f }
