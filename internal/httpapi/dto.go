package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/service/account"
	"github.com/tinoosan/shopledger/internal/service/events"
	"github.com/tinoosan/shopledger/internal/service/journal"
)

const dateLayout = "2006-01-02"

// Requests

type createAccountRequest struct {
	Code        string `json:"code" validate:"omitempty,numeric,min=4,max=8"`
	Name        string `json:"name" validate:"required,max=200"`
	Type        string `json:"type" validate:"omitempty,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE asset liability equity revenue expense"`
	Subtype     string `json:"subtype" validate:"max=40"`
	ParentCode  string `json:"parent_code" validate:"omitempty,numeric"`
	Description string `json:"description" validate:"max=500"`
}

type updateAccountRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Subtype     *string `json:"subtype" validate:"omitempty,max=40"`
	ParentCode  *string `json:"parent_code"`
}

type entryLineRequest struct {
	AccountCode string          `json:"account_code" validate:"required"`
	Side        string          `json:"side" validate:"required,oneof=debit credit"`
	Amount      decimal.Decimal `json:"amount"`
}

type postingRequest struct {
	Date        string             `json:"date" validate:"required"`
	Description string             `json:"description" validate:"max=500"`
	Entries     []entryLineRequest `json:"entries" validate:"required,min=2,dive"`
}

type saleLineRequest struct {
	Quantity  int64           `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type saleRequest struct {
	Customer       string            `json:"customer" validate:"max=200"`
	Date           string            `json:"date" validate:"required"`
	Description    string            `json:"description" validate:"max=500"`
	Lines          []saleLineRequest `json:"lines" validate:"required,min=1,dive"`
	AmountPaid     decimal.Decimal   `json:"amount_paid"`
	PaymentAccount string            `json:"payment_account"`
}

type paymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentAccount string          `json:"payment_account" validate:"required"`
	Date           string          `json:"date" validate:"required"`
}

type expenseItemRequest struct {
	AccountCode string          `json:"account_code" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
}

type expenseRequest struct {
	Payee          string               `json:"payee" validate:"max=200"`
	Date           string               `json:"date" validate:"required"`
	Description    string               `json:"description" validate:"max=500"`
	Items          []expenseItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentAccount string               `json:"payment_account" validate:"required"`
}

type purchaseLineRequest struct {
	Quantity int64           `json:"quantity" validate:"gt=0"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

type purchaseOrderRequest struct {
	Supplier    string                `json:"supplier" validate:"required,max=200"`
	Date        string                `json:"date" validate:"required"`
	Description string                `json:"description" validate:"max=500"`
	Lines       []purchaseLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// Responses

type accountResponse struct {
	ID          uuid.UUID          `json:"id"`
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	Type        ledger.AccountType `json:"type"`
	Subtype     string             `json:"subtype,omitempty"`
	ParentID    *uuid.UUID         `json:"parent_id,omitempty"`
	Status      ledger.Status      `json:"status"`
	Description string             `json:"description,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type chartNodeResponse struct {
	accountResponse
	Children []chartNodeResponse `json:"children,omitempty"`
}

type entryResponse struct {
	ID            uuid.UUID       `json:"id"`
	TransactionNo string          `json:"transaction_no"`
	Date          string          `json:"date"`
	AccountCode   string          `json:"account_code"`
	Side          ledger.Side     `json:"side"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	Status        ledger.Status   `json:"status"`
}

type entriesPageResponse struct {
	Entries    []entryResponse `json:"entries"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}

type documentResponse struct {
	Number         string                `json:"number"`
	Kind           ledger.DocumentKind   `json:"kind"`
	Counterparty   string                `json:"counterparty,omitempty"`
	Date           string                `json:"date"`
	Currency       string                `json:"currency"`
	Total          decimal.Decimal       `json:"total"`
	Paid           decimal.Decimal       `json:"paid"`
	Balance        decimal.Decimal       `json:"balance"`
	Status         ledger.DocumentStatus `json:"status"`
	PaymentNumbers []string              `json:"payment_numbers,omitempty"`
}

type receiptResponse struct {
	TransactionNo string            `json:"transaction_no"`
	Document      *documentResponse `json:"document,omitempty"`
	Entries       []entryResponse   `json:"entries"`
}

type revisionResponse struct {
	Replaced *documentResponse `json:"replaced"`
	receiptResponse
}

type documentsResponse struct {
	Documents []*documentResponse `json:"documents"`
	Total     int                 `json:"total"`
}

// Conversions

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type, Subtype: a.Subtype,
		ParentID: a.ParentID, Status: a.Status, Description: a.Description,
		CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

func toChartResponse(nodes []account.ChartNode) []chartNodeResponse {
	out := make([]chartNodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, chartNodeResponse{accountResponse: toAccountResponse(n.Account), Children: toChartResponse(n.Children)})
	}
	return out
}

func toEntryResponses(rows []ledger.LedgerEntry) []entryResponse {
	out := make([]entryResponse, 0, len(rows))
	for _, e := range rows {
		out = append(out, entryResponse{
			ID: e.ID, TransactionNo: e.TransactionNo, Date: e.Date.Format(dateLayout),
			AccountCode: e.AccountCode, Side: e.Side, Amount: ledger.Decimal(e.Amount),
			Currency: e.Amount.Curr().Code(), Description: e.Description, Status: e.Status,
		})
	}
	return out
}

func toDocumentResponse(d ledger.Document) *documentResponse {
	balance := ledger.Decimal(d.Total).Sub(ledger.Decimal(d.Paid))
	return &documentResponse{
		Number: d.Number, Kind: d.Kind, Counterparty: d.Counterparty, Date: d.Date.Format(dateLayout),
		Currency: d.Total.Curr().Code(), Total: ledger.Decimal(d.Total), Paid: ledger.Decimal(d.Paid),
		Balance: balance, Status: d.Status, PaymentNumbers: d.PaymentNumbers,
	}
}

func toReceiptResponse(rc events.Receipt) receiptResponse {
	out := receiptResponse{TransactionNo: rc.TransactionNo, Entries: toEntryResponses(rc.Entries)}
	if rc.Document != nil {
		out.Document = toDocumentResponse(*rc.Document)
	}
	return out
}

func toRevisionResponse(rv events.Revision) revisionResponse {
	return revisionResponse{Replaced: toDocumentResponse(rv.Replaced), receiptResponse: toReceiptResponse(rv.Receipt)}
}

func toDocumentsResponse(docs []ledger.Document) documentsResponse {
	out := documentsResponse{Documents: make([]*documentResponse, 0, len(docs)), Total: len(docs)}
	for _, d := range docs {
		out.Documents = append(out.Documents, toDocumentResponse(d))
	}
	return out
}

// parseDate accepts YYYY-MM-DD or RFC3339 and returns UTC.
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errs.Invalid(field, "expected YYYY-MM-DD")
}

// amount converts d into the server currency, refusing sub-minor-unit precision.
func (s *Server) amount(field string, d decimal.Decimal) (money.Amount, error) {
	curr, err := money.ParseCurr(s.currency)
	if err != nil {
		return money.Amount{}, errs.Invalid("currency", err.Error())
	}
	scale := int32(curr.Scale())
	if !d.Round(scale).Equal(d) {
		return money.Amount{}, errs.Invalid(field, "too many decimal places")
	}
	a, err := money.ParseAmount(curr.Code(), d.StringFixed(scale))
	if err != nil {
		return money.Amount{}, errs.Invalid(field, err.Error())
	}
	return a, nil
}

func (s *Server) toJournalEntry(req postingRequest) (events.JournalEntry, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return events.JournalEntry{}, err
	}
	out := events.JournalEntry{Date: date, Description: req.Description}
	for i, l := range req.Entries {
		amt, err := s.amount("entries["+strconv.Itoa(i)+"].amount", l.Amount)
		if err != nil {
			return events.JournalEntry{}, err
		}
		out.Entries = append(out.Entries, journal.EntryInput{AccountCode: l.AccountCode, Side: ledger.Side(l.Side), Amount: amt})
	}
	return out, nil
}

func (s *Server) toSale(req saleRequest) (events.Sale, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return events.Sale{}, err
	}
	paid, err := s.amount("amount_paid", req.AmountPaid)
	if err != nil {
		return events.Sale{}, err
	}
	out := events.Sale{
		Customer: req.Customer, Date: date, Description: req.Description,
		AmountPaid: paid, PaymentAccount: req.PaymentAccount,
	}
	for i, l := range req.Lines {
		price, err := s.amount("lines["+strconv.Itoa(i)+"].unit_price", l.UnitPrice)
		if err != nil {
			return events.Sale{}, err
		}
		cost, err := s.amount("lines["+strconv.Itoa(i)+"].unit_cost", l.UnitCost)
		if err != nil {
			return events.Sale{}, err
		}
		out.Lines = append(out.Lines, events.SaleLine{Quantity: l.Quantity, UnitPrice: price, UnitCost: cost})
	}
	return out, nil
}

func (s *Server) toPayment(req paymentRequest) (events.Payment, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return events.Payment{}, err
	}
	amt, err := s.amount("amount", req.Amount)
	if err != nil {
		return events.Payment{}, err
	}
	return events.Payment{Amount: amt, PaymentAccount: req.PaymentAccount, Date: date}, nil
}

func (s *Server) toExpense(req expenseRequest) (events.Expense, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return events.Expense{}, err
	}
	out := events.Expense{Payee: req.Payee, Date: date, Description: req.Description, PaymentAccount: req.PaymentAccount}
	for i, it := range req.Items {
		amt, err := s.amount("items["+strconv.Itoa(i)+"].amount", it.Amount)
		if err != nil {
			return events.Expense{}, err
		}
		out.Items = append(out.Items, events.ExpenseItem{AccountCode: it.AccountCode, Amount: amt, Description: it.Description})
	}
	return out, nil
}

func (s *Server) toPurchaseOrder(req purchaseOrderRequest) (events.PurchaseOrder, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return events.PurchaseOrder{}, err
	}
	out := events.PurchaseOrder{Supplier: req.Supplier, Date: date, Description: req.Description}
	for i, l := range req.Lines {
		cost, err := s.amount("lines["+strconv.Itoa(i)+"].unit_cost", l.UnitCost)
		if err != nil {
			return events.PurchaseOrder{}, err
		}
		out.Lines = append(out.Lines, events.PurchaseLine{Quantity: l.Quantity, UnitCost: cost})
	}
	return out, nil
}
