package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/shopledger/internal/ledger"
)

func (s *Server) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !s.decode(w, r, &req) {
		return
	}
	sale, err := s.toSale(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rc, err := s.events.RecordSale(r.Context(), sale)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toReceiptResponse(rc))
}

// POST /v1/sales/{number}/payments
func (s *Server) receivePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.toPayment(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rc, err := s.events.ReceivePayment(r.Context(), chi.URLParam(r, "number"), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toReceiptResponse(rc))
}

func (s *Server) recordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !s.decode(w, r, &req) {
		return
	}
	e, err := s.toExpense(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rc, err := s.events.RecordExpense(r.Context(), e)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toReceiptResponse(rc))
}

func (s *Server) receivePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	po, err := s.toPurchaseOrder(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rc, err := s.events.ReceivePurchase(r.Context(), po)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toReceiptResponse(rc))
}

// POST /v1/purchase-orders/{number}/payments
func (s *Server) paySupplier(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.toPayment(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rc, err := s.events.PaySupplier(r.Context(), chi.URLParam(r, "number"), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toReceiptResponse(rc))
}

// voidDocument reverses a document and everything posted against it. The reversal is dated ?date= or today.
func (s *Server) voidDocument(kind ledger.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at, err := dateQuery(r, "date")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		d, err := s.events.Void(r.Context(), kind, chi.URLParam(r, "number"), at)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		toJSON(w, http.StatusOK, toDocumentResponse(d))
	}
}
