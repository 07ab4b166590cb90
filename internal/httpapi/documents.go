package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/service/events"
)

// GET /v1/{sales,expenses,purchase-orders}?search=&start_date=&end_date=&include_void=true
func (s *Server) listDocuments(kind ledger.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := periodQuery(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		q := r.URL.Query()
		docs, err := s.events.Documents(r.Context(), kind, events.DocumentQuery{
			Start:       p.Start,
			End:         endOfDay(p.End),
			Search:      q.Get("search"),
			IncludeVoid: q.Get("include_void") == "true",
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		toJSON(w, http.StatusOK, toDocumentsResponse(docs))
	}
}

func (s *Server) getDocument(kind ledger.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.events.Document(r.Context(), kind, chi.URLParam(r, "number"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		toJSON(w, http.StatusOK, toDocumentResponse(d))
	}
}

// PUT /v1/sales/{number} replaces the sale; the response carries the voided
// original and the replacement's receipt.
func (s *Server) reviseSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !s.decode(w, r, &req) {
		return
	}
	sale, err := s.toSale(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rv, err := s.events.ReviseSale(r.Context(), chi.URLParam(r, "number"), sale)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toRevisionResponse(rv))
}

func (s *Server) reviseExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !s.decode(w, r, &req) {
		return
	}
	e, err := s.toExpense(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rv, err := s.events.ReviseExpense(r.Context(), chi.URLParam(r, "number"), e)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toRevisionResponse(rv))
}

func (s *Server) revisePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	po, err := s.toPurchaseOrder(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rv, err := s.events.RevisePurchase(r.Context(), chi.URLParam(r, "number"), po)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toRevisionResponse(rv))
}
