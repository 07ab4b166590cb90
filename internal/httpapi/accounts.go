package httpapi

import (
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/shopledger/internal/dictionary"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/service/account"
	"github.com/tinoosan/shopledger/internal/storage"
)

// POST /v1/accounts
func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !s.decode(w, r, &req) {
		return
	}
	a, err := s.accounts.Create(r.Context(), account.Spec{
		Code:        req.Code,
		Name:        req.Name,
		Type:        ledger.AccountType(strings.ToUpper(req.Type)),
		Subtype:     req.Subtype,
		ParentCode:  req.ParentCode,
		Description: req.Description,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(a))
}

// GET /v1/accounts?type=&include_inactive=
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	var f storage.AccountFilter
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := ledger.ParseAccountType(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		f.Type = &t
	}
	f.IncludeInactive = r.URL.Query().Get("include_inactive") == "true"
	list, err := s.accounts.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.accounts.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

// PATCH /v1/accounts/{code}
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if !s.decode(w, r, &req) {
		return
	}
	a, err := s.accounts.Update(r.Context(), chi.URLParam(r, "code"), account.Patch{
		Name:        req.Name,
		Description: req.Description,
		Subtype:     req.Subtype,
		ParentCode:  req.ParentCode,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

// DELETE /v1/accounts/{code} deactivates; accounts are never removed.
func (s *Server) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Deactivate(r.Context(), chi.URLParam(r, "code")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cashAndBank(w http.ResponseWriter, r *http.Request) {
	list, err := s.accounts.CashAndBank(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.accounts.Chart(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, map[string]any{"chart": toChartResponse(nodes)})
}

// GET /v1/dictionary/subtypes?type=
func (s *Server) subtypes(w http.ResponseWriter, r *http.Request) {
	var only *ledger.AccountType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := ledger.ParseAccountType(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		only = &t
	}
	type item struct {
		Type     ledger.AccountType      `json:"type"`
		Subtypes []dictionary.SubtypeDef `json:"subtypes"`
	}
	out := struct {
		Items []item `json:"items"`
	}{Items: []item{}}
	for _, typ := range ledger.AccountTypes {
		if only != nil && *only != typ {
			continue
		}
		out.Items = append(out.Items, item{Type: typ, Subtypes: dictionary.SubtypesFor(&typ)})
	}
	toJSON(w, http.StatusOK, out)
}
