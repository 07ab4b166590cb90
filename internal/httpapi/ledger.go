package httpapi

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/report"
	"github.com/tinoosan/shopledger/internal/service/journal"
)

// POST /v1/ledger/postings records a manual journal under a fresh JRN number.
func (s *Server) postJournal(w http.ResponseWriter, r *http.Request) {
	var req postingRequest
	if !s.decode(w, r, &req) {
		return
	}
	j, err := s.toJournalEntry(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rc, err := s.events.PostJournal(r.Context(), j)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toReceiptResponse(rc))
}

// GET /v1/ledger/entries?start_date=&end_date=&search=&account_code=&status=all&page=&page_size=
// include_reversed=true is accepted in place of status=all.
func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := periodQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, size, err := s.pageQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.journal.List(r.Context(), journal.ListFilter{
		Start:           p.Start,
		End:             endOfDay(p.End),
		Search:          q.Get("search"),
		AccountCode:     q.Get("account_code"),
		IncludeReversed: q.Get("status") == "all" || q.Get("include_reversed") == "true",
		Page:            page,
		PageSize:        size,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, entriesPageResponse{
		Entries:    toEntryResponses(res.Entries),
		Page:       res.Page,
		PageSize:   res.PageSize,
		Total:      res.Total,
		TotalPages: res.TotalPages,
	})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	no := chi.URLParam(r, "transaction_no")
	rows, err := s.journal.Transaction(r.Context(), no)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, receiptResponse{TransactionNo: no, Entries: toEntryResponses(rows)})
}

// POST /v1/ledger/transactions/{transaction_no}/reverse?date=
func (s *Server) reverseTransaction(w http.ResponseWriter, r *http.Request) {
	at, err := dateQuery(r, "date")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	no := chi.URLParam(r, "transaction_no")
	rows, err := s.journal.Reverse(r.Context(), no, at)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, receiptResponse{TransactionNo: no, Entries: toEntryResponses(rows)})
}

// GET /v1/ledger/balances?start_date=&end_date=
func (s *Server) balances(w http.ResponseWriter, r *http.Request) {
	p, err := periodQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.reports.ComputeBalances(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]report.AccountBalance, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	toJSON(w, http.StatusOK, map[string]any{"balances": out})
}

// dateQuery reads an optional date parameter, defaulting to now.
func dateQuery(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return parseDate(name, raw)
}

func (s *Server) pageQuery(r *http.Request) (page, size int, err error) {
	q := r.URL.Query()
	page, size = 1, s.pageSize
	if raw := q.Get("page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil || page < 1 {
			return 0, 0, errs.Invalid("page", "must be a positive integer")
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if size, err = strconv.Atoi(raw); err != nil || size < 1 || size > 500 {
			return 0, 0, errs.Invalid("page_size", "must be between 1 and 500")
		}
	}
	return page, size, nil
}

// endOfDay moves an inclusive end bound to the last instant of its day,
// whatever time of day it carried.
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	e := time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &e
}
