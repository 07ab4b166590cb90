package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/tinoosan/shopledger/internal/report"
	"github.com/tinoosan/shopledger/internal/rollup"
)

// periodQuery reads start_date and end_date; either may be omitted.
func periodQuery(r *http.Request) (rollup.Period, error) {
	var p rollup.Period
	q := r.URL.Query()
	if raw := q.Get("start_date"); raw != "" {
		t, err := parseDate("start_date", raw)
		if err != nil {
			return rollup.Period{}, err
		}
		p.Start = &t
	}
	if raw := q.Get("end_date"); raw != "" {
		t, err := parseDate("end_date", raw)
		if err != nil {
			return rollup.Period{}, err
		}
		p.End = &t
	}
	return p, nil
}

// periodReport serves a report computed over ?start_date=&end_date=.
func periodReport[T any](s *Server, build func(context.Context, rollup.Period) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := periodQuery(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out, err := build(r.Context(), p)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		toJSON(w, http.StatusOK, out)
	}
}

// agingReport serves an aging report for ?as_of=&page=&page_size=.
func agingReport(s *Server, build func(context.Context, report.AgingQuery) (report.Aging, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asOf, err := dateQuery(r, "as_of")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		page, size, err := s.pageQuery(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out, err := build(r.Context(), report.AgingQuery{AsOf: asOf, Page: page, PageSize: size})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		toJSON(w, http.StatusOK, out)
	}
}

// asOfReport serves a report computed as of ?as_of=, defaulting to today.
func asOfReport[T any](s *Server, build func(context.Context, time.Time) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asOf, err := dateQuery(r, "as_of")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out, err := build(r.Context(), asOf)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		toJSON(w, http.StatusOK, out)
	}
}
