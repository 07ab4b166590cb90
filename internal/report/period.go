package report

import (
	"time"

	"github.com/tinoosan/shopledger/internal/rollup"
)

const dateLayout = "2006-01-02"

// PeriodInfo echoes the requested range as YYYY-MM-DD strings.
type PeriodInfo struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

func periodInfo(p rollup.Period) PeriodInfo {
	var info PeriodInfo
	if p.Start != nil {
		s := p.Start.Format(dateLayout)
		info.StartDate = &s
	}
	if p.End != nil {
		e := p.End.Format(dateLayout)
		info.EndDate = &e
	}
	return info
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// months lists the calendar months overlapping [from, to] as sub-periods clipped to the range.
func months(from, to time.Time) []rollup.Period {
	var out []rollup.Period
	for m := startOfMonth(from); !m.After(to); m = m.AddDate(0, 1, 0) {
		start := m
		if start.Before(from) {
			start = from
		}
		end := m.AddDate(0, 1, -1)
		if end.After(to) {
			end = to
		}
		s, e := start, end
		out = append(out, rollup.Period{Start: &s, End: &e})
	}
	return out
}

func monthKey(t time.Time) string { return t.Format("2006-01") }
