package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/ledger"
)

// Aging bucket labels.
const (
	Bucket0To30  = "0-30"
	Bucket31To60 = "31-60"
	Bucket61To90 = "61-90"
	BucketOver90 = ">90"
)

// BucketFor places an outstanding document by whole days since its date.
func BucketFor(days int) string {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// DaysOutstanding counts whole calendar days from date to asOf, never negative.
func DaysOutstanding(date, asOf time.Time) int {
	d := int(startOfDay(asOf.UTC()).Sub(startOfDay(date.UTC())).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

type AgingBuckets struct {
	Days0To30  decimal.Decimal `json:"0-30"`
	Days31To60 decimal.Decimal `json:"31-60"`
	Days61To90 decimal.Decimal `json:"61-90"`
	Over90     decimal.Decimal `json:">90"`
}

func (b *AgingBuckets) add(bucket string, amt decimal.Decimal) {
	switch bucket {
	case Bucket0To30:
		b.Days0To30 = b.Days0To30.Add(amt)
	case Bucket31To60:
		b.Days31To60 = b.Days31To60.Add(amt)
	case Bucket61To90:
		b.Days61To90 = b.Days61To90.Add(amt)
	default:
		b.Over90 = b.Over90.Add(amt)
	}
}

type AgingDocument struct {
	Number          string          `json:"number"`
	Date            string          `json:"date"`
	Total           decimal.Decimal `json:"total_amount"`
	Paid            decimal.Decimal `json:"total_paid"`
	Balance         decimal.Decimal `json:"balance"`
	DaysOutstanding int             `json:"days_outstanding"`
	Bucket          string          `json:"aging_bucket"`
}

type AgingCounterparty struct {
	Name         string          `json:"name"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	Buckets      AgingBuckets    `json:"buckets"`
	Documents    []AgingDocument `json:"documents"`
}

type Aging struct {
	AsOf                string              `json:"as_of"`
	Page                int                 `json:"page"`
	PageSize            int                 `json:"page_size"`
	TotalCounterparties int                 `json:"total_counterparties"`
	TotalPages          int                 `json:"total_pages"`
	Buckets             AgingBuckets        `json:"buckets"`
	Report              []AgingCounterparty `json:"report"`
}

// DefaultPageSize applies when an aging query leaves the page size unset.
const DefaultPageSize = 10

// BuildAging groups open documents by counterparty, ordered by name, and returns
// one page. Bucket totals cover every counterparty, not just the page.
func BuildAging(docs []ledger.Document, asOf time.Time, page, pageSize int) Aging {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	open := make([]ledger.Document, 0, len(docs))
	for _, d := range docs {
		if d.Open() && !d.Date.After(endOfDay(asOf)) {
			open = append(open, d)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].Counterparty != open[j].Counterparty {
			return open[i].Counterparty < open[j].Counterparty
		}
		if !open[i].Date.Equal(open[j].Date) {
			return open[i].Date.Before(open[j].Date)
		}
		return open[i].Number < open[j].Number
	})

	out := Aging{AsOf: asOf.Format(dateLayout), Page: page, PageSize: pageSize, Report: []AgingCounterparty{}}
	var all []AgingCounterparty
	for _, d := range open {
		if len(all) == 0 || all[len(all)-1].Name != d.Counterparty {
			all = append(all, AgingCounterparty{Name: d.Counterparty, Documents: []AgingDocument{}})
		}
		cp := &all[len(all)-1]
		total, paid := ledger.Decimal(d.Total), ledger.Decimal(d.Paid)
		balance := total.Sub(paid)
		days := DaysOutstanding(d.Date, asOf)
		bucket := BucketFor(days)
		cp.Documents = append(cp.Documents, AgingDocument{
			Number:          d.Number,
			Date:            d.Date.Format(dateLayout),
			Total:           total,
			Paid:            paid,
			Balance:         balance,
			DaysOutstanding: days,
			Bucket:          bucket,
		})
		cp.TotalBalance = cp.TotalBalance.Add(balance)
		cp.Buckets.add(bucket, balance)
		out.Buckets.add(bucket, balance)
	}

	out.TotalCounterparties = len(all)
	out.TotalPages = (len(all) + pageSize - 1) / pageSize
	from := (page - 1) * pageSize
	if from < len(all) {
		to := from + pageSize
		if to > len(all) {
			to = len(all)
		}
		out.Report = append(out.Report, all[from:to]...)
	}
	return out
}

func endOfDay(t time.Time) time.Time { return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond) }
