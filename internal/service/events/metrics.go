package events

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "shopledger",
		Name:      "business_events_total",
		Help:      "Business events translated into ledger postings, by event",
	},
	[]string{"event"},
)

func itoa(n int) string { return strconv.Itoa(n) }
