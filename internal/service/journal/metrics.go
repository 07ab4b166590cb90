package journal

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/shopledger/internal/errs"
)

var (
	postedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopledger",
			Name:      "transactions_posted_total",
			Help:      "Transactions posted to the general ledger, by number prefix",
		},
		[]string{"prefix"},
	)
	reversedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopledger",
			Name:      "transactions_reversed_total",
			Help:      "Transactions reversed, by number prefix",
		},
		[]string{"prefix"},
	)
)

// CountPosted records a committed posting. Callers posting through PostTx
// call it once their transaction has committed.
func CountPosted(transactionNo string) { postedTotal.WithLabelValues(prefixOf(transactionNo)).Inc() }

// CountReversed records a committed reversal made through ReverseTx.
func CountReversed(transactionNo string) {
	reversedTotal.WithLabelValues(prefixOf(transactionNo)).Inc()
}

func isNotFound(err error) bool { return errors.Is(err, errs.ErrNotFound) }
