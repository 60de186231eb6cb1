package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PlaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_plays_total",
			Help: "Plays resolved, by outcome",
		},
		[]string{"outcome"},
	)

	RewardGrantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_reward_grants_total",
			Help: "Rewards credited to accounts, by source",
		},
		[]string{"source"},
	)

	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rejections_total",
			Help: "Ledger transactions rejected with a typed outcome",
		},
		[]string{"code"},
	)

	LedgerRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_transient_retries_total",
			Help: "Ledger transactions retried after a transient store failure",
		},
	)

	LedgerTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_transaction_duration_seconds",
			Help:    "Duration of ledger units of work, including retries",
			Buckets: prometheus.DefBuckets,
		},
	)
)
