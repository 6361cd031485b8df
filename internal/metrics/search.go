package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and ledger Prometheus metrics.
var (
	FilterValuesCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "filter_values_cache_total",
			Help:      "Filter value page cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "search_requests_total",
			Help:      "Total number of search executions",
		},
		[]string{"entity", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prospect",
			Name:      "search_request_duration_seconds",
			Help:      "Search execution duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"entity"},
	)

	CreditSpendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prospect",
			Name:      "credit_spends_total",
			Help:      "Credit spend attempts by outcome",
		},
		[]string{"outcome"}, // "charged" / "denied" / "replayed" / "bypassed"
	)

	CreditBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "prospect",
			Name:      "credit_balance",
			Help:      "Last observed credit balance per workspace",
		},
		[]string{"workspace"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prospect domain metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(FilterValuesCacheTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(CreditSpendsTotal)
	prometheus.MustRegister(CreditBalance)
	searchMetricsRegistered = true
}
