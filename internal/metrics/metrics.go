package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts façade requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_http_requests_total",
			Help: "Total number of HTTP requests handled by the contribution proxy",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "community_http_request_duration_seconds",
			Help:    "Duration of HTTP requests handled by the contribution proxy",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ContributionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_contributions_total",
			Help: "Contributions turned into issues, by deploy method",
		},
		[]string{"deploy_method"},
	)

	DeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_deletions_total",
			Help: "Entries rejected, by delete method and source",
		},
		[]string{"delete_method", "source"},
	)

	LikesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_likes_total",
			Help: "Like mutations, by action and result",
		},
		[]string{"action", "result"},
	)

	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_reconcile_runs_total",
			Help: "Reconciliation runs, by result",
		},
		[]string{"result"},
	)

	EntriesRetained = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "community_entries_retained",
			Help: "Entries in the document after the last reconciliation",
		},
	)
)
