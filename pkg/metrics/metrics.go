// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts handled HTTP requests by route and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "budgetd_http_requests_total",
		Help: "Handled HTTP requests.",
	}, []string{"method", "path", "status"})

	// RequestDuration observes HTTP request latency by route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "budgetd_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// WorkflowDecisions counts workflow transitions by document kind and
	// decision.
	WorkflowDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "budgetd_workflow_decisions_total",
		Help: "Workflow transitions taken.",
	}, []string{"kind", "decision"})

	// ArchiveSweeps counts scheduled fiscal year-end archive runs.
	ArchiveSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "budgetd_archive_sweeps_total",
		Help: "Completed archive sweeps.",
	})

	// ArchivedBudgets counts budgets archived by sweeps and manual cascades.
	ArchivedBudgets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "budgetd_archived_budgets_total",
		Help: "Budgets moved to the archive.",
	})
)

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
