// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	activeRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)

	leadsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tork_leads_ingested_total",
			Help: "Inbound leads by outcome",
		},
		[]string{"result"},
	)

	contactResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tork_contact_resolutions_total",
			Help: "Contact identity resolutions by outcome",
		},
		[]string{"outcome", "potential_duplicate"},
	)

	helpdeskSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tork_helpdesk_sync_total",
			Help: "Outbound helpdesk contact syncs by result",
		},
		[]string{"result"},
	)

	helpdeskImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tork_helpdesk_imported_contacts_total",
			Help: "Contacts created by helpdesk imports",
		},
	)

	syncBacklog = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tork_helpdesk_sync_tasks",
			Help: "Helpdesk sync tasks by status at the last backlog check",
		},
		[]string{"status"},
	)
)

// ObserveHTTP records one finished request. route is the router pattern, not the raw path.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement
func TrackInFlight() func() {
	activeRequests.Inc()
	return activeRequests.Dec
}

// RecordLead counts a lead by result: "created", "rejected" or "failed"
func RecordLead(result string) {
	leadsIngested.WithLabelValues(result).Inc()
}

// RecordResolution counts a resolver outcome
func RecordResolution(outcome string, potentialDuplicate bool) {
	contactResolutions.WithLabelValues(outcome, strconv.FormatBool(potentialDuplicate)).Inc()
}

// RecordHelpdeskSync counts an outbound sync attempt: "done", "failed", "dead" or "skipped"
func RecordHelpdeskSync(result string) {
	helpdeskSyncs.WithLabelValues(result).Inc()
}

// RecordImported adds newly imported helpdesk contacts
func RecordImported(n int) {
	helpdeskImported.Add(float64(n))
}

// SetSyncBacklog publishes the number of sync tasks in a status
func SetSyncBacklog(status string, n int64) {
	syncBacklog.WithLabelValues(status).Set(float64(n))
}
