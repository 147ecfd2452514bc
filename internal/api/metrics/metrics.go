// Package metrics defines every custom Prometheus metric of the RBAC
// service. Metrics are registered with the default registry on package
// init through promauto and exposed by promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rbac"

// ── Authorization ─────────────────────────────────────────────────────────────

// AuthzDecisionsTotal counts gate decisions.
// Labels:
//   - mode: "all" or "any"
//   - result: "allow", "deny" or "error"
var AuthzDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_decisions_total",
		Help:      "Total number of authorization gate decisions.",
	},
	[]string{"mode", "result"},
)

// ResolveDuration measures one permission resolution, store reads included.
// Label:
//   - outcome: "ok" or "error"
var ResolveDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "resolve_duration_seconds",
		Help:      "Duration of resolving a user's roles, permissions and menus.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// ── Sessions ──────────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "inactive" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts by result.",
	},
	[]string{"result"},
)

// ── Audit ─────────────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit records persisted by the dispatcher.
// Labels:
//   - action: e.g. "ROLE_DELETED"
//   - result: "SUCCESS" or "FAILURE" as recorded, or "dropped" when the
//     write itself failed
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit records handled by the dispatcher.",
	},
	[]string{"action", "result"},
)

// AuditQueueDepth tracks pending records per dispatcher worker.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit records pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── HTTP ──────────────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts handled requests.
// Labels:
//   - method, route (the echo route pattern), status
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by method and route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)
