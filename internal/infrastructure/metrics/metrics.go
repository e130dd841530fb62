package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for vendor calls and verification outcomes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	VendorLatency      *prometheus.HistogramVec
	VendorCalls        *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
	AttendanceEvents   *prometheus.CounterVec
	EventsDropped      prometheus.Counter
	HTTPDuration       *prometheus.HistogramVec
}

// New registers all metrics on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VendorLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seqrview_vendor_request_duration_seconds",
			Help:    "Duration of verification vendor calls by endpoint",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"endpoint"}),
		VendorCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqrview_vendor_requests_total",
			Help: "Verification vendor calls by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		SessionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqrview_kyc_session_transitions_total",
			Help: "KYC session transitions by method and resulting status",
		}, []string{"method", "status"}),
		AttendanceEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seqrview_attendance_events_total",
			Help: "Accepted attendance events by activity and verified flag",
		}, []string{"activity", "verified"}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "seqrview_domain_events_dropped_total",
			Help: "Domain events dropped because the dispatch queue was full",
		}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seqrview_http_request_duration_seconds",
			Help:    "HTTP request duration by route, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// ObserveVendorCall records latency and outcome of a vendor call.
// Call with time.Now() at the start of the call; outcome is "ok" or an error kind.
func (m *Metrics) ObserveVendorCall(endpoint, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.VendorLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	m.VendorCalls.WithLabelValues(endpoint, outcome).Inc()
}

// IncSessionTransition counts a session reaching status
func (m *Metrics) IncSessionTransition(method, status string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(method, status).Inc()
}

// IncAttendanceEvent counts an accepted attendance event
func (m *Metrics) IncAttendanceEvent(activity string, verified bool) {
	if m == nil {
		return
	}
	v := "false"
	if verified {
		v = "true"
	}
	m.AttendanceEvents.WithLabelValues(activity, v).Inc()
}

// IncEventsDropped counts a domain event lost to back-pressure
func (m *Metrics) IncEventsDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

// ObserveHTTP records a served request. route is the matched route
// pattern, never the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}
