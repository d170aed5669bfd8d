// Package metrics provides Prometheus metrics for the back office service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the collectors of one registry.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Business events
	distributions      prometheus.Counter
	clientsDistributed prometheus.Counter
	ruleReplacements   prometheus.Counter
	checkIns           prometheus.Counter
	checkOuts          prometheus.Counter
	clientsImported    prometheus.Counter

	// Snapshot gauges, refreshed by the stats scheduler
	clientsTotal         prometheus.Gauge
	clientsUndistributed prometheus.Gauge
	contractsTotal       prometheus.Gauge
	staffCheckedIn       prometheus.Gauge

	// HTTP traffic
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for latency metrics.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry sets the registry collectors are registered on and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewManager creates a Manager on a fresh registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "office",
		subsystem:        "backoffice",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		})
	}

	m.distributions = counter("distributions_total", "Total number of committed distribution runs")
	m.clientsDistributed = counter("clients_distributed_total", "Total number of clients assigned by distribution")
	m.ruleReplacements = counter("incentive_rule_replacements_total", "Total number of incentive table replacements")
	m.checkIns = counter("check_ins_total", "Total number of attendance check-ins")
	m.checkOuts = counter("check_outs_total", "Total number of attendance check-outs")
	m.clientsImported = counter("clients_imported_total", "Total number of clients created from spreadsheets")

	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		})
	}

	m.clientsTotal = gauge("clients", "Number of client records")
	m.clientsUndistributed = gauge("clients_undistributed", "Number of clients waiting for distribution")
	m.contractsTotal = gauge("contracts", "Number of clients in a success status")
	m.staffCheckedIn = gauge("staff_checked_in", "Number of Staff-group members checked in today")

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and method",
		},
		[]string{"route", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"route", "method", "status_code"},
	)
}

// RecordDistribution counts one committed run that assigned n clients.
func (m *Manager) RecordDistribution(n int) {
	m.distributions.Inc()
	m.clientsDistributed.Add(float64(n))
}

func (m *Manager) RecordRuleReplacement() { m.ruleReplacements.Inc() }
func (m *Manager) RecordCheckIn()         { m.checkIns.Inc() }
func (m *Manager) RecordCheckOut()        { m.checkOuts.Inc() }

// RecordImport counts clients created by a spreadsheet upload.
func (m *Manager) RecordImport(n int) { m.clientsImported.Add(float64(n)) }

// SetClientCounts publishes the latest client snapshot.
func (m *Manager) SetClientCounts(total, undistributed, contracts int) {
	m.clientsTotal.Set(float64(total))
	m.clientsUndistributed.Set(float64(undistributed))
	m.contractsTotal.Set(float64(contracts))
}

func (m *Manager) SetCheckedIn(n int) { m.staffCheckedIn.Set(float64(n)) }

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, code).Observe(float64(d.Microseconds()) / 1000)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
