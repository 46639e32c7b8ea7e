package observability

import (
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	crudTotal       *prometheus.CounterVec
	confirmations   *prometheus.CounterVec
	isolationDrops  *prometheus.CounterVec
	expiredTrials   prometheus.Gauge
	workingSets     prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		crudTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_crud_operations_total",
				Help: "CRUD operations by entity, operation and outcome.",
			},
			[]string{"entity", "op", "outcome"},
		),
		confirmations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_confirmations_total",
				Help: "Resolved confirmation prompts by outcome.",
			},
			[]string{"outcome"},
		),
		isolationDrops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_tenant_isolation_drops_total",
				Help: "Rows discarded on load because they belong to another company.",
			},
			[]string{"entity"},
		),
		expiredTrials: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bfa_expired_trials",
				Help: "Companies whose trial has expired, as of the last sweep.",
			},
		),
		workingSets: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bfa_working_sets",
				Help: "Tenant working sets held in memory.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordCrud counts a CRUD outcome: success, failure, invalid or declined.
func (m *Metrics) RecordCrud(entity, op, outcome string) {
	m.crudTotal.WithLabelValues(entity, op, outcome).Inc()
}

// RecordConfirmation counts a resolved prompt: confirmed, cancelled or timeout.
func (m *Metrics) RecordConfirmation(outcome string) {
	m.confirmations.WithLabelValues(outcome).Inc()
}

// IncrIsolationDrop counts a foreign-tenant row discarded on load.
func (m *Metrics) IncrIsolationDrop(entity string) {
	m.isolationDrops.WithLabelValues(entity).Inc()
}

// SetExpiredTrials sets the expired-trials gauge.
func (m *Metrics) SetExpiredTrials(n int) {
	m.expiredTrials.Set(float64(n))
}

// SetWorkingSets sets the number of cached tenant working sets.
func (m *Metrics) SetWorkingSets(n int) {
	m.workingSets.Set(float64(n))
}

// Snapshot summarizes the counters for GET /v1/admin/ops.
func (m *Metrics) Snapshot() domain.OpsSnapshot {
	var snap domain.OpsSnapshot

	for _, mf := range m.gather() {
		for _, metric := range mf.GetMetric() {
			v := metric.GetCounter().GetValue()
			switch mf.GetName() {
			case "bfa_crud_operations_total":
				switch label(metric, "outcome") {
				case "success":
					snap.CrudSuccess += int64(v)
				case "failure", "invalid":
					snap.CrudFailure += int64(v)
				}
			case "bfa_confirmations_total":
				if label(metric, "outcome") == "confirmed" {
					snap.ConfirmedDeletes += int64(v)
				} else {
					snap.DeclinedDeletes += int64(v)
				}
			case "bfa_tenant_isolation_drops_total":
				snap.IsolationDrops += int64(v)
			case "bfa_external_errors_total":
				snap.ExternalErrorCount += int64(v)
			case "bfa_expired_trials":
				snap.ExpiredTrials = int64(metric.GetGauge().GetValue())
			case "bfa_working_sets":
				snap.WorkingSets = int64(metric.GetGauge().GetValue())
			}
		}
	}

	hits := getCounterValue(m.cacheHits, "working_set")
	misses := getCounterValue(m.cacheMisses, "working_set")
	if hits+misses > 0 {
		snap.WorkingSetHitRate = hits / (hits + misses)
	}
	return snap
}

func (m *Metrics) gather() []*dto.MetricFamily {
	mfs, err := m.Registry.Gather()
	if err != nil {
		return nil
	}
	return mfs
}

func label(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
