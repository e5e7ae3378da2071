package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - 감사 실행/매칭 지표 (전용 registry 사용)
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	eventsTotal   *prometheus.CounterVec
	parseFailures *prometheus.CounterVec
	verdictsTotal *prometheus.CounterVec
	missingDocs   prometheus.Counter
	dedupClaimed  prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_runs_total",
			Help: "Total number of audit runs by outcome",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audit_run_duration_seconds",
			Help:    "Audit run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_source_events_total",
			Help: "Source events processed by kind and match result",
		}, []string{"kind", "result"}),
		parseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_parse_failures_total",
			Help: "Events excluded because the message could not be parsed",
		}, []string{"system"}),
		verdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_incident_verdicts_total",
			Help: "Source incident verdicts by status",
		}, []string{"status"}),
		missingDocs: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_missing_state_documents_total",
			Help: "Alarms whose lifespan defaulted to the audit range",
		}),
		dedupClaimed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audit_dedup_claimed_target_events",
			Help: "Target events claimed in the most recent run",
		}),
	}
}

func (m *Metrics) ObserveRun(outcome string, seconds float64) {
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(seconds)
}

func (m *Metrics) AddEvents(kind, result string, n int) {
	m.eventsTotal.WithLabelValues(kind, result).Add(float64(n))
}

func (m *Metrics) AddParseFailure(system string) {
	m.parseFailures.WithLabelValues(system).Inc()
}

func (m *Metrics) AddVerdict(status string) {
	m.verdictsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) AddMissingStateDocuments() {
	m.missingDocs.Inc()
}

func (m *Metrics) SetDedupClaimed(n int) {
	m.dedupClaimed.Set(float64(n))
}

// Handler - /metrics 엔드포인트
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry - 테스트에서 수집값 확인용
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
