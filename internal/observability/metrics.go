// Package observability provides Prometheus metrics for token resolution.
package observability

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hunterwarburton/tokenscope/internal/core"
)

// Resolution outcomes.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeError   = "error"
)

// Pipeline stages.
const (
	StageAccount  = "account"
	StageParse    = "parse"
	StageDocument = "document"
	StageDNS      = "dns"
	StageSupply   = "supply"
)

// Metrics holds the Prometheus collectors for the resolver. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	ResolutionsTotal *prometheus.CounterVec
	StageErrors      *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	DNSEntries       prometheus.Histogram
}

// NewMetrics registers the collectors with reg. A nil reg uses the default
// registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "tokenscope"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of token resolutions by outcome",
		}, []string{"outcome"}),
		StageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "stage_errors_total",
			Help:      "Total number of pipeline stage failures by stage and error kind",
		}, []string{"stage", "kind"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		DNSEntries: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dns",
			Name:      "entries_per_domain",
			Help:      "Number of DNS entries attached to a token record",
			Buckets:   []float64{0, 1, 2, 4, 8, 16},
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordResolution counts one finished resolution.
func (m *Metrics) RecordResolution(outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records the latency of a stage and, when err is set, its failure kind.
func (m *Metrics) ObserveStage(stage string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
	if err != nil {
		m.StageErrors.WithLabelValues(stage, ErrorKind(err)).Inc()
	}
}

// ObserveDNSEntries records how many DNS entries a record received.
func (m *Metrics) ObserveDNSEntries(n int) {
	if m == nil {
		return
	}
	m.DNSEntries.Observe(float64(n))
}

// ErrorKind maps an error onto a low-cardinality label value.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, core.ErrInvalidTokenAddress):
		return "invalid_token_address"
	case errors.Is(err, core.ErrInvalidDomain):
		return "invalid_domain"
	case errors.Is(err, core.ErrParse):
		return "parse"
	case errors.Is(err, core.ErrChain):
		return "chain"
	case errors.Is(err, core.ErrFetch):
		return "fetch"
	case errors.Is(err, core.ErrDeserialization):
		return "deserialization"
	case errors.Is(err, core.ErrDNS):
		return "dns"
	default:
		return "other"
	}
}
