package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sift/sift/internal/rules"
)

type Metrics struct {
	scansTotal       *prometheus.CounterVec
	ruleMatchesTotal *prometheus.CounterVec
	scannedBytes     *prometheus.CounterVec
	scanDuration     *prometheus.HistogramVec
	automatonNodes   *prometheus.GaugeVec
	reloadsTotal     *prometheus.CounterVec
	ratelimitHits    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sift_scans_total", Help: "Total scans"},
			[]string{"source", "verdict"},
		),
		ruleMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sift_rule_matches_total", Help: "Total pattern matches per rule"},
			[]string{"rule_id", "tag"},
		),
		scannedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sift_scanned_bytes_total", Help: "Total bytes scanned"},
			[]string{"source"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sift_scan_duration_seconds",
				Help:    "Scan duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		automatonNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "sift_automaton_nodes", Help: "Trie nodes per compiled rule"},
			[]string{"rule_id"},
		),
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sift_reloads_total", Help: "Rule reload attempts"},
			[]string{"result"},
		),
		ratelimitHits: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "sift_ratelimit_hits_total", Help: "Requests rejected by the rate limiter"},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.scansTotal,
		m.ruleMatchesTotal,
		m.scannedBytes,
		m.scanDuration,
		m.automatonNodes,
		m.reloadsTotal,
		m.ratelimitHits,
	)

	return m
}

func (m *Metrics) Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveScan records one finished scan. source is a coarse label such as
// "file", "stdin" or "http", never a path.
func (m *Metrics) ObserveScan(source, verdict string, result rules.Result, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.scansTotal.WithLabelValues(source, verdict).Inc()
	m.scannedBytes.WithLabelValues(source).Add(float64(result.Bytes))
	m.scanDuration.WithLabelValues(source).Observe(elapsed.Seconds())

	for _, match := range result.Matches {
		tag := "none"
		if len(match.Tags) > 0 {
			tag = match.Tags[0]
		}
		m.ruleMatchesTotal.WithLabelValues(match.RuleID, tag).Inc()
	}
}

// SetEngine publishes per-rule automaton sizes, replacing earlier values.
func (m *Metrics) SetEngine(engine *rules.Engine) {
	if m == nil || engine == nil {
		return
	}
	m.automatonNodes.Reset()
	for _, info := range engine.Info() {
		m.automatonNodes.WithLabelValues(info.ID).Set(float64(info.Nodes))
	}
}

func (m *Metrics) ObserveReload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloadsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.ratelimitHits.Inc()
}
