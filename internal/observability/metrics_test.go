package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sift/sift/internal/rules"
)

func TestMetricsObserveScan(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	result := rules.Result{
		Score: 5,
		Bytes: 128,
		Matches: []rules.Match{
			{RuleID: "r1", Tags: []string{"sqli"}},
			{RuleID: "r1", Tags: []string{"sqli"}},
			{RuleID: "r2"},
		},
	}
	metrics.ObserveScan("http", "blocked", result, 12*time.Millisecond)

	if got := testutil.ToFloat64(metrics.scansTotal.WithLabelValues("http", "blocked")); got != 1 {
		t.Fatalf("expected 1 scan, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.ruleMatchesTotal.WithLabelValues("r1", "sqli")); got != 2 {
		t.Fatalf("expected 2 r1 matches, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.ruleMatchesTotal.WithLabelValues("r2", "none")); got != 1 {
		t.Fatalf("expected 1 r2 match, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.scannedBytes.WithLabelValues("http")); got != 128 {
		t.Fatalf("expected 128 bytes, got %v", got)
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("expected metrics gather to succeed: %v", err)
	}
}

func TestMetricsEngineAndReloads(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	rule, err := rules.NewRule("words", 1, "bytes", false, []string{"ab", "ac"})
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}
	metrics.SetEngine(rules.NewEngine([]rules.Rule{rule}))
	metrics.ObserveReload(nil)
	metrics.ObserveReload(errors.New("bad"))
	metrics.ObserveRateLimited()

	if got := testutil.ToFloat64(metrics.automatonNodes.WithLabelValues("words")); got != 4 {
		t.Fatalf("expected 4 nodes, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.reloadsTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 failed reload, got %v", got)
	}

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "sift_ratelimit_hits_total 1") {
		t.Fatalf("expected rate limit counter in output:\n%s", rec.Body.String())
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveScan("file", "clean", rules.Result{}, time.Second)
	m.SetEngine(nil)
	m.ObserveReload(nil)
	m.ObserveRateLimited()
}
