package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func freshRegistry() {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
}

func TestInitMetrics(t *testing.T) {
	freshRegistry()

	m := InitMetrics("test", "service")

	if m == nil {
		t.Fatal("InitMetrics returned nil")
	}
	if m.RPCRequestsTotal == nil {
		t.Error("RPCRequestsTotal should not be nil")
	}
	if m.AnalysesTotal == nil {
		t.Error("AnalysesTotal should not be nil")
	}
	if m.RangeProbesTotal == nil {
		t.Error("RangeProbesTotal should not be nil")
	}
}

func TestGet(t *testing.T) {
	freshRegistry()
	defaultMetrics = nil

	m := Get()
	if m == nil {
		t.Error("Get() should not return nil")
	}

	m2 := Get()
	if m2 != m {
		t.Error("Get() should return same instance")
	}
}

func TestRecordRPCRequest(t *testing.T) {
	freshRegistry()
	m := InitMetrics("test", "rpc")

	m.RecordRPCRequest("/sensitivity.v1.SensitivityService/Analyze", "ok", 100*time.Millisecond)
	m.RecordRPCRequest("/sensitivity.v1.SensitivityService/Analyze", "invalid_argument", 5*time.Millisecond)

	got := testutil.ToFloat64(m.RPCRequestsTotal.WithLabelValues("/sensitivity.v1.SensitivityService/Analyze", "ok"))
	if got != 1 {
		t.Errorf("rpc_requests_total{code=ok} = %v, want 1", got)
	}
}

func TestRecordAnalysis(t *testing.T) {
	freshRegistry()
	m := InitMetrics("test", "analysis")

	m.RecordAnalysis("tableau", "OPTIMAL", 20*time.Millisecond, 3)
	m.RecordAnalysis("tableau", "INFEASIBLE", 2*time.Millisecond, 2)
	m.RecordProfit("tableau", 36)

	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("tableau", "OPTIMAL")); got != 1 {
		t.Errorf("analyses_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BaselineProfit.WithLabelValues("tableau")); got != 36 {
		t.Errorf("baseline_profit = %v, want 36", got)
	}
}

func TestRecordProbes(t *testing.T) {
	freshRegistry()
	m := InitMetrics("test", "probes")

	m.RecordProbes("gonum", 10, 3, 1)
	m.RecordProbes("gonum", 2, 1, 0)
	m.RecordUnbounded("increase")

	if got := testutil.ToFloat64(m.RangeProbesTotal.WithLabelValues("gonum", "valid")); got != 12 {
		t.Errorf("valid probes = %v, want 12", got)
	}
	if got := testutil.ToFloat64(m.RangeProbesTotal.WithLabelValues("gonum", "failed")); got != 1 {
		t.Errorf("failed probes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.UnboundedRanges.WithLabelValues("increase")); got != 1 {
		t.Errorf("unbounded ranges = %v, want 1", got)
	}
}

func TestRecordScenarioReportCache(t *testing.T) {
	freshRegistry()
	m := InitMetrics("test", "misc")

	m.RecordScenario(true)
	m.RecordScenario(false)
	m.RecordScenario(false)
	m.RecordReport("pdf", true)
	m.RecordReport("xlsx", false)
	m.RecordCache(true)
	m.RecordCache(false)

	if got := testutil.ToFloat64(m.ScenarioEvaluations.WithLabelValues("false")); got != 2 {
		t.Errorf("infeasible scenarios = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ReportsGenerated.WithLabelValues("xlsx", "error")); got != 1 {
		t.Errorf("failed reports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
}

func TestSetServiceInfo(t *testing.T) {
	freshRegistry()
	m := InitMetrics("test", "info")

	m.SetServiceInfo("1.0.0", "production")
}

func TestStateCollector(t *testing.T) {
	freshRegistry()

	source := StateSource{
		StoredAnalyses: func(context.Context) (int64, error) { return 12, nil },
		Cache: func(context.Context) (CacheSnapshot, error) {
			return CacheSnapshot{Keys: 3, Hits: 40, Misses: 5}, nil
		},
	}
	if err := RegisterState("test", "state", source); err != nil {
		t.Fatalf("RegisterState() error = %v", err)
	}
	if err := RegisterState("test", "state", source); err != nil {
		t.Errorf("second RegisterState() error = %v, want nil", err)
	}

	expected := `
# HELP test_state_cache_entries Number of cached analyses
# TYPE test_state_cache_entries gauge
test_state_cache_entries 3
# HELP test_state_stored_analyses Number of analyses in history
# TYPE test_state_stored_analyses gauge
test_state_stored_analyses 12
`
	if err := testutil.GatherAndCompare(prometheus.DefaultGatherer, strings.NewReader(expected),
		"test_state_stored_analyses", "test_state_cache_entries"); err != nil {
		t.Error(err)
	}
}

func TestStateCollector_SourceErrors(t *testing.T) {
	collector := NewStateCollector("test", "state", StateSource{
		StoredAnalyses: func(context.Context) (int64, error) { return 0, errors.New("db down") },
		Cache: func(context.Context) (CacheSnapshot, error) {
			return CacheSnapshot{Keys: 1}, nil
		},
	})

	// база недоступна: остаются только три метрики кэша
	if got := testutil.CollectAndCount(collector); got != 3 {
		t.Errorf("collected %d metrics, want 3", got)
	}

	if got := testutil.CollectAndCount(NewStateCollector("test", "empty", StateSource{})); got != 0 {
		t.Errorf("empty source collected %d metrics", got)
	}
}

func TestRequestTracker(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_in_flight",
	})

	tracker := NewRequestTracker(gauge)

	tracker.Start("/method1")
	tracker.Start("/method1")
	tracker.Start("/method2")

	// Check active counts
	if tracker.Active("/method1") != 2 {
		t.Errorf("active[method1] = %d, want 2", tracker.Active("/method1"))
	}

	tracker.End("/method1")
	if tracker.Active("/method1") != 1 {
		t.Errorf("active[method1] = %d, want 1", tracker.Active("/method1"))
	}

	// End more than started should not go negative
	tracker.End("/method1")
	tracker.End("/method1")
	if tracker.Active("/method1") < 0 {
		t.Error("active count should not go negative")
	}
}

func TestHandler(t *testing.T) {
	handler := Handler()
	if handler == nil {
		t.Error("Handler() should not return nil")
	}
}
