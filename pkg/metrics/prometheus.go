package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// RPC метрики
	RPCRequestsTotal    *prometheus.CounterVec
	RPCRequestDuration  *prometheus.HistogramVec
	RPCRequestsInFlight prometheus.Gauge

	// Бизнес-метрики
	AnalysesTotal       *prometheus.CounterVec
	AnalysisDuration    *prometheus.HistogramVec
	BaselineProfit      *prometheus.GaugeVec
	ModelConstraints    *prometheus.HistogramVec
	RangeProbesTotal    *prometheus.CounterVec
	UnboundedRanges     *prometheus.CounterVec
	ScenarioEvaluations *prometheus.CounterVec
	ReportsGenerated    *prometheus.CounterVec
	CacheRequests       *prometheus.CounterVec

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		RPCRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rpc_requests_total",
				Help:      "Total number of RPC requests",
			},
			[]string{"procedure", "code"},
		),

		RPCRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rpc_request_duration_seconds",
				Help:      "Duration of RPC requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"procedure"},
		),

		RPCRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rpc_requests_in_flight",
				Help:      "Current number of RPC requests being processed",
			},
		),

		// Бизнес-метрики
		AnalysesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "analyses_total",
				Help:      "Total number of sensitivity analyses by solver and baseline status",
			},
			[]string{"solver", "status"},
		),

		AnalysisDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "analysis_duration_seconds",
				Help:      "Duration of sensitivity analyses",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"solver"},
		),

		BaselineProfit: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "baseline_profit",
				Help:      "Last calculated optimal profit",
			},
			[]string{"solver"},
		),

		ModelConstraints: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "model_constraints",
				Help:      "Number of constraints in analysed models",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 12, 16, 20},
			},
			[]string{"operation"},
		),

		RangeProbesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "range_probes_total",
				Help:      "Re-solves issued by the range search",
			},
			[]string{"solver", "outcome"},
		),

		UnboundedRanges: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "unbounded_ranges_total",
				Help:      "Range directions without a finite limit",
			},
			[]string{"direction"},
		),

		ScenarioEvaluations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "scenario_evaluations_total",
				Help:      "Scenario evaluations by feasibility",
			},
			[]string{"feasible"},
		),

		ReportsGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reports_generated_total",
				Help:      "Generated reports by format",
			},
			[]string{"format", "status"},
		),

		CacheRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_requests_total",
				Help:      "Analysis cache lookups",
			},
			[]string{"result"},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("production", "")
	}
	return defaultMetrics
}

// RecordRPCRequest записывает метрики RPC запроса
func (m *Metrics) RecordRPCRequest(procedure string, code string, duration time.Duration) {
	m.RPCRequestsTotal.WithLabelValues(procedure, code).Inc()
	m.RPCRequestDuration.WithLabelValues(procedure).Observe(duration.Seconds())
}

// RecordAnalysis записывает метрики анализа
func (m *Metrics) RecordAnalysis(solver, status string, duration time.Duration, constraints int) {
	m.AnalysesTotal.WithLabelValues(solver, status).Inc()
	m.AnalysisDuration.WithLabelValues(solver).Observe(duration.Seconds())
	m.ModelConstraints.WithLabelValues("analyze").Observe(float64(constraints))
}

// RecordProfit запоминает последнюю оптимальную прибыль
func (m *Metrics) RecordProfit(solver string, profit float64) {
	m.BaselineProfit.WithLabelValues(solver).Set(profit)
}

// RecordProbes записывает число корректных, некорректных и сбойных проб
func (m *Metrics) RecordProbes(solver string, valid, invalid, failed int) {
	m.RangeProbesTotal.WithLabelValues(solver, "valid").Add(float64(valid))
	m.RangeProbesTotal.WithLabelValues(solver, "invalid").Add(float64(invalid))
	m.RangeProbesTotal.WithLabelValues(solver, "failed").Add(float64(failed))
}

// RecordUnbounded отмечает направление без конечной границы
func (m *Metrics) RecordUnbounded(direction string) {
	m.UnboundedRanges.WithLabelValues(direction).Inc()
}

// RecordScenario записывает оценку сценария
func (m *Metrics) RecordScenario(allFeasible bool) {
	m.ScenarioEvaluations.WithLabelValues(strconv.FormatBool(allFeasible)).Inc()
}

// RecordReport записывает генерацию отчёта
func (m *Metrics) RecordReport(format string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.ReportsGenerated.WithLabelValues(format, status).Inc()
}

// RecordCache записывает попадание или промах кэша
func (m *Metrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer запускает отдельный HTTP сервер для метрик
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, ошибка записи не критична
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
