package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Модель
	AttrModelVariables   = "lp.variables"
	AttrModelConstraints = "lp.constraints"

	// Решатель
	AttrSolver     = "lp.solver"
	AttrStatus     = "lp.status"
	AttrIterations = "lp.iterations"
	AttrObjective  = "lp.objective"

	// Анализ чувствительности
	AttrAnalysisID     = "analysis.id"
	AttrRangesFound    = "analysis.ranges"
	AttrProbes         = "analysis.probes"
	AttrFailedProbes   = "analysis.failed_probes"
	AttrCacheHit       = "analysis.cache_hit"
	AttrScenarioDeltas = "scenario.deltas"
	AttrScenarioOK     = "scenario.all_feasible"

	// Отчёты
	AttrReportFormat = "report.format"
	AttrReportSize   = "report.size_bytes"
)

// ModelAttributes возвращает атрибуты модели
func ModelAttributes(variables, constraints int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrModelVariables, variables),
		attribute.Int(AttrModelConstraints, constraints),
	}
}

// SolveAttributes возвращает атрибуты решения
func SolveAttributes(solver, status string, iterations int, objective float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSolver, solver),
		attribute.String(AttrStatus, status),
		attribute.Int(AttrIterations, iterations),
		attribute.Float64(AttrObjective, objective),
	}
}

// AnalysisAttributes возвращает атрибуты анализа чувствительности
func AnalysisAttributes(id string, ranges, probes, failedProbes int, cacheHit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAnalysisID, id),
		attribute.Int(AttrRangesFound, ranges),
		attribute.Int(AttrProbes, probes),
		attribute.Int(AttrFailedProbes, failedProbes),
		attribute.Bool(AttrCacheHit, cacheHit),
	}
}

// ScenarioAttributes возвращает атрибуты оценки сценария
func ScenarioAttributes(deltas int, allFeasible bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrScenarioDeltas, deltas),
		attribute.Bool(AttrScenarioOK, allFeasible),
	}
}

// ReportAttributes возвращает атрибуты отчёта
func ReportAttributes(format string, size int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrReportFormat, format),
		attribute.Int(AttrReportSize, size),
	}
}
