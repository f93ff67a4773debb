// Package sensitivityv1connect содержит Connect клиент и обработчик
// сервиса production.sensitivity.v1.SensitivityService.
package sensitivityv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	v1 "production/pkg/api/sensitivity/v1"
)

// SensitivityServiceName - полное имя сервиса
const SensitivityServiceName = "production.sensitivity.v1.SensitivityService"

// Процедуры сервиса
const (
	SensitivityServiceSolveProcedure            = "/production.sensitivity.v1.SensitivityService/Solve"
	SensitivityServiceAnalyzeProcedure          = "/production.sensitivity.v1.SensitivityService/Analyze"
	SensitivityServiceEvaluateScenarioProcedure = "/production.sensitivity.v1.SensitivityService/EvaluateScenario"
	SensitivityServiceGetAnalysisProcedure      = "/production.sensitivity.v1.SensitivityService/GetAnalysis"
	SensitivityServiceListAnalysesProcedure     = "/production.sensitivity.v1.SensitivityService/ListAnalyses"
	SensitivityServiceDeleteAnalysisProcedure   = "/production.sensitivity.v1.SensitivityService/DeleteAnalysis"
	SensitivityServiceExportReportProcedure     = "/production.sensitivity.v1.SensitivityService/ExportReport"
)

// SensitivityServiceClient - клиент сервиса
type SensitivityServiceClient interface {
	Solve(context.Context, *connect.Request[v1.SolveRequest]) (*connect.Response[v1.SolveResponse], error)
	Analyze(context.Context, *connect.Request[v1.AnalyzeRequest]) (*connect.Response[v1.AnalyzeResponse], error)
	EvaluateScenario(context.Context, *connect.Request[v1.EvaluateScenarioRequest]) (*connect.Response[v1.EvaluateScenarioResponse], error)
	GetAnalysis(context.Context, *connect.Request[v1.GetAnalysisRequest]) (*connect.Response[v1.GetAnalysisResponse], error)
	ListAnalyses(context.Context, *connect.Request[v1.ListAnalysesRequest]) (*connect.Response[v1.ListAnalysesResponse], error)
	DeleteAnalysis(context.Context, *connect.Request[v1.DeleteAnalysisRequest]) (*connect.Response[v1.DeleteAnalysisResponse], error)
	ExportReport(context.Context, *connect.Request[v1.ExportReportRequest]) (*connect.Response[v1.ExportReportResponse], error)
}

// NewSensitivityServiceClient создаёт клиент; JSON кодек подключается автоматически
func NewSensitivityServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SensitivityServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(v1.JSONCodec{})}, opts...)

	return &sensitivityServiceClient{
		solve: connect.NewClient[v1.SolveRequest, v1.SolveResponse](
			httpClient, baseURL+SensitivityServiceSolveProcedure, opts...),
		analyze: connect.NewClient[v1.AnalyzeRequest, v1.AnalyzeResponse](
			httpClient, baseURL+SensitivityServiceAnalyzeProcedure, opts...),
		evaluateScenario: connect.NewClient[v1.EvaluateScenarioRequest, v1.EvaluateScenarioResponse](
			httpClient, baseURL+SensitivityServiceEvaluateScenarioProcedure, opts...),
		getAnalysis: connect.NewClient[v1.GetAnalysisRequest, v1.GetAnalysisResponse](
			httpClient, baseURL+SensitivityServiceGetAnalysisProcedure, opts...),
		listAnalyses: connect.NewClient[v1.ListAnalysesRequest, v1.ListAnalysesResponse](
			httpClient, baseURL+SensitivityServiceListAnalysesProcedure, opts...),
		deleteAnalysis: connect.NewClient[v1.DeleteAnalysisRequest, v1.DeleteAnalysisResponse](
			httpClient, baseURL+SensitivityServiceDeleteAnalysisProcedure, opts...),
		exportReport: connect.NewClient[v1.ExportReportRequest, v1.ExportReportResponse](
			httpClient, baseURL+SensitivityServiceExportReportProcedure, opts...),
	}
}

type sensitivityServiceClient struct {
	solve            *connect.Client[v1.SolveRequest, v1.SolveResponse]
	analyze          *connect.Client[v1.AnalyzeRequest, v1.AnalyzeResponse]
	evaluateScenario *connect.Client[v1.EvaluateScenarioRequest, v1.EvaluateScenarioResponse]
	getAnalysis      *connect.Client[v1.GetAnalysisRequest, v1.GetAnalysisResponse]
	listAnalyses     *connect.Client[v1.ListAnalysesRequest, v1.ListAnalysesResponse]
	deleteAnalysis   *connect.Client[v1.DeleteAnalysisRequest, v1.DeleteAnalysisResponse]
	exportReport     *connect.Client[v1.ExportReportRequest, v1.ExportReportResponse]
}

func (c *sensitivityServiceClient) Solve(ctx context.Context, req *connect.Request[v1.SolveRequest]) (*connect.Response[v1.SolveResponse], error) {
	return c.solve.CallUnary(ctx, req)
}

func (c *sensitivityServiceClient) Analyze(ctx context.Context, req *connect.Request[v1.AnalyzeRequest]) (*connect.Response[v1.AnalyzeResponse], error) {
	return c.analyze.CallUnary(ctx, req)
}

func (c *sensitivityServiceClient) EvaluateScenario(ctx context.Context, req *connect.Request[v1.EvaluateScenarioRequest]) (*connect.Response[v1.EvaluateScenarioResponse], error) {
	return c.evaluateScenario.CallUnary(ctx, req)
}

func (c *sensitivityServiceClient) GetAnalysis(ctx context.Context, req *connect.Request[v1.GetAnalysisRequest]) (*connect.Response[v1.GetAnalysisResponse], error) {
	return c.getAnalysis.CallUnary(ctx, req)
}

func (c *sensitivityServiceClient) ListAnalyses(ctx context.Context, req *connect.Request[v1.ListAnalysesRequest]) (*connect.Response[v1.ListAnalysesResponse], error) {
	return c.listAnalyses.CallUnary(ctx, req)
}

func (c *sensitivityServiceClient) DeleteAnalysis(ctx context.Context, req *connect.Request[v1.DeleteAnalysisRequest]) (*connect.Response[v1.DeleteAnalysisResponse], error) {
	return c.deleteAnalysis.CallUnary(ctx, req)
}

func (c *sensitivityServiceClient) ExportReport(ctx context.Context, req *connect.Request[v1.ExportReportRequest]) (*connect.Response[v1.ExportReportResponse], error) {
	return c.exportReport.CallUnary(ctx, req)
}

// SensitivityServiceHandler - серверная реализация сервиса
type SensitivityServiceHandler interface {
	Solve(context.Context, *connect.Request[v1.SolveRequest]) (*connect.Response[v1.SolveResponse], error)
	Analyze(context.Context, *connect.Request[v1.AnalyzeRequest]) (*connect.Response[v1.AnalyzeResponse], error)
	EvaluateScenario(context.Context, *connect.Request[v1.EvaluateScenarioRequest]) (*connect.Response[v1.EvaluateScenarioResponse], error)
	GetAnalysis(context.Context, *connect.Request[v1.GetAnalysisRequest]) (*connect.Response[v1.GetAnalysisResponse], error)
	ListAnalyses(context.Context, *connect.Request[v1.ListAnalysesRequest]) (*connect.Response[v1.ListAnalysesResponse], error)
	DeleteAnalysis(context.Context, *connect.Request[v1.DeleteAnalysisRequest]) (*connect.Response[v1.DeleteAnalysisResponse], error)
	ExportReport(context.Context, *connect.Request[v1.ExportReportRequest]) (*connect.Response[v1.ExportReportResponse], error)
}

// NewSensitivityServiceHandler строит HTTP обработчик; возвращает префикс пути для mux
func NewSensitivityServiceHandler(svc SensitivityServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(v1.JSONCodec{})}, opts...)

	solve := connect.NewUnaryHandler(SensitivityServiceSolveProcedure, svc.Solve, opts...)
	analyze := connect.NewUnaryHandler(SensitivityServiceAnalyzeProcedure, svc.Analyze, opts...)
	evaluateScenario := connect.NewUnaryHandler(SensitivityServiceEvaluateScenarioProcedure, svc.EvaluateScenario, opts...)
	getAnalysis := connect.NewUnaryHandler(SensitivityServiceGetAnalysisProcedure, svc.GetAnalysis, opts...)
	listAnalyses := connect.NewUnaryHandler(SensitivityServiceListAnalysesProcedure, svc.ListAnalyses, opts...)
	deleteAnalysis := connect.NewUnaryHandler(SensitivityServiceDeleteAnalysisProcedure, svc.DeleteAnalysis, opts...)
	exportReport := connect.NewUnaryHandler(SensitivityServiceExportReportProcedure, svc.ExportReport, opts...)

	return "/" + SensitivityServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SensitivityServiceSolveProcedure:
			solve.ServeHTTP(w, r)
		case SensitivityServiceAnalyzeProcedure:
			analyze.ServeHTTP(w, r)
		case SensitivityServiceEvaluateScenarioProcedure:
			evaluateScenario.ServeHTTP(w, r)
		case SensitivityServiceGetAnalysisProcedure:
			getAnalysis.ServeHTTP(w, r)
		case SensitivityServiceListAnalysesProcedure:
			listAnalyses.ServeHTTP(w, r)
		case SensitivityServiceDeleteAnalysisProcedure:
			deleteAnalysis.ServeHTTP(w, r)
		case SensitivityServiceExportReportProcedure:
			exportReport.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
