// Package transport публикует сервис анализа чувствительности через Connect RPC
package transport

import (
	"context"

	"connectrpc.com/connect"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/api/sensitivity/v1/sensitivityv1connect"
	"production/pkg/apperror"
	"production/services/sensitivity-svc/internal/service"
)

// Handler адаптирует SensitivityService к интерфейсу Connect
type Handler struct {
	svc *service.SensitivityService
}

var _ sensitivityv1connect.SensitivityServiceHandler = (*Handler)(nil)

// NewHandler создаёт обработчик
func NewHandler(svc *service.SensitivityService) *Handler {
	return &Handler{svc: svc}
}

// unary вызывает метод сервиса и переводит ошибку приложения в ошибку Connect
func unary[Req, Res any](ctx context.Context, req *connect.Request[Req], call func(context.Context, *Req) (*Res, error)) (*connect.Response[Res], error) {
	res, err := call(ctx, req.Msg)
	if err != nil {
		return nil, apperror.ToConnect(err)
	}
	return connect.NewResponse(res), nil
}

func (h *Handler) Solve(ctx context.Context, req *connect.Request[sensitivityv1.SolveRequest]) (*connect.Response[sensitivityv1.SolveResponse], error) {
	return unary(ctx, req, h.svc.Solve)
}

func (h *Handler) Analyze(ctx context.Context, req *connect.Request[sensitivityv1.AnalyzeRequest]) (*connect.Response[sensitivityv1.AnalyzeResponse], error) {
	return unary(ctx, req, h.svc.Analyze)
}

func (h *Handler) EvaluateScenario(ctx context.Context, req *connect.Request[sensitivityv1.EvaluateScenarioRequest]) (*connect.Response[sensitivityv1.EvaluateScenarioResponse], error) {
	return unary(ctx, req, h.svc.EvaluateScenario)
}

func (h *Handler) GetAnalysis(ctx context.Context, req *connect.Request[sensitivityv1.GetAnalysisRequest]) (*connect.Response[sensitivityv1.GetAnalysisResponse], error) {
	return unary(ctx, req, h.svc.GetAnalysis)
}

func (h *Handler) ListAnalyses(ctx context.Context, req *connect.Request[sensitivityv1.ListAnalysesRequest]) (*connect.Response[sensitivityv1.ListAnalysesResponse], error) {
	return unary(ctx, req, h.svc.ListAnalyses)
}

func (h *Handler) DeleteAnalysis(ctx context.Context, req *connect.Request[sensitivityv1.DeleteAnalysisRequest]) (*connect.Response[sensitivityv1.DeleteAnalysisResponse], error) {
	return unary(ctx, req, h.svc.DeleteAnalysis)
}

// ExportReport дополнительно отдаёт имя файла в заголовке Content-Disposition
func (h *Handler) ExportReport(ctx context.Context, req *connect.Request[sensitivityv1.ExportReportRequest]) (*connect.Response[sensitivityv1.ExportReportResponse], error) {
	resp, err := unary(ctx, req, h.svc.ExportReport)
	if err != nil {
		return nil, err
	}
	resp.Header().Set("Content-Disposition", `attachment; filename="`+resp.Msg.Filename+`"`)
	return resp, nil
}
