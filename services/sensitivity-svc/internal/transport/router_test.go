package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/api/sensitivity/v1/sensitivityv1connect"
	"production/pkg/apperror"
	"production/pkg/cache"
	"production/pkg/config"
	"production/pkg/logger"
	"production/pkg/lp"
	"production/services/sensitivity-svc/internal/repository"
	"production/services/sensitivity-svc/internal/service"
)

func init() {
	logger.Init("error")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "sensitivity-service", Version: "test"},
		HTTP: config.HTTPConfig{
			RequestTimeout: 10 * time.Second,
			CORS: config.CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"https://planner.example.com"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", RequestIDHeader},
				ExposedHeaders: []string{RequestIDHeader},
				MaxAge:         600,
			},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Swagger: config.SwaggerConfig{Enabled: false},
		Analysis: config.AnalysisConfig{
			Solver:         "tableau",
			Workers:        2,
			MinVariables:   2,
			MaxVariables:   4,
			MaxConstraints: 20,
			Persist:        true,
		},
		Report: config.ReportConfig{DefaultFormat: "json"},
	}
}

type testServer struct {
	*httptest.Server
	client sensitivityv1connect.SensitivityServiceClient
}

func newTestServer(t *testing.T, checks map[string]ReadinessCheck) *testServer {
	t.Helper()
	cfg := testConfig()

	mc := cache.NewMemoryCache(nil)
	t.Cleanup(func() { _ = mc.Close() })

	svc := service.NewSensitivityService("test", cfg.Analysis, cfg.Report, service.Dependencies{
		Repository: repository.NewMemoryAnalysisRepository(),
		Cache:      cache.NewAnalysisCache(mc, time.Minute),
	})

	srv := httptest.NewServer(NewRouter(svc, RouterOptions{Config: cfg, Checks: checks}))
	t.Cleanup(srv.Close)

	return &testServer{
		Server: srv,
		client: sensitivityv1connect.NewSensitivityServiceClient(srv.Client(), srv.URL),
	}
}

func wyndorProblem() lp.Problem {
	return lp.Problem{
		NumVars:   2,
		Objective: []float64{3, 5},
		Constraints: []lp.Constraint{
			{Coefficients: []float64{1, 0}, Relation: lp.LessEqual, RHS: 4},
			{Coefficients: []float64{0, 2}, Relation: lp.LessEqual, RHS: 12},
			{Coefficients: []float64{3, 2}, Relation: lp.LessEqual, RHS: 18},
		},
	}
}

func TestRouter_AnalyzeAndScenario(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()

	resp, err := ts.client.Analyze(ctx, connect.NewRequest(&sensitivityv1.AnalyzeRequest{
		Problem: wyndorProblem(),
		Name:    "wyndor",
	}))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header().Get(RequestIDHeader))

	a := resp.Msg.Analysis
	require.NotNil(t, a)
	assert.Equal(t, "Optimal", a.Status)
	assert.InDelta(t, 36.0, a.Objective, lp.Epsilon)
	require.Len(t, a.Ranges, 3)
	assert.True(t, a.Ranges[0].IncreaseLimit.Unbounded)

	scn, err := ts.client.EvaluateScenario(ctx, connect.NewRequest(&sensitivityv1.EvaluateScenarioRequest{
		AnalysisID: a.ID,
		Deltas:     map[string]float64{"R2": 3},
	}))
	require.NoError(t, err)
	assert.True(t, scn.Msg.Scenario.AllFeasible)
	assert.InDelta(t, 40.5, scn.Msg.Scenario.NewProfit, lp.Epsilon)

	list, err := ts.client.ListAnalyses(ctx, connect.NewRequest(&sensitivityv1.ListAnalysesRequest{}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Msg.Total)
}

func TestRouter_RequestIDPropagated(t *testing.T) {
	ts := newTestServer(t, nil)

	req := connect.NewRequest(&sensitivityv1.SolveRequest{Problem: wyndorProblem()})
	req.Header().Set(RequestIDHeader, "req-42")

	resp, err := ts.client.Solve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Header().Get(RequestIDHeader))
	assert.Equal(t, "Optimal", resp.Msg.Status)
}

func TestRouter_ErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		call        func() error
		connectCode connect.Code
		appCode     apperror.ErrorCode
	}{
		{
			name: "invalid id",
			call: func() error {
				_, err := ts.client.GetAnalysis(ctx, connect.NewRequest(&sensitivityv1.GetAnalysisRequest{ID: "nope"}))
				return err
			},
			connectCode: connect.CodeInvalidArgument,
			appCode:     apperror.CodeInvalidArgument,
		},
		{
			name: "not found",
			call: func() error {
				_, err := ts.client.GetAnalysis(ctx, connect.NewRequest(&sensitivityv1.GetAnalysisRequest{
					ID: "00000000-0000-4000-8000-000000000000",
				}))
				return err
			},
			connectCode: connect.CodeNotFound,
			appCode:     apperror.CodeNotFound,
		},
		{
			name: "unknown constraint",
			call: func() error {
				p := wyndorProblem()
				_, err := ts.client.EvaluateScenario(ctx, connect.NewRequest(&sensitivityv1.EvaluateScenarioRequest{
					Problem: &p,
					Deltas:  map[string]float64{"R5": 1},
				}))
				return err
			},
			connectCode: connect.CodeInvalidArgument,
			appCode:     apperror.CodeUnknownConstraint,
		},
		{
			name: "bad report format",
			call: func() error {
				p := wyndorProblem()
				_, err := ts.client.ExportReport(ctx, connect.NewRequest(&sensitivityv1.ExportReportRequest{
					Problem: &p,
					Format:  "html",
				}))
				return err
			},
			connectCode: connect.CodeInvalidArgument,
			appCode:     apperror.CodeInvalidReportFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)

			var cerr *connect.Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.connectCode, cerr.Code())
			assert.NotEmpty(t, cerr.Meta().Get(RequestIDHeader))
			assert.Equal(t, tt.appCode, apperror.FromConnect(err).Code)
		})
	}
}

func TestRouter_ExportReport(t *testing.T) {
	ts := newTestServer(t, nil)
	p := wyndorProblem()

	resp, err := ts.client.ExportReport(context.Background(), connect.NewRequest(&sensitivityv1.ExportReportRequest{
		Problem: &p,
		Format:  "markdown",
	}))
	require.NoError(t, err)

	assert.Equal(t, "markdown", resp.Msg.Format)
	assert.Contains(t, string(resp.Msg.Content), "## Feasibility Ranges")
	assert.Contains(t, resp.Header().Get("Content-Disposition"), resp.Msg.Filename)
}

func TestRouter_Health(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestRouter_Ready(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		ts := newTestServer(t, map[string]ReadinessCheck{
			"database": func(context.Context) error { return nil },
		})
		resp, err := http.Get(ts.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("failing check", func(t *testing.T) {
		ts := newTestServer(t, map[string]ReadinessCheck{
			"database": func(context.Context) error { return errors.New("connection refused") },
		})
		resp, err := http.Get(ts.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "connection refused", body.Checks["database"])
	})
}

func TestRouter_Metrics(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := ts.client.Solve(context.Background(), connect.NewRequest(&sensitivityv1.SolveRequest{Problem: wyndorProblem()}))
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Swagger(t *testing.T) {
	cfg := testConfig()
	cfg.Swagger = config.SwaggerConfig{Enabled: true, BasePath: "/docs"}
	svc := service.NewSensitivityService("2.0.1", cfg.Analysis, cfg.Report, service.Dependencies{
		Repository: repository.NewMemoryAnalysisRepository(),
	})
	srv := httptest.NewServer(NewRouter(svc, RouterOptions{Config: cfg}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/docs/openapi.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "2.0.1", doc.Info.Version)
}

func TestRouter_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+sensitivityv1connect.SensitivityServiceAnalyzeProcedure, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://planner.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://planner.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Connect-Protocol-Version")
	assert.Equal(t, "600", resp.Header.Get("Access-Control-Max-Age"))
}

func TestCORS_UnknownOrigin(t *testing.T) {
	h := CORS(config.CORSConfig{AllowedOrigins: []string{"https://a.example.com"}})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPrepareAllowedHeaders(t *testing.T) {
	in := []string{"Content-Type"}
	got := prepareAllowedHeaders(in)
	assert.Equal(t, "Content-Type, Connect-Protocol-Version", got)
	assert.Len(t, in, 1)

	assert.Contains(t, prepareAllowedHeaders([]string{"*"}), RequestIDHeader)
}

func TestLoggingInterceptor_RequestIDInContext(t *testing.T) {
	var seen string
	next := connect.UnaryFunc(func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		seen = GetRequestID(ctx)
		return connect.NewResponse(&sensitivityv1.SolveResponse{}), nil
	})

	req := connect.NewRequest(&sensitivityv1.SolveRequest{})
	req.Header().Set(RequestIDHeader, "req-ctx")
	resp, err := NewLoggingInterceptor()(next)(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "req-ctx", seen)
	assert.Equal(t, "req-ctx", resp.Header().Get(RequestIDHeader))

	_, err = NewLoggingInterceptor()(next)(context.Background(), connect.NewRequest(&sensitivityv1.SolveRequest{}))
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
}
