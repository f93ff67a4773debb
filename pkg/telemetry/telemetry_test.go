package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"production/pkg/config"
)

// recordSpans подменяет глобальный provider на sdk с записью спанов в память
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	setGlobal(tp)
	t.Cleanup(func() {
		mu.Lock()
		globalProvider = nil
		mu.Unlock()
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Name: "sensitivity-svc", Version: "1.2.0", Environment: "production"},
		Tracing: config.TracingConfig{
			Enabled:    true,
			Endpoint:   "otel-collector:4317",
			SampleRate: 0.25,
		},
	}

	got := FromConfig(cfg)
	if got.ServiceName != "sensitivity-svc" {
		t.Errorf("ServiceName = %q, want app name fallback", got.ServiceName)
	}
	if got.Version != "1.2.0" || got.Environment != "production" || got.SampleRate != 0.25 {
		t.Errorf("unexpected config: %+v", got)
	}
	if got.Insecure {
		t.Error("remote collector in production must use TLS")
	}

	cfg.Tracing.Endpoint = "localhost:4317"
	cfg.Tracing.ServiceName = "lp"
	got = FromConfig(cfg)
	if !got.Insecure || got.ServiceName != "lp" {
		t.Errorf("unexpected config: %+v", got)
	}

	cfg.App.Environment = "development"
	cfg.Tracing.Endpoint = "otel-collector:4317"
	if !FromConfig(cfg).Insecure {
		t.Error("development should not require TLS")
	}
}

func TestInit_Disabled(t *testing.T) {
	provider, err := Init(context.Background(), Config{Enabled: false, ServiceName: "test"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if provider.tracer == nil {
		t.Error("tracer should not be nil even when disabled")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		got := Sampler(tt.rate).Description()
		want := "ParentBased{root:" + tt.want
		if len(got) < len(want) || got[:len(want)] != want {
			t.Errorf("Sampler(%v) = %q, want prefix %q", tt.rate, got, want)
		}
	}
}

func TestStartSpan_Recorded(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "engine.Analyze")
	AddEvent(ctx, "cache.miss", ModelAttributes(2, 3)...)
	RecordError(ctx, errors.New("persist failed"))
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name() != "engine.Analyze" {
		t.Errorf("name = %q", got.Name())
	}
	if got.Status().Code == codes.Error {
		t.Error("RecordError must not change span status")
	}
	if len(got.Events()) != 2 {
		t.Errorf("expected event and error, got %d events", len(got.Events()))
	}
}

func TestSetError(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "solve")
	SetError(ctx, context.DeadlineExceeded)
	span.End()

	got := rec.Ended()[0]
	if got.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", got.Status().Code)
	}
	if got.Status().Description != context.DeadlineExceeded.Error() {
		t.Errorf("description = %q", got.Status().Description)
	}
}

func TestModelAttributes(t *testing.T) {
	attrs := ModelAttributes(2, 3)

	expected := map[string]int64{
		AttrModelVariables:   2,
		AttrModelConstraints: 3,
	}
	if len(attrs) != len(expected) {
		t.Fatalf("expected %d attributes, got %d", len(expected), len(attrs))
	}
	for _, attr := range attrs {
		if want := expected[string(attr.Key)]; attr.Value.AsInt64() != want {
			t.Errorf("%s = %d, want %d", attr.Key, attr.Value.AsInt64(), want)
		}
	}
}

func TestAttributeHelpers(t *testing.T) {
	if got := len(SolveAttributes("tableau", "Optimal", 4, 36)); got != 4 {
		t.Errorf("solve attributes = %d, want 4", got)
	}
	if got := len(AnalysisAttributes("id-1", 3, 120, 2, false)); got != 5 {
		t.Errorf("analysis attributes = %d, want 5", got)
	}
	if got := len(ScenarioAttributes(2, true)); got != 2 {
		t.Errorf("scenario attributes = %d, want 2", got)
	}
	if got := len(ReportAttributes("pdf", 1024)); got != 2 {
		t.Errorf("report attributes = %d, want 2", got)
	}
}

type ping struct{}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func TestUnaryInterceptor_ServerSpan(t *testing.T) {
	rec := recordSpans(t)

	procedure := "/production.sensitivity.v1.SensitivityService/Solve"
	mux := http.NewServeMux()
	mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(context.Context, *connect.Request[ping]) (*connect.Response[ping], error) {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("bad model"))
		},
		connect.WithInterceptors(UnaryInterceptor()),
		connect.WithCodec(jsonCodec{}),
	))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := connect.NewClient[ping, ping](srv.Client(), srv.URL+procedure, connect.WithCodec(jsonCodec{}))
	_, err := client.CallUnary(context.Background(), connect.NewRequest(&ping{}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Fatalf("code = %v, want invalid_argument", connect.CodeOf(err))
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 server span, got %d", len(spans))
	}
	if spans[0].Name() != procedure || spans[0].Status().Code != codes.Error {
		t.Errorf("span = %q status %v", spans[0].Name(), spans[0].Status().Code)
	}
}

func TestExtractHTTP(t *testing.T) {
	h := http.Header{}
	h.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	sc := trace.SpanContextFromContext(ExtractHTTP(context.Background(), h))
	if !sc.IsValid() || !sc.IsRemote() {
		t.Fatalf("expected remote span context, got %+v", sc)
	}
	if sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace id = %s", sc.TraceID())
	}
}
