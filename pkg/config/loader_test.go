package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader(WithConfigPaths()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "sensitivity-service" {
		t.Errorf("expected app name 'sensitivity-service', got %s", cfg.App.Name)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected HTTP port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("expected metrics port 9090, got %d", cfg.Metrics.Port)
	}

	// Параметры поиска диапазонов
	if cfg.Analysis.ExpansionProbes != 20 {
		t.Errorf("expected 20 expansion probes, got %d", cfg.Analysis.ExpansionProbes)
	}
	if cfg.Analysis.BisectionIterations != 15 {
		t.Errorf("expected 15 bisection iterations, got %d", cfg.Analysis.BisectionIterations)
	}
	if cfg.Analysis.InitialStep != 1.0 {
		t.Errorf("expected initial step 1.0, got %v", cfg.Analysis.InitialStep)
	}
	if cfg.Analysis.MinVariables != 2 || cfg.Analysis.MaxVariables != 4 {
		t.Errorf("expected variable range [2,4], got [%d,%d]", cfg.Analysis.MinVariables, cfg.Analysis.MaxVariables)
	}
	if cfg.Analysis.MaxConstraints != 20 {
		t.Errorf("expected 20 max constraints, got %d", cfg.Analysis.MaxConstraints)
	}
	if cfg.Analysis.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.Analysis.Timeout)
	}
	if cfg.Report.Precision != 2 {
		t.Errorf("expected report precision 2, got %d", cfg.Report.Precision)
	}

	// Значения из описания в services/sensitivity-svc/cmd/main.go
	if !cfg.Cache.Enabled {
		t.Error("expected cache enabled by default")
	}
	if cfg.Cache.Driver != "memory" {
		t.Errorf("expected cache driver 'memory', got %s", cfg.Cache.Driver)
	}
	if cfg.Database.Enabled {
		t.Error("expected database disabled by default")
	}
	if cfg.Analysis.Solver != "tableau" {
		t.Errorf("expected solver 'tableau', got %s", cfg.Analysis.Solver)
	}
}

func TestLoader_MissingFileIsWarning(t *testing.T) {
	loader := NewLoader(WithConfigPaths(filepath.Join(t.TempDir(), "absent.yaml")))
	if _, err := loader.Load(); err != nil {
		t.Fatalf("missing config file must not fail: %v", err)
	}
	if len(loader.Warnings()) != 1 {
		t.Errorf("expected one warning, got %v", loader.Warnings())
	}
}

func TestLoader_LoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
app:
  name: custom-service
  version: 2.0.0
  environment: staging
http:
  port: 8181
log:
  level: debug
analysis:
  solver: gonum
  workers: 1
  max_variables: 8
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-service" {
		t.Errorf("expected app name 'custom-service', got %s", cfg.App.Name)
	}
	if cfg.App.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %s", cfg.App.Version)
	}
	if cfg.HTTP.Port != 8181 {
		t.Errorf("expected port 8181, got %d", cfg.HTTP.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Log.Level)
	}
	if cfg.Analysis.Solver != "gonum" || cfg.Analysis.Workers != 1 || cfg.Analysis.MaxVariables != 8 {
		t.Errorf("unexpected analysis section: %+v", cfg.Analysis)
	}
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("PRODUCTION_APP_NAME", "env-service")
	t.Setenv("PRODUCTION_HTTP_PORT", "8282")
	t.Setenv("PRODUCTION_ANALYSIS_MAX_CONSTRAINTS", "50")
	t.Setenv("PRODUCTION_HTTP_CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := NewLoader(WithConfigPaths()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-service" {
		t.Errorf("expected app name 'env-service', got %s", cfg.App.Name)
	}
	if cfg.HTTP.Port != 8282 {
		t.Errorf("expected port 8282, got %d", cfg.HTTP.Port)
	}
	if cfg.Analysis.MaxConstraints != 50 {
		t.Errorf("expected 50 max constraints, got %d", cfg.Analysis.MaxConstraints)
	}
	if len(cfg.HTTP.CORS.AllowedOrigins) != 2 || cfg.HTTP.CORS.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("unexpected origins: %v", cfg.HTTP.CORS.AllowedOrigins)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
app:
  name: file-service
http:
  port: 8383
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("PRODUCTION_APP_NAME", "env-override")

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-override" {
		t.Errorf("expected env override, got %s", cfg.App.Name)
	}
	// Порт берётся из файла
	if cfg.HTTP.Port != 8383 {
		t.Errorf("expected port from file 8383, got %d", cfg.HTTP.Port)
	}
}

func TestLoader_WithEnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_APP_NAME", "custom-prefix-service")

	cfg, err := NewLoader(WithConfigPaths(), WithEnvPrefix("CUSTOM_")).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-prefix-service" {
		t.Errorf("expected 'custom-prefix-service', got %s", cfg.App.Name)
	}
}

func TestLoader_InvalidValueFailsValidation(t *testing.T) {
	t.Setenv("PRODUCTION_ANALYSIS_SOLVER", "simplex-9000")

	if _, err := NewLoader(WithConfigPaths()).Load(); err == nil {
		t.Error("expected validation error for unknown solver")
	}
}

func TestMustLoad_Success(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustLoad should not panic with valid config")
		}
	}()

	if cfg := MustLoad(WithConfigPaths()); cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestLoadWithServiceDefaults(t *testing.T) {
	cfg, err := LoadWithServiceDefaults("test-svc", 8090)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if cfg.App.Name != "test-svc" {
		t.Errorf("expected app name 'test-svc', got %s", cfg.App.Name)
	}
	if cfg.Tracing.ServiceName != "test-svc" {
		t.Errorf("expected tracing service name 'test-svc', got %s", cfg.Tracing.ServiceName)
	}
	if cfg.HTTP.Port != 8090 {
		t.Errorf("expected port 8090, got %d", cfg.HTTP.Port)
	}
}

func TestLoader_ConfigEnvVar(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom-config.yaml")

	configContent := `
app:
  name: config-env-var-service
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("CONFIG_PATH", configPath)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "config-env-var-service" {
		t.Errorf("expected 'config-env-var-service', got %s", cfg.App.Name)
	}
}
