// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config - главная структура конфигурации
type Config struct {
	App       AppConfig       `koanf:"app"`
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Swagger   SwaggerConfig   `koanf:"swagger"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Report    ReportConfig    `koanf:"report"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// HTTPConfig - настройки HTTP сервера (Connect + служебные эндпоинты)
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	CORS            CORSConfig    `koanf:"cors"`
}

// Address возвращает адрес прослушивания
func (h HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

// CORSConfig - настройки CORS
type CORSConfig struct {
	Enabled          bool     `koanf:"enabled"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	ExposedHeaders   []string `koanf:"exposed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file, discard
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DatabaseConfig - настройки базы данных
type DatabaseConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Driver          string        `koanf:"driver"` // postgres
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN возвращает строку подключения
func (d DatabaseConfig) DSN() string {
	switch strings.ToLower(d.Driver) {
	case "postgres", "postgresql":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
		)
	default:
		return ""
	}
}

// CacheConfig - настройки кэширования результатов анализа
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig ограничение частоты запросов к RPC.
// Стоимость Analyze растёт с числом ограничений задачи.
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Requests        int           `koanf:"requests"` // единиц стоимости за окно
	Window          time.Duration `koanf:"window"`
	Strategy        string        `koanf:"strategy"` // sliding_window, token_bucket
	KeyFunc         string        `koanf:"key_func"` // ip, procedure, ip_procedure
	Backend         string        `koanf:"backend"`  // memory, redis (адрес из cache)
	BurstSize       int           `koanf:"burst_size"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// SwaggerConfig конфигурация Swagger UI
type SwaggerConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Title    string `koanf:"title"`
	BasePath string `koanf:"base_path"`
}

// AnalysisConfig - параметры решателя и анализа чувствительности
type AnalysisConfig struct {
	Solver              string        `koanf:"solver"` // tableau, gonum
	Workers             int           `koanf:"workers"`
	MinVariables        int           `koanf:"min_variables"`
	MaxVariables        int           `koanf:"max_variables"`
	MaxConstraints      int           `koanf:"max_constraints"`
	ExpansionProbes     int           `koanf:"expansion_probes"`
	BisectionIterations int           `koanf:"bisection_iterations"`
	InitialStep         float64       `koanf:"initial_step"`
	MaxIterations       int           `koanf:"max_iterations"` // лимит итераций симплекса
	Timeout             time.Duration `koanf:"timeout"`
	Persist             bool          `koanf:"persist"`
}

// ReportConfig конфигурация экспорта отчётов
type ReportConfig struct {
	DefaultFormat string `koanf:"default_format"` // csv, markdown, json, xlsx, pdf
	CompanyName   string `koanf:"company_name"`
	Currency      string `koanf:"currency"`
	Precision     int32  `koanf:"precision"` // знаков после запятой в денежных полях

	PDF PDFConfig `koanf:"pdf"`
}

// PDFConfig конфигурация PDF генератора
type PDFConfig struct {
	MarginTop         float64 `koanf:"margin_top"`   // mm
	MarginLeft        float64 `koanf:"margin_left"`  // mm
	MarginRight       float64 `koanf:"margin_right"` // mm
	EnablePageNumbers bool    `koanf:"enable_page_numbers"`
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	// Валидация анализа
	validSolvers := map[string]bool{"": true, "tableau": true, "gonum": true}
	if !validSolvers[c.Analysis.Solver] {
		errs = append(errs, fmt.Sprintf("analysis.solver must be one of: tableau, gonum, got %s", c.Analysis.Solver))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, "rate_limit.requests and rate_limit.window must be positive")
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, "analysis.workers must be non-negative")
	}
	if c.Analysis.MinVariables < 0 || (c.Analysis.MaxVariables > 0 && c.Analysis.MinVariables > c.Analysis.MaxVariables) {
		errs = append(errs, fmt.Sprintf("analysis.min_variables (%d) must be within [0, max_variables=%d]",
			c.Analysis.MinVariables, c.Analysis.MaxVariables))
	}
	if c.Analysis.MaxConstraints < 0 {
		errs = append(errs, "analysis.max_constraints must be non-negative")
	}
	if c.Analysis.ExpansionProbes < 0 || c.Analysis.BisectionIterations < 0 {
		errs = append(errs, "analysis.expansion_probes and analysis.bisection_iterations must be non-negative")
	}
	if c.Analysis.InitialStep < 0 {
		errs = append(errs, "analysis.initial_step must be non-negative")
	}

	validFormats := map[string]bool{"": true, "csv": true, "markdown": true, "json": true, "xlsx": true, "pdf": true}
	if !validFormats[c.Report.DefaultFormat] {
		errs = append(errs, fmt.Sprintf("report.default_format must be one of: csv, markdown, json, xlsx, pdf, got %s", c.Report.DefaultFormat))
	}

	validDrivers := map[string]bool{"": true, "memory": true, "redis": true}
	if !validDrivers[c.Cache.Driver] {
		errs = append(errs, fmt.Sprintf("cache.driver must be one of: memory, redis, got %s", c.Cache.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
