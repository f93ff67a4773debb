package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"production/pkg/config"
	"production/pkg/logger"
	"production/pkg/metrics"
	"production/pkg/telemetry"
)

const defaultShutdownTimeout = 30 * time.Second

// HTTPServer обёртка над http.Server для Connect обработчиков (HTTP/1.1 и h2c)
type HTTPServer struct {
	server      *http.Server
	serviceName string
	config      *config.Config
	telemetry   *telemetry.Provider
	ready       atomic.Bool

	mu      sync.Mutex
	closers []func(context.Context) error
}

// New создаёт сервер; handler оборачивается в h2c для HTTP/2 без TLS
func New(cfg *config.Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              cfg.HTTP.Address(),
			Handler:           h2c.NewHandler(handler, &http2.Server{}),
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
		},
		serviceName: cfg.App.Name,
		config:      cfg,
	}
}

// OnShutdown регистрирует функцию освобождения ресурсов.
// Функции вызываются в обратном порядке регистрации после остановки сервера.
func (s *HTTPServer) OnShutdown(fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

// Ready сообщает, принимает ли сервер запросы
func (s *HTTPServer) Ready() bool {
	return s.ready.Load()
}

// Run запускает сервер и блокируется до SIGINT/SIGTERM
func (s *HTTPServer) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s.config.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.FromConfig(s.config))
		if err != nil {
			logger.Log.Warn("Failed to init telemetry", "error", err)
		} else {
			s.telemetry = tp
			logger.Log.Info("Telemetry initialized",
				"endpoint", s.config.Tracing.Endpoint,
				"sample_rate", s.config.Tracing.SampleRate,
			)
		}
	}

	// Отдельный порт метрик; на основном порту /metrics монтируется маршрутизатором
	if s.config.Metrics.Enabled && s.config.Metrics.Port != 0 && s.config.Metrics.Port != s.config.HTTP.Port {
		go func() {
			logger.Log.Info("Starting metrics server", "port", s.config.Metrics.Port)
			if err := metrics.StartMetricsServer(s.config.Metrics.Port); err != nil {
				logger.Log.Error("Metrics server failed", "error", err)
			}
		}()
	}

	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	metrics.Get().SetServiceInfo(s.config.App.Version, s.config.App.Environment)

	return s.Serve(ctx, lis)
}

// Serve обслуживает соединения до отмены ctx, затем останавливает сервер
func (s *HTTPServer) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Starting HTTP server",
			"service", s.serviceName,
			"addr", lis.Addr().String(),
			"environment", s.config.App.Environment,
			"version", s.config.App.Version,
		)
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.ready.Store(true)

	select {
	case err, ok := <-errCh:
		s.ready.Store(false)
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Log.Info("Received shutdown signal", "service", s.serviceName)
	}

	timeout := s.config.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.Shutdown(shutdownCtx)
}

// Shutdown останавливает приём запросов, дожидается активных и освобождает ресурсы
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.ready.Store(false)

	err := s.server.Shutdown(ctx)
	if err != nil {
		logger.Log.Warn("Forcing server stop", "error", err)
		_ = s.server.Close() //nolint:errcheck // сервер уже останавливается
	} else {
		logger.Log.Info("Server stopped gracefully")
	}

	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		if cerr := closers[i](ctx); cerr != nil {
			logger.Log.Warn("Shutdown hook failed", "error", cerr)
		}
	}

	if s.telemetry != nil {
		if terr := s.telemetry.Shutdown(ctx); terr != nil {
			logger.Log.Warn("Failed to shutdown telemetry", "error", terr)
		}
	}
	return err
}
