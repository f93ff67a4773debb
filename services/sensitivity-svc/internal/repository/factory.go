package repository

import (
	"context"
	"fmt"

	"production/pkg/config"
	"production/pkg/database"
	"production/pkg/logger"
	"production/services/sensitivity-svc/migrations"
)

// Типы хранилища истории
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Store - репозиторий и ресурсы, которые нужно закрыть при остановке
type Store struct {
	Analyses AnalysisRepository
	db       *database.PostgresDB
}

// Close закрывает соединения
func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Ping проверяет доступность хранилища (для /ready)
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping(ctx)
}

// NewStore создаёт хранилище по конфигурации: выключенная база - in-memory
func NewStore(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	if !cfg.Enabled {
		return &Store{Analyses: NewMemoryAnalysisRepository()}, nil
	}

	switch cfg.Driver {
	case StorageMemory:
		return &Store{Analyses: NewMemoryAnalysisRepository()}, nil
	case StoragePostgres, "postgresql", "":
		db, err := database.NewPostgresDB(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if cfg.AutoMigrate {
			if err := database.NewMigrator(db.Pool(), migrations.FS, migrations.Dir).Up(ctx); err != nil {
				db.Close()
				return nil, err
			}
		} else {
			logger.Log.Info("Auto-migration is disabled")
		}
		return &Store{Analyses: NewPostgresAnalysisRepository(db), db: db}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
