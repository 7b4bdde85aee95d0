package repository

import (
	"context"
	"fmt"

	"listingsearch/internal/config"
	"listingsearch/internal/model"

	"go.uber.org/zap"
)

// Backend executes synthesized SQL and returns raw rows. Implementations
// differ in transport only.
type Backend interface {
	Execute(ctx context.Context, query string) ([]model.DbRow, error)
	Dialect() model.Dialect
	Name() string
	Close() error
}

// New builds the backend selected by cfg.Backend
func New(cfg config.DatabaseConfig, logger *zap.Logger) (Backend, error) {
	switch cfg.Backend {
	case "sqlserver", "postgres", "sqlite":
		return NewSQLBackend(cfg, logger), nil
	case "cloudsql-api":
		return NewCloudSQLBackend(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

// DialectFor returns the SQL dialect spoken by a backend name
func DialectFor(backend string) model.Dialect {
	switch backend {
	case "postgres":
		return model.DialectPostgres
	case "sqlite":
		return model.DialectSQLite
	default:
		return model.DialectTSQL
	}
}
