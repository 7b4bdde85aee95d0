package repository

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"listingsearch/internal/apperror"
	"listingsearch/internal/config"
	"listingsearch/internal/model"
	"listingsearch/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"
)

//go:embed seed/demo.sql
var demoSeed string

// SQLBackend runs queries over a database/sql driver. The pool is opened on
// first use; a failed open is retried by the next query.
type SQLBackend struct {
	name    string
	dialect model.Dialect
	conn    *utils.Lazy[*sqlx.DB]
	logger  *zap.Logger
}

// NewSQLBackend creates a driver-backed backend for sqlserver, postgres or sqlite
func NewSQLBackend(cfg config.DatabaseConfig, logger *zap.Logger) *SQLBackend {
	b := &SQLBackend{
		name:    cfg.Backend,
		dialect: DialectFor(cfg.Backend),
		logger:  logger,
	}
	b.conn = utils.NewLazy(func(ctx context.Context) (*sqlx.DB, error) {
		return b.open(ctx, cfg)
	})
	return b
}

func newSQLBackendWithDB(name string, dialect model.Dialect, db *sqlx.DB, logger *zap.Logger) *SQLBackend {
	return &SQLBackend{
		name:    name,
		dialect: dialect,
		conn: utils.NewLazy(func(context.Context) (*sqlx.DB, error) {
			return db, nil
		}),
		logger: logger,
	}
}

// Name returns the configured backend name
func (b *SQLBackend) Name() string { return b.name }

// Dialect returns the SQL dialect of the underlying database
func (b *SQLBackend) Dialect() model.Dialect { return b.dialect }

// Ready reports whether the pool has been opened
func (b *SQLBackend) Ready() bool { return b.conn.IsReady() }

// Execute runs query and returns every row as a column map
func (b *SQLBackend) Execute(ctx context.Context, query string) ([]model.DbRow, error) {
	db, err := b.conn.Get(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.DbRow, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Close closes the pool if it was opened
func (b *SQLBackend) Close() error {
	if db, ok := b.conn.Reset(); ok && db != nil {
		return db.Close()
	}
	return nil
}

func (b *SQLBackend) open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver, dsn, err := driverAndDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Backend, err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Backend, err)
	}

	if cfg.Backend == "sqlite" && cfg.Seed {
		if _, err := db.ExecContext(ctx, demoSeed); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to seed sqlite database: %w", err)
		}
		b.logger.Info("seeded sqlite database with demo listings")
	}

	b.logger.Info("database connection opened",
		zap.String("backend", cfg.Backend),
		zap.String("driver", driver),
	)
	return db, nil
}

// driverAndDSN resolves the driver name and connection string, reporting
// every missing parameter at once.
func driverAndDSN(cfg config.DatabaseConfig) (string, string, error) {
	switch cfg.Backend {
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Instance
		}
		if dsn == "" {
			// every pooled connection must see the same in-memory database
			dsn = "file:listings?mode=memory&cache=shared"
		}
		return "sqlite3", dsn, nil

	case "postgres":
		if cfg.DSN != "" {
			return cfg.Driver, cfg.DSN, nil
		}
		if err := requireParams(cfg, true); err != nil {
			return "", "", err
		}
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Instance, port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
		)
		return cfg.Driver, dsn, nil

	case "sqlserver":
		if cfg.DSN != "" {
			return "sqlserver", cfg.DSN, nil
		}
		if err := requireParams(cfg, true); err != nil {
			return "", "", err
		}
		host := cfg.Instance
		if cfg.Port != 0 {
			host = host + ":" + strconv.Itoa(cfg.Port)
		}
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     host,
			RawQuery: url.Values{"database": {cfg.Name}}.Encode(),
		}
		return "sqlserver", u.String(), nil

	default:
		return "", "", apperror.Configuration("backend %q has no SQL driver", cfg.Backend)
	}
}

func requireParams(cfg config.DatabaseConfig, needPassword bool) error {
	var missing []string
	if cfg.Instance == "" {
		missing = append(missing, "DB_INSTANCE")
	}
	if cfg.User == "" {
		missing = append(missing, "DB_USER")
	}
	if needPassword && cfg.Password == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if cfg.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return apperror.Configuration("Missing database configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// normalizeRow converts driver byte slices to strings so downstream
// coercion sees text rather than raw bytes.
func normalizeRow(row map[string]interface{}) model.DbRow {
	out := make(model.DbRow, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			out[k] = string(b)
			continue
		}
		out[k] = v
	}
	return out
}
