package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"listingsearch/internal/apperror"
	"listingsearch/internal/model"

	"go.uber.org/zap"
)

// SchemaTables are the only tables synthesized SQL may reference
var SchemaTables = []string{"Properties", "Amenities"}

// Executor runs synthesized SQL against a Backend with a fixed timeout and
// maps failures onto the pipeline's error kinds.
type Executor struct {
	backend Backend
	guard   *StatementGuard
	timeout time.Duration
	logger  *zap.Logger
}

// NewExecutor creates an executor. A nil guard disables statement checks.
func NewExecutor(backend Backend, guard *StatementGuard, timeout time.Duration, logger *zap.Logger) *Executor {
	return &Executor{
		backend: backend,
		guard:   guard,
		timeout: timeout,
		logger:  logger,
	}
}

// Dialect returns the dialect of the wrapped backend
func (e *Executor) Dialect() model.Dialect {
	return e.backend.Dialect()
}

// Backend returns the wrapped backend
func (e *Executor) Backend() Backend {
	return e.backend
}

// Execute runs query and returns its rows; an empty result is an empty
// slice, never an error.
func (e *Executor) Execute(ctx context.Context, query string) ([]model.DbRow, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperror.Execution("Error executing SQL query", errEmptyStatement)
	}
	if e.guard != nil {
		if err := e.guard.Check(query); err != nil {
			e.logger.Warn("rejected synthesized SQL", zap.String("sql", query), zap.Error(err))
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.backend.Execute(ctx, query)
	if err != nil {
		return nil, classifyExecutionError(err)
	}
	if rows == nil {
		rows = []model.DbRow{}
	}

	e.logger.Debug("query executed",
		zap.String("backend", e.backend.Name()),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

var errEmptyStatement = errors.New("empty statement")

func classifyExecutionError(err error) error {
	if apperror.KindOf(err) != apperror.KindUnknown {
		return err
	}
	if apperror.IsTimeout(err) {
		return apperror.Timeout("database query", err)
	}
	return apperror.Execution("Error executing SQL query", err)
}
