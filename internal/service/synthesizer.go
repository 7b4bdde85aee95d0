package service

import (
	"context"
	"errors"
	"time"

	"listingsearch/internal/apperror"
	"listingsearch/internal/observability"
	"listingsearch/internal/utils"

	"go.uber.org/zap"
)

// SQLSynthesizer turns a natural-language query into SQL with one model call
type SQLSynthesizer struct {
	generator Generator
	prompt    string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewSQLSynthesizer creates a synthesizer that prefixes every query with prompt
func NewSQLSynthesizer(generator Generator, prompt string, timeout time.Duration, logger *zap.Logger) *SQLSynthesizer {
	return &SQLSynthesizer{
		generator: generator,
		prompt:    prompt,
		timeout:   timeout,
		logger:    logger,
	}
}

// Prompt returns the system prompt in use
func (s *SQLSynthesizer) Prompt() string {
	return s.prompt
}

// Synthesize returns the SQL text for userQuery with code fences removed.
// There is no retry; the first failure is returned.
func (s *SQLSynthesizer) Synthesize(ctx context.Context, userQuery string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger := observability.WithRequest(ctx, s.logger)

	text, err := s.generator.Generate(ctx, ComposeInput(s.prompt, userQuery))
	if err != nil {
		return "", s.classify(ctx, err)
	}

	sql := utils.ExtractSQL(text)
	if sql == "" {
		return "", apperror.Generation("Empty response from "+s.generator.Name()+" model", nil)
	}

	sql, unknown := utils.CanonicalizeAmenityLiterals(sql)
	if len(unknown) > 0 {
		logger.Warn("synthesized SQL uses amenity types outside the vocabulary",
			zap.Strings("values", unknown),
		)
	}

	logger.Info("generated SQL query",
		zap.String("provider", s.generator.Name()),
		zap.String("sql", sql),
	)
	return sql, nil
}

func (s *SQLSynthesizer) classify(ctx context.Context, err error) error {
	if apperror.KindOf(err) != apperror.KindUnknown {
		return err
	}
	if apperror.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperror.Timeout(s.generator.Name(), err)
	}
	return apperror.Generation("Error generating SQL query", err)
}
