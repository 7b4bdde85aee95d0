package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"listingsearch/internal/apperror"
	"listingsearch/internal/model"
	"listingsearch/internal/observability"

	"go.uber.org/zap"
)

// QueryExecutor runs SQL and returns raw rows
type QueryExecutor interface {
	Execute(ctx context.Context, query string) ([]model.DbRow, error)
}

// SearchOptions tunes the search response
type SearchOptions struct {
	ExposeSQL bool
}

// SearchService runs the synthesize, execute, normalize pipeline
type SearchService struct {
	synthesizer *SQLSynthesizer
	executor    QueryExecutor
	normalizer  *Normalizer
	media       *MediaResolver
	opts        SearchOptions
	logger      *zap.Logger
}

// NewSearchService creates a new search service. media may be nil.
func NewSearchService(
	synthesizer *SQLSynthesizer,
	executor QueryExecutor,
	normalizer *Normalizer,
	media *MediaResolver,
	opts SearchOptions,
	logger *zap.Logger,
) *SearchService {
	return &SearchService{
		synthesizer: synthesizer,
		executor:    executor,
		normalizer:  normalizer,
		media:       media,
		opts:        opts,
		logger:      logger,
	}
}

// Search answers a natural-language query. A blank query fails with a
// validation error before any model or database call.
func (s *SearchService) Search(ctx context.Context, query string) (*model.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperror.Validation("Query cannot be empty")
	}

	logger := observability.WithRequest(ctx, s.logger)
	logger.Info("search request", zap.String("query", query))

	started := time.Now()
	sql, err := s.synthesizer.Synthesize(ctx, strings.TrimSpace(query))
	observability.ObserveStage("synthesize", started)
	if err != nil {
		return nil, s.fail(logger, "synthesize", err)
	}

	started = time.Now()
	rows, err := s.executor.Execute(ctx, sql)
	observability.ObserveStage("execute", started)
	if err != nil {
		return nil, s.fail(logger, "execute", err)
	}
	logger.Info("query returned rows", zap.Int("rows", len(rows)))

	started = time.Now()
	listings := s.normalizer.Normalize(rows)
	s.media.Attach(ctx, listings, s.normalizer.IsPlaceholder)
	observability.ObserveStage("normalize", started)

	resp := &model.SearchResponse{
		Success: true,
		Query:   query,
		Results: listings,
		Count:   len(listings),
		Message: BuildMessage(query, len(listings)),
	}
	if s.opts.ExposeSQL {
		resp.SQL = sql
	}

	observability.RecordSearchResults(resp.Count)
	logger.Info("search completed", zap.Int("count", resp.Count))
	return resp, nil
}

func (s *SearchService) fail(logger *zap.Logger, stage string, err error) error {
	kind := apperror.KindOf(err)
	observability.RecordSearchFailure(string(kind))
	logger.Error("search failed",
		zap.String("stage", stage),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	return err
}

const showMePrefix = "show me "

// BuildMessage renders the human-readable summary line.
// "Show me houses with pools" -> "Showing 3 houses with pools".
func BuildMessage(query string, count int) string {
	if len(query) >= len(showMePrefix) && strings.EqualFold(query[:len(showMePrefix)], showMePrefix) {
		return fmt.Sprintf("Showing %d %s", count, query[len(showMePrefix):])
	}
	return fmt.Sprintf("Showing %d results for: %s", count, query)
}
