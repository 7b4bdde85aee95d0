package repository

import (
	"context"
	"fmt"
	"time"

	"listingsearch/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// PgvectorIndex stores listing embeddings in a pgvector table and answers
// nearest-neighbour queries by inner product.
type PgvectorIndex struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPgvectorIndex connects to dsn and makes sure the embeddings table exists
func NewPgvectorIndex(ctx context.Context, dsn string, logger *zap.Logger) (*PgvectorIndex, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vector database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	idx := &PgvectorIndex{db: db, logger: logger}
	if err := idx.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func newPgvectorIndexWithDB(db *sqlx.DB, logger *zap.Logger) *PgvectorIndex {
	return &PgvectorIndex{db: db, logger: logger}
}

func (r *PgvectorIndex) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS listing_embeddings (
			listing_key TEXT PRIMARY KEY,
			document    TEXT NOT NULL,
			listing     JSONB NOT NULL,
			embedding   vector NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare embeddings table: %w", err)
		}
	}
	return nil
}

// Replace swaps the stored embeddings for entries in one transaction
func (r *PgvectorIndex) Replace(ctx context.Context, entries []model.IndexEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM listing_embeddings`); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}

	query := `
		INSERT INTO listing_embeddings (listing_key, document, listing, embedding, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (listing_key) DO UPDATE
		SET document = EXCLUDED.document, listing = EXCLUDED.listing,
		    embedding = EXCLUDED.embedding, updated_at = NOW()
	`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, query, e.Key, e.Document, e.Listing, pgvector.NewVector(e.Embedding)); err != nil {
			return fmt.Errorf("failed to store embedding for listing %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embeddings: %w", err)
	}
	r.logger.Info("stored listing embeddings", zap.Int("count", len(entries)))
	return nil
}

// Nearest returns the k listings with the largest inner product to vector
func (r *PgvectorIndex) Nearest(ctx context.Context, vector []float32, k int) ([]model.ScoredListing, error) {
	query := `
		SELECT listing, (embedding <#> $1) * -1 AS score
		FROM listing_embeddings
		ORDER BY embedding <#> $1
		LIMIT $2
	`
	var rows []struct {
		Listing model.ListingRecord `db:"listing"`
		Score   float64             `db:"score"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pgvector.NewVector(vector), k); err != nil {
		return nil, fmt.Errorf("failed to query nearest listings: %w", err)
	}

	results := make([]model.ScoredListing, 0, len(rows))
	for _, row := range rows {
		results = append(results, model.ScoredListing{Listing: row.Listing, Score: row.Score})
	}
	return results, nil
}

// Len returns the number of stored embeddings
func (r *PgvectorIndex) Len(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM listing_embeddings`); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}

// Close closes the connection pool
func (r *PgvectorIndex) Close() error {
	return r.db.Close()
}
