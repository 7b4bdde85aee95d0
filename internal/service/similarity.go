package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"listingsearch/internal/apperror"
	"listingsearch/internal/model"
	"listingsearch/internal/utils"

	"go.uber.org/zap"
)

// corpusQuery loads every listing for embedding
const corpusQuery = "SELECT DISTINCT P.* FROM Properties P"

// VectorIndex stores listing embeddings and answers nearest-neighbour queries
type VectorIndex interface {
	Replace(ctx context.Context, entries []model.IndexEntry) error
	Nearest(ctx context.Context, vector []float32, k int) ([]model.ScoredListing, error)
	Len(ctx context.Context) (int, error)
}

// SimilarityService finds listings close to a free-text description.
// It must be initialized before use; Search initializes on demand.
type SimilarityService struct {
	executor    QueryExecutor
	normalizer  *Normalizer
	embedder    Embedder
	index       VectorIndex
	batchSize   int
	defaultTopK int
	state       *utils.Lazy[int]
	logger      *zap.Logger
}

// NewSimilarityService creates an uninitialized similarity service
func NewSimilarityService(
	executor QueryExecutor,
	normalizer *Normalizer,
	embedder Embedder,
	index VectorIndex,
	batchSize, defaultTopK int,
	logger *zap.Logger,
) *SimilarityService {
	if batchSize <= 0 {
		batchSize = 100
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	s := &SimilarityService{
		executor:    executor,
		normalizer:  normalizer,
		embedder:    embedder,
		index:       index,
		batchSize:   batchSize,
		defaultTopK: defaultTopK,
		logger:      logger,
	}
	s.state = utils.NewLazy(s.build)
	return s
}

// Initialize embeds the listing corpus once. Concurrent callers share one
// attempt; a failed attempt can be retried.
func (s *SimilarityService) Initialize(ctx context.Context) error {
	_, err := s.state.Get(ctx)
	return err
}

// IsReady reports whether the index has been built
func (s *SimilarityService) IsReady() bool {
	return s.state.IsReady()
}

// State exposes the initialization state for health reporting
func (s *SimilarityService) State() utils.LoadState {
	return s.state.State()
}

// Reindex drops the current index and builds it again
func (s *SimilarityService) Reindex(ctx context.Context) (int, error) {
	s.state.Reset()
	return s.state.Get(ctx)
}

// Search returns up to topK listings ordered by similarity to query
func (s *SimilarityService) Search(ctx context.Context, query string, topK int) ([]model.ScoredListing, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperror.Validation("Query cannot be empty")
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	vectors, err := s.embedder.CreateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, classifyEmbeddingError(err)
	}
	if len(vectors) != 1 {
		return nil, apperror.Generation("Embedding provider returned no vector for the query", nil)
	}

	results, err := s.index.Nearest(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("similarity lookup failed: %w", err)
	}
	return results, nil
}

func (s *SimilarityService) build(ctx context.Context) (int, error) {
	rows, err := s.executor.Execute(ctx, corpusQuery)
	if err != nil {
		return 0, err
	}

	listings := dedupeListings(s.normalizer.Normalize(rows))
	entries := make([]model.IndexEntry, 0, len(listings))

	for i := 0; i < len(listings); i += s.batchSize {
		end := i + s.batchSize
		if end > len(listings) {
			end = len(listings)
		}
		batch := listings[i:end]

		docs := make([]string, len(batch))
		for j, l := range batch {
			docs[j] = ListingDocument(l)
		}

		s.logger.Debug("embedding batch", zap.Int("batch", i/s.batchSize+1), zap.Int("size", len(batch)))
		vectors, err := s.embedder.CreateEmbeddings(ctx, docs)
		if err != nil {
			return 0, classifyEmbeddingError(err)
		}
		if len(vectors) != len(batch) {
			return 0, apperror.Generation(
				fmt.Sprintf("Mismatched embedding count: expected %d, got %d", len(batch), len(vectors)), nil)
		}

		for j, l := range batch {
			entries = append(entries, model.IndexEntry{
				Key:       l.ListingKey,
				Document:  docs[j],
				Listing:   l,
				Embedding: vectors[j],
			})
		}
	}

	if err := s.index.Replace(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to store embeddings: %w", err)
	}

	s.logger.Info("similarity index built", zap.Int("listings", len(entries)))
	return len(entries), nil
}

func classifyEmbeddingError(err error) error {
	if apperror.KindOf(err) != apperror.KindUnknown {
		return err
	}
	if apperror.IsTimeout(err) {
		return apperror.Timeout("embedding", err)
	}
	return apperror.Generation("Error creating embeddings", err)
}

func dedupeListings(listings []model.ListingRecord) []model.ListingRecord {
	seen := make(map[string]bool, len(listings))
	out := listings[:0]
	for _, l := range listings {
		if l.ListingKey != "" && seen[l.ListingKey] {
			continue
		}
		seen[l.ListingKey] = true
		out = append(out, l)
	}
	return out
}

// ListingDocument renders a listing as the text that gets embedded
func ListingDocument(l model.ListingRecord) string {
	year := "N/A"
	if l.YearBuilt != nil {
		year = fmt.Sprintf("%d", *l.YearBuilt)
	}
	city := l.City
	if city == "" {
		city = "N/A"
	}
	doc := fmt.Sprintf(
		"Property Listing. Address: %s. City: %s. Price: $%.0f. Type: %s. Details: %g bedrooms, %g bathrooms, %g sqft living area. Year Built: %s. Description: %s.",
		l.UnparsedAddress, city, l.ListPrice, l.PropertyType,
		l.BedroomsTotal, l.BathroomsTotalInteger, l.LivingArea, year, l.PublicRemarks,
	)
	return strings.Join(strings.Fields(doc), " ")
}

// MemoryIndex keeps embeddings in process and scores by dot product
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []model.IndexEntry
}

// NewMemoryIndex creates an empty in-process index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Replace swaps the stored entries
func (m *MemoryIndex) Replace(_ context.Context, entries []model.IndexEntry) error {
	copied := make([]model.IndexEntry, len(entries))
	copy(copied, entries)

	m.mu.Lock()
	m.entries = copied
	m.mu.Unlock()
	return nil
}

// Nearest ranks all entries by dot product with vector
func (m *MemoryIndex) Nearest(_ context.Context, vector []float32, k int) ([]model.ScoredListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, fmt.Errorf("similarity index is empty")
	}

	scored := make([]model.ScoredListing, 0, len(m.entries))
	for _, e := range m.entries {
		scored = append(scored, model.ScoredListing{
			Listing: e.Listing,
			Score:   dotProduct(vector, e.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Len returns the number of stored entries
func (m *MemoryIndex) Len(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// dotProduct over the common prefix of a and b
func dotProduct(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
