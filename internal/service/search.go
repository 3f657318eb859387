package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logging"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

const (
	DefaultTopK           = 10
	DefaultMatchThreshold = 0.7

	UnknownDocumentTitle = "Unknown document"
)

// QueryEmbedder turns a question into a query vector.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// NativeSearchRepository ranks chunks inside the database.
type NativeSearchRepository interface {
	MatchChunks(ctx context.Context, query []float32, threshold float64, count int) ([]domain.SearchResult, error)
}

// ChunkScanRepository streams every stored chunk for in-process ranking.
type ChunkScanRepository interface {
	ListAllWithEmbeddings(ctx context.Context) ([]domain.StoredChunk, error)
}

// DocumentTitleRepository resolves document titles in one round trip.
type DocumentTitleRepository interface {
	GetTitles(ctx context.Context, ids []string) (map[string]string, error)
}

// SimilarityStrategy ranks stored chunks against a query vector.
type SimilarityStrategy interface {
	Name() string
	Search(ctx context.Context, query []float32, topK int) ([]domain.SearchResult, error)
}

// NativeVectorSearch delegates ranking to the match_chunks database function.
// It reports domain.ErrNativeSearchEmpty when nothing clears the threshold.
type NativeVectorSearch struct {
	repo      NativeSearchRepository
	threshold float64
}

func NewNativeVectorSearch(repo NativeSearchRepository, threshold float64) *NativeVectorSearch {
	return &NativeVectorSearch{repo: repo, threshold: threshold}
}

func (n *NativeVectorSearch) Name() string { return "native" }

func (n *NativeVectorSearch) Search(ctx context.Context, query []float32, topK int) ([]domain.SearchResult, error) {
	rows, err := n.repo.MatchChunks(ctx, query, n.threshold, topK)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNativeSearchEmpty
	}
	return rows, nil
}

// BruteForceCosineSearch loads every chunk and ranks it in process. Chunks
// with missing, malformed or wrong-sized embeddings are skipped.
type BruteForceCosineSearch struct {
	repo   ChunkScanRepository
	logger *zap.Logger
}

func NewBruteForceCosineSearch(repo ChunkScanRepository, logger *zap.Logger) *BruteForceCosineSearch {
	return &BruteForceCosineSearch{repo: repo, logger: logging.OrNop(logger)}
}

func (b *BruteForceCosineSearch) Name() string { return "brute_force" }

// ScanStats counts how stored chunks were treated during a scan.
type ScanStats struct {
	Valid             int
	Missing           int
	Malformed         int
	DimensionMismatch int
}

func (b *BruteForceCosineSearch) Search(ctx context.Context, query []float32, topK int) ([]domain.SearchResult, error) {
	chunks, err := b.repo.ListAllWithEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	results, stats := rankChunks(chunks, query, topK)
	b.logger.Info("fallback similarity scan",
		zap.Int("valid", stats.Valid),
		zap.Int("missing", stats.Missing),
		zap.Int("malformed", stats.Malformed),
		zap.Int("dimension_mismatch", stats.DimensionMismatch),
	)
	return results, nil
}

// rankChunks scores chunks against query and keeps the topK best. Equal
// scores keep the order in which the store returned them, which is not
// guaranteed to be stable between calls.
func rankChunks(chunks []domain.StoredChunk, query []float32, topK int) ([]domain.SearchResult, ScanStats) {
	var stats ScanStats
	results := make([]domain.SearchResult, 0, len(chunks))

	for _, c := range chunks {
		vec, err := domain.ParseEmbedding(c.Embedding)
		switch {
		case err != nil:
			stats.Malformed++
			continue
		case vec == nil:
			stats.Missing++
			continue
		case len(vec) != len(query):
			stats.DimensionMismatch++
			continue
		}

		stats.Valid++
		results = append(results, domain.SearchResult{
			ID:         c.ID,
			Content:    c.Content,
			DocumentID: c.DocumentID,
			ChunkIndex: c.ChunkIndex,
			Similarity: CosineSimilarity(query, vec),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, stats
}

// SearchService runs the native strategy and falls back to the brute-force
// scan when the native path is unavailable, or returned nothing and
// fallbackOnEmpty is set. Other native errors are returned as-is.
type SearchService struct {
	embedder        QueryEmbedder
	native          SimilarityStrategy
	fallback        SimilarityStrategy
	titles          DocumentTitleRepository
	fallbackOnEmpty bool
	defaultTopK     int
	logger          *zap.Logger
}

// SearchConfig carries SearchService tuning.
type SearchConfig struct {
	DefaultTopK     int
	FallbackOnEmpty bool
}

func NewSearchService(
	embedder QueryEmbedder,
	native SimilarityStrategy,
	fallback SimilarityStrategy,
	titles DocumentTitleRepository,
	cfg SearchConfig,
	logger *zap.Logger,
) *SearchService {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	return &SearchService{
		embedder:        embedder,
		native:          native,
		fallback:        fallback,
		titles:          titles,
		fallbackOnEmpty: cfg.FallbackOnEmpty,
		defaultTopK:     cfg.DefaultTopK,
		logger:          logging.OrNop(logger),
	}
}

// SearchText embeds the question and searches with the resulting vector.
func (s *SearchService) SearchText(ctx context.Context, question string, topK int) ([]domain.SearchResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingNotConfigured
	}

	query, err := s.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, query, topK)
}

// Search returns up to topK chunks ordered by descending similarity with
// their document titles resolved.
func (s *SearchService) Search(ctx context.Context, query []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = s.defaultTopK
	}

	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	results, strategy, err := s.rank(ctx, query, topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetTag("search_strategy", strategy)
	if len(results) == 0 {
		return []domain.SearchResult{}, nil
	}

	if err := s.resolveTitles(ctx, results); err != nil {
		span.SetError(err)
		return nil, err
	}
	return results, nil
}

// rank returns the results and the name of the strategy that produced them.
func (s *SearchService) rank(ctx context.Context, query []float32, topK int) ([]domain.SearchResult, string, error) {
	if s.native == nil {
		return s.runFallback(ctx, query, topK, "native strategy not configured")
	}

	results, err := s.native.Search(ctx, query, topK)
	switch {
	case err == nil:
		return results, s.native.Name(), nil
	case errors.Is(err, domain.ErrNativeSearchUnavailable):
		return s.runFallback(ctx, query, topK, "native search unavailable")
	case errors.Is(err, domain.ErrNativeSearchEmpty):
		if !s.fallbackOnEmpty {
			return []domain.SearchResult{}, s.native.Name(), nil
		}
		return s.runFallback(ctx, query, topK, "native search returned no rows")
	default:
		return nil, s.native.Name(), err
	}
}

func (s *SearchService) runFallback(ctx context.Context, query []float32, topK int, reason string) ([]domain.SearchResult, string, error) {
	if s.fallback == nil {
		return []domain.SearchResult{}, "none", nil
	}
	s.logger.Debug("using fallback similarity search",
		zap.String("strategy", s.fallback.Name()),
		zap.String("reason", reason),
	)
	telemetry.AddBreadcrumb(ctx, "search", reason)
	results, err := s.fallback.Search(ctx, query, topK)
	return results, s.fallback.Name(), err
}

func (s *SearchService) resolveTitles(ctx context.Context, results []domain.SearchResult) error {
	if s.titles == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(results))
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.DocumentID]; ok {
			continue
		}
		seen[r.DocumentID] = struct{}{}
		ids = append(ids, r.DocumentID)
	}

	titles, err := s.titles.GetTitles(ctx, ids)
	if err != nil {
		return err
	}
	for i := range results {
		title, ok := titles[results[i].DocumentID]
		if !ok || title == "" {
			title = UnknownDocumentTitle
		}
		results[i].DocumentTitle = title
	}
	return nil
}
