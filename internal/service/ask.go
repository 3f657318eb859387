package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logging"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

const sourcePreviewChars = 200

// Searcher retrieves chunks relevant to a question.
type Searcher interface {
	SearchText(ctx context.Context, question string, topK int) ([]domain.SearchResult, error)
}

// Answerer produces a grounded answer from retrieved chunks.
type Answerer interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.SearchResult) (string, error)
}

// ChunkCounter reports how many chunks are stored.
type ChunkCounter interface {
	Count(ctx context.Context) (int, error)
}

// AskInput is a user question.
type AskInput struct {
	UserID   string
	Question string
	TopK     int
}

// Source is a chunk cited by an answer, with its content shortened.
type Source struct {
	ID            string  `json:"id"`
	DocumentID    string  `json:"documentId"`
	DocumentTitle string  `json:"documentTitle"`
	ChunkIndex    int     `json:"chunkIndex"`
	Similarity    float64 `json:"similarity"`
	Content       string  `json:"content"`
}

// AskDebug carries diagnostics for empty answers.
type AskDebug struct {
	TotalChunks int `json:"totalChunks"`
}

// AskResult is the answer with the chunks it was grounded on.
type AskResult struct {
	Answer  string    `json:"answer"`
	Sources []Source  `json:"sources"`
	Debug   *AskDebug `json:"debug,omitempty"`
}

// AskService answers questions and records them in the search history.
type AskService struct {
	search  Searcher
	answer  Answerer
	history SearchHistoryRepository
	counter ChunkCounter
	uuidGen UUIDGenerator
	logger  *zap.Logger
	now     func() time.Time
}

func NewAskService(
	search Searcher,
	answer Answerer,
	history SearchHistoryRepository,
	counter ChunkCounter,
	logger *zap.Logger,
) *AskService {
	return &AskService{
		search:  search,
		answer:  answer,
		history: history,
		counter: counter,
		uuidGen: &DefaultUUIDGenerator{},
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Ask retrieves relevant chunks and answers from them. Finding no chunks is
// a successful answer with no sources.
func (s *AskService) Ask(ctx context.Context, in AskInput) (*AskResult, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	ctx, span := telemetry.StartSpan(ctx, "AskService.Ask", telemetry.SpanAttributes{
		UserID:    in.UserID,
		Operation: "ask",
	})
	defer span.End()

	results, err := s.search.SearchText(ctx, question, in.TopK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if len(results) == 0 {
		return &AskResult{
			Answer:  NoDocumentsAnswer,
			Sources: []Source{},
			Debug:   &AskDebug{TotalChunks: s.countChunks(ctx)},
		}, nil
	}

	answer, err := s.answer.GenerateAnswer(ctx, question, results)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.recordHistory(ctx, in.UserID, question, answer, results)

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			ID:            r.ID,
			DocumentID:    r.DocumentID,
			DocumentTitle: r.DocumentTitle,
			ChunkIndex:    r.ChunkIndex,
			Similarity:    r.Similarity,
			Content:       Preview(r.Content, sourcePreviewChars),
		}
	}
	return &AskResult{Answer: answer, Sources: sources}, nil
}

// Preview cuts s to n characters and marks the cut with "...".
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func (s *AskService) countChunks(ctx context.Context) int {
	if s.counter == nil {
		return 0
	}
	n, err := s.counter.Count(ctx)
	if err != nil {
		s.logger.Warn("failed to count chunks", zap.Error(err))
		return 0
	}
	return n
}

// recordHistory is best effort; failures are logged and reported, never returned.
func (s *AskService) recordHistory(ctx context.Context, userID, question, answer string, results []domain.SearchResult) {
	if s.history == nil || userID == "" {
		return
	}
	entry := &domain.SearchHistory{
		ID:         s.uuidGen.NewString(),
		UserID:     userID,
		Question:   question,
		Answer:     answer,
		ChunksUsed: domain.ReferencesFromResults(results),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to save search history",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		telemetry.CaptureError(ctx, err)
	}
}
