package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logging"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

// ReembedResult reports how many chunk embeddings were rewritten.
type ReembedResult struct {
	DocumentID  string `json:"documentId"`
	ChunksCount int    `json:"chunksCount"`
}

// ReembedService recomputes embeddings for a document's existing chunks.
type ReembedService struct {
	embedder  EmbeddingClient
	documents DocumentRepository
	chunks    ChunkRepository
	tx        TxRunner
	logger    *zap.Logger
}

func NewReembedService(
	embedder EmbeddingClient,
	documents DocumentRepository,
	chunks ChunkRepository,
	tx TxRunner,
	logger *zap.Logger,
) *ReembedService {
	return &ReembedService{
		embedder:  embedder,
		documents: documents,
		chunks:    chunks,
		tx:        tx,
		logger:    logging.OrNop(logger),
	}
}

// Reembed recomputes every chunk embedding of documentID from the stored
// content. With a TxRunner the whole operation holds a per-document lock, so
// concurrent calls for the same document run one after the other and all
// updates commit together.
func (s *ReembedService) Reembed(ctx context.Context, documentID string) (*ReembedResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ReembedService.Reembed", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "reembed",
	})
	defer span.End()

	if s.embedder == nil {
		return nil, domain.ErrEmbeddingNotConfigured
	}

	if _, err := s.documents.GetByID(ctx, documentID); err != nil {
		span.SetError(err)
		return nil, err
	}

	var count int
	var err error
	if s.tx != nil {
		err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Chunks().LockDocument(ctx, documentID); err != nil {
				return domain.NewStorageError("lock document", err)
			}
			count, err = s.reembed(ctx, repos.Chunks(), documentID)
			return err
		})
	} else {
		count, err = s.reembed(ctx, s.chunks, documentID)
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.logger.Info("document re-embedded",
		zap.String("document_id", documentID),
		zap.Int("chunks", count),
	)
	return &ReembedResult{DocumentID: documentID, ChunksCount: count}, nil
}

func (s *ReembedService) reembed(ctx context.Context, repo ChunkRepository, documentID string) (int, error) {
	chunks, err := repo.ListByDocument(ctx, documentID)
	if err != nil {
		return 0, domain.NewStorageError("list chunks", err)
	}
	if len(chunks) == 0 {
		return 0, domain.ErrDocumentHasNoChunks
	}

	ids := make([]string, len(chunks))
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		contents[i] = c.Content
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return 0, err
	}
	if len(embeddings) != len(chunks) {
		return 0, domain.ErrEmbeddingCountMismatch.WithCause(
			fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(chunks)))
	}

	n, err := repo.UpdateEmbeddings(ctx, ids, embeddings)
	if err != nil {
		return 0, domain.NewStorageError("update embeddings", err)
	}
	if n != int64(len(chunks)) {
		return 0, domain.ErrRowCountMismatch.WithCause(fmt.Errorf("updated %d of %d chunks", n, len(chunks)))
	}
	return len(chunks), nil
}
