package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logging"
	"github.com/cloo-solutions/docqa/internal/pagination"
	"github.com/cloo-solutions/docqa/internal/telemetry"
	"github.com/google/uuid"
)

const DefaultInsertBatchSize = 100

// EmbeddingClient produces embeddings for chunk contents and questions.
type EmbeddingClient interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// DocumentRepository persists document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
	UpdateFilePath(ctx context.Context, id, filePath string) error
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	GetTitles(ctx context.Context, ids []string) (map[string]string, error)
}

// ChunkRepository persists chunks and their embeddings.
type ChunkRepository interface {
	InsertBatch(ctx context.Context, chunks []domain.Chunk) (int64, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
	UpdateEmbeddings(ctx context.Context, ids []string, embeddings [][]float32) (int64, error)
	LockDocument(ctx context.Context, documentID string) error
	Count(ctx context.Context) (int, error)
}

// ObjectStore keeps original uploaded files.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignDownload(ctx context.Context, key string) (string, error)
	Stat(ctx context.Context, key string) (*domain.StoredFile, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestInput is an extracted document ready for chunking.
type IngestInput struct {
	Title       string
	FileName    string
	FileType    domain.FileType
	ContentType string
	Text        string
	File        []byte
}

// IngestResult reports what was persisted.
type IngestResult struct {
	DocumentID  string  `json:"documentId"`
	ChunksCount int     `json:"chunksCount"`
	FilePath    *string `json:"filePath,omitempty"`
}

// IngestConfig tunes chunking and persistence batching.
type IngestConfig struct {
	Chunk           ChunkConfig
	InsertBatchSize int
}

// IngestService turns extracted text into persisted, embedded chunks.
type IngestService struct {
	embedder  EmbeddingClient
	documents DocumentRepository
	chunks    ChunkRepository
	tx        TxRunner
	store     ObjectStore
	uuidGen   UUIDGenerator
	cfg       IngestConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewIngestService creates an IngestService. tx and store may be nil: without
// tx the document row is rolled back by a compensating delete, without store
// original files are not kept.
func NewIngestService(
	embedder EmbeddingClient,
	documents DocumentRepository,
	chunks ChunkRepository,
	tx TxRunner,
	store ObjectStore,
	cfg IngestConfig,
	logger *zap.Logger,
) *IngestService {
	if cfg.Chunk.MaxSize <= 0 {
		cfg.Chunk = DefaultChunkConfig()
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = DefaultInsertBatchSize
	}
	return &IngestService{
		embedder:  embedder,
		documents: documents,
		chunks:    chunks,
		tx:        tx,
		store:     store,
		uuidGen:   &DefaultUUIDGenerator{},
		cfg:       cfg,
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

// Ingest chunks and embeds the text, then stores the document and its chunks.
// Nothing is persisted unless every step succeeds.
func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	if s.embedder == nil {
		return nil, domain.ErrEmbeddingNotConfigured
	}
	if strings.TrimSpace(in.FileName) == "" {
		return nil, domain.ErrMissingRequiredField.WithCause(errors.New("file name"))
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = domain.TitleFromFileName(in.FileName)
	}

	chunks, err := s.prepareChunks(ctx, "", in.Text)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	doc := domain.NewDocument(s.uuidGen.NewString(), title, in.FileName, in.FileType, s.now().UTC())
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.ErrMissingRequiredField.WithCause(err)
	}
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}

	if s.tx != nil {
		err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Documents().Create(ctx, doc); err != nil {
				return domain.NewStorageError("create document", err)
			}
			return s.insertChunks(ctx, repos.Chunks(), chunks)
		})
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	} else {
		if err := s.documents.Create(ctx, doc); err != nil {
			span.SetError(err)
			return nil, domain.NewStorageError("create document", err)
		}
		if err := s.insertChunks(ctx, s.chunks, chunks); err != nil {
			span.SetError(err)
			return nil, s.rollback(ctx, doc.ID, err)
		}
	}

	result := &IngestResult{DocumentID: doc.ID, ChunksCount: len(chunks)}
	result.FilePath = s.storeOriginal(ctx, doc, in)

	s.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("file_name", doc.FileName),
		zap.Int("chunks", len(chunks)),
	)
	return result, nil
}

// IngestDocument chunks, embeds and persists text for a document row the
// caller has already created. Any failure removes that row again.
func (s *IngestService) IngestDocument(ctx context.Context, documentID, text string) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "ingest",
	})
	defer span.End()

	if s.embedder == nil {
		return nil, s.rollback(ctx, documentID, domain.ErrEmbeddingNotConfigured)
	}

	chunks, err := s.prepareChunks(ctx, documentID, text)
	if err != nil {
		span.SetError(err)
		return nil, s.rollback(ctx, documentID, err)
	}

	if err := s.insertChunks(ctx, s.chunks, chunks); err != nil {
		span.SetError(err)
		return nil, s.rollback(ctx, documentID, err)
	}

	return &IngestResult{DocumentID: documentID, ChunksCount: len(chunks)}, nil
}

// RollbackDocument removes a document and its chunks. A document that is
// already gone is not an error.
func (s *IngestService) RollbackDocument(ctx context.Context, documentID string) error {
	if err := s.chunks.DeleteByDocument(ctx, documentID); err != nil {
		return domain.NewStorageError("delete chunks", err)
	}
	if err := s.documents.Delete(ctx, documentID); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return domain.NewStorageError("delete document", err)
	}
	return nil
}

func (s *IngestService) rollback(ctx context.Context, documentID string, cause error) error {
	if err := s.RollbackDocument(ctx, documentID); err != nil {
		s.logger.Error("document rollback failed",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		telemetry.CaptureError(ctx, err)
		return errors.Join(cause, err)
	}
	s.logger.Warn("document rolled back",
		zap.String("document_id", documentID),
		zap.Error(cause),
	)
	return cause
}

func (s *IngestService) prepareChunks(ctx context.Context, documentID, text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyText
	}

	contents := s.cfg.Chunk.Split(text)
	if len(contents) == 0 {
		return nil, domain.ErrNoChunks
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return nil, err
	}
	return domain.NewChunks(documentID, contents, embeddings)
}

func (s *IngestService) insertChunks(ctx context.Context, repo ChunkRepository, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += s.cfg.InsertBatchSize {
		end := min(start+s.cfg.InsertBatchSize, len(chunks))
		n, err := repo.InsertBatch(ctx, chunks[start:end])
		if err != nil {
			return domain.NewStorageError(fmt.Sprintf("insert chunks %d-%d", start, end-1), err)
		}
		if n != int64(end-start) {
			return domain.ErrRowCountMismatch.WithCause(fmt.Errorf("inserted %d of %d chunks", n, end-start))
		}
	}
	return nil
}

func (s *IngestService) storeOriginal(ctx context.Context, doc *domain.Document, in IngestInput) *string {
	if s.store == nil || len(in.File) == 0 {
		return nil
	}

	key := domain.ObjectKey(doc.ID, doc.FileName)
	if err := s.store.Upload(ctx, key, in.File, in.ContentType); err != nil {
		s.logger.Warn("original file upload failed",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return nil
	}
	if err := s.documents.UpdateFilePath(ctx, doc.ID, key); err != nil {
		s.logger.Warn("failed to record file path",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return nil
	}
	return &key
}
