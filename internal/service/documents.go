package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logging"
	"github.com/cloo-solutions/docqa/internal/pagination"
)

const (
	DefaultDocumentPageSize = 50
	MaxDocumentPageSize     = 200
)

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// DocumentService exposes document administration.
type DocumentService struct {
	documents DocumentRepository
	store     ObjectStore
	logger    *zap.Logger
}

func NewDocumentService(documents DocumentRepository, store ObjectStore, logger *zap.Logger) *DocumentService {
	return &DocumentService{documents: documents, store: store, logger: logging.OrNop(logger)}
}

func (s *DocumentService) List(ctx context.Context, cursor string, limit int) (*DocumentPageResult, error) {
	if limit <= 0 {
		limit = DefaultDocumentPageSize
	}
	if limit > MaxDocumentPageSize {
		limit = MaxDocumentPageSize
	}
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.documents.ListWithCursor(ctx, c, limit)
}

func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.documents.GetByID(ctx, id)
}

// Delete removes the document, its chunks (by cascade) and, best effort,
// the stored original file.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, id); err != nil {
		return err
	}

	if s.store != nil && doc.FilePath != nil {
		if err := s.store.Delete(ctx, *doc.FilePath); err != nil {
			s.logger.Warn("failed to delete stored file",
				zap.String("document_id", id),
				zap.String("key", *doc.FilePath),
				zap.Error(err),
			)
		}
	}
	return nil
}

// ViewURL returns a short-lived link to the original file. A file missing
// from the bucket is reported as ErrFileNotStored rather than as a dead link.
func (s *DocumentService) ViewURL(ctx context.Context, id string) (string, error) {
	if s.store == nil {
		return "", domain.ErrStorageNotConfigured
	}
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.FilePath == nil || *doc.FilePath == "" {
		return "", domain.ErrFileNotStored
	}
	if _, err := s.store.Stat(ctx, *doc.FilePath); err != nil {
		return "", err
	}
	return s.store.PresignDownload(ctx, *doc.FilePath)
}
