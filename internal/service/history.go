package service

import (
	"context"

	"github.com/cloo-solutions/docqa/internal/domain"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// SearchHistoryRepository persists answered questions per user.
type SearchHistoryRepository interface {
	Create(ctx context.Context, entry *domain.SearchHistory) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.SearchHistory, error)
	Delete(ctx context.Context, userID, id string) error
}

// HistoryService lists and removes a user's past questions.
type HistoryService struct {
	repo SearchHistoryRepository
}

func NewHistoryService(repo SearchHistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) List(ctx context.Context, userID string, limit int) ([]*domain.SearchHistory, error) {
	if userID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *HistoryService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return domain.ErrMissingRequiredField
	}
	return s.repo.Delete(ctx, userID, id)
}
