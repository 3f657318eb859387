package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// SearchHistoryRepository stores answered questions per user.
type SearchHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewSearchHistoryRepository(pool *pgxpool.Pool) *SearchHistoryRepository {
	return &SearchHistoryRepository{pool: pool}
}

func (r *SearchHistoryRepository) Create(ctx context.Context, entry *domain.SearchHistory) error {
	refs := entry.ChunksUsed
	if refs == nil {
		refs = []domain.ChunkReference{}
	}
	chunksJSON, err := json.Marshal(refs)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO search_history (id, user_id, question, answer, chunks_used, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.UserID, entry.Question, entry.Answer, chunksJSON, entry.CreatedAt,
	)
	return err
}

// ListByUser returns the user's most recent entries first.
func (r *SearchHistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.SearchHistory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, question, answer, chunks_used, created_at
		 FROM search_history WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*domain.SearchHistory{}
	for rows.Next() {
		var h domain.SearchHistory
		var chunksJSON []byte
		if err := rows.Scan(&h.ID, &h.UserID, &h.Question, &h.Answer, &chunksJSON, &h.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(chunksJSON, &h.ChunksUsed); err != nil {
			return nil, fmt.Errorf("search history %s chunks_used: %w", h.ID, err)
		}
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}

// Delete removes an entry owned by userID. Entries of other users are
// reported as not found.
func (r *SearchHistoryRepository) Delete(ctx context.Context, userID, id string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM search_history WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		if isInvalidID(err) {
			return domain.ErrSearchHistoryNotFound
		}
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSearchHistoryNotFound
	}
	return nil
}
