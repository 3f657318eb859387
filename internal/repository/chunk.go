package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// ChunkRepository stores document chunks and their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// InsertBatch writes chunks with a single multi-row insert and returns the
// number of rows stored.
func (r *ChunkRepository) InsertBatch(ctx context.Context, chunks []domain.Chunk) (int64, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	const cols = 5
	var sb strings.Builder
	sb.WriteString(`INSERT INTO chunks (document_id, content, chunk_index, embedding, metadata) VALUES `)
	args := make([]any, 0, len(chunks)*cols)
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * cols
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)

		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return 0, err
		}
		if c.Metadata == nil {
			metadata = []byte("{}")
		}
		args = append(args, c.DocumentID, c.Content, c.ChunkIndex, pgvector.NewVector(c.Embedding), metadata)
	}

	cmdTag, err := r.db.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if isInvalidID(err) {
		return nil
	}
	return err
}

// ListByDocument returns a document's chunks in chunk_index order, without
// embeddings.
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, content, chunk_index, metadata, created_at
		 FROM chunks WHERE document_id = $1 ORDER BY chunk_index`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.ChunkIndex, &metadata, &c.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, fmt.Errorf("chunk %s metadata: %w", c.ID, err)
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ListAllWithEmbeddings reads every chunk with its embedding in pgvector text
// form. Parsing is left to domain.ParseEmbedding.
func (r *ChunkRepository) ListAllWithEmbeddings(ctx context.Context) ([]domain.StoredChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, content, chunk_index, embedding::text
		 FROM chunks ORDER BY document_id, chunk_index`,
	)
	if err != nil {
		return nil, domain.NewStorageError("list chunks", err)
	}
	defer rows.Close()

	chunks := []domain.StoredChunk{}
	for rows.Next() {
		var c domain.StoredChunk
		var embedding *string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.ChunkIndex, &embedding); err != nil {
			return nil, domain.NewStorageError("scan chunk", err)
		}
		c.Embedding = domain.StoredEmbedding(embedding)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list chunks", err)
	}
	return chunks, nil
}

// UpdateEmbeddings rewrites the embeddings of the given chunks in one
// statement and returns the number of rows updated.
func (r *ChunkRepository) UpdateEmbeddings(ctx context.Context, ids []string, embeddings [][]float32) (int64, error) {
	if len(ids) != len(embeddings) {
		return 0, domain.ErrEmbeddingCountMismatch
	}
	if len(ids) == 0 {
		return 0, nil
	}

	vectors := make([]string, len(embeddings))
	for i, e := range embeddings {
		vectors[i] = pgvector.NewVector(e).String()
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chunks AS c SET embedding = v.embedding::vector
		 FROM unnest($1::uuid[], $2::text[]) AS v(id, embedding)
		 WHERE c.id = v.id`,
		ids, vectors,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// LockDocument takes a transaction-scoped advisory lock for documentID. It
// only serializes callers when run inside a transaction.
func (r *ChunkRepository) LockDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, documentID)
	return err
}

func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&n)
	return n, err
}

// FindStaleDocuments returns ids of documents holding any chunk whose
// embedding is missing or has a dimension other than dims.
func (r *ChunkRepository) FindStaleDocuments(ctx context.Context, dims int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT document_id FROM chunks
		 WHERE embedding IS NULL OR vector_dims(embedding) <> $1
		 ORDER BY document_id`,
		dims,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MatchChunks runs the match_chunks database function. A database without
// the function reports domain.ErrNativeSearchUnavailable.
func (r *ChunkRepository) MatchChunks(ctx context.Context, query []float32, threshold float64, count int) ([]domain.SearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, content, chunk_index, similarity
		 FROM match_chunks($1, $2, $3)`,
		pgvector.NewVector(query), threshold, count,
	)
	if err != nil {
		return nil, matchError(err)
	}
	defer rows.Close()

	results := []domain.SearchResult{}
	for rows.Next() {
		var res domain.SearchResult
		if err := rows.Scan(&res.ID, &res.DocumentID, &res.Content, &res.ChunkIndex, &res.Similarity); err != nil {
			return nil, domain.NewStorageError("scan match", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, matchError(err)
	}
	return results, nil
}

func matchError(err error) error {
	switch pgErrorCode(err) {
	case pgUndefinedFunction, pgUndefinedTable:
		return domain.ErrNativeSearchUnavailable.WithCause(err)
	}
	return domain.NewStorageError("match_chunks", err)
}
