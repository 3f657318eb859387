//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/testutil"
)

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(context.Background()) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

func createDocument(ctx context.Context, t *testing.T, repo *DocumentRepository, title string, uploadedAt time.Time) *domain.Document {
	t.Helper()
	doc := domain.NewDocument(uuid.NewString(), title, title+".txt", domain.FileTypeTXT, uploadedAt.UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, doc))
	return doc
}

func chunksFor(docID string, embeddings ...[]float32) []domain.Chunk {
	contents := make([]string, len(embeddings))
	for i := range embeddings {
		contents[i] = "chunk content " + string(rune('A'+i))
	}
	chunks, _ := domain.NewChunks(docID, contents, embeddings)
	return chunks
}
