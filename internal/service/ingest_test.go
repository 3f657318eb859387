package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/domain"
)

func longText(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		b.WriteString("The policy applies to every employee in the company. ")
	}
	return b.String()
}

func vecs(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1}
	}
	return out
}

type ingestFixture struct {
	embedder *MockEmbeddingClient
	docs     *MockDocumentRepository
	chunks   *MockChunkRepository
	store    *MockObjectStore
	svc      *IngestService
}

func newIngestFixture(withStore bool, tx TxRunner, batch int) *ingestFixture {
	f := &ingestFixture{
		embedder: new(MockEmbeddingClient),
		docs:     new(MockDocumentRepository),
		chunks:   new(MockChunkRepository),
		store:    new(MockObjectStore),
	}
	var store ObjectStore
	if withStore {
		store = f.store
	}
	f.svc = NewIngestService(f.embedder, f.docs, f.chunks, tx, store, IngestConfig{InsertBatchSize: batch}, nil)
	f.svc.uuidGen = &fixedUUID{ids: []string{"doc-1"}}
	f.svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return f
}

func TestIngestService_Ingest_Success(t *testing.T) {
	f := newIngestFixture(true, nil, 2)
	ctx := context.Background()
	text := longText(30)
	contents := DefaultChunkConfig().Split(text)
	require.Greater(t, len(contents), 2)

	f.embedder.On("EmbedBatch", mock.Anything, contents).Return(vecs(len(contents)), nil)
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.ID == "doc-1" && d.Title == "Policy" && d.FileType == domain.FileTypeTXT
	})).Return(nil)

	var inserted []domain.Chunk
	record := func(args mock.Arguments) { inserted = append(inserted, args.Get(1).([]domain.Chunk)...) }
	f.chunks.On("InsertBatch", mock.Anything, mock.MatchedBy(func(b []domain.Chunk) bool { return len(b) == 2 })).
		Return(int64(2), nil).Run(record)
	f.chunks.On("InsertBatch", mock.Anything, mock.MatchedBy(func(b []domain.Chunk) bool { return len(b) == 1 })).
		Return(int64(1), nil).Run(record)
	f.store.On("Upload", mock.Anything, "documents/doc-1/policy.txt", []byte("raw"), "text/plain").Return(nil)
	f.docs.On("UpdateFilePath", mock.Anything, "doc-1", "documents/doc-1/policy.txt").Return(nil)

	result, err := f.svc.Ingest(ctx, IngestInput{
		FileName:    "policy.txt",
		FileType:    domain.FileTypeTXT,
		ContentType: "text/plain",
		Text:        text,
		File:        []byte("raw"),
		Title:       " Policy ",
	})

	require.NoError(t, err)
	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, len(contents), result.ChunksCount)
	require.NotNil(t, result.FilePath)
	assert.Equal(t, "documents/doc-1/policy.txt", *result.FilePath)

	require.Len(t, inserted, len(contents))
	for i, c := range inserted {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, contents[i], c.Content)
	}
	f.docs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestIngestService_Ingest_EmptyText(t *testing.T) {
	f := newIngestFixture(false, nil, 0)

	_, err := f.svc.Ingest(context.Background(), IngestInput{FileName: "empty.txt", FileType: domain.FileTypeTXT, Text: "  \n "})

	assert.ErrorIs(t, err, domain.ErrEmptyText)
	f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.embedder.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
}

func TestIngestService_Ingest_EmbeddingFailureCreatesNothing(t *testing.T) {
	f := newIngestFixture(false, nil, 0)
	f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, domain.ErrEmbeddingAuth)

	_, err := f.svc.Ingest(context.Background(), IngestInput{FileName: "a.txt", FileType: domain.FileTypeTXT, Text: longText(3)})

	assert.ErrorIs(t, err, domain.ErrEmbeddingAuth)
	f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestService_Ingest_EmbeddingCountMismatch(t *testing.T) {
	f := newIngestFixture(false, nil, 0)
	f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(vecs(0), nil)

	_, err := f.svc.Ingest(context.Background(), IngestInput{FileName: "a.txt", FileType: domain.FileTypeTXT, Text: longText(3)})

	assert.ErrorIs(t, err, domain.ErrEmbeddingCountMismatch)
	f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestService_Ingest_InsertFailureRollsBack(t *testing.T) {
	f := newIngestFixture(false, nil, 100)
	text := longText(3)

	f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(vecs(1), nil)
	f.docs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("InsertBatch", mock.Anything, mock.Anything).Return(int64(0), errors.New("disk full"))
	f.chunks.On("DeleteByDocument", mock.Anything, "doc-1").Return(nil)
	f.docs.On("Delete", mock.Anything, "doc-1").Return(nil)

	_, err := f.svc.Ingest(context.Background(), IngestInput{FileName: "a.txt", FileType: domain.FileTypeTXT, Text: text})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageOperationFail)
	assert.Contains(t, err.Error(), "disk full")
	f.docs.AssertCalled(t, "Delete", mock.Anything, "doc-1")
}

func TestIngestService_Ingest_InsertedCountMismatchRollsBack(t *testing.T) {
	f := newIngestFixture(false, nil, 100)

	f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(vecs(1), nil)
	f.docs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("InsertBatch", mock.Anything, mock.Anything).Return(int64(0), nil)
	f.chunks.On("DeleteByDocument", mock.Anything, "doc-1").Return(nil)
	f.docs.On("Delete", mock.Anything, "doc-1").Return(nil)

	_, err := f.svc.Ingest(context.Background(), IngestInput{FileName: "a.txt", FileType: domain.FileTypeTXT, Text: longText(3)})

	assert.ErrorIs(t, err, domain.ErrRowCountMismatch)
	f.docs.AssertCalled(t, "Delete", mock.Anything, "doc-1")
}

func TestIngestService_Ingest_TransactionalPath(t *testing.T) {
	txDocs := new(MockDocumentRepository)
	txChunks := new(MockChunkRepository)
	runner := &testTxRunner{repos: &testTxRepos{documents: txDocs, chunks: txChunks}}
	f := newIngestFixture(false, runner, 100)

	f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(vecs(1), nil)
	txDocs.On("Create", mock.Anything, mock.Anything).Return(nil)
	txChunks.On("InsertBatch", mock.Anything, mock.Anything).Return(int64(0), errors.New("constraint violation"))

	_, err := f.svc.Ingest(context.Background(), IngestInput{FileName: "a.txt", FileType: domain.FileTypeTXT, Text: longText(3)})

	require.Error(t, err)
	assert.True(t, runner.called)
	assert.ErrorIs(t, err, domain.ErrStorageOperationFail)
	f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.docs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestIngestService_Ingest_UploadFailureIsNotFatal(t *testing.T) {
	f := newIngestFixture(true, nil, 100)

	f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(vecs(1), nil)
	f.docs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.chunks.On("InsertBatch", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket missing"))

	result, err := f.svc.Ingest(context.Background(), IngestInput{
		FileName: "a.txt", FileType: domain.FileTypeTXT, Text: longText(3), File: []byte("x"),
	})

	require.NoError(t, err)
	assert.Nil(t, result.FilePath)
	assert.Equal(t, 1, result.ChunksCount)
	f.docs.AssertNotCalled(t, "UpdateFilePath", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestService_Ingest_DefaultsTitleFromFileName(t *testing.T) {
	f := newIngestFixture(false, nil, 100)

	f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(vecs(1), nil)
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Title == "quarterly-report"
	})).Return(nil)
	f.chunks.On("InsertBatch", mock.Anything, mock.Anything).Return(int64(1), nil)

	_, err := f.svc.Ingest(context.Background(), IngestInput{FileName: "quarterly-report.txt", FileType: domain.FileTypeTXT, Text: "Revenue grew."})

	require.NoError(t, err)
	f.docs.AssertExpectations(t)
}

func TestIngestService_Ingest_NotConfigured(t *testing.T) {
	svc := NewIngestService(nil, nil, nil, nil, nil, IngestConfig{}, nil)

	_, err := svc.Ingest(context.Background(), IngestInput{FileName: "a.txt", Text: "x"})

	assert.ErrorIs(t, err, domain.ErrEmbeddingNotConfigured)
}

func TestIngestService_IngestDocument_EmbeddingFailureRollsBack(t *testing.T) {
	f := newIngestFixture(false, nil, 100)

	f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, domain.ErrEmbeddingRateLimited)
	f.chunks.On("DeleteByDocument", mock.Anything, "staged").Return(nil)
	f.docs.On("Delete", mock.Anything, "staged").Return(nil)

	_, err := f.svc.IngestDocument(context.Background(), "staged", longText(10))

	assert.ErrorIs(t, err, domain.ErrEmbeddingRateLimited)
	f.chunks.AssertNotCalled(t, "InsertBatch", mock.Anything, mock.Anything)
	f.docs.AssertCalled(t, "Delete", mock.Anything, "staged")
}

func TestIngestService_IngestDocument_EmptyTextRollsBack(t *testing.T) {
	f := newIngestFixture(false, nil, 100)

	f.chunks.On("DeleteByDocument", mock.Anything, "staged").Return(nil)
	f.docs.On("Delete", mock.Anything, "staged").Return(nil)

	_, err := f.svc.IngestDocument(context.Background(), "staged", "")

	assert.ErrorIs(t, err, domain.ErrEmptyText)
	f.docs.AssertCalled(t, "Delete", mock.Anything, "staged")
}

func TestIngestService_IngestDocument_Success(t *testing.T) {
	f := newIngestFixture(false, nil, 100)

	f.embedder.On("EmbedBatch", mock.Anything, []string{"Short text."}).Return(vecs(1), nil)
	f.chunks.On("InsertBatch", mock.Anything, mock.MatchedBy(func(b []domain.Chunk) bool {
		return len(b) == 1 && b[0].DocumentID == "staged" && b[0].ChunkIndex == 0
	})).Return(int64(1), nil)

	result, err := f.svc.IngestDocument(context.Background(), "staged", "Short text.")

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksCount)
}

func TestIngestService_RollbackDocument(t *testing.T) {
	f := newIngestFixture(false, nil, 100)

	f.chunks.On("DeleteByDocument", mock.Anything, "gone").Return(nil)
	f.docs.On("Delete", mock.Anything, "gone").Return(domain.ErrDocumentNotFound)

	assert.NoError(t, f.svc.RollbackDocument(context.Background(), "gone"))
}

func TestIngestService_RollbackFailureIsReported(t *testing.T) {
	f := newIngestFixture(false, nil, 100)

	f.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, domain.ErrEmbeddingUpstream)
	f.chunks.On("DeleteByDocument", mock.Anything, "staged").Return(errors.New("connection lost"))

	_, err := f.svc.IngestDocument(context.Background(), "staged", "Some text.")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUpstream)
	assert.Contains(t, err.Error(), "connection lost")
}
