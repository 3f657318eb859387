package domain

import "time"

// Chunk is a contiguous span of extracted document text with its embedding
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	ChunkIndex int
	Embedding  []float32
	Metadata   map[string]any
	CreatedAt  time.Time
}

// StoredChunk is a chunk as read back from the store with its embedding
// still in serialized form. ParseEmbedding turns it into a vector.
type StoredChunk struct {
	ID         string
	DocumentID string
	Content    string
	ChunkIndex int
	Embedding  StoredEmbedding
}

// NewChunks assigns contiguous zero-based indices to contents and pairs them
// with their embeddings. The lengths must match.
func NewChunks(documentID string, contents []string, embeddings [][]float32) ([]Chunk, error) {
	if len(contents) != len(embeddings) {
		return nil, ErrEmbeddingCountMismatch
	}
	chunks := make([]Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = Chunk{
			DocumentID: documentID,
			Content:    content,
			ChunkIndex: i,
			Embedding:  embeddings[i],
			Metadata:   map[string]any{},
		}
	}
	return chunks, nil
}
