package domain

import "time"

// SearchResult is a chunk projection with its similarity to a query vector
type SearchResult struct {
	ID            string  `json:"id"`
	Content       string  `json:"content"`
	DocumentID    string  `json:"documentId"`
	DocumentTitle string  `json:"documentTitle"`
	ChunkIndex    int     `json:"chunkIndex"`
	Similarity    float64 `json:"similarity"`
}

// ChunkReference records which chunk contributed to an answer
type ChunkReference struct {
	ID            string  `json:"id"`
	DocumentID    string  `json:"documentId"`
	DocumentTitle string  `json:"documentTitle"`
	Similarity    float64 `json:"similarity"`
}

// SearchHistory is a persisted question/answer pair
type SearchHistory struct {
	ID         string
	UserID     string
	Question   string
	Answer     string
	ChunksUsed []ChunkReference
	CreatedAt  time.Time
}

// ReferencesFromResults converts search results into history references.
func ReferencesFromResults(results []SearchResult) []ChunkReference {
	refs := make([]ChunkReference, len(results))
	for i, r := range results {
		refs[i] = ChunkReference{
			ID:            r.ID,
			DocumentID:    r.DocumentID,
			DocumentTitle: r.DocumentTitle,
			Similarity:    r.Similarity,
		}
	}
	return refs
}
