package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StoredEmbedding is an embedding in the text form the store returns it in,
// either pgvector literal "[1,2,3]" or a JSON array. A nil value means the
// chunk has no embedding.
type StoredEmbedding *string

// ParseEmbedding normalizes a stored embedding into a vector. Missing
// embeddings return (nil, nil); anything unparseable returns
// ErrMalformedEmbedding.
func ParseEmbedding(raw StoredEmbedding) ([]float32, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, nil
	}

	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, ErrMalformedEmbedding.WithCause(err)
	}
	if len(vec) == 0 {
		return nil, ErrMalformedEmbedding.WithCause(fmt.Errorf("empty vector"))
	}
	return vec, nil
}

// Dimensions returns the shared vector length, or an error if the vectors
// disagree.
func Dimensions(vectors [][]float32) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}
	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims {
			return 0, fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), dims)
		}
	}
	return dims, nil
}
