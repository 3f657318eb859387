package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/logging"
)

// Store is the key/value surface the embedding cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Embedder is the client whose single-text results are cached.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache caches question embeddings. Batch calls used for ingestion
// go straight to the wrapped client. Cache failures never fail a request.
type EmbeddingCache struct {
	next   Embedder
	store  Store
	model  string
	dims   int
	ttl    time.Duration
	logger *zap.Logger
}

func NewEmbeddingCache(next Embedder, store Store, model string, dims int, ttl time.Duration, logger *zap.Logger) *EmbeddingCache {
	return &EmbeddingCache{
		next:   next,
		store:  store,
		model:  model,
		dims:   dims,
		ttl:    ttl,
		logger: logging.OrNop(logger).Named("cache"),
	}
}

func (c *EmbeddingCache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.next.EmbedBatch(ctx, texts)
}

func (c *EmbeddingCache) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	key := c.Key(text)

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("embedding cache read failed", zap.Error(err))
	} else if ok {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) == c.dims {
			return vec, nil
		}
		c.logger.Warn("discarding unusable cached embedding", zap.String("key", key))
	}

	vec, err := c.next.EmbedOne(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("embedding cache write failed", zap.Error(err))
		}
	}
	return vec, nil
}

// Key is scoped by model and dimension so a model change never serves stale
// vectors.
func (c *EmbeddingCache) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("docqa:embedding:%s:%d:%s", c.model, c.dims, hex.EncodeToString(sum[:]))
}
