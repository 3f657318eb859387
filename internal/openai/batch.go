package openai

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

// EmbedBatch embeds texts in request batches of at most batchSize, pausing
// batchDelay after each batch finishes before the next one starts. It returns exactly len(texts) vectors or an
// error; a failing batch aborts the remaining ones.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyText
		}
	}

	total := (len(texts) + c.batchSize - 1) / c.batchSize
	vectors := make([][]float32, 0, len(texts))

	for b := 0; b < total; b++ {
		if b > 0 {
			if err := c.pause(ctx); err != nil {
				return nil, err
			}
		}

		start := b * c.batchSize
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		out, err := c.api.CreateEmbeddings(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, classify(err, b+1, total)
		}
		if len(out) != len(batch) {
			return nil, &EmbeddingError{
				Kind:    KindCountMismatch,
				Batch:   b + 1,
				Batches: total,
				Detail:  fmt.Sprintf("expected %d embeddings, got %d", len(batch), len(out)),
			}
		}
		if err := checkDimensions(out, c.dimensions); err != nil {
			return nil, &EmbeddingError{
				Kind:    KindUpstream,
				Batch:   b + 1,
				Batches: total,
				Detail:  err.Error(),
			}
		}

		vectors = append(vectors, out...)
	}

	if len(vectors) != len(texts) {
		return nil, &EmbeddingError{
			Kind:    KindCountMismatch,
			Batch:   total,
			Batches: total,
			Detail:  fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(vectors)),
		}
	}

	return vectors, nil
}

// pause blocks for one full batchDelay, measured from now.
func (c *Client) pause(ctx context.Context) error {
	if c.batchDelay <= 0 {
		return ctx.Err()
	}
	limiter := rate.NewLimiter(rate.Every(c.batchDelay), 1)
	limiter.Allow()
	if err := limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}
