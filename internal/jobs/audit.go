package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/logging"
	"github.com/cloo-solutions/docqa/internal/openai"
	"github.com/cloo-solutions/docqa/internal/service"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts per document in one run
	MaxRetries = 3
)

// StaleDocumentFinder lists documents whose stored embeddings do not match
// the configured dimension.
type StaleDocumentFinder interface {
	FindStaleDocuments(ctx context.Context, dims int) ([]string, error)
}

// Reembedder recomputes a document's embeddings.
type Reembedder interface {
	Reembed(ctx context.Context, documentID string) (*service.ReembedResult, error)
}

// AuditStats summarizes one audit run.
type AuditStats struct {
	Found      int
	Reembedded int
	Failed     int
}

// DimensionAuditor re-embeds documents left behind by an embedding model
// change.
type DimensionAuditor struct {
	finder     StaleDocumentFinder
	reembedder Reembedder
	dims       int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewDimensionAuditor creates a DimensionAuditor that expects dims-sized
// vectors.
func NewDimensionAuditor(finder StaleDocumentFinder, reembedder Reembedder, dims int, logger *zap.Logger) *DimensionAuditor {
	return &DimensionAuditor{
		finder:     finder,
		reembedder: reembedder,
		dims:       dims,
		backoff:    time.Second,
		logger:     logging.OrNop(logger).Named("audit"),
	}
}

// ProcessJobs implements the JobProcessor interface
func (a *DimensionAuditor) ProcessJobs(ctx context.Context) error {
	_, err := a.Run(ctx)
	return err
}

// Run audits once and re-embeds every stale document. Failures of single
// documents are logged and counted, not returned.
func (a *DimensionAuditor) Run(ctx context.Context) (*AuditStats, error) {
	ids, err := a.finder.FindStaleDocuments(ctx, a.dims)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale documents: %w", err)
	}

	stats := &AuditStats{Found: len(ids)}
	if len(ids) == 0 {
		return stats, nil
	}

	a.logger.Info("re-embedding stale documents",
		zap.Int("documents", len(ids)),
		zap.Int("dimensions", a.dims),
	)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := a.reembedDocument(ctx, id); err != nil {
			stats.Failed++
			a.logger.Error("document re-embed failed",
				zap.String("document_id", id),
				zap.Error(err),
			)
			telemetry.CaptureError(ctx, err)
			continue
		}
		stats.Reembedded++
	}

	a.logger.Info("audit finished",
		zap.Int("found", stats.Found),
		zap.Int("reembedded", stats.Reembedded),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (a *DimensionAuditor) reembedDocument(ctx context.Context, id string) error {
	var err error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		_, err = a.reembedder.Reembed(ctx, id)
		if err == nil || !openai.IsRetryable(err) {
			return err
		}
		if attempt == MaxRetries {
			break
		}

		a.logger.Warn("re-embed will be retried",
			zap.String("document_id", id),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}
