// Package jobs runs periodic maintenance passes such as the embedding
// dimension audit.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/logging"
)

// JobProcessor performs one maintenance pass.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker runs a JobProcessor once on start and then every interval until
// stopped. Passes never overlap.
type Worker struct {
	processor JobProcessor
	interval  time.Duration
	logger    *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewWorker(processor JobProcessor, interval time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		processor: processor,
		interval:  interval,
		logger:    logging.OrNop(logger).Named("worker"),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	w.logger.Info("worker started", zap.Duration("interval", w.interval))
	w.runPass(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			w.logger.Info("worker stopped: stop signal received")
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

func (w *Worker) runPass(ctx context.Context) {
	start := time.Now()
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.logger.Error("pass failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	w.logger.Debug("pass complete", zap.Duration("duration", time.Since(start)))
}

// Stop signals the loop and waits for the current pass to finish. It is safe
// to call more than once, and after the context has been cancelled.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
	w.logger.Info("worker shutdown complete")
}
