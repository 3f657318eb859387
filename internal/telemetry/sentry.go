// Package telemetry wraps Sentry tracing and error reporting.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
)

const serviceName = "docqa"

type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
	Logger           *zap.Logger
}

// Init configures the global Sentry client and returns a flush function.
// An empty DSN disables reporting.
func Init(cfg Config) (func(), error) {
	noop := func() {}
	if cfg.DSN == "" {
		return noop, nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    traceSampler(cfg.TracesSampleRate),
		Debug:            cfg.Debug,
		ServerName:       serviceName,
	})
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
		return noop, nil
	}

	logger.Info("sentry tracing initialized",
		zap.String("environment", cfg.Environment),
		zap.Float64("sample_rate", cfg.TracesSampleRate),
	)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// traceSampler drops health checks and keeps child spans consistent with
// their parent's decision.
func traceSampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if ctx.Span.Name == "GET /health" || ctx.Span.Op == "http.server GET /health" {
			return 0
		}
		var emptySpanID sentry.SpanID
		if ctx.Span.ParentSpanID != emptySpanID {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes are tagged on service spans when set.
type SpanAttributes struct {
	DocumentID string
	UserID     string
	Strategy   string
	Operation  string
}

type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetTag adds a tag to the span, e.g. the similarity strategy that answered.
func (s *Span) SetTag(key, value string) {
	if s.inner != nil {
		s.inner.SetTag(key, value)
	}
}

// SetError records err on the span. Caller mistakes such as validation or
// not-found errors set the matching status but are not reported.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = SpanStatusFor(err)
	if !Reportable(err) {
		return
	}
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// StartSpan starts a child of the span in ctx, or a new transaction when
// there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.DocumentID != "" {
		span.SetTag("document_id", attrs.DocumentID)
	}
	if attrs.UserID != "" {
		span.SetTag("user_id", attrs.UserID)
	}
	if attrs.Strategy != "" {
		span.SetTag("search_strategy", attrs.Strategy)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}

	return span.Context(), &Span{inner: span}
}

// CaptureError reports err unless it is a caller mistake.
func CaptureError(ctx context.Context, err error) {
	if err == nil || !Reportable(err) {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// AddBreadcrumb records a step such as a search fallback on the current scope.
func AddBreadcrumb(ctx context.Context, category, message string) {
	breadcrumb := &sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(breadcrumb, nil)
		return
	}
	sentry.AddBreadcrumb(breadcrumb)
}

// Reportable reports whether err should reach Sentry.
func Reportable(err error) bool {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return !errors.Is(err, context.Canceled)
	}
	switch de.Code {
	case domain.ErrCodeValidation, domain.ErrCodeNotFound, domain.ErrCodeUnauthorized,
		domain.ErrCodeForbidden, domain.ErrCodeTooLarge, domain.ErrCodeUnsupported:
		return false
	}
	return true
}

func SpanStatusFor(err error) sentry.SpanStatus {
	if errors.Is(err, context.DeadlineExceeded) {
		return sentry.SpanStatusDeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return sentry.SpanStatusCanceled
	}

	var de *domain.DomainError
	if !errors.As(err, &de) {
		return sentry.SpanStatusInternalError
	}
	switch de.Code {
	case domain.ErrCodeValidation, domain.ErrCodeUnsupported:
		return sentry.SpanStatusInvalidArgument
	case domain.ErrCodeNotFound:
		return sentry.SpanStatusNotFound
	case domain.ErrCodeUnauthorized:
		return sentry.SpanStatusUnauthenticated
	case domain.ErrCodeForbidden:
		return sentry.SpanStatusPermissionDenied
	case domain.ErrCodeTooLarge:
		return sentry.SpanStatusOutOfRange
	case domain.ErrCodeRateLimited:
		return sentry.SpanStatusResourceExhausted
	case domain.ErrCodeConfiguration:
		return sentry.SpanStatusFailedPrecondition
	case domain.ErrCodeEmbeddingAuth, domain.ErrCodeUpstream:
		return sentry.SpanStatusUnavailable
	}
	return sentry.SpanStatusInternalError
}
