package openai

import (
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// ErrorKind classifies an embedding failure
type ErrorKind string

const (
	KindAuth          ErrorKind = "auth"
	KindRateLimit     ErrorKind = "rate_limit"
	KindCountMismatch ErrorKind = "count_mismatch"
	KindUpstream      ErrorKind = "upstream"
)

// EmbeddingError describes a failed embedding batch. It matches the
// corresponding domain sentinel with errors.Is.
type EmbeddingError struct {
	Kind    ErrorKind
	Batch   int
	Batches int
	Status  int
	Detail  string
	Err     error
}

func (e *EmbeddingError) Error() string {
	switch e.Kind {
	case KindAuth:
		if e.Detail != "" {
			return "embedding provider authentication failed: " + e.Detail
		}
		return "embedding provider authentication failed: check the API key"
	case KindRateLimit:
		return fmt.Sprintf("embedding provider rate limit exceeded at batch %d/%d", e.Batch, e.Batches)
	}
	msg := fmt.Sprintf("embedding batch %d/%d failed", e.Batch, e.Batches)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *EmbeddingError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *EmbeddingError) sentinel() *domain.DomainError {
	switch e.Kind {
	case KindAuth:
		return domain.ErrEmbeddingAuth
	case KindRateLimit:
		return domain.ErrEmbeddingRateLimited
	case KindCountMismatch:
		return domain.ErrEmbeddingCountMismatch
	}
	return domain.ErrEmbeddingUpstream
}

// IsRetryable reports whether err is worth retrying after a backoff. Only
// rate limiting qualifies; count mismatches and upstream failures are fatal.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingRateLimited)
}

func classify(err error, batch, batches int) *EmbeddingError {
	out := &EmbeddingError{
		Kind:    KindUpstream,
		Batch:   batch,
		Batches: batches,
		Detail:  err.Error(),
		Err:     err,
	}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		out.Status = apiErr.HTTPStatusCode
		out.Detail = apiErr.Message
		if apiErr.Code == "invalid_api_key" {
			out.Kind = KindAuth
			return out
		}
	case errors.As(err, &reqErr):
		out.Status = reqErr.HTTPStatusCode
		if reqErr.Err != nil {
			out.Detail = reqErr.Err.Error()
		}
	}

	switch out.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		out.Kind = KindAuth
	case http.StatusTooManyRequests:
		out.Kind = KindRateLimit
	}
	return out
}
