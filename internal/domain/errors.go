package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so a sentinel still matches after it has been given a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithCause returns a copy of the error carrying err as its cause.
func (e *DomainError) WithCause(err error) *DomainError {
	return NewDomainErrorWithCause(e.Code, e.Message, err)
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeEmbeddingAuth = "EMBEDDING_AUTH_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeCountMismatch = "COUNT_MISMATCH"
	ErrCodeTooLarge      = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupported   = "UNSUPPORTED_FILE_TYPE"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyText            = NewDomainError(ErrCodeValidation, "document text is empty")
	ErrNoChunks             = NewDomainError(ErrCodeValidation, "text produced no chunks")
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question is required")
	ErrInvalidFileType      = NewDomainError(ErrCodeValidation, "invalid file type")
	ErrFileTooLarge         = NewDomainError(ErrCodeTooLarge, "file exceeds upload limit")
	ErrUnsupportedFileType  = NewDomainError(ErrCodeUnsupported, "no text extractor for file type")
)

// Not found errors
var (
	ErrDocumentNotFound      = NewDomainError(ErrCodeNotFound, "document not found")
	ErrDocumentHasNoChunks   = NewDomainError(ErrCodeNotFound, "document has no chunks")
	ErrSearchHistoryNotFound = NewDomainError(ErrCodeNotFound, "search history entry not found")
	ErrFileNotStored         = NewDomainError(ErrCodeNotFound, "original file is not stored")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrAdminRequired = NewDomainError(ErrCodeForbidden, "admin privileges required")
)

// Configuration errors
var (
	ErrEmbeddingNotConfigured = NewDomainError(ErrCodeConfiguration, "embedding provider is not configured")
	ErrChatNotConfigured      = NewDomainError(ErrCodeConfiguration, "language model provider is not configured")
	ErrStorageNotConfigured   = NewDomainError(ErrCodeConfiguration, "object storage is not configured")
)

// Embedding provider errors
var (
	ErrEmbeddingAuth          = NewDomainError(ErrCodeEmbeddingAuth, "embedding provider rejected credentials")
	ErrEmbeddingRateLimited   = NewDomainError(ErrCodeRateLimited, "embedding provider rate limit exceeded")
	ErrEmbeddingUpstream      = NewDomainError(ErrCodeUpstream, "embedding provider request failed")
	ErrEmbeddingCountMismatch = NewDomainError(ErrCodeCountMismatch, "embedding count does not match input count")
	ErrGenerationFailed       = NewDomainError(ErrCodeUpstream, "answer generation failed")
)

// Storage errors
var (
	ErrStorageOperationFail    = NewDomainError(ErrCodeStorage, "storage operation failed")
	ErrRowCountMismatch        = NewDomainError(ErrCodeCountMismatch, "affected row count does not match chunk count")
	ErrMalformedEmbedding      = NewDomainError(ErrCodeValidation, "malformed embedding")
	ErrNativeSearchUnavailable = NewDomainError(ErrCodeStorage, "native vector search is unavailable")
	ErrNativeSearchEmpty       = NewDomainError(ErrCodeNotFound, "native vector search returned no rows")
)

// NewStorageError wraps a persistence failure for the named operation.
func NewStorageError(op string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStorage, ErrStorageOperationFail.Message, fmt.Errorf("%s: %w", op, err))
}
