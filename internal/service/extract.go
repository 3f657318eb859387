package service

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorRegistry selects an extractor by file type.
type ExtractorRegistry map[domain.FileType]TextExtractor

// NewExtractorRegistry returns a registry with the built-in extractors.
// PDF, DOCX and XLSX extractors are registered by the caller.
func NewExtractorRegistry() ExtractorRegistry {
	return ExtractorRegistry{
		domain.FileTypeTXT: PlainTextExtractor{},
	}
}

// Extract runs the extractor for fileType and normalizes its output.
func (r ExtractorRegistry) Extract(ctx context.Context, fileType domain.FileType, data []byte) (string, error) {
	ex, ok := r[fileType]
	if !ok {
		return "", domain.ErrUnsupportedFileType
	}
	text, err := ex.Extract(ctx, data)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "text extraction failed", err)
	}
	text = NormalizeText(text)
	if text == "" {
		return "", domain.ErrEmptyText
	}
	return text, nil
}

// PlainTextExtractor reads UTF-8 text files.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(_ context.Context, data []byte) (string, error) {
	s := strings.TrimPrefix(string(data), "\uFEFF")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return s, nil
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00A0}\x{3000}]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText unifies line endings, drops control characters and
// collapses runs of spaces and blank lines.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = horizontalSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
