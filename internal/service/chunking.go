package service

import (
	"strings"
	"unicode"
)

// ChunkConfig bounds chunk length in characters.
type ChunkConfig struct {
	MinSize int
	MaxSize int
}

// DefaultChunkConfig provides the default chunk bounds.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MinSize: 300,
		MaxSize: 500,
	}
}

// Split applies SplitIntoChunks with the configured bounds.
func (c ChunkConfig) Split(text string) []string {
	return SplitIntoChunks(text, c.MinSize, c.MaxSize)
}

// SplitIntoChunks splits text into sentence-respecting chunks whose length
// lies in [minSize, maxSize] characters, except for the final chunk and for
// text that has to be cut mechanically. Sentences are joined with a single
// space. Empty input yields no chunks.
func SplitIntoChunks(text string, minSize, maxSize int) []string {
	if minSize <= 0 || maxSize <= 0 || minSize > maxSize {
		d := DefaultChunkConfig()
		minSize, maxSize = d.MinSize, d.MaxSize
	}

	var chunks []string
	var buf []rune

	for _, sentence := range splitSentences(text) {
		s := []rune(sentence)
		var candidate []rune
		if len(buf) == 0 {
			candidate = s
		} else {
			candidate = make([]rune, 0, len(buf)+1+len(s))
			candidate = append(candidate, buf...)
			candidate = append(candidate, ' ')
			candidate = append(candidate, s...)
		}

		switch {
		case len(candidate) <= maxSize:
			buf = candidate
		case len(buf) >= minSize:
			chunks = append(chunks, string(buf))
			buf = s
		default:
			// under-filled buffer: accept an oversized chunk and cut it below
			buf = candidate
		}

		for len(buf) > maxSize {
			head, rest := cutAtWhitespace(buf, maxSize)
			if h := strings.TrimSpace(string(head)); h != "" {
				chunks = append(chunks, h)
			}
			buf = []rune(strings.TrimLeftFunc(string(rest), unicode.IsSpace))
		}
	}

	if last := strings.TrimSpace(string(buf)); last != "" {
		chunks = append(chunks, last)
	}
	return chunks
}

// cutAtWhitespace splits at the last whitespace at or before limit, or hard
// at limit when there is none.
func cutAtWhitespace(r []rune, limit int) (head, rest []rune) {
	for i := limit; i > 0; i-- {
		if unicode.IsSpace(r[i]) {
			return r[:i], r[i+1:]
		}
	}
	return r[:limit], r[limit:]
}

func isCJKTerminal(r rune) bool {
	switch r {
	case '。', '．', '！', '？':
		return true
	}
	return false
}

func isASCIITerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitSentences breaks text after runs of sentence-terminal punctuation or
// newlines. The terminal run stays with the sentence it ends. ASCII
// terminals only count when followed by whitespace or end of text, so
// "3.14" and "example.com" stay intact.
func splitSentences(text string) []string {
	r := []rune(text)
	var out []string
	start := 0

	emit := func(end int) {
		if s := strings.TrimSpace(string(r[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i := 0; i < len(r); i++ {
		c := r[i]
		switch {
		case c == '\n':
			emit(i + 1)
		case isCJKTerminal(c):
			j := i + 1
			for j < len(r) && (isCJKTerminal(r[j]) || isASCIITerminal(r[j])) {
				j++
			}
			emit(j)
			i = j - 1
		case isASCIITerminal(c):
			j := i + 1
			for j < len(r) && (isASCIITerminal(r[j]) || isCJKTerminal(r[j])) {
				j++
			}
			if j == len(r) || unicode.IsSpace(r[j]) {
				emit(j)
				i = j - 1
			}
		}
	}
	emit(len(r))
	return out
}
