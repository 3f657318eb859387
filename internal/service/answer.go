package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/telemetry"
)

const (
	// NoDocumentsAnswer is returned when retrieval found nothing to ground on.
	NoDocumentsAnswer = "No relevant documents were found for your question. Please try rephrasing it or upload documents that cover this topic."
	// FallbackAnswer is returned when the model produced no text.
	FallbackAnswer = "Sorry, an answer could not be generated."

	answerSystemPrompt = `You are an assistant that answers questions using only the reference documents provided.

Rules:
- Base your answer strictly on the reference documents.
- If the documents do not contain the answer, reply that the documents do not contain this information.
- Be concise and clear.
- Quote the relevant passage from the documents when it helps.`
)

// ChatClient sends one system and one user message to a language model.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// AnswerComposer builds a grounded prompt from retrieved chunks and asks the
// language model for an answer.
type AnswerComposer struct {
	chat ChatClient
}

func NewAnswerComposer(chat ChatClient) *AnswerComposer {
	return &AnswerComposer{chat: chat}
}

// BuildContext numbers each chunk and prefixes it with its document title.
func BuildContext(chunks []domain.SearchResult) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		if c.DocumentTitle != "" {
			parts[i] = fmt.Sprintf("[Document %d: %s]\n%s", i+1, c.DocumentTitle, c.Content)
		} else {
			parts[i] = fmt.Sprintf("[Document %d]\n%s", i+1, c.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// BuildUserPrompt combines the context block and the question.
func BuildUserPrompt(question string, chunks []domain.SearchResult) string {
	return fmt.Sprintf("Reference documents:\n%s\n\nQuestion: %s", BuildContext(chunks), question)
}

// GenerateAnswer returns NoDocumentsAnswer without calling the model when
// chunks is empty. Model failures wrap domain.ErrGenerationFailed.
func (a *AnswerComposer) GenerateAnswer(ctx context.Context, question string, chunks []domain.SearchResult) (string, error) {
	if len(chunks) == 0 {
		return NoDocumentsAnswer, nil
	}
	if a.chat == nil {
		return "", domain.ErrChatNotConfigured
	}

	ctx, span := telemetry.StartSpan(ctx, "AnswerComposer.GenerateAnswer", telemetry.SpanAttributes{
		Operation: "generate_answer",
	})
	defer span.End()

	answer, err := a.chat.Complete(ctx, answerSystemPrompt, BuildUserPrompt(question, chunks))
	if err != nil {
		span.SetError(err)
		return "", domain.ErrGenerationFailed.WithCause(err)
	}
	if strings.TrimSpace(answer) == "" {
		return FallbackAnswer, nil
	}
	return answer, nil
}
