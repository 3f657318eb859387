package openai

import (
	"context"
	"errors"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultChatModel   = openai.GPT4oMini
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// Complete sends one system and one user message and returns the first
// choice's content. An empty string means the model produced no text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if c.chat == nil {
		return "", errors.New("chat completion client not configured")
	}

	// temperature is omitempty on the wire, so an exact 0 would fall back to
	// the API default of 1.
	temperature := c.temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
