package openai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.LargeEmbedding3
	// DefaultEmbeddingDimensions is the dimension of text-embedding-3-large vectors
	DefaultEmbeddingDimensions = 3072
	// DefaultBatchSize is the maximum number of inputs per embedding request
	DefaultBatchSize = 100
	// DefaultBatchDelay is the pause between consecutive embedding requests
	DefaultBatchDelay = 100 * time.Millisecond
)

var modelDimensions = map[openai.EmbeddingModel]int{
	openai.SmallEmbedding3: 1536,
	openai.LargeEmbedding3: 3072,
	openai.AdaEmbeddingV2:  1536,
}

var (
	// ErrEmptyText is returned when an input text is blank
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoAPIKey is returned when no OpenAI API key is configured
	ErrNoAPIKey = errors.New("openai api key not set")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)
}

// ChatAPI is the subset of the go-openai client used for completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client wraps the OpenAI API client
type Client struct {
	api        EmbeddingAPI
	chat       ChatAPI
	dimensions int
	batchSize  int
	batchDelay time.Duration

	chatModel   string
	temperature float32
	maxTokens   int
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
}

// NewOpenAIAdapter requests dims-sized vectors from models that accept a
// dimensions parameter. dims <= 0 leaves the model's native size.
func NewOpenAIAdapter(client *openai.Client, model openai.EmbeddingModel, dims int) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if !supportsDimensions(model) {
		dims = 0
	}
	return &OpenAIAdapter{
		client: client,
		model:  model,
		dims:   dims,
	}
}

// Only the text-embedding-3 family can shorten its vectors.
func supportsDimensions(model openai.EmbeddingModel) bool {
	return model == openai.SmallEmbedding3 || model == openai.LargeEmbedding3
}

// CreateEmbeddings calls the OpenAI API and returns vectors in input order
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      inputs,
		Model:      a.model,
		Dimensions: a.dims,
	})
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel openai.EmbeddingModel
	// EmbeddingDimensions <= 0 uses the model's native size.
	EmbeddingDimensions int
	BatchSize           int
	BatchDelay          time.Duration

	ChatModel string
	// nil uses DefaultTemperature; a pointer keeps 0 configurable.
	ChatTemperature *float32
	ChatMaxTokens   int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	sdk := openai.NewClientWithConfig(apiCfg)

	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = modelDimensions[model]
	}

	return newClient(NewOpenAIAdapter(sdk, model, cfg.EmbeddingDimensions), sdk, cfg)
}

func newClient(api EmbeddingAPI, chat ChatAPI, cfg Config) *Client {
	c := &Client{
		api:         api,
		chat:        chat,
		dimensions:  cfg.EmbeddingDimensions,
		batchSize:   cfg.BatchSize,
		batchDelay:  cfg.BatchDelay,
		chatModel:   cfg.ChatModel,
		temperature: DefaultTemperature,
		maxTokens:   cfg.ChatMaxTokens,
	}
	if c.dimensions <= 0 {
		c.dimensions = DefaultEmbeddingDimensions
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.batchDelay < 0 {
		c.batchDelay = 0
	}
	if c.chatModel == "" {
		c.chatModel = DefaultChatModel
	}
	if cfg.ChatTemperature != nil {
		c.temperature = *cfg.ChatTemperature
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	return c
}

// Dimensions returns the vector length this client expects from the model.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// EmbedOne embeds a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func checkDimensions(vectors [][]float32, expected int) error {
	for i, v := range vectors {
		if len(v) != expected {
			return fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), expected)
		}
	}
	return nil
}
