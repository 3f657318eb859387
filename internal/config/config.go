package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docqa-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	// how long GET /admin/documents/{id}/view links stay valid
	S3ViewExpiry time.Duration `envconfig:"S3_VIEW_EXPIRY" default:"15m"`

	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-large"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"0"`
	EmbeddingBatchSize  int           `envconfig:"EMBEDDING_BATCH_SIZE" default:"100"`
	EmbeddingBatchDelay time.Duration `envconfig:"EMBEDDING_BATCH_DELAY" default:"100ms"`
	ChatModel           string        `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	ChatTemperature     float32       `envconfig:"CHAT_TEMPERATURE" default:"0.7"`
	ChatMaxTokens       int           `envconfig:"CHAT_MAX_TOKENS" default:"1000"`

	ChunkMinSize    int `envconfig:"CHUNK_MIN_SIZE" default:"300"`
	ChunkMaxSize    int `envconfig:"CHUNK_MAX_SIZE" default:"500"`
	InsertBatchSize int `envconfig:"INSERT_BATCH_SIZE" default:"100"`

	MatchThreshold        float64 `envconfig:"MATCH_THRESHOLD" default:"0.7"`
	SearchTopK            int     `envconfig:"SEARCH_TOP_K" default:"10"`
	SearchFallbackOnEmpty bool    `envconfig:"SEARCH_FALLBACK_ON_EMPTY" default:"true"`

	RedisURL      string        `envconfig:"REDIS_URL"`
	QueryCacheTTL time.Duration `envconfig:"QUERY_CACHE_TTL" default:"24h"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// API_KEYS is token:userID pairs, e.g. "tok1:alice,tok2:bob"
	APIKeys    map[string]string `envconfig:"API_KEYS"`
	AdminUsers []string          `envconfig:"ADMIN_USERS"`

	AuditInterval  time.Duration `envconfig:"AUDIT_INTERVAL" default:"0"`
	MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" default:"4718592"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCQA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.ChunkMinSize <= 0 || cfg.ChunkMaxSize < cfg.ChunkMinSize {
		return nil, fmt.Errorf("invalid chunk sizes: min=%d max=%d", cfg.ChunkMinSize, cfg.ChunkMaxSize)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) IsAdmin(userID string) bool {
	for _, u := range c.AdminUsers {
		if u == userID {
			return true
		}
	}
	return false
}
