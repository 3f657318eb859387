package admin

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/cache"
	"github.com/cloo-solutions/docqa/internal/config"
	"github.com/cloo-solutions/docqa/internal/database"
	"github.com/cloo-solutions/docqa/internal/openai"
	"github.com/cloo-solutions/docqa/internal/repository"
	"github.com/cloo-solutions/docqa/internal/service"
	"github.com/cloo-solutions/docqa/internal/storage"
)

// App holds the services shared by the server and the local commands.
// Optional providers are left as nil interfaces when not configured.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Pool   *pgxpool.Pool

	Documents *repository.DocumentRepository
	Chunks    *repository.ChunkRepository
	History   *repository.SearchHistoryRepository

	OpenAI  *openai.Client
	Storage *storage.S3Client

	Extractors  service.ExtractorRegistry
	Search      *service.SearchService
	Ingest      *service.IngestService
	Reembed     *service.ReembedService
	Ask         *service.AskService
	DocumentSvc *service.DocumentService
	HistorySvc  *service.HistoryService
	Auth        *service.AuthService

	redis *redis.Client
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := database.NewPool(ctx, database.Config{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DatabaseMaxConns,
		ApplicationName: "docqad",
	})
	if err != nil {
		return nil, err
	}

	if version, err := database.VectorExtensionVersion(ctx, pool); err != nil {
		logger.Warn("pgvector unavailable", zap.Error(err))
	} else {
		logger.Info("connected to database", zap.String("pgvector", version))
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Documents: repository.NewDocumentRepository(pool),
		Chunks:    repository.NewChunkRepository(pool),
		History:   repository.NewSearchHistoryRepository(pool),
	}

	var (
		embedder service.EmbeddingClient
		query    service.QueryEmbedder
		chat     service.ChatClient
		store    service.ObjectStore
	)

	if cfg.HasOpenAI() {
		app.OpenAI = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			BatchSize:           cfg.EmbeddingBatchSize,
			BatchDelay:          cfg.EmbeddingBatchDelay,
			ChatModel:           cfg.ChatModel,
			ChatTemperature:     &cfg.ChatTemperature,
			ChatMaxTokens:       cfg.ChatMaxTokens,
		})
		embedder = app.OpenAI
		query = app.OpenAI
		chat = app.OpenAI
	} else {
		logger.Warn("DOCQA_OPENAI_API_KEY not set, ingestion and search are disabled")
	}

	if cfg.HasRedis() && app.OpenAI != nil {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("query embedding cache disabled", zap.Error(err))
		} else {
			app.redis = rdb
			query = cache.NewEmbeddingCache(app.OpenAI, cache.NewRedisStore(rdb),
				cfg.EmbeddingModel, app.OpenAI.Dimensions(), cfg.QueryCacheTTL, logger)
			logger.Info("query embedding cache enabled", zap.Duration("ttl", cfg.QueryCacheTTL))
		}
	}

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
			ViewExpiry:      cfg.S3ViewExpiry,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		logger.Info("S3 bucket ready", zap.String("bucket", cfg.S3Bucket))
		app.Storage = s3Client
		store = s3Client
	}

	tx := repository.NewTxRunner(pool)

	app.Extractors = service.NewExtractorRegistry()
	app.Search = service.NewSearchService(
		query,
		service.NewNativeVectorSearch(app.Chunks, cfg.MatchThreshold),
		service.NewBruteForceCosineSearch(app.Chunks, logger),
		app.Documents,
		service.SearchConfig{DefaultTopK: cfg.SearchTopK, FallbackOnEmpty: cfg.SearchFallbackOnEmpty},
		logger,
	)
	app.Ingest = service.NewIngestService(embedder, app.Documents, app.Chunks, tx, store, service.IngestConfig{
		Chunk:           service.ChunkConfig{MinSize: cfg.ChunkMinSize, MaxSize: cfg.ChunkMaxSize},
		InsertBatchSize: cfg.InsertBatchSize,
	}, logger)
	app.Reembed = service.NewReembedService(embedder, app.Documents, app.Chunks, tx, logger)

	app.Ask = service.NewAskService(app.Search, service.NewAnswerComposer(chat), app.History, app.Chunks, logger)
	app.DocumentSvc = service.NewDocumentService(app.Documents, store, logger)
	app.HistorySvc = service.NewHistoryService(app.History)
	app.Auth = service.NewAuthService(cfg.APIKeys, cfg.AdminUsers)

	return app, nil
}

func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.Pool.Close()
}
