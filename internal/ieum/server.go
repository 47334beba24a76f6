// Package ieum assembles the ieum-rag service from its options.
package ieum

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/ieum/internal/ieum/biz"
	"github.com/kart-io/ieum/internal/ieum/blob"
	"github.com/kart-io/ieum/internal/ieum/handler"
	"github.com/kart-io/ieum/internal/ieum/metrics"
	"github.com/kart-io/ieum/internal/ieum/router"
	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/internal/pkg/extract"
	"github.com/kart-io/ieum/pkg/component/milvus"
	"github.com/kart-io/ieum/pkg/component/redis"
	"github.com/kart-io/ieum/pkg/infra/app"
	"github.com/kart-io/ieum/pkg/infra/pool"
	"github.com/kart-io/ieum/pkg/infra/server"
	"github.com/kart-io/ieum/pkg/infra/tracing"
	"github.com/kart-io/ieum/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/ieum/pkg/llm/ollama"
	_ "github.com/kart-io/ieum/pkg/llm/openai"
	"github.com/kart-io/ieum/pkg/llm/resilience"
	blobopts "github.com/kart-io/ieum/pkg/options/blob"
	llmopts "github.com/kart-io/ieum/pkg/options/llm"
	logopts "github.com/kart-io/ieum/pkg/options/logger"
	milvusopts "github.com/kart-io/ieum/pkg/options/milvus"
	ragopts "github.com/kart-io/ieum/pkg/options/rag"
	redisopts "github.com/kart-io/ieum/pkg/options/redis"
	httpopts "github.com/kart-io/ieum/pkg/options/server/http"
	tracingopts "github.com/kart-io/ieum/pkg/options/tracing"
)

// Name is the name of the application.
const Name = "ieum-rag"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	TracingOptions   *tracingopts.Options
	MilvusOptions    *milvusopts.Options
	RedisOptions     *redisopts.Options
	BlobOptions      *blobopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	IngestOptions    *ragopts.IngestOptions
	RetrievalOptions *ragopts.RetrievalOptions
	MinutesOptions   *ragopts.MinutesOptions
}

// Server represents the ieum-rag server.
type Server struct {
	manager *server.Manager
}

// NewServer initializes and returns a new Server instance.
// 初始化失败时已创建的组件会被关闭。
func (cfg *Config) NewServer(ctx context.Context) (_ *Server, err error) {
	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting ieum-rag service...")

	manager := server.NewManager(cfg.HTTPOptions.ShutdownTimeout)
	defer func() {
		if err != nil {
			_ = manager.Stop(context.Background())
		}
	}()

	// 2. 初始化链路追踪
	if cfg.TracingOptions.ServiceVersion == "" {
		cfg.TracingOptions.ServiceVersion = app.GetVersion()
	}
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	manager.OnStop("tracing", tp.Shutdown)
	logger.Infow("Tracing initialized", "enabled", tp.Enabled(), "exporter", cfg.TracingOptions.ExporterType)

	// 3. 初始化 LLM 供应商
	embedder, chat, err := cfg.newProviders()
	if err != nil {
		return nil, err
	}

	// 4. 初始化 Redis（摄取锁与嵌入缓存），不可用时退化为进程内锁
	var locker biz.Locker = biz.NewLocalLocker()
	if cfg.RedisOptions.Enabled {
		rc, rerr := redis.NewWithContext(ctx, cfg.RedisOptions)
		if rerr != nil {
			logger.Warnw("failed to connect to redis, falling back to in-process locks without embedding cache",
				"addr", cfg.RedisOptions.Addr(),
				"error", rerr.Error(),
			)
		} else {
			manager.OnStop("redis", server.CloserFunc(rc))
			locker = biz.NewRedisLocker(rc.Client())
			if ttl := cfg.RedisOptions.EmbeddingCacheTTL; ttl > 0 {
				cacheCfg := llm.DefaultEmbeddingCacheConfig()
				cacheCfg.TTL = ttl
				embedder = llm.NewCachedEmbeddingProvider(embedder, rc.Client(), cacheCfg)
			}
			logger.Infow("Redis initialized",
				"addr", cfg.RedisOptions.Addr(),
				"database", cfg.RedisOptions.Database,
				"embedding_cache_ttl", cfg.RedisOptions.EmbeddingCacheTTL.String(),
			)
		}
	} else {
		logger.Info("Redis is disabled, using in-process ingestion locks")
	}

	// 5. 初始化检索索引
	index, err := cfg.newIndex(ctx, manager)
	if err != nil {
		return nil, err
	}

	// 6. 初始化对象存储
	blobs, err := blob.New(ctx, cfg.BlobOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}
	manager.OnStop("object-store", server.CloserFunc(blobs))
	logger.Infow("Object store initialized", "backend", cfg.BlobOptions.Backend)

	// 7. 初始化嵌入协程池
	embedPool, err := pool.NewPool("embedding", pool.EmbeddingPoolConfig(cfg.IngestOptions.EmbedConcurrency))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding pool: %w", err)
	}
	manager.OnStop("embedding-pool", func(context.Context) error {
		return embedPool.ReleaseTimeout(5 * time.Second)
	})

	// 8. 初始化 Biz 层
	service := biz.NewService(biz.Deps{
		Blobs:     blobs,
		Index:     index,
		Embedder:  embedder,
		Chat:      chat,
		Extractor: extract.New(cfg.IngestOptions.PreflightPDF),
		Pool:      embedPool,
		Locker:    locker,
		Metrics:   metrics.Get(),
	}, biz.Config{
		Ingest: &biz.IngestConfig{
			ChunkSize:       cfg.IngestOptions.ChunkSize,
			ChunkOverlap:    cfg.IngestOptions.ChunkOverlap,
			EmbedBatchSize:  cfg.IngestOptions.EmbedBatchSize,
			ReplaceExisting: cfg.IngestOptions.ReplaceExisting,
			LockTTL:         cfg.IngestOptions.LockTTL,
		},
		TopK: cfg.RetrievalOptions.TopK,
		Minutes: &biz.MinutesConfig{
			TemplateContainer: cfg.MinutesOptions.TemplateContainer,
			DefaultTemplate:   cfg.MinutesOptions.DefaultTemplate,
			TempDir:           cfg.IngestOptions.TempDir,
		},
	})
	logger.Infow("Service initialized",
		"chunk_size", cfg.IngestOptions.ChunkSize,
		"chunk_overlap", cfg.IngestOptions.ChunkOverlap,
		"top_k", cfg.RetrievalOptions.TopK,
	)

	// 9. 初始化 HTTP 服务
	gin.SetMode(cfg.HTTPOptions.Mode)
	engine := gin.New()
	tracerName := ""
	if tp.Enabled() {
		tracerName = Name
	}
	router.Register(engine,
		handler.NewHandler(service, cfg.IngestOptions.TempDir, cfg.HTTPOptions.RequestTimeout),
		router.Options{
			MaxUploadSize: cfg.HTTPOptions.MaxUploadSize,
			TracerName:    tracerName,
			Metrics:       metrics.Get(),
		},
	)
	manager.AddServer(server.NewHTTPServer(cfg.HTTPOptions, engine))

	logger.Infow("ieum-rag service is ready", "addr", cfg.HTTPOptions.Addr)
	return &Server{manager: manager}, nil
}

// Run starts the server and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.manager.Run(ctx)
}

func (cfg *Config) newProviders() (llm.EmbeddingProvider, llm.ChatProvider, error) {
	embedder, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chat, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	return resilience.WrapEmbedding(embedder, resilienceConfig(cfg.EmbeddingOptions)),
		resilience.WrapChat(chat, resilienceConfig(cfg.ChatOptions)), nil
}

// resilienceConfig 将供应商的重试次数映射为包装器配置。
// ollama 客户端自带重试，包装器只负责熔断。
func resilienceConfig(opts *llmopts.ProviderOptions) *resilience.Config {
	rc := resilience.DefaultConfig()
	rc.MaxRetries = opts.MaxRetries
	if opts.Provider == "ollama" {
		rc.MaxRetries = 0
	}
	return rc
}

func (cfg *Config) newIndex(ctx context.Context, manager *server.Manager) (store.SearchIndex, error) {
	if cfg.RetrievalOptions.IndexBackend == "memory" {
		logger.Warnw("using in-memory search index, entries are lost on restart",
			"dimension", cfg.MilvusOptions.Dimension,
		)
		return store.NewMemoryIndex(cfg.MilvusOptions.Dimension), nil
	}

	client, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	manager.OnStop("milvus", client.Close)

	index, err := store.NewMilvusIndex(ctx, client, cfg.MilvusOptions.Collection, cfg.MilvusOptions.Dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search index: %w", err)
	}
	logger.Infow("Milvus index initialized",
		"address", cfg.MilvusOptions.Address,
		"collection", cfg.MilvusOptions.Collection,
		"dimension", cfg.MilvusOptions.Dimension,
	)
	return index, nil
}
