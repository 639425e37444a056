// Package app builds the service components selected by configuration
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mediguide/assistant/internal/azure"
	"github.com/mediguide/assistant/internal/config"
	"github.com/mediguide/assistant/internal/gateway"
	"github.com/mediguide/assistant/internal/handler"
	"github.com/mediguide/assistant/internal/location"
	"github.com/mediguide/assistant/internal/middleware"
	"github.com/mediguide/assistant/internal/security"
	"github.com/mediguide/assistant/internal/store"
	"github.com/mediguide/assistant/pkg/api"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// offlineReply is streamed by the mock backend when no model is configured
const offlineReply = "MediGuide is running offline, so no assessment is available. " +
	"If your symptoms are severe or getting worse, contact a doctor or emergency services.\n" +
	"---METADATA---\n" +
	`{"urgency":"MEDIUM","reasoning":"Offline mode","followUpQuestions":[]}`

// NewLogger builds the zap logger for the environment
func NewLogger(cfg config.LoggingConfig, environment string) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if environment == "production" {
		zc = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.Format != "" {
		zc.Encoding = cfg.Format
	}
	return zc.Build()
}

// OpenStore builds the configured store backend. The returned func releases
// its connections.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Store, func(), error) {
	var (
		s       store.Store
		cleanup = func() {}
	)

	switch cfg.Backend {
	case config.StoreMemory:
		s = store.NewMemoryStore()

	case config.StoreSQLite:
		ls, err := store.NewSQLiteStore(ctx, cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		s = ls
		cleanup = func() {
			if err := ls.Close(); err != nil {
				logger.Warn("failed to close store", zap.Error(err))
			}
		}

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		s = store.NewRedisStore(client, cfg.Redis.Namespace, logger)
		cleanup = func() { client.Close() }

	case config.StorePostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid database url: %w", err)
		}
		if cfg.Postgres.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Postgres.MaxConns
		}
		if cfg.Postgres.ConnMaxLifetime > 0 {
			poolCfg.MaxConnLifetime = cfg.Postgres.ConnMaxLifetime
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		ps, err := store.NewPostgresStore(ctx, pool, cfg.Postgres.Table, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		s = ps
		cleanup = pool.Close

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.EncryptionKey != "" {
		encryptor, err := security.NewEncryptorFromBase64(cfg.EncryptionKey)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("invalid store encryption key: %w", err)
		}
		s = store.NewEncryptedStore(s, encryptor)
	}

	logger.Info("Store opened",
		zap.String("backend", cfg.Backend),
		zap.Bool("encrypted", cfg.EncryptionKey != ""),
	)
	return s, cleanup, nil
}

// NewGateway assembles the model backends. Azure OpenAI, when configured,
// writes report summaries; Azure Speech reads replies aloud, with Gemini
// speech as the fallback.
func NewGateway(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gateway.Gateway, error) {
	var (
		backends gateway.Backends
		gemini   *gateway.GeminiClient
		mock     *gateway.MockService
	)

	if cfg.Gateway.Backend == config.ReplyGemini || cfg.Gemini.APIKey != "" {
		client, err := gateway.NewGeminiClient(ctx, gateway.GeminiConfig{
			APIKey:       cfg.Gemini.APIKey,
			BaseURL:      cfg.Gemini.BaseURL,
			Models:       gateway.DefaultModelPolicy(cfg.Gemini.ReasoningModel, cfg.Gemini.LocationModel),
			UtilityModel: cfg.Gemini.UtilityModel,
			SpeechModel:  cfg.Gemini.SpeechModel,
			Voice:        cfg.Gemini.Voice,
			Temperature:  cfg.Gemini.Temperature,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		gemini = client
	}

	var azureChat *gateway.AzureOpenAI
	if cfg.Azure.OpenAI.Enabled() {
		client, err := azure.NewOpenAIClient(cfg.Azure.OpenAI.Endpoint, cfg.Azure.OpenAI.APIKey, cfg.Azure.OpenAI.Deployment, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Azure OpenAI client: %w", err)
		}
		azureChat = gateway.NewAzureOpenAI(client, logger)
	}

	var speech *azure.SpeechServiceClient
	if cfg.Azure.Speech.Enabled() {
		client, err := azure.NewSpeechServiceClient(cfg.Azure.Speech.SubscriptionKey, cfg.Azure.Speech.Region, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Azure Speech Service client: %w", err)
		}
		speech = client
		backends.Synthesizer = client
	}

	switch cfg.Gateway.Backend {
	case config.ReplyGemini:
		backends.Replier = gemini
	case config.ReplyAzure:
		if azureChat == nil {
			return nil, fmt.Errorf("reply backend %q requires Azure OpenAI configuration", cfg.Gateway.Backend)
		}
		backends.Replier = azureChat
	case config.ReplyMock:
		mock = gateway.NewMockService(offlineReply)
		backends.Replier = mock
	default:
		return nil, fmt.Errorf("unknown reply backend %q", cfg.Gateway.Backend)
	}

	switch {
	case azureChat != nil:
		backends.Summarizer = azureChat
	case gemini != nil:
		backends.Summarizer = gemini
	case mock != nil:
		backends.Summarizer = mock
	}

	if backends.Synthesizer == nil && gemini != nil {
		backends.Synthesizer = gemini
	}

	switch {
	case gemini != nil:
		backends.Transcriber = gemini
	case speech != nil:
		backends.Transcriber = speech
	}

	logger.Info("Gateway configured",
		zap.String("reply_backend", cfg.Gateway.Backend),
		zap.Bool("summaries", backends.Summarizer != nil),
		zap.Bool("transcription", backends.Transcriber != nil),
		zap.Bool("speech", backends.Synthesizer != nil),
	)
	return gateway.New(backends, logger)
}

// NewReportStorage returns the report archive, or nil when none is configured
func NewReportStorage(cfg config.StorageConfig, logger *zap.Logger) (azure.ReportStorage, error) {
	if !cfg.Enabled() {
		logger.Info("Report archiving disabled: no storage account configured")
		return nil, nil
	}
	client, err := azure.NewBlobStorageClient(cfg.AccountName, cfg.AccountKey, cfg.ReportContainer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize report blob storage client: %w", err)
	}
	return client, nil
}

// NewLocator answers with the configured fixed position, if any
func NewLocator(cfg config.LocationConfig) location.Locator {
	if cfg.Latitude == nil || cfg.Longitude == nil {
		return location.StaticLocator{}
	}
	return location.StaticLocator{Location: &model.Location{
		Latitude:  *cfg.Latitude,
		Longitude: *cfg.Longitude,
	}}
}

// NewRouter builds the gin engine with the middleware chain and all routes
func NewRouter(cfg config.ServerConfig, h handler.Handlers, currentUser func() string, logger *zap.Logger) (*gin.Engine, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	doc, err := api.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	validator, err := middleware.OpenAPIValidationMiddleware(doc, logger)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Recovery must be first
	r.Use(middleware.RecoveryMiddleware(logger))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: len(cfg.AllowOrigins) > 0,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.UserContextMiddleware(currentUser))
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(middleware.SlowRequestLoggingMiddleware(logger, 2*time.Second))
	r.Use(validator)

	handler.RegisterRoutes(r, h)
	return r, nil
}
