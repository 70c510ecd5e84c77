package main

import (
	"strings"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/pricing"
	"apexpulse/internal/engine/repository"
	"apexpulse/internal/engine/service"
	"apexpulse/internal/engine/signal"
	"apexpulse/pkg/email"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/metrics"
	"apexpulse/pkg/postgres"
	"apexpulse/pkg/redis"
	"apexpulse/pkg/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the wired engine components shared by the serve and run-once commands.
type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	registry *prometheus.Registry

	userRepo   repository.UserRepository
	stream     *repository.MiniTickerStream
	reconciler service.ReconcilerService
	pipeline   service.PipelineService
	prices     service.PriceService
	jobs       service.JobService
	signals    service.SignalService

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(cfg *config.Config, appLogger *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: appLogger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(a.registry)

	// Initialize database
	db, err := postgres.NewDB(postgresConfig(cfg))
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}

	// Redis is optional: without it runs are not locked and snapshots are not cached.
	var priceCache repository.PriceCacheRepository
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		appLogger.Warn("Redis unavailable, running without run lock and snapshot cache", logger.ErrorField(err))
	} else {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		priceCache = repository.NewPriceCacheRepository(redisClient.Client)
	}

	alerts, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		appLogger.Warn("Telegram alerts disabled", logger.ErrorField(err))
		alerts = telegram.NewNoopNotifier()
	}

	// Initialize repositories
	a.userRepo = repository.NewUserRepository(db.DB)
	holdingRepo := repository.NewHoldingRepository(db.DB)
	transactionRepo := repository.NewTransactionRepository(db.DB)
	swingSignalRepo := repository.NewSwingSignalRepository(db.DB)
	syncJobRepo := repository.NewSyncJobRepository(db.DB)
	emailLogRepo := repository.NewEmailLogRepository(db.DB)
	exchange := repository.NewBinanceRepository(cfg, appLogger)
	oracle := repository.NewCoinGeckoRepository(cfg, appLogger)
	newsFeed := repository.NewNewsFeedRepository(appLogger, cfg.News.Timeout)

	if cfg.Exchange.StreamEnabled {
		a.stream = repository.NewMiniTickerStream(cfg, appLogger)
	}

	// Initialize services
	resolver := pricing.NewExchangeResolver(cfg, exchange, oracle, appLogger, recorder)
	a.reconciler = service.NewReconcilerService(exchange, resolver, a.userRepo, holdingRepo, transactionRepo, cfg.Engine.MinValueUSD, appLogger, recorder)
	chain := signal.NewChain(aiProviders(cfg, appLogger), signal.Options{
		MaxIdeas:         cfg.AI.MaxIdeas,
		SnapshotLimit:    cfg.AI.SnapshotLimit,
		BreakerThreshold: cfg.AI.BreakerThreshold,
		BreakerReset:     cfg.AI.BreakerReset,
	}, appLogger, recorder)
	notification := service.NewNotificationService(cfg.Email, email.NewResendSender, emailLogRepo, appLogger)

	a.pipeline = service.NewPipelineService(cfg, service.PipelineDependencies{
		UserRepo:        a.userRepo,
		HoldingRepo:     holdingRepo,
		SwingSignalRepo: swingSignalRepo,
		SyncJobRepo:     syncJobRepo,
		PriceCache:      priceCache,
		NewsFeed:        newsFeed,
		Resolver:        resolver,
		Reconciler:      a.reconciler,
		Signals:         chain,
		Notification:    notification,
		Alerts:          alerts,
		Metrics:         recorder,
	}, appLogger)

	var board repository.TickerBoard
	if a.stream != nil {
		board = a.stream
	}
	a.prices = service.NewPriceService(resolver, holdingRepo, transactionRepo, board, priceCache)
	a.jobs = service.NewJobService(syncJobRepo, appLogger)
	a.signals = service.NewSignalService(swingSignalRepo, appLogger)

	return a, nil
}

func postgresConfig(cfg *config.Config) postgres.Config {
	return postgres.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
}

// aiProviders builds the provider chain in the configured order. Unknown names are skipped.
func aiProviders(cfg *config.Config, log *logger.Logger) []repository.AIRepository {
	var providers []repository.AIRepository
	for _, name := range cfg.AI.Providers {
		switch name = strings.ToLower(strings.TrimSpace(name)); name {
		case "grok":
			providers = append(providers, repository.NewChatCompletionRepository(name, cfg.Grok, cfg.AI.RequestTimeout, log))
		case "openai":
			providers = append(providers, repository.NewChatCompletionRepository(name, cfg.OpenAI, cfg.AI.RequestTimeout, log))
		case "deepseek":
			providers = append(providers, repository.NewChatCompletionRepository(name, cfg.Deepseek, cfg.AI.RequestTimeout, log))
		case "gemini":
			providers = append(providers, repository.NewGeminiAIRepository(cfg.Gemini, cfg.AI.RequestTimeout, log))
		default:
			log.Warn("Unknown AI provider in chain, skipping", logger.StringField("provider", name))
		}
	}
	return providers
}
