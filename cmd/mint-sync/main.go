package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/block"
	"github.com/feral-file/ff-mint-indexer/internal/config"
	"github.com/feral-file/ff-mint-indexer/internal/engine"
	"github.com/feral-file/ff-mint-indexer/internal/ingest"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/messaging"
	"github.com/feral-file/ff-mint-indexer/internal/metadata"
	"github.com/feral-file/ff-mint-indexer/internal/providers/ethereum"
	"github.com/feral-file/ff-mint-indexer/internal/providers/jetstream"
	"github.com/feral-file/ff-mint-indexer/internal/ratelimit"
	"github.com/feral-file/ff-mint-indexer/internal/store"
	"github.com/feral-file/ff-mint-indexer/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadMintSyncConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		LogFile:         cfg.LogFile,
		Tags: map[string]string{
			"service": "mint-sync",
			"chain":   string(cfg.Ethereum.ChainID),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting mint sync",
		zap.String("contract", cfg.Ethereum.ContractAddress),
	)

	// Connect to database
	db, err := store.Open(cfg.Database.DSN(), cfg.Debug)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx, db); err != nil {
			logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
		}
	}
	logger.InfoCtx(ctx, "Connected to database")

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jcsAdapter := adapter.NewJCS()

	// Connect to the chain; websocket endpoints push logs, HTTP endpoints are polled
	endpoint := cfg.Ethereum.WebSocketURL
	if endpoint == "" {
		endpoint = cfg.Ethereum.RPCURL
	}
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, endpoint)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum endpoint", zap.Error(err))
	}

	blockHead := block.NewBlockHeadProvider(
		ethereum.NewBlockFetcher(ethClient),
		block.Config{
			TTL:         cfg.Ethereum.BlockHeadTTL,
			StaleWindow: cfg.Ethereum.BlockHeadStaleWindow,
		},
		clockAdapter,
	)
	source := ethereum.NewMintSource(ethClient, blockHead, clockAdapter, ethereum.Config{
		ChainID:         cfg.Ethereum.ChainID,
		ContractAddress: cfg.Ethereum.ContractAddress,
		PageSize:        cfg.Sync.PageSize,
		PollInterval:    cfg.Ethereum.PollInterval,
	})
	defer source.Close()

	// Metadata fetcher. With redis the request budget is shared by every instance and documents are cached.
	metadataConfig := metadata.Config{
		Timeout:           cfg.Metadata.Timeout,
		IPFSGateways:      cfg.Metadata.IPFSGateways,
		MaxBodySize:       cfg.Metadata.MaxBodySize,
		RequestsPerSecond: cfg.Metadata.RequestsPerSecond,
		Burst:             cfg.Metadata.Burst,
	}
	var redisClient adapter.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient = adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(ctx); err != nil {
			logger.WarnCtx(ctx, "Redis is not reachable, metadata cache and rate limit will degrade", zap.Error(err))
		}

		if cfg.Metadata.RequestsPerSecond > 0 {
			metadataConfig.Limiter, err = ratelimit.NewDistributedLimiter(redisClient, clockAdapter, ratelimit.Config{
				Name:              "metadata",
				RequestsPerSecond: int(math.Ceil(cfg.Metadata.RequestsPerSecond)),
				Burst:             cfg.Metadata.Burst,
			})
			if err != nil {
				logger.FatalCtx(ctx, "Failed to create metadata rate limiter", zap.Error(err))
			}
		}
	}

	fetcher := metadata.NewFetcher(
		adapter.NewHTTPClient(cfg.Metadata.Timeout),
		adapter.NewBase64(),
		jcsAdapter,
		metadataConfig,
	)
	if redisClient != nil {
		var gateway string
		if len(cfg.Metadata.IPFSGateways) > 0 {
			gateway = cfg.Metadata.IPFSGateways[0]
		}
		fetcher = metadata.NewCachedFetcher(fetcher, redisClient, jcsAdapter, cfg.Metadata.CacheTTL, gateway)
		logger.InfoCtx(ctx, "Metadata cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Applied-mint notifications are optional
	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(
			ctx,
			jetstream.Config{
				URL:            cfg.NATS.URL,
				StreamName:     cfg.NATS.StreamName,
				MaxReconnects:  cfg.NATS.MaxReconnects,
				ReconnectWait:  cfg.NATS.ReconnectWait,
				ConnectionName: cfg.NATS.ConnectionName,
			}, adapter.NewNatsJetStream())
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		logger.InfoCtx(ctx, "Connected to NATS JetStream")
	}
	defer publisher.Close()

	// Ingestion
	pipeline := ingest.NewPipeline(dataStore, fetcher, publisher, clockAdapter, ingest.Config{
		Chain:           cfg.Ethereum.ChainID,
		ContractAddress: cfg.Ethereum.ContractAddress,
		StoreTimeout:    cfg.Sync.StoreTimeout,
	})
	dispatcher := ingest.NewDispatcher(ctx, pipeline, ingest.DispatcherConfig{
		Shards:               cfg.Sync.Shards,
		QueueSize:            cfg.Sync.QueueSize,
		RetryInitialInterval: cfg.Sync.RetryInitialInterval,
		RetryMaxInterval:     cfg.Sync.RetryMaxInterval,
		EventRetryMaxElapsed: cfg.Sync.EventRetryMaxElapsed,
	})

	syncEngine := engine.NewEngine(source, dataStore, dispatcher, clockAdapter, engine.Config{
		ChainID: cfg.Ethereum.ChainID,
		Backfill: engine.BackfillConfig{
			LookbackBlocks: cfg.Sync.LookbackBlocks,
			PageSize:       cfg.Sync.PageSize,
		},
		BackfillTimeout:          cfg.Sync.BackfillTimeout,
		MaxBufferedEvents:        cfg.Sync.MaxBufferedEvents,
		ReconnectInitialInterval: cfg.Sync.ReconnectInitialInterval,
		ReconnectMaxInterval:     cfg.Sync.ReconnectMaxInterval,
	})
	if err := syncEngine.Start(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to start mint sync engine", zap.Error(err))
	}

	// Log lifecycle transitions
	go func() {
		for change := range syncEngine.StateChanges() {
			logger.Info("Mint sync state changed",
				zap.Stringer("from", change.From),
				zap.Stringer("to", change.To),
				zap.String("sessionID", change.SessionID),
			)
		}
	}()

	// Periodic catch-up closes gaps left by dropped live deliveries
	errCh := make(chan error, 1)
	var catchUp sweeper.Sweeper
	if cfg.Sync.SweepInterval > 0 {
		catchUp = sweeper.NewCatchUpSweeper(syncEngine, cfg.Sync.SweepInterval)
		go func() {
			if err := catchUp.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "sweeper"))
	}

	// Shutdown with a timeout (don't use the canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if catchUp != nil {
		if err := catchUp.Stop(shutdownCtx); err != nil {
			logger.Warn("Catch-up sweeper did not stop cleanly", zap.Error(err))
		}
	}
	syncEngine.Stop()
	cancel()

	stats := syncEngine.Stats()
	logger.Info("Mint sync stopped",
		zap.Uint64("applied", stats.Applied),
		zap.Uint64("alreadyApplied", stats.AlreadyApplied),
		zap.Uint64("failed", stats.Failed),
		zap.Uint64("dropped", stats.Dropped),
	)
}
