package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/segyhp/lending-engine/internal/cache"
	"github.com/segyhp/lending-engine/internal/chain"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/events"
	"github.com/segyhp/lending-engine/internal/handler"
	"github.com/segyhp/lending-engine/internal/observability"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLogger := observability.NewLoggerWithWriter(os.Stderr, zerolog.InfoLevel, "server")
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := observability.NewLogger(cfg.Logging, "server")
	zlog.Logger = logger

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// Offer store
	var (
		db        *sqlx.DB
		offerRepo repository.OfferRepository
	)
	if cfg.UsesMemoryStore() {
		logger.Warn().Msg("offers are kept in memory and lost on restart")
		offerRepo = repository.NewMemoryOfferRepository()
	} else {
		db, err = initDB(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize database")
		}
		defer db.Close()
		offerRepo = repository.NewOfferRepository(db)
	}

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Settlement layer
	ethClient, err := chain.DialEVMClient(cfg.Chain.RPCURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to dial settlement RPC")
	}
	defer ethClient.Close()
	reader, confirmer := initSettlement(cfg, ethClient, metrics)

	// Domain events
	bus := events.NewBus(metrics, observability.NewLogger(cfg.Logging, "events"))
	depositCache := cache.NewDepositCache(redisClient, reader, cfg.GetDepositCacheTTL(), metrics, logger)
	bus.Subscribe("deposit-cache", depositCache.HandleEvent, domain.EventLoanOpened)
	if cfg.NATS.Enabled {
		natsCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		nc, err := events.ForwardToNATS(natsCtx, cfg.NATS.URL, "lending-engine", bus, observability.NewLogger(cfg.Logging, "nats"))
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize NATS")
		}
		defer nc.Drain()
	}

	// Initialize services
	settlement := cfg.GetSettlementAddress()
	liveState := service.NewLiveStateFetcher(reader, settlement, cfg.Chain.FetchConcurrency, logger)
	health := service.NewHealthCalculator(reader, metrics, logger)
	ids := service.NewOfferIDAllocator(offerRepo, reader)
	engine := service.NewAllocationEngine(offerRepo, liveState, metrics, logger)

	offerService := service.NewOfferService(offerRepo, chain.NewPersonalSignVerifier(), health, ids, liveState, bus, cfg, metrics, logger)
	borrowService := service.NewBorrowService(offerRepo, engine, health, reader, confirmer, bus, cfg, logger)
	accountService := service.NewAccountService(health, depositCache, cfg)

	var dbPinger handler.DBPinger
	if db != nil {
		dbPinger = db
	}
	router := handler.NewRouter(handler.Handlers{
		Offers:   handler.NewOfferHandler(offerService, logger),
		Borrow:   handler.NewBorrowHandler(borrowService, logger),
		Accounts: handler.NewAccountHandler(accountService),
		Health:   handler.NewHealthHandler(dbPinger, redisClient, ethClient, cfg.GetHealthTimeout()),
	}, registry, metrics, observability.NewLogger(cfg.Logging, "http"))

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	logger.Info().Msg("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func initSettlement(cfg *config.Config, client *ethclient.Client, metrics *observability.Metrics) (chain.SettlementReader, chain.TxConfirmer) {
	settlement := cfg.GetSettlementAddress()
	evmReader := chain.NewEVMReader(client, chain.EVMReaderConfig{
		Settlement:        settlement,
		StartBlock:        cfg.Chain.StartBlock,
		LogBlockBatch:     cfg.Chain.LogBlockBatch,
		ValuationDecimals: cfg.Chain.ValuationDecimals,
		CallTimeout:       cfg.GetCallTimeout(),
	}, metrics, observability.NewLogger(cfg.Logging, "settlement"))

	reader := chain.NewRateLimitedReader(evmReader, cfg.Chain.RateLimitPerSecond, cfg.Chain.RateLimitBurst)
	return reader, chain.NewReceiptConfirmer(client, settlement)
}
