package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/segyhp/lending-engine/internal/chain"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/events"
	"github.com/segyhp/lending-engine/internal/jobs"
	"github.com/segyhp/lending-engine/internal/observability"
	"github.com/segyhp/lending-engine/internal/repository"
)

// reconcileTimeout bounds one reconciler pass
const reconcileTimeout = 4 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLogger := observability.NewLoggerWithWriter(os.Stderr, zerolog.InfoLevel, "scheduler")
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := observability.NewLogger(cfg.Logging, "scheduler")

	if cfg.UsesMemoryStore() {
		logger.Fatal().Msg("the reconciler needs the Postgres offer store")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ethClient, err := chain.DialEVMClient(cfg.Chain.RPCURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to dial settlement RPC")
	}
	defer ethClient.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	reader := chain.NewRateLimitedReader(
		chain.NewEVMReader(ethClient, chain.EVMReaderConfig{
			Settlement:        cfg.GetSettlementAddress(),
			StartBlock:        cfg.Chain.StartBlock,
			LogBlockBatch:     cfg.Chain.LogBlockBatch,
			ValuationDecimals: cfg.Chain.ValuationDecimals,
			CallTimeout:       cfg.GetCallTimeout(),
		}, metrics, observability.NewLogger(cfg.Logging, "settlement")),
		cfg.Chain.RateLimitPerSecond,
		cfg.Chain.RateLimitBurst,
	)
	bus := events.NewBus(metrics, observability.NewLogger(cfg.Logging, "events"))
	if cfg.NATS.Enabled {
		natsCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		nc, err := events.ForwardToNATS(natsCtx, cfg.NATS.URL, "lending-scheduler", bus, observability.NewLogger(cfg.Logging, "nats"))
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize NATS")
		}
		defer nc.Drain()
	}

	reconciler := jobs.NewReconciler(
		repository.NewOfferRepository(db),
		reader,
		bus,
		cfg.Chain.FetchConcurrency,
		metrics,
		observability.NewLogger(cfg.Logging, "reconciler"),
	)

	// Initialize cron scheduler
	cronLogger := observability.NewCronLogger(logger)
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetLocation()),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(cfg.Scheduler.ReconcileSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()
		if _, err := reconciler.RunOnce(ctx); err != nil {
			logger.Error().Err(err).Msg("reconcile pass failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Str("spec", cfg.Scheduler.ReconcileSpec).Msg("failed to schedule reconciler")
	}

	c.Start()
	logger.Info().Str("spec", cfg.Scheduler.ReconcileSpec).Msg("scheduler started")

	metricsServer := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Scheduler.MetricsPort,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down scheduler")
	<-c.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(ctx)
	logger.Info().Msg("scheduler stopped")
}
