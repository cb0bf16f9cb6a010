package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nexusglass/nexusglass-backend/internal/balances"
	"github.com/nexusglass/nexusglass-backend/internal/bootstrap"
	"github.com/nexusglass/nexusglass-backend/internal/clock"
	"github.com/nexusglass/nexusglass-backend/internal/consistency"
	"github.com/nexusglass/nexusglass-backend/internal/contracts"
	"github.com/nexusglass/nexusglass-backend/internal/infusion"
	"github.com/nexusglass/nexusglass-backend/internal/ingest"
	"github.com/nexusglass/nexusglass-backend/internal/metrics"
	"github.com/nexusglass/nexusglass-backend/internal/nftmeta"
	"github.com/nexusglass/nexusglass-backend/internal/nodeclient"
	"github.com/nexusglass/nexusglass-backend/internal/scheduler"
	"github.com/nexusglass/nexusglass-backend/internal/series"
	"github.com/nexusglass/nexusglass-backend/internal/store"
)

type config struct {
	Enabled      bool          `long:"enabled" env:"INDEXER_ENABLED" description:"run the worker loops (off keeps only the metrics listener)"`
	StartDelay   time.Duration `long:"start-delay" env:"INDEXER_START_DELAY" description:"delay before the loops start" default:"0s"`
	Chain        string        `long:"chain" env:"INDEXER_CHAIN" description:"chain to index" default:"main"`
	NativeSymbol string        `long:"native-symbol" env:"INDEXER_NATIVE_SYMBOL" description:"native staking token" default:"SOUL"`

	NodeEndpoints    string        `long:"node-endpoints" env:"INDEXER_NODE_ENDPOINTS" description:"comma-separated node REST endpoints" required:"true"`
	RotationInterval time.Duration `long:"rotation-interval" env:"INDEXER_ROTATION_INTERVAL" description:"endpoint rotation interval" default:"30m"`
	HTTPTimeout      time.Duration `long:"http-timeout" env:"INDEXER_HTTP_TIMEOUT" description:"per-request timeout" default:"30s"`
	NodeRPS          int           `long:"node-rps" env:"INDEXER_NODE_RPS" description:"outbound requests per second" default:"50"`
	HeightCeiling    uint64        `long:"height-ceiling" env:"INDEXER_HEIGHT_CEILING" description:"stop ingesting above this height, 0 = follow the chain"`

	NexusInterval    time.Duration `long:"nexus-interval" env:"INDEXER_NEXUS_INTERVAL" description:"nexus/token sync interval" default:"5m"`
	BlockInterval    time.Duration `long:"block-interval" env:"INDEXER_BLOCK_INTERVAL" description:"block sync interval" default:"5s"`
	NftInterval      time.Duration `long:"nft-interval" env:"INDEXER_NFT_INTERVAL" description:"nft rom/ram sync interval" default:"30s"`
	SeriesInterval   time.Duration `long:"series-interval" env:"INDEXER_SERIES_INTERVAL" description:"series sync interval" default:"1m"`
	InfusionInterval time.Duration `long:"infusion-interval" env:"INDEXER_INFUSION_INTERVAL" description:"infusion sync interval" default:"30s"`
	ContractInterval time.Duration `long:"contract-interval" env:"INDEXER_CONTRACT_INTERVAL" description:"contract staleness sweep interval" default:"5m"`
	QueueInterval    time.Duration `long:"queue-interval" env:"INDEXER_QUEUE_INTERVAL" description:"contract queue drain interval" default:"10s"`
	MetricsAddr      string        `long:"metrics-addr" env:"INDEXER_METRICS_ADDR" description:"prometheus listener addr" default:":9090"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("indexer failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	go serveMetrics(ctx, cfg.MetricsAddr, logger)

	if !cfg.Enabled {
		logger.Info("worker loops disabled, serving metrics only")
		<-ctx.Done()
		return nil
	}
	if cfg.StartDelay > 0 {
		logger.Info("delaying startup", zap.Duration("delay", cfg.StartDelay))
		if err := clock.SleepWithContext(ctx, cfg.StartDelay); err != nil {
			return err
		}
	}

	client, err := nodeclient.NewClient(nodeclient.Config{
		Endpoints:         strings.Split(cfg.NodeEndpoints, ","),
		RotationInterval:  cfg.RotationInterval,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.NodeRPS,
	}, metrics.NewNodeClient(), logger)
	if err != nil {
		return fmt.Errorf("init node client: %w", err)
	}

	mem := store.NewMemory()

	boot := bootstrap.New(client, mem, cfg.NativeSymbol, logger)
	if err := boot.Sync(ctx); err != nil {
		return fmt.Errorf("initial bootstrap: %w", err)
	}
	if err := consistency.NewChecker(mem, logger).Repair(ctx); err != nil {
		return fmt.Errorf("startup repair: %w", err)
	}

	contractSyncer := contracts.NewSyncer(client, mem, logger)
	reconciler := balances.NewReconciler(client, mem, metrics.NewBalanceReconciler(cfg.Chain), logger)
	dispatcher := ingest.NewDispatcher(mem, contractSyncer, logger)
	ingester := ingest.NewIngestor(
		cfg.Chain,
		client,
		mem,
		dispatcher,
		reconciler,
		metrics.NewBlockIngester(cfg.Chain),
		cfg.HeightCeiling,
		logger,
	)
	backfiller := nftmeta.NewBackfiller(client, mem, metrics.NewNftBackfill(), logger)
	aggregator := series.NewAggregator(mem, logger)
	processor := infusion.NewProcessor(mem, logger)

	sched := scheduler.New(metrics.NewWorkerLoops(), logger)
	sched.Register("nexus-sync", cfg.NexusInterval, boot.Sync)
	sched.Register("block-sync", cfg.BlockInterval, ingester.Sync)
	sched.Register("nft-sync", cfg.NftInterval, backfiller.Backfill)
	sched.Register("series-sync", cfg.SeriesInterval, aggregator.Sync)
	sched.Register("infusion-sync", cfg.InfusionInterval, processor.Process)
	sched.Register("contract-sync", cfg.ContractInterval, contractSyncer.RefreshStale)
	sched.Register("contract-queue-sync", cfg.QueueInterval, contractSyncer.DrainQueue)

	logger.Info("starting worker loops", zap.String("chain", cfg.Chain))
	sched.Run(ctx)
	return nil
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()

	logger.Info("starting metrics server", zap.String("addr", addr))
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
