package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pulse-lab/pulse-reports/internal/config"
	"github.com/pulse-lab/pulse-reports/internal/consumer"
	"github.com/pulse-lab/pulse-reports/internal/core/storage"
	"github.com/pulse-lab/pulse-reports/internal/core/storage/memory"
	"github.com/pulse-lab/pulse-reports/internal/core/storage/postgres"
	redisledger "github.com/pulse-lab/pulse-reports/internal/core/storage/redis"
	"github.com/pulse-lab/pulse-reports/internal/core/strategy"
	"github.com/pulse-lab/pulse-reports/internal/ingestion"
	"github.com/pulse-lab/pulse-reports/internal/metrics"
	"github.com/pulse-lab/pulse-reports/internal/migrations"
	"github.com/pulse-lab/pulse-reports/internal/pipeline"
	"github.com/pulse-lab/pulse-reports/internal/query"
	"github.com/pulse-lab/pulse-reports/internal/retention"
	"github.com/pulse-lab/pulse-reports/internal/server"
	"github.com/pulse-lab/pulse-reports/internal/transport/channel"
)

// composedStore pairs a report store with an external ledger when the two
// live in different systems. It deliberately does not implement
// storage.AtomicCommitter; the pipeline then sequences the ledger mark last.
type composedStore struct {
	storage.ReportStore
	storage.Ledger
}

func main() {
	configPath := flag.String("config", "pulse.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	// 2. Initialize Storage
	var (
		pipelineStore pipeline.Store
		queryStore    storage.ReportQueries
		prunable      storage.PrunableLedger
		healthDB      *sql.DB
	)

	switch cfg.Database.Type {
	case "postgres":
		dbAdapter, err := postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer dbAdapter.Close()

		if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}

		pipelineStore = dbAdapter
		queryStore = dbAdapter
		prunable = dbAdapter
		healthDB = dbAdapter.DB()
	case "memory":
		store := memory.NewStore()
		pipelineStore = store
		queryStore = store
		prunable = store
	}

	// 2.1. Optional external ledger. An external ledger cannot join the report
	// store's transaction, so the pipeline falls back to mark-last ordering.
	if cfg.Ledger.Type == "redis" {
		ttl, err := cfg.Ledger.ParsedTTL()
		if err != nil {
			slog.Error("Invalid ledger TTL", "error", err)
			os.Exit(1)
		}
		ledger, err := redisledger.NewLedger(cfg.Ledger.Addr, cfg.Ledger.Password, cfg.Ledger.DB, ttl)
		if err != nil {
			slog.Error("Failed to initialize redis ledger", "error", err)
			os.Exit(1)
		}
		defer ledger.Close()

		pipelineStore = composedStore{ReportStore: pipelineStore, Ledger: ledger}
		prunable = nil // redis entries expire via TTL; nothing to sweep
	}

	// 3. Metrics
	var sink metrics.Sink = metrics.NewNoopSink()
	promRegistry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		sink = metrics.NewPrometheusSink(promRegistry)
	}

	// 4. Strategy registry and category routing
	registry := strategy.NewRegistry()
	strategy.RegisterBuiltins(registry)

	mapper := pipeline.NewCategoryMapper()
	if cfg.Categories.MapFile != "" {
		mapper, err = pipeline.NewCategoryMapperFromFile(cfg.Categories.MapFile)
		if err != nil {
			slog.Error("Failed to load category map", "error", err)
			os.Exit(1)
		}
	}

	// 5. Bus, pipeline, consumers
	bus := channel.NewEventBus(cfg.Consumer.ChannelBufferSize, channel.WithMetrics(sink))
	pipe := pipeline.New(pipelineStore, registry, mapper, sink)

	opTimeout, err := cfg.Consumer.ParsedOpTimeout()
	if err != nil {
		slog.Error("Invalid consumer op timeout", "error", err)
		os.Exit(1)
	}
	workers := consumer.New(pipe, cfg.Consumer.WorkerCount, opTimeout).WithMetrics(sink)

	// 6. HTTP services
	ingestionSvc := ingestion.NewService(bus, cfg.Server.MaxBodySizeMB)
	querySvc := query.NewService(queryStore)

	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), healthDB, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	querySvc.RegisterRoutes(srv.Engine)
	if cfg.Metrics.Enabled {
		srv.ExposeMetrics(promRegistry)
	}

	// 7. Start everything
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumersDone := make(chan struct{})
	go func() {
		defer close(consumersDone)
		if err := workers.Run(ctx, bus.Channel()); err != nil {
			slog.Error("Consumer pool stopped with error", "error", err)
		}
	}()

	if cfg.Retention.Enabled && prunable != nil {
		interval, _ := cfg.Retention.ParsedSweepInterval()
		maxAge, _ := cfg.Retention.ParsedMaxLedgerAge()
		sweeper := retention.NewSweeper(prunable, interval, maxAge, sink)
		go func() {
			if err := sweeper.Start(ctx); err != nil {
				slog.Error("Retention sweeper stopped with error", "error", err)
			}
		}()
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	// Workers drain buffered events before exiting.
	<-consumersDone
	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
