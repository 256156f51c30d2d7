package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/events"
	"github.com/fraudguard/fraud-service/internal/history"
	"github.com/fraudguard/fraud-service/internal/inference"
	"github.com/fraudguard/fraud-service/internal/modelops"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
	"github.com/fraudguard/fraud-service/internal/pkg/metrics"
	"github.com/fraudguard/fraud-service/internal/pkg/signer"
	"github.com/fraudguard/fraud-service/internal/scoring"
	"github.com/fraudguard/fraud-service/internal/server"
	"github.com/fraudguard/fraud-service/internal/simulator"
	"github.com/fraudguard/fraud-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Debug)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Persistence is optional. A missing database keeps the pipeline
	// running with in-memory reads.
	var store *storage.Store
	if cfg.Database.Enabled() {
		store, err = storage.New(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal("database connection failed", logger.ErrorField(err))
		}
		defer store.Close()

		if err := store.InitSchema(ctx); err != nil {
			log.Fatal("schema initialization failed", logger.ErrorField(err))
		}
	} else {
		log.Warn("database not configured, persistence disabled")
	}

	// Cloud credentials gate both the signed inference path and real
	// model operations.
	var sig *signer.Signer
	if cfg.Cloud.Enabled() {
		sig = signer.New(cfg.Cloud.AccessKeyID, cfg.Cloud.SecretAccessKey, cfg.Cloud.Region)
	} else {
		log.Warn("cloud credentials not configured, using heuristic scoring and mock model operations")
	}

	heuristic := scoring.NewHeuristicScorer(cfg.Scoring)

	var remote scoring.RemoteScorer
	if sig != nil && cfg.Inference.Endpoint != "" {
		remote = inference.NewClient(cfg.Inference, sig, heuristic, log)
	}

	var hist scoring.HistorySource = history.NewStatic()
	if cfg.Redis.Enabled() {
		cache, err := history.NewCache(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("history cache unavailable, using static baseline", logger.ErrorField(err))
		} else {
			defer cache.Close()
			hist = cache
		}
	}

	var publisher simulator.AlertPublisher
	if cfg.Kafka.Enabled() {
		p, err := events.NewPublisher(cfg.Kafka, log)
		if err != nil {
			log.Warn("kafka unavailable, alert publishing disabled", logger.ErrorField(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	collector := metrics.NewCollector(log)
	metricsServer := collector.StartServer(cfg.Server.MetricsPort)

	processor := scoring.NewProcessor(remote, heuristic, hist, log)
	emitter := scoring.NewEmitter()

	simCfg := domain.SimulatorConfig{
		TransactionsPerMinute: cfg.Simulator.TransactionsPerMinute,
		FraudRate:             cfg.Simulator.FraudRate,
		Scenarios: domain.ScenarioToggles{
			HighAmount:      cfg.Simulator.ScenarioHighAmount,
			RiskyMerchant:   cfg.Simulator.ScenarioRiskyMerchant,
			UnusualTime:     cfg.Simulator.ScenarioUnusualTime,
			VelocitySpike:   cfg.Simulator.ScenarioVelocitySpike,
			LocationAnomaly: cfg.Simulator.ScenarioLocation,
		},
	}
	if err := simCfg.Validate(); err != nil {
		log.Fatal("invalid simulator configuration", logger.ErrorField(err))
	}

	var runnerStore simulator.Store
	if store != nil {
		runnerStore = store
	}

	generator := simulator.NewGenerator(simCfg)
	runner := simulator.NewRunner(generator, processor, emitter, runnerStore, publisher, collector, log)
	if cfg.Simulator.AutoStart {
		runner.Start(context.Background())
	}

	models := modelops.NewClient(cfg.ModelOps, cfg.Cloud, sig, log)

	var serverStore server.Store
	if store != nil {
		serverStore = store
	}

	srv := server.New(cfg, serverStore, runner, models, log)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", logger.ErrorField(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	runner.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.ErrorField(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown failed", logger.ErrorField(err))
	}

	log.Info("server exited")
}
