// package main provides the entry point for the threatiq-backend
// microservice: it wires the threat stores, feed clients, the ingestion
// orchestrator, the correlation fan-out, and the HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/WatchBeam/clock"
	"go.uber.org/zap"

	"github.com/threatiq/threatiq-backend/database"
	"github.com/threatiq/threatiq-backend/internal/api"
	"github.com/threatiq/threatiq-backend/internal/config"
	"github.com/threatiq/threatiq-backend/internal/correlate"
	"github.com/threatiq/threatiq-backend/internal/feeds"
	"github.com/threatiq/threatiq-backend/internal/ingest"
	"github.com/threatiq/threatiq-backend/internal/kafka"
	"github.com/threatiq/threatiq-backend/internal/store"
	"github.com/threatiq/threatiq-backend/restapi"
	"github.com/threatiq/threatiq-backend/util"
)

var logger = database.InitLogger()

func main() {
	cfg, err := config.Load(util.GetEnvDefault("CONFIG_FILE", "config.yaml"))
	if err != nil {
		logger.Fatal("loading configuration", zap.Error(err))
	}

	db := database.InitializeDatabase()

	threats := store.NewArangoThreats(db)
	correlations := store.NewArangoCorrelations(db)
	inventory := store.NewArangoInventory(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.C

	engine := correlate.NewEngine(threats, inventory, correlations, clk, logger, correlate.Options{
		WindowDays: cfg.Correlate.WindowDays,
		ScanWindow: cfg.Correlate.ScanWindow,
	})
	fanout := correlate.NewFanout(engine, inventory, logger, cfg.Correlate.Workers)

	cveClient := feeds.NewCVEClient(cfg.NVD.BaseURL, cfg.NVD.APIKey, cfg.NVD.PageSize, cfg.FetchTimeout())
	kevClient := feeds.NewKEVClient(cfg.KEV.URL, cfg.FetchTimeout())

	orch := ingest.New(ctx, cveClient, kevClient, threats, fanout, clk, logger,
		cfg.IngestInterval(), cfg.NVD.WindowDays)
	go orch.Run(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		if err := kafka.RunEventProcessor(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, engine, inventory, logger); err != nil {
			logger.Warn("scan event processor unavailable", zap.Error(err))
		}
	}

	app, err := api.NewFiberApp(restapi.Deps{
		Threats:      threats,
		Correlations: correlations,
		Orchestrator: orch,
	})
	if err != nil {
		logger.Fatal("building http app", zap.Error(err))
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
		_ = app.Shutdown()
	}()

	logger.Info("starting http server", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Fatal("http server exited", zap.Error(err))
	}
}
