// Command scan-server runs the URL threat-assessment API.
package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec/api"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/cache"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/config"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/feedback"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/queue"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/reputation"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/scan"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/slogger"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/snapshot"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/store"
)

func main() {
	slogger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	db, err := postgres.New(postgres.Config{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		Database: cfg.PostgresDatabase,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		SSLMode:  cfg.PostgresSSLMode,
	})
	if err != nil {
		log.Fatalf("datastore error: %v", err)
	}
	defer db.Close()

	vtClient := reputation.NewClient(cfg.VirusTotalAPIKey, reputation.WithTimeout(cfg.HTTPTimeout))
	aggregator := reputation.NewAggregator(vtClient, cfg.VendorWait)

	cacheRepo := cache.NewRepository(db, cfg.CacheWindow)
	feedbackAgg := feedback.NewAggregator(db)

	opts := []scan.Option{}

	var kv store.KVStore
	if cfg.ValkeyAddr != "" {
		kv, err = store.NewValkeyStore(cfg.ValkeyAddr)
		if err != nil {
			slog.Warn("Valkey unavailable, latest-scan status disabled", "addr", cfg.ValkeyAddr, "error", err)
		} else {
			defer kv.Close()
			opts = append(opts, scan.WithKVStore(kv))
		}
	}

	if cfg.AMQPURL != "" {
		opts = append(opts, scan.WithEventPublisher(queue.NewPublisher(cfg.AMQPURL)))
	}

	scanner := scan.NewService(cacheRepo, aggregator, feedbackAgg, opts...)
	stats := snapshot.NewCalculator(db, kv)

	server := api.NewServer(cfg.ListenAddr, scanner, feedbackAgg, stats)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig.String())
		if err := server.Stop(); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	}
}
