// Package main provides the API server entry point for the asset tokenization service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asset-tokenizer/internal/api"
	"github.com/asset-tokenizer/internal/bootstrap"
	"github.com/asset-tokenizer/internal/config"
	"github.com/asset-tokenizer/internal/logging"
	"github.com/asset-tokenizer/internal/service"
	"github.com/asset-tokenizer/internal/storage"
)

func main() {
	fmt.Println("Asset Tokenizer API Server")
	log.Println("Server starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize storage mirrors. Each is optional: the in-memory ledger is
	// authoritative, so a missing backend only disables its mirroring.
	logger.Info("Connecting to databases...")

	var assetStore service.AssetStore
	var investmentStore service.InvestmentStore
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Warn("Postgres unavailable; asset and investment persistence disabled")
	} else {
		defer postgres.Close()
		assetStore = storage.NewAssetRepository(postgres)
		investmentStore = storage.NewInvestmentRepository(postgres)
	}

	var events service.EventAppender
	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Warn("ClickHouse unavailable; event auditing disabled")
	} else {
		defer clickhouse.Close()
		events = storage.NewEventSink(clickhouse)
	}

	var cache service.ViewCache
	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable; view caching disabled")
	} else {
		defer redis.Close()
		cache = storage.NewAssetCache(redis, cfg.Cache.TTL)
	}

	// Deploy the ledger components and record their accounts
	logger.Info("Deploying ledger components...")

	deployment, err := bootstrap.Deploy(cfg.Ledger.OwnerAccount, nil)
	if err != nil {
		logger.WithError(err).Fatal("Failed to deploy ledger components")
	}

	book := bootstrap.NewAddressBook(cfg.Ledger.AddressBookPath)
	if err := book.Save(cfg.Ledger.Network, deployment.Addresses()); err != nil {
		logger.WithError(err).Warn("Failed to write address book")
	} else {
		logger.WithFields(map[string]interface{}{
			"network": cfg.Ledger.Network,
			"path":    cfg.Ledger.AddressBookPath,
		}).Info("Component accounts recorded")
	}

	// Initialize service
	tokenizationService := service.NewTokenizationService(
		deployment,
		assetStore,
		investmentStore,
		events,
		cache,
		logger,
	)

	logger.Info("Services initialized")

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		FreeTierRPS:     cfg.RateLimit.FreeTier,
		PaidTierRPS:     cfg.RateLimit.PaidTier,
	}

	server := api.NewServer(serverConfig, tokenizationService)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
