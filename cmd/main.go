package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/echo/server/adapters/memory"
	"github.com/satriahrh/echo/server/adapters/mongo"
	"github.com/satriahrh/echo/server/adapters/payload"
	"github.com/satriahrh/echo/server/domain/repositories"
	"github.com/satriahrh/echo/server/internal/api"
	"github.com/satriahrh/echo/server/internal/auth"
	"github.com/satriahrh/echo/server/internal/config"
	"github.com/satriahrh/echo/server/internal/logging"
	"github.com/satriahrh/echo/server/internal/websocket"
	"github.com/satriahrh/echo/server/usecase"
	"github.com/satriahrh/echo/server/web"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize adapters
	generator, err := payload.NewGenerator(payload.Config{
		BlockSize: cfg.SpeedTest.ChunkBytes,
		MaxSize:   cfg.SpeedTest.MaxPayloadBytes,
		Mode:      payload.Mode(cfg.SpeedTest.PayloadMode),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create payload generator", zap.Error(err))
	}

	var reports repositories.ReportRepository
	var mongoClient *mongo.Client
	if cfg.Mongo.URI != "" {
		mongoClient, err = mongo.NewClient(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		mongoReports := mongo.NewReportRepository(mongoClient.Database)
		if err := mongoReports.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to create report indexes", zap.Error(err))
		}
		reports = mongoReports
	} else {
		logger.Info("MONGODB_URI not set, keeping reports in memory")
		reports = memory.NewReportRepository(cfg.Reports.Capacity)
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("Failed to create token issuer", zap.Error(err))
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, session tokens will not survive a restart")
	}

	// Initialize usecase services
	service := usecase.NewSpeedTestService(reports, usecase.SpeedTestConfig{
		MaxPayloadBytes:     cfg.SpeedTest.MaxPayloadBytes,
		DefaultPayloadBytes: cfg.SpeedTest.DefaultPayloadBytes,
	}, logger)

	hub := websocket.NewHub(service, logger)
	go hub.Run()

	cleanup := websocket.NewReportCleanupService(reports, cfg.Reports.Retention, cfg.Reports.CleanupInterval, logger)
	cleanup.Start()

	// Initialize API routes
	server := api.NewServer(api.NewHandler(generator, service, tokens, hub, logger), web.Assets(), logger)

	// Graceful shutdown
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Speed test server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cleanup.Stop()
	hub.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if mongoClient != nil {
		mongoClient.Close(shutdownCtx)
	}

	logger.Info("Server exited")
}
