package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/azure/brand-pulse/internal/api"
	"github.com/azure/brand-pulse/internal/config"
	"github.com/azure/brand-pulse/internal/llm"
	"github.com/azure/brand-pulse/internal/monitoring"
	"github.com/azure/brand-pulse/internal/notifications"
	"github.com/azure/brand-pulse/internal/scheduler"
	"github.com/azure/brand-pulse/internal/sources"
	"github.com/azure/brand-pulse/internal/storage"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Brand Pulse")

	ctx := context.Background()

	classifier, err := llm.New(ctx, cfg.LLMProvider, cfg.LLMAPIKey(), cfg.LLMModel)
	if err != nil {
		logrus.Fatalf("Failed to initialize %s client: %v", cfg.LLMProvider, err)
	}
	if _, ok := classifier.(llm.Unconfigured); ok {
		logrus.Warnf("No API key for %s, every classification call will fail", cfg.LLMProvider)
	}

	source, err := sources.New(cfg.Source, cfg.SourceCredentials())
	if err != nil {
		logrus.Fatalf("Failed to initialize source: %v", err)
	}

	// Reports are archived in Azure when an account is configured
	var store storage.StorageInterface = storage.NewMemoryStorage()
	if cfg.StorageAccount != "" {
		azureStore, err := storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
		store = azureStore
	}

	notificationService := notifications.NewService(cfg)
	if !notificationService.Enabled() {
		logrus.Warn("No notification channel configured, watch reports will only be archived")
	}

	monitoringService := monitoring.NewService(cfg, classifier, source, store, notificationService)

	schedulerService, err := scheduler.NewService(cfg, monitoringService)
	if err != nil {
		logrus.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     api.NewHandler(monitoringService, cfg.AllowedOrigins),
		ReadTimeout: 15 * time.Second,
		// Analyses run dozens of sequential model calls
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
