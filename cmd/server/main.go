package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/thomasly/option-analysis/internal/api"
	"github.com/thomasly/option-analysis/internal/config"
	"github.com/thomasly/option-analysis/internal/database"
	"github.com/thomasly/option-analysis/internal/logging"
	"github.com/thomasly/option-analysis/internal/marketdata"
	"github.com/thomasly/option-analysis/internal/services"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	db, err := database.NewPostgresConnection(startupCtx, cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(startupCtx, cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	cacheTTL := 24 * time.Hour
	if cfg.Redis.CacheTTL != "" {
		cacheTTL, _ = time.ParseDuration(cfg.Redis.CacheTTL)
	}
	seriesCache := marketdata.NewSeriesCache(redis.Client, cacheTTL, logger)
	fetcher := marketdata.NewCachedFetcher(marketdata.NewClient(&cfg.Quotes), seriesCache)

	runRepo := database.NewRunRepository(db.Pool)

	var sinks []services.Notifier
	sinks = append(sinks, services.NewEmailNotifier(cfg.SMTP, logger))
	if tg := services.NewTelegramNotifier(cfg.Telegram, logger); tg != nil {
		sinks = append(sinks, tg)
	}
	notifier := services.NewMultiNotifier(sinks...)

	overlay := services.NewTechnicalOverlay(20, 12, 14)
	analyzer := services.NewAnalyzerService(cfg, fetcher, runRepo, notifier, overlay, logger)

	if cfg.Scheduler.Enabled {
		interval, err := time.ParseDuration(cfg.Scheduler.Interval)
		if err != nil {
			logger.Fatalf("Invalid scheduler interval: %v", err)
		}
		scheduler := services.NewScheduler(analyzer, interval, logger)
		scheduler.Start()
		defer scheduler.Stop()
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	handler := api.NewAnalysisHandler(analyzer, runRepo, logger)
	api.SetupRoutes(router, handler, db, redis)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
