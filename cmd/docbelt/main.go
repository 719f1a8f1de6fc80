package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"docbelt/internal/app"
	"docbelt/internal/jobs"
	"docbelt/internal/ocr"
	u "docbelt/internal/utils"
)

func main() {
	cfg := u.LoadConfig()
	// Allow common container env var to override chrome_path.
	if cfg.PDF.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.PDF.ChromePath = v
		}
	}
	u.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	u.SetLogLevel(cfg.Logger.Level)

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			u.Error("Cannot create working directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisHost,
		DB:   cfg.Cache.OCRCacheDB,
	})

	idleConnsClosed := make(chan struct{})
	if err := u.LoadTokensFromPostgres(cfg.Auth.Postgres); err != nil {
		u.Error("Failed to load API tokens", "error", err)
	}
	go u.RefreshTokensPeriodicallyFromPostgres(cfg.Auth.Postgres, time.Minute, idleConnsClosed)

	go u.StartSweeper(
		[]string{cfg.Storage.UploadDir, cfg.Storage.OutputDir},
		cfg.Storage.Retention,
		cfg.Storage.SweepInterval,
		idleConnsClosed,
	)

	queue := jobs.NewQueue(newJobStore(cfg), cfg.Jobs.QueueSize, cfg.Jobs.ResultTTL)
	queue.Start(cfg.Jobs.Workers)

	engine := ocr.NewTesseractEngine()

	app := app.SetupApp(cfg, rdb, engine, queue)

	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
	queue.Shutdown()
}

// newJobStore prefers Redis for job status so polling works across replicas,
// falling back to process memory when Redis is unreachable.
func newJobStore(cfg u.Config) jobs.Store {
	statusClient := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisHost,
		DB:   cfg.Cache.JobStatusDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := statusClient.Ping(ctx).Err(); err != nil {
		u.Warn("Redis unavailable, keeping job status in memory", "error", err)
		return jobs.NewMemoryStore(cfg.Jobs.ResultTTL)
	}
	return jobs.NewRedisStore(statusClient, cfg.Jobs.ResultTTL)
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg u.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			u.Error("Server error", "error", err)
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	u.Warn("Shutdown signal received, closing server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		u.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	u.Info("Server stopped cleanly")
}
