// cmd/historian/main.go is an asynchronous historian service that pops room history
// records from a Redis queue and persists them to a PostgreSQL database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/lobbyrelay/internal/config"
	"github.com/jason-s-yu/lobbyrelay/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	if err := historian.Migrate(cfg.DatabaseURL, logger); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := historian.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer rdb.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		logger.Fatalf("failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
	}

	svc := historian.NewService(
		rdb,
		historian.NewPGStore(pool),
		cfg.HistoryQueue,
		cfg.HistorianBatchSize,
		cfg.HistorianFlushInterval(),
		logger,
	)
	svc.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
