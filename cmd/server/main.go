// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/lobbyrelay/internal/auth"
	"github.com/jason-s-yu/lobbyrelay/internal/config"
	"github.com/jason-s-yu/lobbyrelay/internal/coordinator"
	"github.com/jason-s-yu/lobbyrelay/internal/handlers"
	"github.com/jason-s-yu/lobbyrelay/internal/history"
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
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	expiry, err := cfg.TokenExpiry()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	tokens, err := auth.Load(cfg.TokenPrivateKeyPath, cfg.TokenPublicKeyPath, expiry)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := coordinator.Options{
		InboxSize:    cfg.InboxSize,
		MaxRooms:     cfg.MaxRooms,
		RoomCapacity: cfg.RoomCapacity,
		MaxScan:      cfg.MatchMaxScan,
	}

	var publisher *history.Publisher
	if cfg.HistoryEnabled {
		rdb, err := connectRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("history: %v", err)
		}
		defer rdb.Close()
		publisher = history.NewPublisher(rdb, cfg.HistoryQueue, cfg.InboxSize, logger)
		opts.Recorder = publisher
		go publisher.Run(ctx)
		logger.Infof("publishing room history to %s/%s", cfg.RedisAddr, cfg.HistoryQueue)
	}

	coord := coordinator.New(logger, opts)
	go coord.Run(ctx)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handlers.NewRouter(logger, coord, tokens, handlers.Options{
			SendBuffer: cfg.SendBuffer,
			RelayRate:  cfg.RelayRate,
			RelayBurst: cfg.RelayBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("http shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}

	<-coord.Done()
	if publisher != nil {
		<-publisher.Done()
	}
	logger.Info("server stopped")
}

// connectRedis opens a client and checks that Redis answers.
func connectRedis(addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}
