package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mojcaostir/calda-challenge/internal/audit"
	"github.com/mojcaostir/calda-challenge/internal/config"
	kafkax "github.com/mojcaostir/calda-challenge/internal/kafka"
	"github.com/mojcaostir/calda-challenge/internal/logging"
	"github.com/mojcaostir/calda-challenge/internal/orders"
	"github.com/mojcaostir/calda-challenge/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := logging.New(cfg.ServiceName+"-movements", cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		Redis: rdb,
		Log:   logger,
		Name:  "movements",
	}

	group := getenv("MOVEMENTS_GROUP", "movement-feed")
	workers := mustAtoi(os.Getenv("MOVEMENTS_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicMovements, workers, logger)

	go func() {
		logger.Info("movement consumer started",
			zap.String("group", group),
			zap.String("topic", orders.TopicMovements),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandleMovement); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
