package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mojcaostir/calda-challenge/internal/config"
	"github.com/mojcaostir/calda-challenge/internal/httpx"
	"github.com/mojcaostir/calda-challenge/internal/identity"
	kafkax "github.com/mojcaostir/calda-challenge/internal/kafka"
	"github.com/mojcaostir/calda-challenge/internal/logging"
	"github.com/mojcaostir/calda-challenge/internal/orders"
	"github.com/mojcaostir/calda-challenge/internal/postgres"
	"github.com/mojcaostir/calda-challenge/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := logging.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	ordersProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, logger)
	ordersProd.Start(ctx)
	movesProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicMovements, 1024, logger)
	movesProd.Start(ctx)

	repo := &orders.Repo{DB: db}
	invRepo := &orders.InventoryRepo{DB: db}
	svc := &orders.Service{
		Addresses: repo,
		Variants:  repo,
		Orders:    repo,
		Ledger:    orders.NewLedger(invRepo, logger),
		Log:       logger,
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Service:   svc,
		Repo:      repo,
		Auth:      &identity.Resolver{DB: db, Redis: rdb},
		Orders:    ordersProd,
		Movements: movesProd,
		Cache:     &redisx.Cache{R: rdb},
		Log:       logger,
		Name:      cfg.ServiceName,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	ordersProd.Close()
	movesProd.Close()
	ordersProd.WaitClosed()
	movesProd.WaitClosed()
}
