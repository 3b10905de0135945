package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kasirkit/poscore/internal/approval"
	"github.com/kasirkit/poscore/internal/config"
	"github.com/kasirkit/poscore/internal/httpx"
	kafkax "github.com/kasirkit/poscore/internal/kafka"
	"github.com/kasirkit/poscore/internal/orders"
	"github.com/kasirkit/poscore/internal/postgres"
	"github.com/kasirkit/poscore/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pRemoved := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderRemoved, 1024)
	pRequested := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicDeletionRequested, 1024)
	pResolved := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicDeletionResolved, 1024)
	producers := []*kafkax.Producer{pCreated, pRemoved, pRequested, pResolved}
	for _, p := range producers {
		p.Start(ctx)
	}

	// Core components
	repo := &orders.Repo{DB: db}
	approvals := &approval.Service{
		Store:   &approval.PGStore{DB: db},
		Remover: repo,
		Log:     log,
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Store:   repo,
		Created: pCreated,
		Removed: pRemoved,
		Redis:   rdb,
		Log:     log,
		Service: cfg.ServiceName,
	}
	oh.Register(router)
	ah := &httpx.ApprovalHandler{
		Approvals: approvals,
		Requested: pRequested,
		Resolved:  pResolved,
		Removed:   pRemoved,
		Redis:     rdb,
		Log:       log,
		Service:   cfg.ServiceName,
	}
	ah.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close()
	}
	cancel()
	for _, p := range producers {
		p.WaitClosed()
	}
}
