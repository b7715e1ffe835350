package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matapang/platform/libs/components/notify"
	"github.com/matapang/platform/libs/shared/config"
	"github.com/matapang/platform/libs/shared/httpx"
	"github.com/matapang/platform/libs/shared/logging"
	"github.com/matapang/platform/libs/shared/mq"
)

func main() {
	cfg := config.Load()
	logger := logging.Must(cfg.Environment, cfg.LogLevel).Named("notify")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := notify.NewHub(logger)
	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Brokers:  cfg.KafkaBrokerList(),
		Topic:    cfg.KafkaTopic,
		GroupID:  fmt.Sprintf("%s-notify", cfg.ServiceName),
		ClientID: fmt.Sprintf("%s-notify", cfg.ServiceName),
	}, hub.HandleMessage, logger)
	if err != nil {
		logger.Fatal("notify service: failed to create consumer", zap.Error(err))
	}
	defer consumer.Close()

	server := httpx.New(logger)
	hub.Mount(server.Router, "/ws")
	addr := fmt.Sprintf(":%s", cfg.ResolveServiceHTTPPort("notify", "8083"))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return hub.Run(ctx) })
	group.Go(func() error { return consumer.Run(ctx) })
	group.Go(func() error {
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("notify service stopped", zap.Error(err))
	}
	logger.Info("notify service stopped")
}
