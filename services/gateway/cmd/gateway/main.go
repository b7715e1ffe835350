package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	shared "github.com/matapang/platform/libs/shared/config"
	"github.com/matapang/platform/libs/shared/logging"
	"github.com/matapang/platform/services/gateway/internal/config"
	"github.com/matapang/platform/services/gateway/internal/server"
)

func main() {
	app := shared.Load()
	logger := logging.Must(app.Environment, app.LogLevel).Named("gateway")
	defer func() { _ = logger.Sync() }()

	cfg, err := config.FromApp(app)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	srv := server.New(cfg, logger)
	go func() {
		logger.Info("gateway listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown
	logger.Info("shutting down gateway")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if err := srv.Close(); err != nil {
			logger.Warn("forced close failed", zap.Error(err))
		}
	}
}
