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

	"github.com/matapang/platform/libs/components/identity"
	"github.com/matapang/platform/libs/shared/config"
	"github.com/matapang/platform/libs/shared/database"
	"github.com/matapang/platform/libs/shared/httpx"
	"github.com/matapang/platform/libs/shared/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.Must(cfg.Environment, cfg.LogLevel).Named("identity")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectWithDSN("identity", cfg.DatabaseDSN("identity"), logger)
	if err != nil {
		logger.Fatal("identity service: database unavailable", zap.Error(err))
	}
	repo := identity.NewGormRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Fatal("identity service: failed to run migrations", zap.Error(err))
	}

	server := httpx.New(logger)
	identity.NewHandler(repo).Mount(server.Router, "")

	addr := fmt.Sprintf(":%s", cfg.ResolveServiceHTTPPort("identity", "8082"))
	go func() {
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("identity service stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("identity service: shutdown", zap.Error(err))
	}
}
