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

	"github.com/matapang/platform/libs/components/approval"
	formcmp "github.com/matapang/platform/libs/components/form"
	"github.com/matapang/platform/libs/components/submission"
	"github.com/matapang/platform/libs/shared/config"
	"github.com/matapang/platform/libs/shared/database"
	"github.com/matapang/platform/libs/shared/httpx"
	"github.com/matapang/platform/libs/shared/logging"
	"github.com/matapang/platform/libs/shared/mq"
)

type stores struct {
	forms       formcmp.Repository
	submissions submission.Repository
	close       func(context.Context) error
}

func main() {
	cfg := config.Load()
	logger := logging.Must(cfg.Environment, cfg.LogLevel).Named("form")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("form service: storage unavailable", zap.Error(err))
	}
	defer func() { _ = repos.close(context.Background()) }()

	directory := approval.NewCachedDirectory(
		approval.NewHTTPDirectory(cfg.IdentityServiceURL, cfg.HTTPClientTimeout, logger),
		cfg.ApproverCacheSize,
		cfg.ApproverCacheTTL,
	)

	opts := []submission.ServiceOption{submission.WithDirectory(directory)}
	producer, err := mq.NewProducer(mq.ProducerConfig{
		Brokers:  cfg.KafkaBrokerList(),
		Topic:    cfg.KafkaTopic,
		ClientID: fmt.Sprintf("%s-form", cfg.ServiceName),
	}, logger)
	if err != nil {
		logger.Warn("form service: events disabled", zap.Error(err))
	} else {
		defer producer.Close()
		opts = append(opts, submission.WithPublisher(producer))
	}

	forms := formcmp.NewService(repos.forms, logger)
	submissions := submission.NewService(repos.submissions, forms, logger, opts...)
	submissionHandler := submission.NewHandler(submissions, logger)

	server := httpx.New(logger)
	formcmp.NewHandler(forms,
		formcmp.WithDirectory(directory),
		formcmp.WithSearchDebounce(cfg.SearchDebounce),
		formcmp.WithFormRoutes(submissionHandler.FormRoutes),
		formcmp.WithLogger(logger),
	).Mount(server.Router, "")
	submissionHandler.Mount(server.Router, "")

	addr := fmt.Sprintf(":%s", cfg.ResolveServiceHTTPPort("form", "8081"))
	go func() {
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("form service stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("form service: shutdown", zap.Error(err))
	}
}

// openStores selects the backend named by STORAGE_DRIVER.
func openStores(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (stores, error) {
	if cfg.UsesMongo() {
		db, disconnect, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return stores{}, err
		}
		forms := formcmp.NewMongoRepository(db)
		subs := submission.NewMongoRepository(db)
		if err := forms.EnsureIndexes(ctx); err != nil {
			return stores{}, err
		}
		if err := subs.EnsureIndexes(ctx); err != nil {
			return stores{}, err
		}
		return stores{forms: forms, submissions: subs, close: disconnect}, nil
	}

	db, err := database.ConnectWithDSN("form", cfg.DatabaseDSN("form"), logger)
	if err != nil {
		return stores{}, err
	}
	forms := formcmp.NewGormRepository(db)
	subs := submission.NewGormRepository(db)
	if err := forms.AutoMigrate(); err != nil {
		return stores{}, fmt.Errorf("migrate forms: %w", err)
	}
	if err := subs.AutoMigrate(); err != nil {
		return stores{}, fmt.Errorf("migrate submissions: %w", err)
	}
	closer := func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return stores{forms: forms, submissions: subs, close: closer}, nil
}
