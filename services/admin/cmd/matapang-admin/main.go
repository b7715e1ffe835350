package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/matapang/platform/libs/components/form"
	"github.com/matapang/platform/libs/shared/config"
	"github.com/matapang/platform/libs/shared/database"
	"github.com/matapang/platform/libs/shared/logging"
	"github.com/matapang/platform/services/admin/internal/cli"
)

func main() {
	cfg := config.Load()
	logger := logging.Must(cfg.Environment, cfg.LogLevel).Named("admin")
	defer func() { _ = logger.Sync() }()

	root := cli.NewRootCommand(openForms(cfg, logger), logger)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openForms connects to the backend named by STORAGE_DRIVER.
func openForms(cfg *config.AppConfig, logger *zap.Logger) cli.OpenForms {
	return func(ctx context.Context) (form.Repository, func() error, error) {
		if cfg.UsesMongo() {
			db, disconnect, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
			if err != nil {
				return nil, nil, err
			}
			repo := form.NewMongoRepository(db)
			if err := repo.EnsureIndexes(ctx); err != nil {
				_ = disconnect(ctx)
				return nil, nil, err
			}
			return repo, func() error { return disconnect(context.Background()) }, nil
		}

		db, err := database.ConnectWithDSN("form", cfg.DatabaseDSN("form"), logger)
		if err != nil {
			return nil, nil, err
		}
		repo := form.NewGormRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			return nil, nil, fmt.Errorf("migrate forms: %w", err)
		}
		return repo, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}, nil
	}
}
