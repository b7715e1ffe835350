package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectWithDSN opens a PostgreSQL connection for the named service.
func ConnectWithDSN(service, dsn string, log *zap.Logger) (*gorm.DB, error) {
	return Open(service, postgres.Open(dsn), log)
}

// Open opens a gorm connection over an arbitrary dialector and applies the
// shared pool settings. Tests use it with an in-memory sqlite dialector.
func Open(service string, dialector gorm.Dialector, log *zap.Logger) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect %s: %w", service, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("database: pool %s: %w", service, err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if log != nil {
		log.Info("database connected", zap.String("service", service), zap.String("dialect", dialector.Name()))
	}
	return conn, nil
}
