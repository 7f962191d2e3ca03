package db

import (
	"fmt"
	"inkblog/internal/config"
	"inkblog/internal/models"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres with the pool settings from cfg.
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Storage.PostgresDSN), &gorm.Config{
		Logger:         NewLogger(log),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Storage.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Storage.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Storage.ConnMaxLifetime)

	log.Info("database connection established",
		zap.Int("max_open_conns", cfg.Storage.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Storage.MaxIdleConns),
	)
	return db, nil
}

// NewLogger routes gorm's slow-query and error output through zap.
func NewLogger(log *zap.Logger) logger.Interface {
	return logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate creates or updates the comments and reactions tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Comment{},
		&models.Reaction{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
