package persistence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shopkit/backend/internal/infrastructure/config"
	"github.com/shopkit/backend/internal/infrastructure/logger"
)

// Database wraps the GORM connection and exposes transaction helpers.
type Database struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewDatabase connects to PostgreSQL using the given configuration.
func NewDatabase(cfg *config.Config, zapLogger *zap.Logger) (*Database, error) {
	gormLog := logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.Database.ConnMaxIdleTime) * time.Minute)

	return &Database{db: db, log: zapLogger.Named("database")}, nil
}

// NewSQLiteDatabase opens a file-backed SQLite database. Used by the
// migration tool and local development; production runs on PostgreSQL.
func NewSQLiteDatabase(path string, zapLogger *zap.Logger) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLogger(zapLogger, gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return &Database{db: db, log: zapLogger.Named("database")}, nil
}

// DB returns the underlying GORM handle.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// AutoMigrate creates or updates the schema for every persisted model.
func (d *Database) AutoMigrate() error {
	return d.db.AutoMigrate(
		&ProductModel{},
		&OrderModel{},
		&OrderItemModel{},
		&CouponModel{},
		&CouponHoldModel{},
		&CouponUsageModel{},
		&MetaRowModel{},
	)
}

// Transaction runs fn inside a database transaction, rolling back on error.
func (d *Database) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.db.WithContext(ctx).Transaction(fn)
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
