package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/shopkit/backend/internal/infrastructure/config"
	"github.com/shopkit/backend/internal/infrastructure/logger"
	"github.com/shopkit/backend/internal/infrastructure/persistence"
)

func main() {
	sqlitePath := flag.String("sqlite", "", "migrate a local SQLite database at this path instead of PostgreSQL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	var db *persistence.Database
	if *sqlitePath != "" {
		db, err = persistence.NewSQLiteDatabase(*sqlitePath, log)
	} else {
		db, err = persistence.NewDatabase(cfg, log)
	}
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if err := db.AutoMigrate(); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("migration complete",
		zap.String("database", cfg.Database.DBName),
		zap.Bool("sqlite", *sqlitePath != ""),
	)
}
