package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"SafeDeal/internal/config"
)

var DB *gorm.DB

// Connect opens the configured database and stores the handle in DB.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	if cfg.URL != "" {
		log.Println("Using DATABASE_URL")
	} else {
		log.Println("Using individual database environment variables")
	}

	db, err := Open(dsn, cfg.LogSQL)
	if err != nil {
		return nil, err
	}
	DB = db

	log.Println("Database connected successfully")
	return db, nil
}

// Open picks the dialector from the DSN: "sqlite:" or "file:" prefixes select
// sqlite, anything else is handed to postgres.
func Open(dsn string, logSQL bool) (*gorm.DB, error) {
	level := logger.Warn
	if logSQL {
		level = logger.Info
	}

	var dialector gorm.Dialector
	sqliteDSN, isSQLite := sqliteSource(dsn)
	if isSQLite {
		dialector = sqlite.Open(sqliteDSN)
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if isSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
		}
		// sqlite allows one writer; a single connection keeps transactions serialized
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	return db, nil
}

func sqliteSource(dsn string) (string, bool) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return strings.TrimPrefix(dsn, "sqlite:"), true
	case strings.HasPrefix(dsn, "file:"):
		return dsn, true
	}
	return "", false
}

// Close releases the pool behind db, or behind DB when db is nil.
func Close(db *gorm.DB) error {
	if db == nil {
		db = DB
	}
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
