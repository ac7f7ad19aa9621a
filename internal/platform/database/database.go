package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"codeforge_arena/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver for local runs and tests
	log "github.com/sirupsen/logrus"
)

var DB *sql.DB

func Connect() {
	var err error
	DB, err = Open(config.AppConfig.DBDriver, dataSource(config.AppConfig))
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}

	// Verify connection
	if err = DB.Ping(); err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	if err = Migrate(context.Background(), DB); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	log.Infof("Successfully connected to %s database!", config.AppConfig.DBDriver)
}

// Open opens a pool for the given driver and applies the pool settings used by the service.
func Open(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	switch driver {
	case config.DriverSQLite:
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, err
		}
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	return db, nil
}

func dataSource(cfg *config.Config) string {
	if cfg.DBDriver == config.DriverSQLite {
		return fmt.Sprintf("file:%s", cfg.SQLitePath)
	}
	return cfg.DBConnStr
}

func Close() {
	if DB != nil {
		DB.Close()
		log.Info("Database connection closed.")
	}
}
