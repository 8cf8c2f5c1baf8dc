package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/config"
)

var dbConn *sqlx.DB
var dbType string

// Init initializes the database connection and runs pending migrations.
func Init(cfg *config.Config) error {
	if dbConn != nil {
		return nil
	}

	log.Printf("[DB] Initializing database (type: %s)", cfg.DatabaseType)

	var db *sqlx.DB
	var err error

	switch cfg.DatabaseType {
	case "postgres":
		db, err = initPostgres(cfg)
	case "sqlite", "":
		db, err = initSQLite(cfg)
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.DatabaseType)
	}

	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %v", err)
	}

	log.Printf("[DB] Running database migrations")
	if err = RunMigrations(db.DB, cfg.DatabaseType); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %v", err)
	}

	dbConn = db
	dbType = cfg.DatabaseType
	if dbType == "" {
		dbType = "sqlite"
	}
	log.Printf("[DB] Database initialized successfully")

	return nil
}

// initPostgres opens a connection pool against DATABASE_URL.
func initPostgres(cfg *config.Config) (*sqlx.DB, error) {
	log.Printf("[DB] Connecting to PostgreSQL...")

	db, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// initSQLite opens a file-backed SQLite database, creating the parent
// directory if needed. Foreign keys are off by default in SQLite and the
// schema relies on cascades, so the DSN switches them on.
func initSQLite(cfg *config.Config) (*sqlx.DB, error) {
	log.Printf("[DB] Opening SQLite database at path: %s", cfg.DatabasePath)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", cfg.DatabasePath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %v", err)
	}

	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	return db, nil
}

// GetDB returns the underlying database connection.
func GetDB() *sqlx.DB {
	return dbConn
}

// Close closes the database connection.
func Close() error {
	if dbConn == nil {
		return nil
	}
	err := dbConn.Close()
	dbConn = nil
	dbType = ""
	return err
}

// GenerateID returns a new unique row ID. IDs are generated app-side so both
// database dialects behave identically.
func GenerateID() string {
	return uuid.New().String()
}

// rebind translates ? placeholders to the dialect's bindvar format.
func rebind(query string) string {
	return dbConn.Rebind(query)
}
