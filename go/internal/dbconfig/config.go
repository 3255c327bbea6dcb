package dbconfig

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mcdev12/typerace/go/internal/db"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds database connection settings.
type Config struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	SQLitePath string
}

// NewConfigFromEnv reads DB_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}

	return Config{
		Driver:     getEnv("DB_DRIVER", DriverPostgres),
		Host:       getEnv("DB_HOST", "localhost"),
		Port:       port,
		User:       getEnv("DB_USER", "postgres"),
		Password:   getEnv("DB_PASSWORD", "postgres"),
		Database:   getEnv("DB_NAME", "typerace"),
		SSLMode:    getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "typerace.db"),
	}
}

// DSN returns the Postgres connection URL.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// SQLiteDSN returns the modernc sqlite data source for SQLitePath.
func (c Config) SQLiteDSN() string {
	return fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		c.SQLitePath,
	)
}

// Dialect returns the query placeholder dialect for the configured driver.
func (c Config) Dialect() db.Dialect {
	if c.Driver == DriverSQLite {
		return db.SQLite
	}
	return db.Postgres
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, c Config) (*sql.DB, error) {
	var (
		conn *sql.DB
		err  error
	)

	switch c.Driver {
	case DriverPostgres:
		conn, err = sql.Open("pgx", c.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection: %w", err)
		}
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxIdleTime(5 * time.Minute)
	case DriverSQLite:
		conn, err = sql.Open("sqlite", c.SQLiteDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// a single writer connection serialises statements
		conn.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if c.Driver == DriverSQLite {
		log.Info().Str("path", c.SQLitePath).Msg("connected to sqlite database")
	} else {
		log.Info().
			Str("user", c.User).
			Str("host", c.Host).
			Int("port", c.Port).
			Str("database", c.Database).
			Msg("connected to database")
	}
	return conn, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
