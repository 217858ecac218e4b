package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Config holds database connection configuration for the database/sql path
// used by the migrator. The application itself talks to Postgres through
// pgx; this package exists because migrations want plain *sql.DB.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnTimeout     time.Duration
}

// Connection represents a database connection wrapper
type Connection struct {
	db     *sql.DB
	config *Config
	logger *slog.Logger
}

// NewConnection creates a new database connection
func NewConnection(config *Config, logger *slog.Logger) (*Connection, error) {
	conn := &Connection{
		config: config,
		logger: logger.With("component", "database"),
	}

	if err := conn.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	return conn, nil
}

func (c *Connection) connect() error {
	dsn := c.buildDSN()

	c.logger.Info("connecting to database",
		"host", c.config.Host,
		"port", c.config.Port,
		"database", c.config.Database,
		"ssl_mode", c.config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(c.config.MaxOpenConns)
	db.SetMaxIdleConns(c.config.MaxIdleConns)
	db.SetConnMaxLifetime(c.config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.db = db
	c.logger.Info("database connection established")
	return nil
}

func (c *Connection) buildDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.config.Host,
		c.config.Port,
		c.config.User,
		c.config.Password,
		c.config.Database,
		c.config.SSLMode,
		int(c.config.ConnTimeout.Seconds()),
	)
}

// DB returns the underlying *sql.DB instance
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Connection) Close() error {
	if c.db != nil {
		c.logger.Info("closing database connection")
		return c.db.Close()
	}
	return nil
}
