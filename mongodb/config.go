package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Config holds configuration for a MongoDB connection.
type Config struct {
	// URI is the MongoDB connection string.
	// Default: "mongodb://localhost:27017"
	URI string

	// Database is the database name queries dispatch against.
	// Default: "lattice"
	Database string

	// ConnectTimeout bounds the initial connection handshake.
	// Default: 10s
	ConnectTimeout time.Duration

	// MaxPoolSize caps the driver's connection pool.
	// Default: 0 (driver default)
	MaxPoolSize uint64
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "lattice",
		ConnectTimeout: 10 * time.Second,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.URI == "" {
		c.URI = "mongodb://localhost:27017"
	}
	if c.Database == "" {
		c.Database = "lattice"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

// Connect opens a client from the config, verifies the server is reachable
// and returns a Connection over the configured database.
func Connect(ctx context.Context, cfg Config) (*Connection, error) {
	cfg.validate()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Database, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping %s: %w", cfg.Database, err)
	}

	return New(client.Database(cfg.Database)), nil
}
