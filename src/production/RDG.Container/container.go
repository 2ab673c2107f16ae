// Package container wires the process-owned resources: configuration,
// logger, the PostgreSQL pool and the optional archive MongoDB client.
// Components receive their dependencies from here at construction; nothing
// in the core reaches for global state.
package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	config "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Config"
	logger "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Logger"
	"gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Startup/health"
)

// Container manages dependencies and their lifecycle
type Container struct {
	config *config.Config
	logger *logger.Logger

	db          *sql.DB
	mongoClient *mongo.Client

	mu           sync.Mutex
	cleanupFuncs []func() error
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(&cfg.Logging)

	return &Container{
		config: cfg,
		logger: log,
	}, nil
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetDatabase returns the database connection, connecting and migrating on
// first use.
func (c *Container) GetDatabase() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		db, err := health.ConnectPostgresWithTimeout(c.config, 20*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := health.MigrateDatabase(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		c.db = db
		c.cleanupFuncs = append(c.cleanupFuncs, db.Close)
		c.logger.Info("Database connected and migrated")
	}

	return c.db, nil
}

// GetArchiveCollection returns the archive collection, or (nil, nil) when
// archiving is disabled.
func (c *Container) GetArchiveCollection() (*mongo.Collection, error) {
	if !c.config.Archive.Enabled {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mongoClient == nil {
		client, err := health.ConnectMongoWithTimeout(c.config.Archive.URI, 10*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to archive MongoDB: %w", err)
		}

		c.mongoClient = client
		c.cleanupFuncs = append(c.cleanupFuncs, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		})
		c.logger.Info("Archive MongoDB connected")
	}

	return c.mongoClient.Database(c.config.Archive.Database).Collection(c.config.Archive.Collection), nil
}

// Shutdown releases owned resources in reverse acquisition order.
func (c *Container) Shutdown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			c.logger.ErrorWithError(err, "Cleanup failed")
		}
	}
	c.cleanupFuncs = nil
}
