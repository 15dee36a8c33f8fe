// Package bootstrap wires the process-wide resources shared by the server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"lookup/internal/cache"
	"lookup/internal/config"
	"lookup/internal/database"
	"lookup/internal/middleware"
	"lookup/internal/storage"

	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	Migrate bool
}

// Runtime holds the resources owned by one process.
type Runtime struct {
	DB    *gorm.DB
	Cache *cache.Cache
	Store *storage.FileSystemStore
}

// InitRuntime connects to the database (fatal on failure), Redis (optional)
// and opens the upload directory.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.Migrate {
		if err := database.Migrate(db); err != nil {
			_ = database.Close(db)
			return nil, err
		}
	}

	c, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		// Lookups still work against the database alone.
		middleware.Logger.Warn("Redis unavailable, continuing without cache", "error", err)
	}

	store, err := storage.NewFileSystemStore(cfg.UploadDir)
	if err != nil {
		_ = c.Close()
		_ = database.Close(db)
		return nil, err
	}

	return &Runtime{DB: db, Cache: c, Store: store}, nil
}

// Close releases the database pool and the Redis client.
func (r *Runtime) Close() error {
	var errs []error
	if r.DB != nil {
		if err := database.Close(r.DB); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if err := r.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	return errors.Join(errs...)
}
