package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/nocturne/internal/config"
	"github.com/cloo-solutions/nocturne/internal/database"
	"github.com/cloo-solutions/nocturne/internal/kv"
)

// OpenBackend builds the store backend selected by cfg. The returned close
// function releases any connections the backend holds.
func OpenBackend(ctx context.Context, cfg *config.Config, migrate bool) (kv.Backend, func(), error) {
	noop := func() {}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Println("store: using in-memory backend (notes are lost on restart)")
		return kv.NewMemory(), noop, nil

	case config.BackendFile:
		backend, err := kv.NewFile(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open data dir: %w", err)
		}
		log.Printf("store: using file backend at %s", backend.Dir())
		return backend, noop, nil

	case config.BackendPostgres:
		if migrate {
			if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsSource); err != nil {
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("store: connected to database")
		backend := kv.NewPostgres(pool)
		return backend, backend.Close, nil

	case config.BackendS3:
		backend, err := kv.NewS3(ctx, kv.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := backend.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("store: S3 bucket '%s' ready", cfg.S3Bucket)
		return backend, noop, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
