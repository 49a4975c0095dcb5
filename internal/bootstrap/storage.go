package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/clinic-session/config"
	"github.com/target/clinic-session/internal/adapters/filestore"
	"github.com/target/clinic-session/internal/adapters/memstore"
	redisstore "github.com/target/clinic-session/internal/adapters/redis"
	"github.com/target/clinic-session/internal/ports"
)

// StorageConfig contains dependencies for building the session storage backend.
type StorageConfig struct {
	Storage config.StorageConfig
	Redis   config.RedisConfig
	// Client is an already connected Redis client. When nil and the backend is
	// redis, a client is dialed from Redis and closed by the returned closer.
	Client redis.UniversalClient
	Logger *slog.Logger
}

// BuildStorage returns the configured CredentialStorage and a closer releasing
// any connection it opened.
func BuildStorage(ctx context.Context, cfg StorageConfig) (ports.CredentialStorage, func() error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		logger.InfoContext(ctx, "session storage", "backend", config.StorageMemory)
		return memstore.New(), noop, nil

	case config.StorageRedis:
		client := cfg.Client
		closer := noop
		if client == nil {
			var err error
			client, err = ConnectRedis(ctx, cfg.Redis, logger)
			if err != nil {
				return nil, nil, fmt.Errorf("connect redis storage: %w", err)
			}
			closer = client.Close
		}
		logger.InfoContext(ctx, "session storage", "backend", config.StorageRedis, "prefix", cfg.Storage.KeyPrefix)
		return redisstore.NewCredentialStoreWithPrefix(client, cfg.Storage.KeyPrefix), closer, nil

	case config.StorageFile, "":
		fs, err := filestore.New(cfg.Storage.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open file storage: %w", err)
		}
		logger.InfoContext(ctx, "session storage", "backend", config.StorageFile, "path", fs.Path())
		return fs, noop, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}
