package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/patient-intake/internal/config"
	"github.com/wolfman30/patient-intake/internal/db"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

const redisPingTimeout = 3 * time.Second

// BuildRedisClient connects to REDIS_ADDR. It returns nil when Redis is not
// configured or does not answer a ping, and the caller keeps sessions in memory.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg == nil {
		return nil
	}
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	opts := &redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("connected to redis", "addr", addr, "db", cfg.RedisDB, "tls", cfg.RedisTLS)
	return client
}

// BuildPostgresPool connects to DATABASE_URL. No URL means (nil, nil): the
// caller falls back to in-memory repositories.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		MaxConnLifetime: time.Hour,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres", "max_conns", cfg.DBMaxConns, "min_conns", cfg.DBMinConns)
	return pool, nil
}
