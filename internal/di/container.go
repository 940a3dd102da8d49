package di

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ihor-metko/RSP-sub004/internal/auth"
	"github.com/ihor-metko/RSP-sub004/internal/config"
	"github.com/ihor-metko/RSP-sub004/internal/directory"
	"github.com/ihor-metko/RSP-sub004/internal/logger"
	"github.com/ihor-metko/RSP-sub004/internal/realtime"
)

// Container holds all dependencies for the realtime service
type Container struct {
	// Infrastructure
	Pool  *pgxpool.Pool
	Redis *redis.Client

	// Tenant directory (postgres behind a redis read-through cache)
	Directory directory.Directory

	// Realtime core
	Verifier  *auth.Verifier
	Router    *realtime.Router
	Broker    *realtime.Broker
	Sequencer realtime.Sequencer
	Publisher *realtime.Publisher
	Handler   *realtime.Handler
	Metrics   *realtime.Metrics
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	metrics, err := realtime.NewMetrics()
	if err != nil {
		log.Warn("realtime metrics disabled", zap.Error(err))
		metrics = nil
	}

	c := &Container{
		Pool:  pool,
		Redis: rdb,
		Directory: directory.NewRedisCache(
			directory.NewPostgres(pool),
			rdb,
			cfg.Redis.CacheTTL,
		),
		Metrics: metrics,
	}

	c.Verifier = auth.NewVerifier(&auth.VerifierConfig{
		Secret: cfg.JWT.Secret,
		Leeway: cfg.JWT.Leeway,
	})
	c.Router = realtime.NewRouter(c.Directory, log)
	c.Broker = realtime.NewBroker(log, c.Metrics)
	c.Sequencer = realtime.NewRedisSequencer(rdb)
	c.Publisher = realtime.NewPublisher(c.Broker, c.Sequencer, log)
	c.Handler = realtime.NewHandler(c.Verifier, c.Router, c.Broker, &cfg.Realtime, log, c.Metrics)

	return c, nil
}

// Close releases the container's infrastructure connections.
func (c *Container) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
