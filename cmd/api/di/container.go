package di

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-doc-service/cmd/api/infrastructure"
	"user-doc-service/internal/adapter/cache"
	mongorepo "user-doc-service/internal/adapter/db/mongo"
	"user-doc-service/internal/adapter/db/postgres"
	ginhandler "user-doc-service/internal/adapter/gin/handler"
	"user-doc-service/internal/adapter/ratelimit"
	"user-doc-service/internal/adapter/repository/cached"
	"user-doc-service/internal/config"
	"user-doc-service/internal/usecase/health"
	"user-doc-service/internal/usecase/user"
	"user-doc-service/pkg/mongodb"
	redisclient "user-doc-service/pkg/redis"
	"user-doc-service/pkg/security"
)

// setupTimeout bounds index creation and migrations at startup.
const setupTimeout = 30 * time.Second

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Mongo       *mongodb.Client
	DB          *gorm.DB
	RedisClient *redisclient.Client
	Repository  user.Repository
	UserUC      user.Usecase
	RateLimiter *ratelimit.Limiter
	// TrustedProxies gates forwarding metadata on the gRPC side
	TrustedProxies security.TrustedProxies
	Health         *health.Checker
	GinHandler     *ginhandler.UserHandler
	HealthHandler  *ginhandler.HealthHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	proxies, err := security.ParseTrustedProxies(cfg.App.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l, TrustedProxies: proxies}

	dbRepo, err := c.initRepository(ctx)
	if err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}

	rdb, err := infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		_ = c.Close(context.Background())
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	c.RedisClient = rdb

	var raw *goredis.Client
	if rdb != nil {
		raw = rdb.Client
	}

	// Initialize cache layer
	repo := dbRepo
	if cfg.Redis.CacheEnabled && raw != nil {
		userCache := cache.NewRedisUserCache(raw, time.Duration(cfg.Redis.CacheTTL)*time.Second, l)
		repo = cached.NewCachedUserRepository(dbRepo, userCache, l)
	}
	c.Repository = repo

	c.UserUC = user.New(repo, l)

	c.RateLimiter = ratelimit.New(raw, ratelimit.Config{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.BurstCapacity,
	}, l)

	checks := []health.Check{{Name: "database", Pinger: repo}}
	if rdb != nil {
		checks = append(checks, health.Check{Name: "cache", Pinger: rdb, Optional: true})
	}
	c.Health = health.NewChecker(2*time.Second, l, checks...)

	c.GinHandler = ginhandler.NewUserHandler(c.UserUC, l)
	c.HealthHandler = ginhandler.NewHealthHandler(c.Health, cfg.Logger.ServiceName, cfg.Logger.ServiceVersion)

	return c, nil
}

// initRepository connects the configured store and prepares its schema.
func (c *Container) initRepository(ctx context.Context) (user.Repository, error) {
	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	switch c.Config.DB.Driver {
	case config.DriverMongo:
		client, err := infrastructure.NewMongo(c.Config, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.Mongo = client

		repo := mongorepo.NewUserRepoMongo(client.Collection(c.Config.Mongo.Collection), c.Logger)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		return repo, nil

	default:
		db, err := infrastructure.NewDatabase(c.Config, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db

		repo := postgres.NewUserRepoPG(db, c.Logger)
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		return repo, nil
	}
}

// Close closes all resources held by the container
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.Mongo != nil {
		if err := c.Mongo.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close MongoDB: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
