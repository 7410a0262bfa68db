package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/promotion"
)

const defaultPromotionTTL = 30 * time.Second

// RedisConfig holds Redis connection settings for cache construction
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CachedPromotionRepository decorates a promotion.Repository with a
// short-lived Redis cache of the candidate sets. The cache fails open:
// any Redis error falls through to the source repository, and a stale
// candidate only survives until the engine re-checks its validity
// window.
type CachedPromotionRepository struct {
	source     promotion.Repository
	client     *redis.Client
	ownsClient bool
	ttl        time.Duration
	logger     *zap.Logger
}

// CachedPromotionRepositoryOption is a functional option for the cache
type CachedPromotionRepositoryOption func(*CachedPromotionRepository)

// WithPromotionTTL sets how long cached candidate sets live
func WithPromotionTTL(ttl time.Duration) CachedPromotionRepositoryOption {
	return func(c *CachedPromotionRepository) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPromotionCacheLogger sets the logger for the cache
func WithPromotionCacheLogger(logger *zap.Logger) CachedPromotionRepositoryOption {
	return func(c *CachedPromotionRepository) {
		c.logger = logger
	}
}

// NewCachedPromotionRepository creates a caching decorator with its own
// Redis client
func NewCachedPromotionRepository(source promotion.Repository, cfg RedisConfig, opts ...CachedPromotionRepositoryOption) (*CachedPromotionRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &CachedPromotionRepository{
		source:     source,
		client:     client,
		ownsClient: true,
		ttl:        defaultPromotionTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache, nil
}

// NewCachedPromotionRepositoryWithClient creates a caching decorator
// over an existing Redis client. The caller retains ownership of the
// client and is responsible for closing it.
func NewCachedPromotionRepositoryWithClient(source promotion.Repository, client *redis.Client, opts ...CachedPromotionRepositoryOption) *CachedPromotionRepository {
	cache := &CachedPromotionRepository{
		source:     source,
		client:     client,
		ownsClient: false,
		ttl:        defaultPromotionTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func activeCacheKey() string {
	return "promotions:active"
}

func placementCacheKey(placement promotion.Placement) string {
	return fmt.Sprintf("promotions:placement:%s", placement)
}

// FindActive returns the active candidate set, from cache when fresh
func (c *CachedPromotionRepository) FindActive(ctx context.Context, at time.Time) ([]promotion.Promotion, error) {
	return c.cachedFind(ctx, activeCacheKey(), func() ([]promotion.Promotion, error) {
		return c.source.FindActive(ctx, at)
	})
}

// FindForPlacement returns the placement candidate set, from cache when fresh
func (c *CachedPromotionRepository) FindForPlacement(ctx context.Context, placement promotion.Placement, at time.Time) ([]promotion.Promotion, error) {
	return c.cachedFind(ctx, placementCacheKey(placement), func() ([]promotion.Promotion, error) {
		return c.source.FindForPlacement(ctx, placement, at)
	})
}

func (c *CachedPromotionRepository) cachedFind(ctx context.Context, key string, load func() ([]promotion.Promotion, error)) ([]promotion.Promotion, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var promotions []promotion.Promotion
		if err := json.Unmarshal(data, &promotions); err == nil {
			return promotions, nil
		}
		c.logger.Warn("Dropping undecodable promotion cache entry", zap.String("key", key))
	} else if err != redis.Nil {
		c.logger.Warn("Promotion cache read failed, falling back to source",
			zap.String("key", key),
			zap.Error(err))
	}

	promotions, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(promotions); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Promotion cache write failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}

	return promotions, nil
}

// Invalidate drops the cached candidate sets so the next read hits the
// source repository
func (c *CachedPromotionRepository) Invalidate(ctx context.Context) error {
	keys := []string{
		activeCacheKey(),
		placementCacheKey(promotion.PlacementHome),
		placementCacheKey(promotion.PlacementCategory),
		placementCacheKey(promotion.PlacementProduct),
		placementCacheKey(promotion.PlacementCart),
		placementCacheKey(promotion.PlacementCheckout),
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close releases the Redis client if this cache owns it
func (c *CachedPromotionRepository) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ promotion.Repository = (*CachedPromotionRepository)(nil)
