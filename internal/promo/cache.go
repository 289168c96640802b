package promo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ristorino-api/internal/common/database"
	"ristorino-api/internal/common/logger"
	"ristorino-api/internal/common/metrics"
	"ristorino-api/internal/models"
)

// promotionsFetcher is what the cache wraps; satisfied by *Repository.
type promotionsFetcher interface {
	GetRestaurantPromotions(ctx context.Context, restaurantID int, onlyCurrent *bool, branchID *int) (*models.RestaurantPromotions, error)
}

// CachedRepository is a read-through cache over the promotions repository.
// Redis problems degrade to the database and are never surfaced to callers.
type CachedRepository struct {
	fetcher promotionsFetcher
	cache   *database.RedisClient
	ttl     time.Duration
	log     logger.Logger
}

func NewCachedRepository(fetcher promotionsFetcher, cache *database.RedisClient, ttl time.Duration, log logger.Logger) *CachedRepository {
	return &CachedRepository{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		log:     log,
	}
}

func (c *CachedRepository) GetRestaurantPromotions(ctx context.Context, restaurantID int, onlyCurrent *bool, branchID *int) (*models.RestaurantPromotions, error) {
	key := cacheKey(restaurantID, onlyCurrent, branchID)

	if cached, err := c.cache.Get(ctx, key); err == nil {
		var promotions models.RestaurantPromotions
		if err := json.Unmarshal([]byte(cached), &promotions); err == nil {
			metrics.PromotionsCacheHits.WithLabelValues("hit").Inc()
			return &promotions, nil
		}
		// Poisoned entry, drop it and fall through
		_ = c.cache.Del(ctx, key)
	} else if err != redis.Nil {
		metrics.PromotionsCacheHits.WithLabelValues("error").Inc()
		c.log.WithError(err).Warn("promotions cache read failed", map[string]interface{}{
			"key": key,
		})
	}

	metrics.PromotionsCacheHits.WithLabelValues("miss").Inc()

	promotions, err := c.fetcher.GetRestaurantPromotions(ctx, restaurantID, onlyCurrent, branchID)
	if err != nil {
		return nil, err
	}
	if promotions == nil {
		return nil, nil
	}

	if encoded, err := json.Marshal(promotions); err == nil {
		if err := c.cache.Set(ctx, key, encoded, c.ttl); err != nil {
			c.log.WithError(err).Warn("promotions cache write failed", map[string]interface{}{
				"key": key,
			})
		}
	}

	return promotions, nil
}

func cacheKey(restaurantID int, onlyCurrent *bool, branchID *int) string {
	current := "any"
	if onlyCurrent != nil {
		current = fmt.Sprintf("%t", *onlyCurrent)
	}
	branch := "any"
	if branchID != nil {
		branch = fmt.Sprintf("%d", *branchID)
	}
	return fmt.Sprintf("promotions:%d:%s:%s", restaurantID, current, branch)
}
