package services

import (
	"context"
	"encoding/json"
	"time"

	"ordering-service/models"
	"ordering-service/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const menuItemCachePrefix = "menu:item:"

// CatalogProvider resolves menu items for pricing.
type CatalogProvider interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error)
}

// MongoCatalogProvider serves items straight from the catalog database.
type MongoCatalogProvider struct {
	repo *repository.CatalogRepository
}

// NewMongoCatalogProvider creates a provider over the catalog repository.
func NewMongoCatalogProvider(repo *repository.CatalogRepository) *MongoCatalogProvider {
	return &MongoCatalogProvider{repo: repo}
}

func (p *MongoCatalogProvider) GetItem(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	return p.repo.FindByID(ctx, id)
}

// CachedCatalogProvider fronts another provider with Redis. Menu lookups run
// on every order line while menu edits are rare, so entries live under a
// short TTL instead of explicit invalidation.
type CachedCatalogProvider struct {
	inner  CatalogProvider
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCatalogProvider wraps inner with a Redis read-through cache.
func NewCachedCatalogProvider(inner CatalogProvider, redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedCatalogProvider {
	return &CachedCatalogProvider{
		inner:  inner,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

func (p *CachedCatalogProvider) GetItem(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	key := menuItemCachePrefix + id.String()

	if cached, err := p.redis.Get(ctx, key).Result(); err == nil {
		var item models.CatalogItem
		if err := json.Unmarshal([]byte(cached), &item); err == nil {
			return &item, nil
		}
		p.logger.Warn("Failed to unmarshal cached menu item", zap.String("key", key))
	}

	item, err := p.inner.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	p.setAsync(key, item)
	return item, nil
}

// setAsync caches a menu item without blocking the request path.
func (p *CachedCatalogProvider) setAsync(key string, item *models.CatalogItem) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data, err := json.Marshal(item)
		if err != nil {
			p.logger.Warn("Failed to marshal menu item for cache", zap.Error(err))
			return
		}

		if err := p.redis.Set(bgCtx, key, data, p.ttl).Err(); err != nil {
			p.logger.Warn("Failed to cache menu item", zap.String("key", key), zap.Error(err))
		}
	}()
}
