package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"eventboard-api/domain"
)

type backend interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	InsertEvent(ctx context.Context, draft domain.Draft, ownerID string) (domain.Event, error)
	ReplaceEvent(ctx context.Context, id string, fields domain.Fields) error
	DeleteEvent(ctx context.Context, id string) error
	PublishChange(ctx context.Context, ch domain.Change) error
}

// Cache wraps a Store instance with a Redis-backed cache for the event
// list. Every mutation goes to the backing store first and then evicts,
// so readers never observe a mutation before the store has it.
type Cache struct {
	*Store
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Store wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Store); ok {
		c.Store = s
	}
	return c
}

func (c *Cache) ListEvents(ctx context.Context) ([]domain.Event, error) {
	if events, ok := c.loadListFromCache(ctx); ok {
		return events, nil
	}

	events, err := c.base.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	c.storeList(ctx, events)
	return events, nil
}

func (c *Cache) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return c.base.GetEvent(ctx, id)
}

func (c *Cache) InsertEvent(ctx context.Context, draft domain.Draft, ownerID string) (domain.Event, error) {
	ev, err := c.base.InsertEvent(ctx, draft, ownerID)
	if err != nil {
		return domain.Event{}, err
	}
	c.evict(ctx)
	return ev, nil
}

func (c *Cache) ReplaceEvent(ctx context.Context, id string, fields domain.Fields) error {
	if err := c.base.ReplaceEvent(ctx, id, fields); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) DeleteEvent(ctx context.Context, id string) error {
	if err := c.base.DeleteEvent(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) PublishChange(ctx context.Context, ch domain.Change) error {
	return c.base.PublishChange(ctx, ch)
}

func (c *Cache) loadListFromCache(ctx context.Context) ([]domain.Event, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, listCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, listCacheKey).Err()
		}
		return nil, false
	}
	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		_ = c.redis.Del(ctx, listCacheKey).Err()
		return nil, false
	}
	return events, true
}

func (c *Cache) storeList(ctx context.Context, events []domain.Event) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(events)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, listCacheKey, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, listCacheKey).Result()
}

const listCacheKey = "events:list"
