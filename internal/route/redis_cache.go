package route

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ongopool/internal/models"
)

// RedisGeocodeCache shares geocoding lookups across processes. Cache
// errors are swallowed: a miss is always safe, the chain just re-asks
// the remote service.
type RedisGeocodeCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisGeocodeCache(addr, password, prefix string, ttl time.Duration) *RedisGeocodeCache {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisGeocodeCache{client: c, prefix: prefix, ttl: ttl}
}

func (c *RedisGeocodeCache) key(address string) string { return c.prefix + ":" + address }

func (c *RedisGeocodeCache) Get(ctx context.Context, address string) (models.GeocodeResult, bool) {
	raw, err := c.client.Get(ctx, c.key(address)).Bytes()
	if err != nil {
		return models.GeocodeResult{}, false
	}
	var res models.GeocodeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return models.GeocodeResult{}, false
	}
	return res, true
}

func (c *RedisGeocodeCache) Set(ctx context.Context, address string, res models.GeocodeResult) {
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(address), b, c.ttl).Err()
}
