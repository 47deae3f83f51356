package storage

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/example/ongopool/internal/models"
)

// RedisListingCache implements SnapshotStore over a Redis hash keyed by
// listing id. The consumer keeps it fresh from the listing-events
// topic; search reads it when the primary store is unavailable.
type RedisListingCache struct {
	client *redis.Client
	key    string
}

func NewRedisListingCache(addr, password, key string) *RedisListingCache {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisListingCache{client: c, key: key}
}

// NewRedisListingCacheFromClient wires an existing client, used by the
// consumer which shares one connection across adapters.
func NewRedisListingCacheFromClient(client *redis.Client, key string) *RedisListingCache {
	return &RedisListingCache{client: client, key: key}
}

func (r *RedisListingCache) UpsertListing(ctx context.Context, rec models.ListingRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.key, rec.ID, b).Err()
}

func (r *RedisListingCache) CachedListings(ctx context.Context) ([]models.ListingRecord, error) {
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.ListingRecord, 0, len(raw))
	for _, v := range raw {
		var rec models.ListingRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			// One corrupt entry must not poison the fallback path.
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
