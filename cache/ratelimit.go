package cache

import (
	"fmt"

	"auralis/core/ratelimit"

	"github.com/go-redis/redis/v8"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRateLimitStore Redis 固定窗口计数，多实例共享限流额度
func NewRateLimitStore(client *redis.Client) (ratelimit.Store, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: ratelimit.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis rate limit store: %w", err)
	}
	return store, nil
}
