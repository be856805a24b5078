package common

import (
	"time"

	"github.com/patrickmn/go-cache"
)

type Cache struct {
	*cache.Cache
}

func NewCache(expirationTime, cleanupTime time.Duration) *Cache {
	return &Cache{cache.New(expirationTime, cleanupTime)}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.Cache.Get(key)
}

// Add stores value only when key is absent. It returns false when another caller stored the key first.
func (c *Cache) Add(key string, value interface{}) bool {
	return c.Cache.Add(key, value, cache.DefaultExpiration) == nil
}

func CacheKeyLimiter(scope, ip string) string {
	return "limiter:" + scope + ":" + ip
}
