package scraper

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheCache implements Cache on a memcached server.
type MemcacheCache struct {
	client *memcache.Client
}

// NewMemcacheCache creates a memcache-backed Cache.
func NewMemcacheCache(serverAddr string) *MemcacheCache {
	return &MemcacheCache{client: memcache.New(serverAddr)}
}

func (m *MemcacheCache) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (m *MemcacheCache) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}
