package cache

import (
	stderrors "errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if stderrors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time.
// Memcache counts in whole seconds and treats 0 as "never", so short TTLs round up.
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	seconds := int32(expiration.Seconds())
	if expiration > 0 && seconds == 0 {
		seconds = 1
	}
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: seconds,
	})
}

// Delete removes a value from memcache
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(key)
	if stderrors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
