package blockchain

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// ResponseCache defines the component able to hold raw upstream payloads for a freshness window
type ResponseCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, payload []byte)
	IsInterfaceNil() bool
}

type ttlCache struct {
	inner *cache.Cache
}

// NewTTLCache creates an in-memory response cache where entries expire after the provided duration
func NewTTLCache(duration time.Duration) *ttlCache {
	return &ttlCache{
		inner: cache.New(duration, duration+time.Minute),
	}
}

// Get returns the stored payload for the key if a non-expired entry exists
func (tc *ttlCache) Get(key string) ([]byte, bool) {
	val, found := tc.inner.Get(key)
	if !found {
		return nil, false
	}

	payload, ok := val.([]byte)
	return payload, ok
}

// Set stores the payload under the key, overwriting any previous entry
func (tc *ttlCache) Set(key string, payload []byte) {
	tc.inner.Set(key, payload, cache.DefaultExpiration)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (tc *ttlCache) IsInterfaceNil() bool {
	return tc == nil
}
