// Package memcache is the in-process Cache used when no Redis address is
// configured. Values are stored as JSON so readers get a private copy, the
// same as with Redis.
package memcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"travel_wizard/internal/adapters/observability"
)

type entry struct {
	body      []byte
	expiresAt time.Time // zero means no expiry
}

type Cache struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

func New() *Cache {
	return &Cache{data: make(map[string]entry), now: time.Now}
}

func (c *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if ok && !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.data, key) // cleanup expired
		c.mu.Unlock()
		ok = false
	}
	if !ok {
		observability.ObserveCache("local", "miss")
		return false, nil
	}
	observability.ObserveCache("local", "hit")
	return true, json.Unmarshal(e.body, dst)
}

func (c *Cache) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e := entry{body: b}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.data[key] = e
	c.mu.Unlock()
	observability.ObserveCache("local", "set")
	return nil
}

func (c *Cache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	observability.ObserveCache("local", "del")
	return nil
}
