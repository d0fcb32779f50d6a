package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/vmihailenco/go-tinylfu"

	"github.com/dvd-rw/dvdrw/o11y"
)

// Cached is a Store that keeps frequently read cassettes in memory. Writes go through to
// the underlying store and replace the cached copy.
type Cached struct {
	store Store
	size  int

	mu    sync.Mutex
	cache *tinylfu.T
}

// NewCached wraps store with a TinyLFU cache holding up to size cassettes.
func NewCached(store Store, size int) (*Cached, error) {
	if size < 1 {
		return nil, errors.New("cache size must be positive")
	}
	return &Cached{store: store, size: size, cache: newLFU(size)}, nil
}

func (c *Cached) Get(ctx context.Context, location string) ([]byte, error) {
	if data, ok := c.get(location); ok {
		o11y.AddField(ctx, "cache_hit", 1)
		return data, nil
	}
	o11y.AddField(ctx, "cache_hit", 0)

	data, err := c.store.Get(ctx, location)
	if err != nil {
		return nil, err
	}
	c.add(location, data)
	return data, nil
}

func (c *Cached) Put(ctx context.Context, location string, data []byte) error {
	c.del(location)
	if err := c.store.Put(ctx, location, data); err != nil {
		return err
	}
	c.add(location, data)
	return nil
}

// Purge drops every cached cassette.
func (c *Cached) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = newLFU(c.size)
}

func (c *Cached) get(location string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache.Get(location)
	if !ok {
		return nil, false
	}
	return copyBytes(v.([]byte)), true
}

// add replaces any cached copy, the cache keeps the first value set for a key.
func (c *Cached) add(location string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Del(location)
	c.cache.Set(&tinylfu.Item{
		Key:   location,
		Value: copyBytes(data),
	})
}

func (c *Cached) del(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Del(location)
}

func newLFU(size int) *tinylfu.T {
	return tinylfu.New(size, 100000)
}

func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
