package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	exp time.Time
}

// MemoryStore is a process-local Store. A zero TTL never expires.
type MemoryStore[V any] struct {
	mu  sync.RWMutex
	m   map[string]entry[V]
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore[V any]() *MemoryStore[V] {
	return &MemoryStore[V]{m: make(map[string]entry[V]), now: time.Now}
}

// Get implements Store
func (c *MemoryStore[V]) Get(_ context.Context, key string) (V, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, ErrMiss
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return zero, ErrMiss
	}
	return e.v, nil
}

// Set implements Store
func (c *MemoryStore[V]) Set(_ context.Context, key string, v V, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = entry[V]{v: v, exp: exp}
	c.mu.Unlock()
	return nil
}

// Clear implements Store
func (c *MemoryStore[V]) Clear(_ context.Context) error {
	c.mu.Lock()
	c.m = make(map[string]entry[V])
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included
func (c *MemoryStore[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
