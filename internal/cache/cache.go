// Package cache provides the TTL stores shared by the upstream clients.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache: key not found")

// Store is a typed key/value cache with per-entry TTL
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Observer receives hit and miss events of a named store
type Observer interface {
	CacheHit(name string)
	CacheMiss(name string)
}

// Observed reports hits and misses of a store to an observer
type Observed[V any] struct {
	Store[V]
	name     string
	observer Observer
}

// WithObserver wraps store; a nil observer returns store unchanged
func WithObserver[V any](store Store[V], name string, observer Observer) Store[V] {
	if observer == nil {
		return store
	}
	return &Observed[V]{Store: store, name: name, observer: observer}
}

// Get implements Store
func (o *Observed[V]) Get(ctx context.Context, key string) (V, error) {
	v, err := o.Store.Get(ctx, key)
	if err != nil {
		o.observer.CacheMiss(o.name)
		return v, err
	}
	o.observer.CacheHit(o.name)
	return v, nil
}
