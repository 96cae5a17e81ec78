// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cache provides a typed LRU with load-through access, backed
// by golang-lru.
package cache

import lru "github.com/hashicorp/golang-lru"

// LRU is a typed LRU cache.
type LRU[K comparable, V any] struct {
	inner *lru.Cache
}

// NewLRU creates an LRU cache holding up to maxSize entries.
// maxSize should be > 0, or an error is returned.
func NewLRU[K comparable, V any](maxSize int) (*LRU[K, V], error) {
	inner, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{inner: inner}, nil
}

// Get returns the cached value for key.
func (l *LRU[K, V]) Get(key K) (V, bool) {
	if v, ok := l.inner.Get(key); ok {
		return v.(V), true
	}
	var zero V
	return zero, false
}

// Add caches value under key.
func (l *LRU[K, V]) Add(key K, value V) {
	l.inner.Add(key, value)
}

// Contains reports whether key is cached.
func (l *LRU[K, V]) Contains(key K) bool {
	return l.inner.Contains(key)
}

// GetOrLoad first tries to get from the cache, and loads if missed.
// Load errors are not cached.
func (l *LRU[K, V]) GetOrLoad(key K, load func(K) (V, error)) (V, error) {
	if v, ok := l.inner.Get(key); ok {
		return v.(V), nil
	}
	v, err := load(key)
	if err != nil {
		var zero V
		return zero, err
	}
	l.inner.Add(key, v)
	return v, nil
}
