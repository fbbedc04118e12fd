// Package cache provides the in-process TTL cache used by the outbound
// proxy and the pooled Redis client factory.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is a mutex-guarded in-process cache with per-entry expiry. It is
// safe for use from multiple request-handling goroutines.
type Memory struct {
	mu    sync.RWMutex
	items map[string]entry
}

// NewMemory creates a memory cache and starts a background sweep that
// drops expired entries every minute.
func NewMemory() *Memory {
	m := &Memory{items: make(map[string]entry)}
	go m.sweep()
	return m
}

// Get returns the cached value, or ok=false when absent or expired.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores a value that expires after ttl.
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	m.mu.Lock()
	m.items[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

// Delete removes a key.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included until the
// next sweep.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		m.mu.Lock()
		for k, e := range m.items {
			if now.After(e.expiresAt) {
				delete(m.items, k)
			}
		}
		m.mu.Unlock()
	}
}
