// Package cache stores buffered HTTP responses for the fluent client.
//
// Entries are keyed by a caller-supplied string and expire after a TTL.
// Expired entries are dropped lazily on lookup.
package cache

import (
	"hash/fnv"
	"net/http"
	"sync"
	"time"
)

// Entry is a buffered response.
type Entry struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	ExpiresAt  time.Time
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Store is the storage used for cached responses. Implementations must be
// safe for concurrent use.
type Store interface {
	Get(key string) (*Entry, bool)
	Set(key string, entry *Entry, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
}

const defaultShards = 16

// Memory is a sharded in-memory Store.
type Memory struct {
	shards []*shard
	now    func() time.Time
}

type shard struct {
	mu    sync.RWMutex
	store map[string]*Entry
}

// NewMemory creates an in-memory store with the given number of shards.
// Non-positive values use 16 shards.
func NewMemory(shards int) *Memory {
	if shards <= 0 {
		shards = defaultShards
	}
	m := &Memory{
		shards: make([]*shard, shards),
		now:    time.Now,
	}
	for i := range m.shards {
		m.shards[i] = &shard{store: make(map[string]*Entry)}
	}
	return m
}

func (m *Memory) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

// Get returns a live entry for key.
func (m *Memory) Get(key string) (*Entry, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	entry, ok := s.store[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if entry.Expired(m.now()) {
		s.mu.Lock()
		if current, ok := s.store[key]; ok && current == entry {
			delete(s.store, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return entry, true
}

// Set stores entry under key for ttl.
func (m *Memory) Set(key string, entry *Entry, ttl time.Duration) {
	if entry == nil {
		return
	}
	stored := *entry
	stored.ExpiresAt = m.now().Add(ttl)

	s := m.shardFor(key)
	s.mu.Lock()
	s.store[key] = &stored
	s.mu.Unlock()
}

// Delete removes key.
func (m *Memory) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.store, key)
	s.mu.Unlock()
}

// Clear removes every entry.
func (m *Memory) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.store = make(map[string]*Entry)
		s.mu.Unlock()
	}
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (m *Memory) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.store)
		s.mu.RUnlock()
	}
	return n
}
