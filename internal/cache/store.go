// Package cache implements the two-tier get-or-compute store used by
// read-mostly lookups: a networked primary tier that is allowed to fail soft,
// and an in-process fallback tier with lazily expiring entries.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store is one cache tier. Implementations must be safe for concurrent use
// by independent runs.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Key builds a deterministic cache key from an operation identity and its
// serialized arguments. Two calls with identical operation and arguments hit
// the same entry, which makes the cache correct only for pure,
// argument-determined lookups.
func Key(op string, args ...any) string {
	if len(args) == 0 {
		return op + ":[]"
	}
	data, err := json.Marshal(args)
	if err != nil {
		// Arguments that cannot be serialized still need a stable key.
		return fmt.Sprintf("%s:%v", op, args)
	}
	return op + ":" + string(data)
}

const defaultMemoryStoreSize = 1024

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is the in-process fallback tier. Entries carry an absolute
// expiry instant and are treated as absent once it passes; expired entries
// are removed on access rather than by a background sweep.
type MemoryStore struct {
	entries *lru.Cache[string, memoryEntry]
}

// NewMemoryStore creates a fallback store holding at most maxEntries values.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryStoreSize
	}
	entries, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		// lru.New only fails on a non-positive size, which is guarded above.
		panic(err)
	}
	return &MemoryStore{entries: entries}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	entry, ok := m.entries.Get(key)
	if !ok {
		return "", false, nil
	}
	if time.Now().After(entry.expiresAt) {
		m.entries.Remove(key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.entries.Add(key, memoryEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

var _ Store = (*MemoryStore)(nil)
