// internal/storage/memory_backend.go
package storage

import (
	"fmt"
	"sync"
)

// MemoryBackend is a map-backed Backend with the same quota semantics as
// FileBackend. It exists so store logic can be exercised without touching
// disk.
type MemoryBackend struct {
	mu         sync.Mutex
	quotaBytes int64
	values     map[string][]byte
}

// NewMemoryBackend creates an in-memory backend. quotaBytes <= 0 disables the
// quota.
func NewMemoryBackend(quotaBytes int64) *MemoryBackend {
	return &MemoryBackend{
		quotaBytes: quotaBytes,
		values:     make(map[string][]byte),
	}
}

func (mb *MemoryBackend) usedLocked(except string) int64 {
	var used int64
	for k, v := range mb.values {
		if k == except {
			continue
		}
		used += int64(len(v))
	}
	return used
}

func (mb *MemoryBackend) Put(key string, value []byte) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.quotaBytes > 0 && mb.usedLocked(key)+int64(len(value)) > mb.quotaBytes {
		return fmt.Errorf("put %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	mb.values[key] = stored
	return nil
}

func (mb *MemoryBackend) Get(key string) ([]byte, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	value, ok := mb.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (mb *MemoryBackend) Delete(key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, ok := mb.values[key]; !ok {
		return ErrKeyNotFound
	}
	delete(mb.values, key)
	return nil
}

// SetQuota adjusts the quota at runtime. Used by tests to shrink capacity
// under existing data.
func (mb *MemoryBackend) SetQuota(quotaBytes int64) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.quotaBytes = quotaBytes
}

// Used reports the bytes currently counted against the quota.
func (mb *MemoryBackend) Used() int64 {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.usedLocked("")
}
