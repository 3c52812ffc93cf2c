// internal/storage/file_backend.go
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileBackend stores each key as one file under a base directory and enforces
// a byte quota across all keys. Writes are atomic: the value goes to a
// temporary file first and is renamed over the real one, so a failed write
// never leaves a half-written value behind.
type FileBackend struct {
	baseDir    string
	quotaBytes int64

	mu    sync.Mutex
	sizes map[string]int64 // key -> stored size
}

// NewFileBackend opens (or creates) baseDir and indexes the sizes of existing
// keys so quota accounting survives a restart. quotaBytes <= 0 means no quota.
func NewFileBackend(baseDir string, quotaBytes int64) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	fb := &FileBackend{
		baseDir:    baseDir,
		quotaBytes: quotaBytes,
		sizes:      make(map[string]int64),
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		fb.sizes[entry.Name()] = info.Size()
	}

	return fb, nil
}

func (fb *FileBackend) path(key string) string {
	return filepath.Join(fb.baseDir, key)
}

func (fb *FileBackend) usedLocked(except string) int64 {
	var used int64
	for k, size := range fb.sizes {
		if k == except {
			continue
		}
		used += size
	}
	return used
}

// Put writes value under key. The quota is checked against the candidate
// total (all other keys plus the new value) before any bytes hit disk.
func (fb *FileBackend) Put(key string, value []byte) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if fb.quotaBytes > 0 && fb.usedLocked(key)+int64(len(value)) > fb.quotaBytes {
		return fmt.Errorf("put %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
	}

	fullPath := fb.path(key)
	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, value, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("commit file: %w", err)
	}

	fb.sizes[key] = int64(len(value))
	return nil
}

// Get returns the stored value for key.
func (fb *FileBackend) Get(key string) ([]byte, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	data, err := os.ReadFile(fb.path(key))
	if os.IsNotExist(err) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	return data, nil
}

// Delete removes key and releases its quota share.
func (fb *FileBackend) Delete(key string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	err := os.Remove(fb.path(key))
	if os.IsNotExist(err) {
		return ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	delete(fb.sizes, key)
	return nil
}

// Used reports the bytes currently counted against the quota.
func (fb *FileBackend) Used() int64 {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.usedLocked("")
}
