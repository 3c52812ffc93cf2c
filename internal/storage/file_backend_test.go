// internal/storage/file_backend_test.go
package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestBackend(t *testing.T, quota int64) *FileBackend {
	t.Helper()
	fb, err := NewFileBackend(t.TempDir(), quota)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	return fb
}

func TestFileBackendPutGetDelete(t *testing.T) {
	fb := newTestBackend(t, 0)

	if err := fb.Put("sessions.json", []byte(`[{"id":"s1"}]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := fb.Get("sessions.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte(`[{"id":"s1"}]`)) {
		t.Errorf("Get returned %q", got)
	}

	if err := fb.Delete("sessions.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := fb.Get("sessions.json"); err != ErrKeyNotFound {
		t.Errorf("Get after delete = %v, want ErrKeyNotFound", err)
	}
	if err := fb.Delete("sessions.json"); err != ErrKeyNotFound {
		t.Errorf("Delete of missing key = %v, want ErrKeyNotFound", err)
	}
}

func TestFileBackendQuota(t *testing.T) {
	fb := newTestBackend(t, 10)

	if err := fb.Put("a", []byte("12345")); err != nil {
		t.Fatalf("Put a: %v", err)
	}
	if err := fb.Put("b", []byte("123456")); !IsQuotaExceeded(err) {
		t.Errorf("Put over quota = %v, want quota error", err)
	}

	// The rejected write must not change anything.
	if _, err := fb.Get("b"); err != ErrKeyNotFound {
		t.Errorf("rejected key should not exist, got %v", err)
	}
	if used := fb.Used(); used != 5 {
		t.Errorf("Used = %d, want 5", used)
	}
}

func TestFileBackendOverwriteReleasesOldSize(t *testing.T) {
	fb := newTestBackend(t, 10)

	if err := fb.Put("a", []byte("123456789")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// 9 bytes stored; an 8-byte overwrite of the same key fits because the old
	// value's share is released.
	if err := fb.Put("a", []byte("12345678")); err != nil {
		t.Errorf("overwrite should fit: %v", err)
	}
	if used := fb.Used(); used != 8 {
		t.Errorf("Used = %d, want 8", used)
	}
}

func TestFileBackendReindexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	fb1, err := NewFileBackend(dir, 100)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	if err := fb1.Put("a", []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Stale temp files must not count against the quota.
	if err := os.WriteFile(filepath.Join(dir, "leftover.tmp"), []byte("junk"), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	fb2, err := NewFileBackend(dir, 100)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if used := fb2.Used(); used != 5 {
		t.Errorf("Used after reopen = %d, want 5", used)
	}
}

func TestFileBackendLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fb, err := NewFileBackend(dir, 0)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	if err := fb.Put("a", []byte("value")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestMemoryBackendQuotaMatchesFileBackend(t *testing.T) {
	mb := NewMemoryBackend(10)

	if err := mb.Put("a", []byte("12345")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := mb.Put("b", []byte("123456")); !IsQuotaExceeded(err) {
		t.Errorf("Put over quota = %v, want quota error", err)
	}
	if err := mb.Put("a", []byte("1234567890")); err != nil {
		t.Errorf("overwrite within quota failed: %v", err)
	}
	if used := mb.Used(); used != 10 {
		t.Errorf("Used = %d, want 10", used)
	}
}

func TestMemoryBackendCopiesValues(t *testing.T) {
	mb := NewMemoryBackend(0)

	original := []byte("abc")
	if err := mb.Put("k", original); err != nil {
		t.Fatalf("Put: %v", err)
	}
	original[0] = 'x'

	got, err := mb.Get("k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "abc" {
		t.Errorf("stored value was aliased: %q", got)
	}

	got[0] = 'y'
	again, _ := mb.Get("k")
	if string(again) != "abc" {
		t.Errorf("returned value was aliased: %q", again)
	}
}
