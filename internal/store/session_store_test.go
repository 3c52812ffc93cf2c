// internal/store/session_store_test.go
package store

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/errors"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/storage"
)

func testSession(id string, script string) models.Session {
	return models.Session{
		ID:        id,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Script:    script,
		Scenes: []models.Scene{
			{ID: 0, Prompt: "prompt for " + id, Status: models.SceneStatusSucceeded},
		},
	}
}

func quotaProbe(limit int) CapacityProbe {
	return func(serialized []byte) error {
		if len(serialized) > limit {
			return fmt.Errorf("probe %d bytes: %w", len(serialized), storage.ErrQuotaExceeded)
		}
		return nil
	}
}

func TestAppendAndList(t *testing.T) {
	store := NewBoundedSessionStore(storage.NewMemoryBackend(0))

	for _, id := range []string{"s1", "s2", "s3"} {
		if err := store.Append(testSession(id, "script")); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("len = %d, want 3", len(sessions))
	}
	for i, want := range []string{"s1", "s2", "s3"} {
		if sessions[i].ID != want {
			t.Errorf("sessions[%d].ID = %s, want %s", i, sessions[i].ID, want)
		}
	}
}

func TestListEmptyStore(t *testing.T) {
	store := NewBoundedSessionStore(storage.NewMemoryBackend(0))

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("len = %d, want 0", len(sessions))
	}
}

func TestAppendEvictsOldestFirst(t *testing.T) {
	backend := storage.NewMemoryBackend(0)

	// Each serialized session is a few hundred bytes; a limit that holds two
	// forces the oldest out when the third arrives.
	var twoSize int
	probe := func(serialized []byte) error {
		if twoSize > 0 && len(serialized) > twoSize {
			return fmt.Errorf("probe: %w", storage.ErrQuotaExceeded)
		}
		return nil
	}
	store := NewBoundedSessionStore(backend, WithCapacityProbe(probe))

	// Identical payload sizes keep the arithmetic exact: two sessions fit, a
	// third does not.
	if err := store.Append(testSession("s1", "script")); err != nil {
		t.Fatalf("Append s1: %v", err)
	}
	if err := store.Append(testSession("s2", "script")); err != nil {
		t.Fatalf("Append s2: %v", err)
	}

	data, err := backend.Get("sessions.json")
	if err != nil {
		t.Fatalf("Get committed value: %v", err)
	}
	twoSize = len(data)

	if err := store.Append(testSession("s3", "script")); err != nil {
		t.Fatalf("Append s3: %v", err)
	}

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	if strings.Join(ids, ",") != "s2,s3" {
		t.Errorf("after eviction ids = %v, want [s2 s3]", ids)
	}
}

func TestAppendEvictsRepeatedlyForLargeSession(t *testing.T) {
	store := NewBoundedSessionStore(storage.NewMemoryBackend(0), WithCapacityProbe(quotaProbe(900)))

	for _, id := range []string{"s1", "s2", "s3"} {
		if err := store.Append(testSession(id, "small")); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}

	// Large enough that several predecessors must go.
	big := testSession("big", strings.Repeat("x", 600))
	if err := store.Append(big); err != nil {
		t.Fatalf("Append big: %v", err)
	}

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if sessions[len(sessions)-1].ID != "big" {
		t.Errorf("newest session missing, got %v", sessions)
	}
	for _, s := range sessions[:len(sessions)-1] {
		if s.ID == "s1" {
			t.Error("s1 should have been evicted before s2")
		}
	}
}

func TestAppendFailsWhenSingleSessionTooLarge(t *testing.T) {
	backend := storage.NewMemoryBackend(0)
	store := NewBoundedSessionStore(backend, WithCapacityProbe(quotaProbe(50)))

	err := store.Append(testSession("huge", strings.Repeat("y", 500)))
	if !errors.IsStorageFull(err) {
		t.Fatalf("Append = %v, want storage-full error", err)
	}

	// The committed key must be untouched.
	if _, err := backend.Get("sessions.json"); err != storage.ErrKeyNotFound {
		t.Errorf("sessions.json should not exist after failed append, got %v", err)
	}
}

func TestFailedAppendPreservesExistingSessions(t *testing.T) {
	limit := 2000
	probe := quotaProbe(limit)
	store := NewBoundedSessionStore(storage.NewMemoryBackend(0), WithCapacityProbe(probe))

	if err := store.Append(testSession("s1", "keep me")); err != nil {
		t.Fatalf("Append s1: %v", err)
	}

	// A session too large to ever fit must not disturb s1, even though the
	// eviction loop considered dropping it.
	err := store.Append(testSession("huge", strings.Repeat("z", 3000)))
	if !errors.IsStorageFull(err) {
		t.Fatalf("Append huge = %v, want storage-full error", err)
	}

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Errorf("store changed by failed append: %v", sessions)
	}
}

func TestNonQuotaProbeFailureAborts(t *testing.T) {
	probeErr := fmt.Errorf("backend unavailable")
	store := NewBoundedSessionStore(storage.NewMemoryBackend(0), WithCapacityProbe(func([]byte) error {
		return probeErr
	}))

	err := store.Append(testSession("s1", "script"))
	if err == nil {
		t.Fatal("Append should fail when the probe errors")
	}
	if !errors.IsStorageFull(err) {
		t.Errorf("probe failure should surface as storage error, got %v", err)
	}
}

func TestProbeViaBackendLeavesNoResidue(t *testing.T) {
	backend := storage.NewMemoryBackend(0)
	store := NewBoundedSessionStore(backend)

	if err := store.Append(testSession("s1", "script")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := backend.Get("sessions.probe"); err != storage.ErrKeyNotFound {
		t.Errorf("probe key should be removed after append, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	store := NewBoundedSessionStore(storage.NewMemoryBackend(0))

	for _, id := range []string{"s1", "s2"} {
		if err := store.Append(testSession(id, "script")); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}

	if err := store.Remove("s1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	sessions, _ := store.List()
	if len(sessions) != 1 || sessions[0].ID != "s2" {
		t.Errorf("after remove: %v", sessions)
	}

	// Unknown IDs are a no-op, not an error.
	if err := store.Remove("missing"); err != nil {
		t.Errorf("Remove unknown = %v, want nil", err)
	}
	sessions, _ = store.List()
	if len(sessions) != 1 {
		t.Errorf("no-op remove changed the store: %v", sessions)
	}
}
