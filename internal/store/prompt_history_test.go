// internal/store/prompt_history_test.go
package store

import (
	"testing"
	"time"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/storage"
)

func newTestHistory(t *testing.T) (*PromptHistoryIndex, *BoundedSessionStore) {
	t.Helper()
	backend := storage.NewMemoryBackend(0)
	sessions := NewBoundedSessionStore(backend)
	return NewPromptHistoryIndex(backend, sessions), sessions
}

func sessionAt(id string, created time.Time, scenes ...models.Scene) models.Session {
	return models.Session{ID: id, CreatedAt: created, Script: "script", Scenes: scenes}
}

func TestRecordSkipsEmptyPrompts(t *testing.T) {
	history, _ := newTestHistory(t)

	session := sessionAt("s1", time.Now(),
		models.Scene{ID: 0, Prompt: "a castle at dawn", Status: models.SceneStatusSucceeded},
		models.Scene{ID: 1, Prompt: "", Status: models.SceneStatusFailed},
		models.Scene{ID: 2, Prompt: "a dragon in flight", Status: models.SceneStatusFailed},
	)
	if err := history.Record(session); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := history.Search("")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2 (empty prompt skipped)", len(entries))
	}
}

func TestRecordIncludesFailedScenes(t *testing.T) {
	history, _ := newTestHistory(t)

	session := sessionAt("s1", time.Now(),
		models.Scene{ID: 0, Prompt: "a failed prompt", Status: models.SceneStatusFailed,
			Error: &models.SceneError{Kind: "transient", Message: "boom"}},
	)
	if err := history.Record(session); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, _ := history.Search("failed prompt")
	if len(entries) != 1 {
		t.Fatalf("failed scene's prompt should still be recorded, got %d entries", len(entries))
	}
	if entries[0].ID != "s1-0" {
		t.Errorf("entry ID = %q, want s1-0", entries[0].ID)
	}
}

func TestSearchCaseInsensitiveNewestFirst(t *testing.T) {
	history, _ := newTestHistory(t)

	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	if err := history.Record(sessionAt("s1", older,
		models.Scene{ID: 0, Prompt: "A Quiet Forest", Status: models.SceneStatusSucceeded},
		models.Scene{ID: 1, Prompt: "city street", Status: models.SceneStatusSucceeded},
	)); err != nil {
		t.Fatalf("Record s1: %v", err)
	}
	if err := history.Record(sessionAt("s2", newer,
		models.Scene{ID: 0, Prompt: "the quiet harbor", Status: models.SceneStatusSucceeded},
	)); err != nil {
		t.Fatalf("Record s2: %v", err)
	}

	entries, err := history.Search("QUIET")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Text != "the quiet harbor" || entries[1].Text != "A Quiet Forest" {
		t.Errorf("order wrong: %q then %q", entries[0].Text, entries[1].Text)
	}
}

func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	history, _ := newTestHistory(t)

	if err := history.Record(sessionAt("s1", time.Now(),
		models.Scene{ID: 0, Prompt: "one", Status: models.SceneStatusSucceeded},
		models.Scene{ID: 1, Prompt: "two", Status: models.SceneStatusSucceeded},
	)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, _ := history.Search("")
	if len(entries) != 2 {
		t.Errorf("empty query should match everything, got %d", len(entries))
	}
}

func TestImageForFirstWriteWins(t *testing.T) {
	history, sessions := newTestHistory(t)

	first := &models.ImageRef{MIMEType: "image/png", Data: []byte("first")}
	second := &models.ImageRef{MIMEType: "image/png", Data: []byte("second")}

	if err := sessions.Append(sessionAt("s1", time.Now(),
		models.Scene{ID: 0, Prompt: "a red door", Image: first, Status: models.SceneStatusSucceeded},
	)); err != nil {
		t.Fatalf("Append s1: %v", err)
	}
	if err := sessions.Append(sessionAt("s2", time.Now(),
		models.Scene{ID: 0, Prompt: "a red door", Image: second, Status: models.SceneStatusSucceeded},
	)); err != nil {
		t.Fatalf("Append s2: %v", err)
	}

	image, err := history.ImageFor("a red door")
	if err != nil {
		t.Fatalf("ImageFor: %v", err)
	}
	if image == nil || string(image.Data) != "first" {
		t.Errorf("ImageFor should return the earliest stored image, got %v", image)
	}
}

func TestImageForSkipsImagelessMatches(t *testing.T) {
	history, sessions := newTestHistory(t)

	withImage := &models.ImageRef{MIMEType: "image/png", Data: []byte("later")}

	if err := sessions.Append(sessionAt("s1", time.Now(),
		models.Scene{ID: 0, Prompt: "a blue boat", Status: models.SceneStatusFailed},
	)); err != nil {
		t.Fatalf("Append s1: %v", err)
	}
	if err := sessions.Append(sessionAt("s2", time.Now(),
		models.Scene{ID: 0, Prompt: "a blue boat", Image: withImage, Status: models.SceneStatusSucceeded},
	)); err != nil {
		t.Fatalf("Append s2: %v", err)
	}

	image, err := history.ImageFor("a blue boat")
	if err != nil {
		t.Fatalf("ImageFor: %v", err)
	}
	if image == nil || string(image.Data) != "later" {
		t.Errorf("imageless earlier match should be skipped, got %v", image)
	}
}

func TestImageForExactMatchOnly(t *testing.T) {
	history, sessions := newTestHistory(t)

	if err := sessions.Append(sessionAt("s1", time.Now(),
		models.Scene{ID: 0, Prompt: "a tall tower", Image: &models.ImageRef{Data: []byte("x")},
			Status: models.SceneStatusSucceeded},
	)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	image, err := history.ImageFor("a tall")
	if err != nil {
		t.Fatalf("ImageFor: %v", err)
	}
	if image != nil {
		t.Error("prefix match should not count, lookup is exact")
	}
}

func TestImageForNoMatch(t *testing.T) {
	history, _ := newTestHistory(t)

	image, err := history.ImageFor("never generated")
	if err != nil {
		t.Fatalf("ImageFor: %v", err)
	}
	if image != nil {
		t.Errorf("want nil image for unknown prompt, got %v", image)
	}
}
