// internal/store/prompt_history.go
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/storage"
)

const promptHistoryKey = "prompt_history.json"

// PromptHistoryIndex is the append-only log of prompts derived from committed
// sessions. Entries are never mutated; they only disappear when capacity
// pressure drops the owning session's derived entries.
type PromptHistoryIndex struct {
	backend  storage.Backend
	sessions *BoundedSessionStore

	mu sync.Mutex
}

// NewPromptHistoryIndex creates an index over backend. sessions is scanned by
// ImageFor to cross-reference prompts to example images.
func NewPromptHistoryIndex(backend storage.Backend, sessions *BoundedSessionStore) *PromptHistoryIndex {
	return &PromptHistoryIndex{backend: backend, sessions: sessions}
}

// Record appends one PromptEntry per scene of session that carries a
// non-empty prompt, regardless of whether that scene succeeded.
func (idx *PromptHistoryIndex) Record(session models.Session) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries, err := idx.load()
	if err != nil {
		return err
	}

	for _, scene := range session.Scenes {
		if scene.Prompt == "" {
			continue
		}
		entries = append(entries, models.PromptEntry{
			ID:        models.PromptEntryID(session.ID, scene.ID),
			Text:      scene.Prompt,
			Timestamp: session.CreatedAt,
		})
	}

	serialized, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("serialize prompt history: %w", err)
	}
	return idx.backend.Put(promptHistoryKey, serialized)
}

// Search returns entries whose text contains substring, case-insensitively,
// sorted newest first.
func (idx *PromptHistoryIndex) Search(substring string) ([]models.PromptEntry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries, err := idx.load()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(substring)
	matched := make([]models.PromptEntry, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Text), needle) {
			matched = append(matched, entry)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return matched, nil
}

// ImageFor scans all stored sessions in store order and returns the image of
// the first scene whose prompt equals promptText and which has a non-nil
// image. First write wins: later sessions never shadow an earlier match.
func (idx *PromptHistoryIndex) ImageFor(promptText string) (*models.ImageRef, error) {
	sessions, err := idx.sessions.List()
	if err != nil {
		return nil, err
	}

	for _, session := range sessions {
		for _, scene := range session.Scenes {
			if scene.Prompt == promptText && scene.Image != nil {
				return scene.Image, nil
			}
		}
	}
	return nil, nil
}

func (idx *PromptHistoryIndex) load() ([]models.PromptEntry, error) {
	data, err := idx.backend.Get(promptHistoryKey)
	if err == storage.ErrKeyNotFound {
		return []models.PromptEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []models.PromptEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse prompt history: %w", err)
	}
	return entries, nil
}
