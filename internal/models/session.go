// internal/models/session.go
package models

import (
	"fmt"
	"time"
)

// Session is one completed generation run: the source script plus its resolved
// scenes, persisted as a unit. Sessions are immutable once assembled except for
// whole-session deletion. Storage order equals creation order, which is also
// the eviction order.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Script    string    `json:"script"`
	Scenes    []Scene   `json:"scenes"`
}

// NewSessionID derives a session identifier from a creation instant.
func NewSessionID(t time.Time) string {
	return fmt.Sprintf("session_%d", t.UnixNano())
}

// PromptEntry is one append-only prompt history record derived from a scene of
// a committed session. Entries are never mutated.
type PromptEntry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PromptEntryID builds the unique entry identifier from the owning session and
// scene.
func PromptEntryID(sessionID string, sceneID int) string {
	return fmt.Sprintf("%s-%d", sessionID, sceneID)
}
