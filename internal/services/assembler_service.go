// internal/services/assembler_service.go
package services

import (
	"time"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/errors"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/store"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/utils"
)

// AssemblerService packages a finished run into a Session and publishes it to
// the session store and the prompt history. Assembly is all-or-nothing: when
// the store rejects the session, history is not extended either.
type AssemblerService struct {
	sessions *store.BoundedSessionStore
	history  *store.PromptHistoryIndex

	// now is swappable for tests that need deterministic session IDs.
	now func() time.Time
}

// NewAssemblerService creates the assembler.
func NewAssemblerService(sessions *store.BoundedSessionStore, history *store.PromptHistoryIndex) *AssemblerService {
	return &AssemblerService{
		sessions: sessions,
		history:  history,
		now:      time.Now,
	}
}

// Assemble builds the Session record and commits it. Scenes still loading
// cannot occur after pipeline termination; they are filtered defensively.
// The returned session is valid even when the commit fails, so callers can
// keep showing in-memory results.
func (s *AssemblerService) Assemble(config models.GenerationConfig, scenes []models.Scene) (models.Session, error) {
	resolved := make([]models.Scene, 0, len(scenes))
	for _, scene := range scenes {
		if scene.Status == models.SceneStatusLoading || scene.Status == models.SceneStatusPending {
			continue
		}
		resolved = append(resolved, scene)
	}

	createdAt := s.now()
	session := models.Session{
		ID:        models.NewSessionID(createdAt),
		CreatedAt: createdAt,
		Script:    config.Script,
		Scenes:    resolved,
	}

	if err := s.sessions.Append(session); err != nil {
		if errors.IsStorageFull(err) {
			utils.GetLogger().Warn("session not persisted, storage full", map[string]interface{}{
				"session_id": session.ID,
			})
			return session, err
		}
		return session, err
	}

	if err := s.history.Record(session); err != nil {
		// The session itself is committed; a history failure is logged but
		// does not undo it.
		utils.GetLogger().Error("failed to record prompt history", map[string]interface{}{
			"session_id": session.ID,
			"err":        err,
		})
	}

	return session, nil
}
