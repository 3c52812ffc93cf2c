// internal/services/workspace_service.go
package services

import (
	"encoding/json"
	"fmt"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/storage"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/utils"
)

const workspaceKey = "workspace.json"

// WorkspaceService persists the draft fields of an unfinished workspace so a
// reload can resume it. Drafts share the bounded backend with sessions and
// prompt history but are not part of either model.
type WorkspaceService struct {
	backend storage.Backend
}

// NewWorkspaceService creates the service over backend.
func NewWorkspaceService(backend storage.Backend) *WorkspaceService {
	return &WorkspaceService{backend: backend}
}

// SaveDraft stores the current draft. A quota failure is logged and dropped:
// losing a draft must never take the workspace down.
func (s *WorkspaceService) SaveDraft(draft models.WorkspaceDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("serialize workspace draft: %w", err)
	}

	if err := s.backend.Put(workspaceKey, data); err != nil {
		if storage.IsQuotaExceeded(err) {
			utils.GetLogger().Warn("workspace draft dropped, storage quota exhausted", nil)
			return nil
		}
		return err
	}
	return nil
}

// LoadDraft returns the saved draft, or an empty draft when none exists.
func (s *WorkspaceService) LoadDraft() (models.WorkspaceDraft, error) {
	var draft models.WorkspaceDraft

	data, err := s.backend.Get(workspaceKey)
	if err == storage.ErrKeyNotFound {
		return draft, nil
	}
	if err != nil {
		return draft, err
	}

	if err := json.Unmarshal(data, &draft); err != nil {
		return models.WorkspaceDraft{}, fmt.Errorf("parse workspace draft: %w", err)
	}
	return draft, nil
}

// ClearDraft removes the saved draft.
func (s *WorkspaceService) ClearDraft() error {
	err := s.backend.Delete(workspaceKey)
	if err == storage.ErrKeyNotFound {
		return nil
	}
	return err
}
