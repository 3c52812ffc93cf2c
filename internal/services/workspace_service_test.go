// internal/services/workspace_service_test.go
package services

import (
	"testing"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/storage"
)

func TestWorkspaceDraftRoundTrip(t *testing.T) {
	ws := NewWorkspaceService(storage.NewMemoryBackend(0))

	hint := 4
	draft := models.WorkspaceDraft{
		Script:         "a story",
		StyleKeywords:  "oil painting",
		AspectRatio:    models.AspectTall,
		SceneCountHint: &hint,
		Scenes: []models.Scene{
			{ID: 0, Prompt: "p1", Status: models.SceneStatusSucceeded},
		},
	}
	if err := ws.SaveDraft(draft); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	loaded, err := ws.LoadDraft()
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	if loaded.Script != draft.Script || loaded.StyleKeywords != draft.StyleKeywords {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.SceneCountHint == nil || *loaded.SceneCountHint != 4 {
		t.Errorf("SceneCountHint = %v", loaded.SceneCountHint)
	}
	if len(loaded.Scenes) != 1 || loaded.Scenes[0].Prompt != "p1" {
		t.Errorf("Scenes = %+v", loaded.Scenes)
	}
}

func TestWorkspaceLoadWithoutDraft(t *testing.T) {
	ws := NewWorkspaceService(storage.NewMemoryBackend(0))

	draft, err := ws.LoadDraft()
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	if draft.Script != "" || len(draft.Scenes) != 0 {
		t.Errorf("expected empty draft, got %+v", draft)
	}
}

func TestWorkspaceClearDraft(t *testing.T) {
	ws := NewWorkspaceService(storage.NewMemoryBackend(0))

	if err := ws.SaveDraft(models.WorkspaceDraft{Script: "x"}); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if err := ws.ClearDraft(); err != nil {
		t.Fatalf("ClearDraft: %v", err)
	}
	draft, _ := ws.LoadDraft()
	if draft.Script != "" {
		t.Error("draft should be gone after clear")
	}

	// Clearing again is a no-op.
	if err := ws.ClearDraft(); err != nil {
		t.Errorf("second ClearDraft = %v, want nil", err)
	}
}

func TestWorkspaceSaveDropsOnQuotaFailure(t *testing.T) {
	backend := storage.NewMemoryBackend(8)
	ws := NewWorkspaceService(backend)

	draft := models.WorkspaceDraft{Script: "a draft far larger than eight bytes"}
	if err := ws.SaveDraft(draft); err != nil {
		t.Errorf("quota failure should be swallowed, got %v", err)
	}

	loaded, _ := ws.LoadDraft()
	if loaded.Script != "" {
		t.Error("oversized draft should not have been stored")
	}
}
