// internal/api/handlers.go
package api

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/asimrafique2000-rgb/bulk-generations/internal/errors"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/services"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/store"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/utils"
)

// Handler bundles the services the HTTP layer exposes.
type Handler struct {
	Pipeline  *services.PipelineService
	Progress  *services.ProgressService
	Workspace *services.WorkspaceService
	Sessions  *store.BoundedSessionStore
	History   *store.PromptHistoryIndex

	response *ResponseHelper
	logger   *utils.Logger
}

// NewHandler creates the API handler.
func NewHandler(
	pipeline *services.PipelineService,
	progress *services.ProgressService,
	workspace *services.WorkspaceService,
	sessions *store.BoundedSessionStore,
	history *store.PromptHistoryIndex,
) *Handler {
	return &Handler{
		Pipeline:  pipeline,
		Progress:  progress,
		Workspace: workspace,
		Sessions:  sessions,
		History:   history,
		response:  NewResponseHelper(),
		logger:    utils.GetLogger(),
	}
}

// GenerateRequest is the POST /api/generate body. Image data is base64 in
// transit, which encoding/json handles for []byte.
type GenerateRequest struct {
	Script         string `json:"script"`
	StyleKeywords  string `json:"style_keywords"`
	AspectRatio    string `json:"aspect_ratio"`
	SceneCount     *int   `json:"scene_count,omitempty"`
	ReferenceImage *struct {
		MIMEType string `json:"mime_type"`
		Data     []byte `json:"data"`
	} `json:"reference_image,omitempty"`
}

// Generate runs the full script-to-scenes pipeline. The call is synchronous;
// clients that want live per-scene updates subscribe on /ws before posting.
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "Invalid request body", err.Error())
		return
	}

	config := models.GenerationConfig{
		Script:           req.Script,
		StyleKeywords:    req.StyleKeywords,
		AspectRatio:      models.AspectRatio(req.AspectRatio),
		TargetSceneCount: req.SceneCount,
	}
	if req.ReferenceImage != nil {
		config.ReferenceImage = &models.ImageRef{
			MIMEType: req.ReferenceImage.MIMEType,
			Data:     req.ReferenceImage.Data,
		}
	}
	if err := config.Validate(); err != nil {
		h.response.BadRequest(c, "Invalid generation config", err.Error())
		return
	}

	result, err := h.Pipeline.Run(c.Request.Context(), config)
	if err != nil {
		h.renderGenError(c, err)
		return
	}
	h.response.Success(c, result)
}

// RegenerateScene re-resolves a single scene of the current workspace.
func (h *Handler) RegenerateScene(c *gin.Context) {
	sceneID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.response.BadRequest(c, "Scene ID must be an integer")
		return
	}

	scene, err := h.Pipeline.Regenerate(c.Request.Context(), sceneID)
	if err != nil {
		var genErr *apperrors.GenError
		if stderrors.As(err, &genErr) {
			// Superseded by a clear or a newer run; nothing to report back.
			h.response.Error(c, http.StatusConflict, "SUPERSEDED", "The workspace changed while regenerating", err.Error())
			return
		}
		h.response.NotFound(c, "Scene not found", err.Error())
		return
	}
	h.response.Success(c, scene)
}

// ClearWorkspace resets the workspace; in-flight completions are discarded.
func (h *Handler) ClearWorkspace(c *gin.Context) {
	h.Pipeline.Clear()
	h.response.Success(c, nil, "Workspace cleared")
}

// GetWorkspace returns current pipeline state plus scenes and the saved draft.
func (h *Handler) GetWorkspace(c *gin.Context) {
	draft, err := h.Workspace.LoadDraft()
	if err != nil {
		h.logger.Warn("failed to load workspace draft", map[string]interface{}{"err": err})
	}

	h.response.Success(c, gin.H{
		"state":  h.Pipeline.State(),
		"scenes": h.Pipeline.Scenes(),
		"draft":  draft,
	})
}

// SaveWorkspace persists draft fields so a reload can resume them.
func (h *Handler) SaveWorkspace(c *gin.Context) {
	var draft models.WorkspaceDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.response.BadRequest(c, "Invalid workspace draft", err.Error())
		return
	}

	if err := h.Workspace.SaveDraft(draft); err != nil {
		h.response.InternalError(c, "Failed to save workspace draft", err.Error())
		return
	}
	h.response.Success(c, nil, "Draft saved")
}

// ListSessions returns all persisted sessions, oldest first.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.Sessions.List()
	if err != nil {
		h.response.InternalError(c, "Failed to list sessions", err.Error())
		return
	}
	h.response.Success(c, sessions)
}

// DeleteSession removes one session. Deleting an unknown ID succeeds.
func (h *Handler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		h.response.BadRequest(c, "Session ID is required")
		return
	}

	if err := h.Sessions.Remove(sessionID); err != nil {
		h.response.InternalError(c, "Failed to delete session", err.Error())
		return
	}
	h.response.Success(c, nil, "Session deleted")
}

// SearchHistory returns prompt entries matching the query, newest first.
func (h *Handler) SearchHistory(c *gin.Context) {
	entries, err := h.History.Search(c.Query("q"))
	if err != nil {
		h.response.InternalError(c, "Failed to search prompt history", err.Error())
		return
	}
	h.response.Success(c, entries)
}

// HistoryImage serves the earliest persisted image for an exact prompt, raw.
func (h *Handler) HistoryImage(c *gin.Context) {
	prompt := c.Query("prompt")
	if prompt == "" {
		h.response.BadRequest(c, "Query parameter 'prompt' is required")
		return
	}

	image, err := h.History.ImageFor(prompt)
	if err != nil {
		h.response.InternalError(c, "Failed to look up image", err.Error())
		return
	}
	if image == nil {
		h.response.NotFound(c, "No image recorded for this prompt")
		return
	}
	c.Data(http.StatusOK, image.MIMEType, image.Data)
}

// renderGenError maps classified generation errors to HTTP statuses.
func (h *Handler) renderGenError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	message := apperrors.UserMessage(kind)

	switch kind {
	case apperrors.KindInvalidCredential:
		h.response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIAL", message, err.Error())
	case apperrors.KindQuotaExceeded:
		h.response.Error(c, http.StatusTooManyRequests, "QUOTA_EXCEEDED", message, err.Error())
	case apperrors.KindStorageFull:
		h.response.InsufficientStorage(c, message)
	case apperrors.KindDecompositionFailure:
		h.response.Error(c, http.StatusUnprocessableEntity, "DECOMPOSITION_FAILURE", message, err.Error())
	case apperrors.KindBlockedOrEmpty:
		h.response.Error(c, http.StatusUnprocessableEntity, "BLOCKED_OR_EMPTY", message, err.Error())
	default:
		h.response.Error(c, http.StatusBadGateway, "GENERATION_FAILED", message, err.Error())
	}
}
