// internal/services/pipeline_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/errors"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/imagegen"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/llm"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/utils"
)

// RunState is the pipeline-level state.
type RunState string

const (
	RunStateIdle        RunState = "idle"
	RunStateAnalyzing   RunState = "analyzing_reference"
	RunStateDecomposing RunState = "decomposing_script"
	RunStateSynthesis   RunState = "synthesizing_scenes"
	RunStateCompleted   RunState = "completed"
	RunStateAborted     RunState = "aborted"
)

// TextClient is the slice of the LLM layer the pipeline needs.
type TextClient interface {
	CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// ImageClient is the slice of the image layer the pipeline needs.
type ImageClient interface {
	GenerateImage(ctx context.Context, req imagegen.ImageRequest) (*imagegen.ImageResult, error)
}

// RunResult is what one pipeline run hands back to the caller.
type RunResult struct {
	State     RunState       `json:"state"`
	Scenes    []models.Scene `json:"scenes"`
	SessionID string         `json:"session_id,omitempty"`
	Notice    string         `json:"notice,omitempty"`
}

// PipelineService orchestrates one generation run at a time: style
// resolution, script decomposition, then strictly sequential per-scene image
// synthesis with fail-fast semantics. Scene state lives here between runs so
// individual scenes can be regenerated and the UI can inspect partial
// results.
type PipelineService struct {
	text      TextClient
	image     ImageClient
	progress  *ProgressService
	assembler *AssemblerService
	workspace *WorkspaceService

	mu       sync.Mutex
	runToken uint64
	state    RunState
	scenes   []models.Scene
	config   models.GenerationConfig
}

// NewPipelineService wires the pipeline.
func NewPipelineService(text TextClient, image ImageClient, progress *ProgressService, assembler *AssemblerService, workspace *WorkspaceService) *PipelineService {
	return &PipelineService{
		text:      text,
		image:     image,
		progress:  progress,
		assembler: assembler,
		workspace: workspace,
		state:     RunStateIdle,
	}
}

// Scenes returns a copy of the current workspace scenes.
func (p *PipelineService) Scenes() []models.Scene {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyScenes(p.scenes)
}

// State returns the current pipeline state.
func (p *PipelineService) State() RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Clear resets visible workspace state immediately and bumps the run token so
// completions of any in-flight call are discarded instead of writing into the
// fresh state.
func (p *PipelineService) Clear() {
	p.mu.Lock()
	p.runToken++
	p.scenes = nil
	p.state = RunStateIdle
	p.config = models.GenerationConfig{}
	token := p.runToken
	p.mu.Unlock()

	if p.workspace != nil {
		if err := p.workspace.ClearDraft(); err != nil {
			utils.GetLogger().Warn("failed to clear workspace draft", map[string]interface{}{"err": err})
		}
	}
	p.publish(SceneEvent{RunID: token, Type: "run_state", RunState: string(RunStateIdle)})
}

// Run executes the full pipeline for config. Scenes resolve in script order;
// the first hard synthesis failure fails the current and all remaining scenes
// with the same classified error and stops issuing calls. A run with at least
// one succeeded scene is assembled into a session; a run with none is not
// persisted, but its scene state stays visible for inspection and
// regeneration.
func (p *PipelineService) Run(ctx context.Context, config models.GenerationConfig) (*RunResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.runToken++
	token := p.runToken
	p.scenes = nil
	p.config = config
	p.mu.Unlock()

	// Step 1: style resolution.
	if config.ReferenceImage != nil {
		p.setState(token, RunStateAnalyzing)
	}
	effectiveStyle, err := p.resolveStyle(ctx, config)
	if err != nil {
		p.abort(token, err)
		return nil, err
	}

	// Step 2: script decomposition.
	prompts, err := p.decomposeScript(ctx, token, config)
	if err != nil {
		p.abort(token, err)
		return nil, err
	}

	// Step 3: scene materialization, all loading, script order.
	scenes := make([]models.Scene, len(prompts))
	for i, prompt := range prompts {
		scenes[i] = models.Scene{ID: i, Prompt: prompt, Status: models.SceneStatusLoading}
	}
	if !p.setScenes(token, RunStateSynthesis, scenes) {
		return nil, errors.New(errors.KindTransient, "run superseded", nil)
	}
	for i := range scenes {
		p.publishScene(token, scenes[i])
	}
	p.saveDraft(token)

	// Step 4: strictly sequential synthesis with fail-fast.
	var failFast *errors.GenError
	for i := range scenes {
		if failFast != nil {
			scenes[i].Status = models.SceneStatusFailed
			scenes[i].Error = &models.SceneError{Kind: string(failFast.Kind), Message: failFast.Message}
			p.updateScene(token, scenes[i])
			continue
		}

		resolved, err := p.synthesizeScene(ctx, scenes[i].Prompt, effectiveStyle, config.AspectRatio)
		switch {
		case err == nil && resolved != nil:
			scenes[i].Status = models.SceneStatusSucceeded
			scenes[i].Image = resolved
		case err == nil:
			scenes[i].Status = models.SceneStatusFailed
			scenes[i].Error = &models.SceneError{
				Kind:    string(errors.KindBlockedOrEmpty),
				Message: "blocked or no output",
			}
		default:
			classified := errors.Classified(err, "image synthesis failed")
			failFast = classified
			scenes[i].Status = models.SceneStatusFailed
			scenes[i].Error = &models.SceneError{Kind: string(classified.Kind), Message: classified.Message}
		}
		if !p.updateScene(token, scenes[i]) {
			// A clear or newer run superseded this one; stop touching state
			// and issue no further calls.
			return nil, errors.New(errors.KindTransient, "run superseded", nil)
		}
	}

	// Step 5: terminal state and assembly.
	succeeded := 0
	for _, scene := range scenes {
		if scene.Status == models.SceneStatusSucceeded {
			succeeded++
		}
	}

	result := &RunResult{Scenes: copyScenes(scenes)}
	if succeeded == 0 {
		p.setState(token, RunStateAborted)
		result.State = RunStateAborted
		if failFast != nil {
			result.Notice = errors.UserMessage(failFast.Kind)
		} else {
			result.Notice = errors.UserMessage(errors.KindBlockedOrEmpty)
		}
		p.saveDraft(token)
		return result, nil
	}

	p.setState(token, RunStateCompleted)
	result.State = RunStateCompleted
	if failFast != nil {
		result.Notice = errors.UserMessage(failFast.Kind)
	}
	p.saveDraft(token)

	session, err := p.assembler.Assemble(config, scenes)
	if err != nil {
		if errors.IsStorageFull(err) {
			result.Notice = errors.UserMessage(errors.KindStorageFull)
			p.publish(SceneEvent{RunID: token, Type: "notice", Notice: result.Notice})
			return result, nil
		}
		return result, err
	}
	result.SessionID = session.ID

	return result, nil
}

// Regenerate re-resolves a single existing scene using its original prompt.
// Style analysis reruns only when a reference image is configured. No other
// scene is touched, and an already-assembled session is never updated.
func (p *PipelineService) Regenerate(ctx context.Context, sceneID int) (*models.Scene, error) {
	p.mu.Lock()
	token := p.runToken
	config := p.config
	var target *models.Scene
	for i := range p.scenes {
		if p.scenes[i].ID == sceneID {
			target = &p.scenes[i]
			break
		}
	}
	if target == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("scene %d not found", sceneID)
	}
	prompt := target.Prompt
	target.Status = models.SceneStatusLoading
	target.Error = nil
	loading := *target
	p.mu.Unlock()

	p.publishScene(token, loading)

	effectiveStyle, err := p.resolveStyle(ctx, config)
	if err != nil {
		classified := errors.Classified(err, "style analysis failed")
		updated := p.finishScene(token, sceneID, nil, classified)
		if updated == nil {
			return nil, errors.New(errors.KindTransient, "regeneration superseded", nil)
		}
		return updated, nil
	}

	resolved, err := p.synthesizeScene(ctx, prompt, effectiveStyle, config.AspectRatio)
	var failure *errors.GenError
	if err != nil {
		failure = errors.Classified(err, "image synthesis failed")
	} else if resolved == nil {
		failure = errors.NewBlockedOrEmpty("")
	}

	updated := p.finishScene(token, sceneID, resolved, failure)
	if updated == nil {
		// The workspace was cleared while the call was in flight; the stale
		// completion is discarded.
		return nil, errors.New(errors.KindTransient, "regeneration superseded", nil)
	}
	return updated, nil
}

// resolveStyle combines the optional reference-image description with the
// user's style keywords into the effective style string.
func (p *PipelineService) resolveStyle(ctx context.Context, config models.GenerationConfig) (string, error) {
	if config.ReferenceImage == nil {
		return config.StyleKeywords, nil
	}

	resp, err := p.text.CompleteText(ctx, llm.CompletionRequest{
		Prompt: "Describe the artistic style of this image in one short sentence: " +
			"medium, palette, lighting, rendering technique. Respond with the description only.",
		Temperature: 0.2,
		Image: &llm.ImageAttachment{
			MIMEType: config.ReferenceImage.MIMEType,
			Data:     config.ReferenceImage.Data,
		},
	})
	if err != nil {
		return "", errors.Classified(err, "reference style analysis failed")
	}

	description := strings.TrimSpace(resp.Text)
	if description == "" {
		return config.StyleKeywords, nil
	}
	if config.StyleKeywords == "" {
		return description, nil
	}
	return description + ", " + config.StyleKeywords, nil
}

// decomposeScript asks the text service for the ordered list of scene
// prompts. An empty or malformed list is a decomposition failure.
func (p *PipelineService) decomposeScript(ctx context.Context, token uint64, config models.GenerationConfig) ([]string, error) {
	p.setState(token, RunStateDecomposing)

	countInstruction := "Choose a natural number of scenes for the script."
	if config.TargetSceneCount != nil {
		countInstruction = fmt.Sprintf("Produce exactly %d scenes.", *config.TargetSceneCount)
	}

	resp, err := p.text.CompleteText(ctx, llm.CompletionRequest{
		SystemPrompt: "You split scripts into visual scenes for image generation. " +
			"Respond with a JSON array of strings, one self-contained image prompt per scene, " +
			"in narrative order. No commentary.",
		Prompt:         fmt.Sprintf("%s\n\nScript:\n%s", countInstruction, config.Script),
		Temperature:    0.4,
		WantStringList: true,
	})
	if err != nil {
		return nil, errors.Classified(err, "script decomposition failed")
	}

	var prompts []string
	cleaned := llm.CleanJSONString(resp.Text)
	if err := json.Unmarshal([]byte(cleaned), &prompts); err != nil {
		return nil, errors.NewDecompositionFailure("script decomposition returned a malformed list", err)
	}

	// Trim entries and drop empties; duplicates are allowed.
	valid := prompts[:0]
	for _, prompt := range prompts {
		if trimmed := strings.TrimSpace(prompt); trimmed != "" {
			valid = append(valid, trimmed)
		}
	}
	if len(valid) == 0 {
		return nil, errors.NewDecompositionFailure("script decomposition returned no scenes", nil)
	}
	return valid, nil
}

// synthesizeScene issues one image call. A nil image with a nil error means
// the service produced nothing usable.
func (p *PipelineService) synthesizeScene(ctx context.Context, prompt, effectiveStyle string, aspect models.AspectRatio) (*models.ImageRef, error) {
	fullPrompt := prompt
	if effectiveStyle != "" {
		fullPrompt = fmt.Sprintf("%s\n\nStyle: %s", prompt, effectiveStyle)
	}

	result, err := p.image.GenerateImage(ctx, imagegen.ImageRequest{
		Prompt:          fullPrompt,
		AspectRatio:     string(aspect),
		NumberOfOutputs: 1,
		OutputFormat:    models.OutputFormatPNG,
	})
	if err != nil {
		return nil, err
	}
	if result == nil || len(result.Image) == 0 {
		return nil, nil
	}

	mimeType := result.MIMEType
	if mimeType == "" {
		mimeType = models.OutputFormatPNG
	}
	return &models.ImageRef{MIMEType: mimeType, Data: result.Image}, nil
}

// --- token-guarded state writes ------------------------------------------

// setScenes installs the materialized scene list. Returns false when token is
// stale.
func (p *PipelineService) setScenes(token uint64, state RunState, scenes []models.Scene) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if token != p.runToken {
		return false
	}
	p.scenes = copyScenes(scenes)
	p.state = state
	return true
}

// updateScene writes one scene's resolution. Returns false when token is
// stale, in which case the caller must stop.
func (p *PipelineService) updateScene(token uint64, scene models.Scene) bool {
	p.mu.Lock()
	if token != p.runToken {
		p.mu.Unlock()
		utils.GetLogger().Debug("discarding stale scene update", map[string]interface{}{
			"scene_id": scene.ID,
		})
		return false
	}
	for i := range p.scenes {
		if p.scenes[i].ID == scene.ID {
			p.scenes[i] = scene
			break
		}
	}
	p.mu.Unlock()

	p.publishScene(token, scene)
	return true
}

// finishScene applies a regeneration outcome and returns the updated scene,
// or nil when the token is stale.
func (p *PipelineService) finishScene(token uint64, sceneID int, image *models.ImageRef, failure *errors.GenError) *models.Scene {
	p.mu.Lock()
	if token != p.runToken {
		p.mu.Unlock()
		return nil
	}
	var updated *models.Scene
	for i := range p.scenes {
		if p.scenes[i].ID != sceneID {
			continue
		}
		if failure != nil {
			p.scenes[i].Status = models.SceneStatusFailed
			p.scenes[i].Image = nil
			p.scenes[i].Error = &models.SceneError{Kind: string(failure.Kind), Message: failure.Message}
		} else {
			p.scenes[i].Status = models.SceneStatusSucceeded
			p.scenes[i].Image = image
			p.scenes[i].Error = nil
		}
		sceneCopy := p.scenes[i]
		updated = &sceneCopy
		break
	}
	p.mu.Unlock()

	if updated != nil {
		p.publishScene(token, *updated)
	}
	return updated
}

func (p *PipelineService) setState(token uint64, state RunState) {
	p.mu.Lock()
	if token != p.runToken {
		p.mu.Unlock()
		return
	}
	p.state = state
	p.mu.Unlock()

	p.publish(SceneEvent{RunID: token, Type: "run_state", RunState: string(state)})
}

func (p *PipelineService) abort(token uint64, err error) {
	p.setState(token, RunStateAborted)
	kind := errors.KindOf(err)
	p.publish(SceneEvent{RunID: token, Type: "notice", Notice: errors.UserMessage(kind)})
}

// saveDraft snapshots the in-progress workspace for reload recovery.
func (p *PipelineService) saveDraft(token uint64) {
	if p.workspace == nil {
		return
	}

	p.mu.Lock()
	if token != p.runToken {
		p.mu.Unlock()
		return
	}
	draft := models.WorkspaceDraft{
		Script:         p.config.Script,
		StyleKeywords:  p.config.StyleKeywords,
		AspectRatio:    p.config.AspectRatio,
		SceneCountHint: p.config.TargetSceneCount,
		Scenes:         copyScenes(p.scenes),
	}
	p.mu.Unlock()

	if err := p.workspace.SaveDraft(draft); err != nil {
		utils.GetLogger().Warn("failed to save workspace draft", map[string]interface{}{"err": err})
	}
}

func (p *PipelineService) publish(event SceneEvent) {
	if p.progress != nil {
		p.progress.Publish(event)
	}
}

func (p *PipelineService) publishScene(token uint64, scene models.Scene) {
	sceneCopy := scene
	p.publish(SceneEvent{RunID: token, Type: "scene_update", Scene: &sceneCopy})
}

func copyScenes(scenes []models.Scene) []models.Scene {
	out := make([]models.Scene, len(scenes))
	copy(out, scenes)
	return out
}
