// internal/models/workspace.go
package models

// WorkspaceDraft holds the resumable draft fields of an unfinished workspace:
// script text, style text, aspect ratio, scene-count hint and any in-progress
// scenes. It is persisted separately from sessions and prompt history so a
// reload can restore the workspace, but it is not part of either model.
type WorkspaceDraft struct {
	Script         string      `json:"script"`
	StyleKeywords  string      `json:"style_keywords"`
	AspectRatio    AspectRatio `json:"aspect_ratio"`
	SceneCountHint *int        `json:"scene_count_hint,omitempty"`
	Scenes         []Scene     `json:"scenes,omitempty"`
}
