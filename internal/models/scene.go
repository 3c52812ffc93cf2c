// internal/models/scene.go
package models

// SceneStatus is the lifecycle state of a single scene resolution attempt.
type SceneStatus string

const (
	SceneStatusPending   SceneStatus = "pending"
	SceneStatusLoading   SceneStatus = "loading"
	SceneStatusSucceeded SceneStatus = "succeeded"
	SceneStatusFailed    SceneStatus = "failed"
)

// ImageRef holds one generated image. Data is base64-encoded in JSON.
type ImageRef struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// SceneError records why a scene resolution failed.
type SceneError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Scene is one script-derived prompt and its resolved (or failed) image.
// ID is the zero-based index within its session and doubles as narrative order.
type Scene struct {
	ID     int         `json:"id"`
	Prompt string      `json:"prompt"`
	Image  *ImageRef   `json:"image,omitempty"`
	Status SceneStatus `json:"status"`
	Error  *SceneError `json:"error,omitempty"`
}

// IsResolved reports whether the scene reached a terminal state for the
// current resolution attempt.
func (s *Scene) IsResolved() bool {
	return s.Status == SceneStatusSucceeded || s.Status == SceneStatusFailed
}
