// internal/models/generation.go
package models

import "fmt"

// AspectRatio enumerates the output shapes the image service accepts.
type AspectRatio string

const (
	AspectSquare   AspectRatio = "1:1"
	AspectWide     AspectRatio = "16:9"
	AspectTall     AspectRatio = "9:16"
	AspectClassic  AspectRatio = "4:3"
	AspectPortrait AspectRatio = "3:4"

	DefaultAspect = AspectWide

	// OutputFormatPNG is the fixed output format requested from the image
	// service for every synthesis call.
	OutputFormatPNG = "image/png"
)

// ValidAspectRatio reports whether r is one of the fixed enum values.
func ValidAspectRatio(r AspectRatio) bool {
	switch r {
	case AspectSquare, AspectWide, AspectTall, AspectClassic, AspectPortrait:
		return true
	}
	return false
}

// GenerationConfig is the input to one pipeline run. It is not persisted.
type GenerationConfig struct {
	Script           string      `json:"script"`
	StyleKeywords    string      `json:"style_keywords"`
	ReferenceImage   *ImageRef   `json:"reference_image,omitempty"`
	AspectRatio      AspectRatio `json:"aspect_ratio"`
	TargetSceneCount *int        `json:"target_scene_count,omitempty"`
}

// Validate checks the fields the pipeline cannot default.
func (c *GenerationConfig) Validate() error {
	if c.Script == "" {
		return fmt.Errorf("script must not be empty")
	}
	if c.AspectRatio == "" {
		c.AspectRatio = DefaultAspect
	}
	if !ValidAspectRatio(c.AspectRatio) {
		return fmt.Errorf("unsupported aspect ratio: %s", c.AspectRatio)
	}
	if c.TargetSceneCount != nil && *c.TargetSceneCount <= 0 {
		return fmt.Errorf("target scene count must be positive")
	}
	return nil
}
