// internal/imagegen/interface.go
package imagegen

import (
	"context"
	"errors"
)

var ErrUnknownProvider = errors.New("unknown image provider")

// ImageRequest is the normalized image-synthesis request. NumberOfOutputs is
// always 1 and OutputFormat is fixed for every call the pipeline makes.
type ImageRequest struct {
	Prompt          string `json:"prompt"`
	AspectRatio     string `json:"aspect_ratio"`
	NumberOfOutputs int    `json:"number_of_outputs"`
	OutputFormat    string `json:"output_format"`
	Model           string `json:"model,omitempty"`
}

// ImageResult carries zero or one generated image. A nil Image with a nil
// error is a valid outcome: the service produced nothing (filtered or
// blocked) without failing.
type ImageResult struct {
	Image     []byte `json:"image,omitempty"`
	MIMEType  string `json:"mime_type,omitempty"`
	ModelName string `json:"model_name,omitempty"`
}

// Provider is the contract every image-synthesis client implements.
type Provider interface {
	Initialize(config map[string]string) error
	GetName() string
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// ProviderFactory constructs an uninitialized provider.
type ProviderFactory func() Provider

var providers = make(map[string]ProviderFactory)

// Register adds a provider factory to the registry.
func Register(name string, factory ProviderFactory) {
	providers[name] = factory
}

// GetProvider creates and initializes the named provider.
func GetProvider(name string, config map[string]string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	err := provider.Initialize(config)
	return provider, err
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}
