package models

// GenerationParams tunes one call to the narrative service.
type GenerationParams struct {
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int32   `yaml:"max_tokens"`
	// JSON asks the service for an application/json response.
	JSON bool `yaml:"json"`
}

// DefaultGenerationParams is used for narrative passes.
var DefaultGenerationParams = GenerationParams{Temperature: 0.8, MaxTokens: 2048, JSON: true}
