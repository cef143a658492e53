// Package llm provides the narrative generation collaborator: clients
// for text-generation backends plus the grounded prompt builder.
package llm

import "context"

// Options tune a single generation call.
type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// DefaultOptions are the conservative generation settings used for SAR
// narratives: low temperature, bounded length.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.2,
		TopP:        0.9,
		MaxTokens:   800,
	}
}

// Client defines the interface for generation providers.
type Client interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Config selects and configures a generation provider.
type Config struct {
	Provider string
	BaseURL  string
	Model    string
	Timeout  int // seconds; generation is the long pole of the pipeline
}
