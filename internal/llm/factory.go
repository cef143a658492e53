package llm

import (
	"fmt"
	"strings"
)

// NewClient creates a generation client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
}
