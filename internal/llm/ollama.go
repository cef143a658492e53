package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/luminasar/luminasar/internal/common"
)

// ollamaClient implements the Client interface against a local Ollama
// server's /api/generate endpoint.
type ollamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// newOllamaClient creates a new Ollama API client.
func newOllamaClient(cfg Config) (Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := cfg.Model
	if model == "" {
		model = "llama3.2:latest"
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &ollamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Generate sends a single non-streaming generation request. Connection
// and timeout failures surface as ErrExternalUnavailable so the pipeline
// can classify them as a fatal collaborator outage.
func (c *ollamaClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	requestBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
			"top_p":       opts.TopP,
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama returned status %d: %s",
			common.ErrExternalUnavailable, resp.StatusCode, string(body))
	}

	var response ollamaResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	narrative := strings.TrimSpace(response.Response)
	if narrative == "" {
		return "", common.ErrEmptyNarrative
	}

	return narrative, nil
}

// classifyTransportError maps network failures to the collaborator
// error taxonomy.
func (c *ollamaClient) classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: generation timed out: %v", common.ErrExternalUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: generation timed out: %v", common.ErrExternalUnavailable, err)
	}
	return fmt.Errorf("%w: cannot reach ollama at %s: %v", common.ErrExternalUnavailable, c.baseURL, err)
}

// ollamaResponse is the subset of the /api/generate reply we consume.
type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}
