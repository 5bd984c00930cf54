// Package ollama runs the analysis against a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/bryanwahyu/logtriage/internal/domain/ai"
	"github.com/bryanwahyu/logtriage/internal/infra/ai/prompt"
)

const DefaultModel = "llama3.2"

// Config holds Ollama-specific configuration.
type Config struct {
	// Host is the Ollama API endpoint (e.g., "http://localhost:11434").
	// Empty means OLLAMA_HOST or the library default.
	Host      string
	Model     string
	MaxTokens int
}

type Client struct {
	client *api.Client
	model  string
	max    int
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var client *api.Client
	if cfg.Host != "" {
		u, err := url.Parse(cfg.Host)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: invalid ollama host %q", ai.ErrNotConfigured, cfg.Host)
		}
		client = api.NewClient(u, http.DefaultClient)
	} else {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ai.ErrNotConfigured, err)
		}
		client = c
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: client, model: model, max: cfg.MaxTokens, logger: logger}, nil
}

// Analyze asks the model for a JSON-formatted triage of sanitized.
func (c *Client) Analyze(ctx context.Context, sanitized string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: prompt.GetSystemPrompt()},
			{Role: "user", Content: prompt.GetUserPrompt(sanitized)},
		},
		Format:  json.RawMessage(`"json"`),
		Options: map[string]any{"temperature": 0},
		Stream:  &stream,
	}
	if c.max > 0 {
		req.Options["num_predict"] = c.max
	}

	var resp api.ChatResponse
	err := c.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		c.logger.Error("ollama chat failed", "model", c.model, "err", err)
		var se api.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %w", ai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	c.logger.Debug("ollama chat completed",
		"model", resp.Model,
		"prompt_tokens", resp.PromptEvalCount,
		"eval_tokens", resp.EvalCount)
	return resp.Message.Content, nil
}

// Check reports whether the server is reachable.
func (c *Client) Check(ctx context.Context) error {
	return c.client.Heartbeat(ctx)
}
