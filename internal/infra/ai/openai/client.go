// Package openai talks to any OpenAI-compatible chat completions endpoint.
// The default base URL points at Groq.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/logtriage/internal/domain/ai"
	"github.com/bryanwahyu/logtriage/internal/infra/ai/prompt"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"

	defaultMaxTokens = 1024
)

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type Client struct {
	*openai.Client
	Model     string
	MaxTokens int
}

// NewClient returns ai.ErrNotConfigured when no API key is given.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: missing api key", ai.ErrNotConfigured)
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = DefaultBaseURL
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{Client: openai.NewClientWithConfig(oc), Model: model, MaxTokens: maxTokens}, nil
}

func (c *Client) Analyze(ctx context.Context, sanitized string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		// the field is omitempty, so an exact zero would not be sent
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(sanitized)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = c.MaxTokens
		req.Temperature = 0
	} else {
		req.MaxTokens = c.MaxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", ai.ErrMalformedOutput)
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", ai.ErrQuotaExceeded, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ai.ErrNotConfigured, err)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", ai.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("failed to create chat completion: %w", err)
}
