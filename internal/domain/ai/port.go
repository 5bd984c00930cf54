package ai

import "context"

// Client sends sanitized log text to a language model and returns the raw
// model output, expected to be a single JSON object.
type Client interface {
	Analyze(ctx context.Context, sanitized string) (string, error)
}
