package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/logtriage/internal/domain/ai"
	"github.com/bryanwahyu/logtriage/internal/domain/logs"
)

// Service wraps an ai.Client and turns its raw output into a validated Analysis.
type Service struct {
	client  ai.Client
	timeout time.Duration
}

func NewService(client ai.Client) *Service {
	return &Service{client: client}
}

// WithTimeout bounds each client call; zero means no bound beyond ctx.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Analyze returns the model's triage for sanitized text. Every error it returns
// matches logs.ErrAnalysisFailed; deadline and cancellation also match ai.ErrTimeout.
func (s *Service) Analyze(ctx context.Context, sanitized string) (logs.Analysis, error) {
	if s.client == nil {
		return logs.Analysis{}, fmt.Errorf("%w: %w", logs.ErrAnalysisFailed, ai.ErrNotConfigured)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	raw, err := s.client.Analyze(ctx, sanitized)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return logs.Analysis{}, fmt.Errorf("%w: %w: %w", logs.ErrAnalysisFailed, ai.ErrTimeout, err)
		}
		return logs.Analysis{}, fmt.Errorf("%w: %w", logs.ErrAnalysisFailed, err)
	}
	a, err := ParseAnalysis(raw)
	if err != nil {
		return logs.Analysis{}, fmt.Errorf("%w: %w", logs.ErrAnalysisFailed, err)
	}
	return a, nil
}

// ParseAnalysis decodes model output into an Analysis. Markdown code fences
// around the JSON are tolerated. issue_type and root_cause are required;
// a missing severity becomes Unknown.
func ParseAnalysis(raw string) (logs.Analysis, error) {
	body := stripFences(raw)
	var a logs.Analysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return logs.Analysis{}, fmt.Errorf("%w: %v", ai.ErrMalformedOutput, err)
	}
	a.IssueType = strings.TrimSpace(a.IssueType)
	a.RootCause = strings.TrimSpace(a.RootCause)
	a.Severity = strings.TrimSpace(a.Severity)
	if a.IssueType == "" || a.RootCause == "" {
		return logs.Analysis{}, fmt.Errorf("%w: issue_type and root_cause are required", ai.ErrMalformedOutput)
	}
	if a.Severity == "" {
		a.Severity = logs.SeverityUnknown
	}
	return a, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
