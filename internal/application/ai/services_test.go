package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	domai "github.com/bryanwahyu/logtriage/internal/domain/ai"
	"github.com/bryanwahyu/logtriage/internal/domain/logs"
)

type stubClient struct {
	out string
	err error
}

func (s stubClient) Analyze(ctx context.Context, sanitized string) (string, error) {
	return s.out, s.err
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    logs.Analysis
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"issue_type":"Database Error","root_cause":"pool exhausted","suggested_fix":"raise max conns","severity":"High"}`,
			want: logs.Analysis{IssueType: "Database Error", RootCause: "pool exhausted", SuggestedFix: "raise max conns", Severity: "High"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"issue_type\":\"Network Timeout\",\"root_cause\":\"upstream slow\",\"severity\":\"Medium\"}\n```",
			want: logs.Analysis{IssueType: "Network Timeout", RootCause: "upstream slow", Severity: "Medium"},
		},
		{
			name: "missing severity",
			raw:  `{"issue_type":"Syntax Error","root_cause":"bad token"}`,
			want: logs.Analysis{IssueType: "Syntax Error", RootCause: "bad token", Severity: logs.SeverityUnknown},
		},
		{name: "not json", raw: "I think it is a database problem", wantErr: true},
		{name: "missing issue type", raw: `{"root_cause":"x"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnalysis(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, domai.ErrMalformedOutput) {
					t.Fatalf("err = %v, want ErrMalformedOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestService_Analyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client domai.Client
		target error
	}{
		{"nil client", nil, domai.ErrNotConfigured},
		{"deadline", stubClient{err: context.DeadlineExceeded}, domai.ErrTimeout},
		{"canceled", stubClient{err: context.Canceled}, domai.ErrTimeout},
		{"quota", stubClient{err: domai.ErrQuotaExceeded}, domai.ErrQuotaExceeded},
		{"malformed", stubClient{out: "nope"}, domai.ErrMalformedOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.client).Analyze(context.Background(), "text")
			if !errors.Is(err, logs.ErrAnalysisFailed) {
				t.Errorf("err = %v, want ErrAnalysisFailed", err)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("err = %v, want %v", err, tt.target)
			}
		})
	}
}

type blockingClient struct{}

func (blockingClient) Analyze(ctx context.Context, sanitized string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestAnalyzeTimeout(t *testing.T) {
	svc := NewService(blockingClient{}).WithTimeout(20 * time.Millisecond)
	_, err := svc.Analyze(context.Background(), "text")
	if !errors.Is(err, domai.ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want timeout", err)
	}
	if !errors.Is(err, logs.ErrAnalysisFailed) {
		t.Errorf("err = %v, want ErrAnalysisFailed", err)
	}
}
