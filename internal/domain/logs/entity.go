package logs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FailedIssueType marks an analysis that must never be cached.
const FailedIssueType = "Analysis Failed"

// SeverityUnknown is used when the analyzer gave no usable severity.
const SeverityUnknown = "Unknown"

// Source tells the caller where a result came from
type Source string

const (
	SourceCacheHit      Source = "cache_hit"
	SourceFreshAnalysis Source = "fresh_analysis"
)

// Analysis is the structured triage result returned by the analyzer.
// Severity is passed through as given; the vocabulary is not validated.
type Analysis struct {
	IssueType    string `json:"issue_type"`
	RootCause    string `json:"root_cause"`
	SuggestedFix string `json:"suggested_fix"`
	Severity     string `json:"severity"`
}

// Failed reports whether the analysis carries the failure sentinel.
func (a Analysis) Failed() bool {
	return a.IssueType == FailedIssueType
}

// FailedAnalysis builds the diagnostic result shown when analysis did not succeed.
func FailedAnalysis(cause error) Analysis {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return Analysis{
		IssueType:    FailedIssueType,
		RootCause:    "AI processing failed: " + msg,
		SuggestedFix: "Check the analyzer API key and network connectivity, then upload the log again.",
		Severity:     SeverityUnknown,
	}
}

// LogRecord is one cached analysis, keyed by the fingerprint of the sanitized text.
// Records are immutable once stored.
type LogRecord struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Filename    string      `json:"filename"`
	UploadedAt  time.Time   `json:"upload_time"`
	SizeBytes   int64       `json:"size_bytes"`
	Analysis    Analysis    `json:"analysis"`
	Severity    string      `json:"severity"`
}

// SeverityClass maps a free-form severity to a display bucket: high, medium or low.
func SeverityClass(severity string) string {
	s := strings.ToUpper(severity)
	switch {
	case strings.Contains(s, "HIGH"), strings.Contains(s, "CRITICAL"):
		return "high"
	case strings.Contains(s, "MEDIUM"):
		return "medium"
	default:
		return "low"
	}
}

// MarshalAnalysis serializes an analysis for the analysis column of a store.
func MarshalAnalysis(a Analysis) (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalAnalysis is the inverse of MarshalAnalysis. An empty column decodes
// to the zero Analysis.
func UnmarshalAnalysis(s string) (Analysis, error) {
	var a Analysis
	if strings.TrimSpace(s) == "" {
		return a, nil
	}
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	return a, nil
}
