package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLogChars caps how much sanitized text is placed in the user message.
// Longer logs keep their tail, where the failure usually is.
const MaxLogChars = 24000

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are an expert software debugger. Analyze the error log you are given and produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- Output must be a single JSON object with exactly the keys below.
- issue_type is a short category, e.g. Database Error, Network Timeout, Syntax Error, Out Of Memory.
- root_cause is a detailed explanation of what went wrong.
- suggested_fix gives actionable steps or code snippets.
- severity is one of: Low, Medium, High, Critical.
- Values such as [REDACTED_IP], [REDACTED_EMAIL], [REDACTED_SECRET] and [REDACTED_PATH] are placeholders; never guess the original value.

Schema:
{
  "issue_type": "<string>",
  "root_cause": "<string>",
  "suggested_fix": "<string>",
  "severity": "<Low|Medium|High|Critical>"
}`
}

// GetUserPrompt wraps the sanitized log in the user message.
func GetUserPrompt(sanitized string) string {
	return fmt.Sprintf("Analyze the following error log and respond with the JSON per schema.\n\nLog Content:\n%s", Truncate(sanitized, MaxLogChars))
}

// Truncate keeps at most the last max bytes of s, cut on a line boundary when
// one is available and never inside a rune, and marks the cut.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	start := len(s) - max
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	tail := s[start:]
	if i := strings.IndexByte(tail, '\n'); i >= 0 && i < len(tail)-1 {
		tail = tail[i+1:]
	}
	return "... [truncated]\n" + tail
}
