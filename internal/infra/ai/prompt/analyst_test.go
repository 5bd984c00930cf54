package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}
	long := "line one\nline two\nline three\n"
	got := Truncate(long, 15)
	if !strings.HasPrefix(got, "... [truncated]\n") {
		t.Errorf("missing marker: %q", got)
	}
	if !strings.HasSuffix(got, "line three\n") {
		t.Errorf("tail lost: %q", got)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{strings.Repeat("é", 10), 5, "éé"},
		{strings.Repeat("é", 10), 4, "éé"},
		{"失败失败", 7, "失败"},
		{"ok 🔥🔥", 5, "🔥"},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.max)
		if !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) = %q, invalid UTF-8", tt.in, tt.max, got)
		}
		tail := strings.TrimPrefix(got, "... [truncated]\n")
		if tail != tt.want {
			t.Errorf("Truncate(%q, %d) tail = %q, want %q", tt.in, tt.max, tail, tt.want)
		}
		if len(tail) > tt.max {
			t.Errorf("tail %q longer than %d bytes", tail, tt.max)
		}
	}
}

func TestUserPromptCarriesLog(t *testing.T) {
	p := GetUserPrompt("ERROR connect to [REDACTED_IP] refused")
	if !strings.Contains(p, "ERROR connect to [REDACTED_IP] refused") {
		t.Errorf("prompt missing log: %q", p)
	}
}
