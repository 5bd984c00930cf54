package redact

import (
	"fmt"
	"regexp"
	"strings"
)

// Markers written in place of redacted values.
const (
	MarkerIP     = "[REDACTED_IP]"
	MarkerEmail  = "[REDACTED_EMAIL]"
	MarkerSecret = "[REDACTED_SECRET]"
	MarkerPath   = "[REDACTED_PATH]"
)

// DefaultSecretMinLength is the shortest value the secret rule will redact.
// Shorter values such as token=abc are left alone.
const DefaultSecretMinLength = 20

// DefaultSecretLabels are the assignment labels that introduce a secret value.
// Each entry is a regular expression fragment matched case-insensitively.
func DefaultSecretLabels() []string {
	return []string{`api[_-]?key`, `token`, `secret`, `password`, `passwd`}
}

// Rule is one ordered substitution.
type Rule struct {
	Name        string
	Marker      string
	Regex       *regexp.Regexp
	Replacement string // regexp template; defaults to Marker
	Description string
}

func (r Rule) apply(text string) (string, int) {
	locs := r.Regex.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, 0
	}
	repl := r.Replacement
	if repl == "" {
		return r.Regex.ReplaceAllLiteralString(text, r.Marker), len(locs)
	}
	return r.Regex.ReplaceAllString(text, repl), len(locs)
}

var (
	// four dot-separated groups of 1-3 digits; octets are not range checked
	ipv4Regex = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	windowsPathRegex = regexp.MustCompile(`[a-zA-Z]:\\[\\\S| ]+`)
	unixPathRegex    = regexp.MustCompile(`(?:/[a-zA-Z0-9._-]+)+/`)
)

func ipv4Rule() Rule {
	return Rule{Name: "ipv4", Marker: MarkerIP, Regex: ipv4Regex, Description: "IPv4 addresses"}
}

func emailRule() Rule {
	return Rule{Name: "email", Marker: MarkerEmail, Regex: emailRegex, Description: "Email addresses"}
}

// secretRule rewrites "<label> <op> <quote?><value><quote?>" as "<label>=[REDACTED_SECRET]".
// The label keeps the case it was written in.
func secretRule(labels []string, minLength int) (Rule, error) {
	if len(labels) == 0 {
		labels = DefaultSecretLabels()
	}
	if minLength <= 0 {
		return Rule{}, fmt.Errorf("secret min length must be positive, got %d", minLength)
	}
	pattern := fmt.Sprintf(`(?i)(%s)\s*[:=]\s*["']?([a-zA-Z0-9_\-]{%d,})["']?`,
		strings.Join(labels, "|"), minLength)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile secret labels: %w", err)
	}
	return Rule{
		Name:        "secret",
		Marker:      MarkerSecret,
		Regex:       re,
		Replacement: "${1}=" + MarkerSecret,
		Description: "Labelled credentials and tokens",
	}, nil
}

// pathRules over-match ordinary log text, so they only run when asked for.
func pathRules() []Rule {
	return []Rule{
		{Name: "windows_path", Marker: MarkerPath, Regex: windowsPathRegex, Description: "Windows file paths"},
		{Name: "unix_path", Marker: MarkerPath, Regex: unixPathRegex, Description: "Unix directory paths"},
	}
}

// Markers lists every marker a Redactor can write.
func Markers() []string {
	return []string{MarkerIP, MarkerEmail, MarkerSecret, MarkerPath}
}
