package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	domain "github.com/bryanwahyu/logtriage/internal/domain/logs"
	"github.com/bryanwahyu/logtriage/internal/domain/redact"
)

var (
	colorRed    = color.New(color.FgRed, color.Bold)
	colorYellow = color.New(color.FgYellow, color.Bold)
	colorGreen  = color.New(color.FgGreen)
	colorCyan   = color.New(color.FgCyan)
	colorFaint  = color.New(color.Faint)
)

// badge renders a severity the way the history view colors it.
func badge(severity string) string {
	label := "[" + strings.ToUpper(severity) + "]"
	switch domain.SeverityClass(severity) {
	case "high":
		return colorRed.Sprint(label)
	case "medium":
		return colorYellow.Sprint(label)
	default:
		return colorGreen.Sprint(label)
	}
}

func sourceLabel(s domain.Source) string {
	if s == domain.SourceCacheHit {
		return colorCyan.Sprint("cache hit")
	}
	return "fresh analysis"
}

func printAnalysis(w io.Writer, a domain.Analysis) {
	fmt.Fprintf(w, "%s %s\n", badge(a.Severity), a.IssueType)
	fmt.Fprintf(w, "  Root cause:    %s\n", a.RootCause)
	if a.SuggestedFix != "" {
		fmt.Fprintf(w, "  Suggested fix: %s\n", a.SuggestedFix)
	}
}

// highlightMarkers colors redaction markers in sanitized text.
func highlightMarkers(s string) string {
	if color.NoColor {
		return s
	}
	for _, m := range redact.Markers() {
		s = strings.ReplaceAll(s, m, colorYellow.Sprint(m))
	}
	return s
}

func printRecord(w io.Writer, r *domain.LogRecord) {
	fmt.Fprintf(w, "%s  %s  %s (%d bytes)\n",
		colorFaint.Sprint(r.Fingerprint.Short()),
		r.UploadedAt.Local().Format("2006-01-02 15:04"),
		r.Filename, r.SizeBytes)
	printAnalysis(w, r.Analysis)
}
